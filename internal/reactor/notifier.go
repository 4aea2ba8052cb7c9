// Package reactor owns the listening socket, the non-blocking multiplexer,
// and the per-connection read path: drain bytes, feed the parser, and hand
// complete requests off to a caller-supplied handler. Multiplexing itself is
// delegated to gnet/v2, which owns its own event-loop goroutines and invokes
// OnOpen/OnTraffic/OnClose synchronously as readiness is detected: there is
// no separate pull-style wait loop to bridge into, since gnet's own callback
// dispatch already is that loop.
package reactor

// EventFlags is a portable bitset over readiness conditions, kept for parity
// with a raw-syscall notifier even though the gnet backend below never needs
// to distinguish between them.
type EventFlags uint32

const (
	EventRead EventFlags = 1 << iota
	EventWrite
	EventError
	EventHangup
)

// EventNotifier tracks interest in a connection's readiness. Register and
// Unregister are the only operations a push-based backend like gnet can
// satisfy: gnet owns its own poll loop and hands callbacks a gnet.Action to
// return synchronously, so there is nothing for a separate blocking Wait
// call to pull from without breaking that contract. A raw-epoll-backed
// EventNotifier would add Wait here; the gnet backend has no use for it.
type EventNotifier interface {
	Register(fd int, interest EventFlags) error
	Unregister(fd int) error
}

// chanNotifier is the gnet-backed EventNotifier. Both methods are no-ops:
// gnet registers a connection's fd on OnOpen and deregisters it on OnClose
// by itself, with no seam for an external call to act on. EventLoop still
// calls Register from OnOpen and Unregister from disconnect at exactly the
// points a different backend would need them.
type chanNotifier struct{}

func newChanNotifier() *chanNotifier { return &chanNotifier{} }

func (n *chanNotifier) Register(fd int, interest EventFlags) error { return nil }
func (n *chanNotifier) Unregister(fd int) error                    { return nil }
