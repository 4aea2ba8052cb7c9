package reactor

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/panjf2000/gnet/v2"

	"github.com/mush1e/see-plus-plus/internal/connmanager"
	"github.com/mush1e/see-plus-plus/internal/httpparser"
)

// Conn is the send/close surface a RequestTask needs on a connection. It is
// satisfied by a gnet.Conn adapter in production and by a fake in tests.
type Conn interface {
	FD() int
	Write(b []byte) error
	Close() error
}

// Handler receives each fully-parsed request. Implementations are expected
// to build and submit a unit of work to a worker pool; EventLoop itself
// never executes application logic or routes anything.
type Handler interface {
	HandleRequest(conn Conn, req *httpparser.Request)
}

// Metrics is an optional set of counters the EventLoop reports into. A nil
// field is simply skipped.
type Metrics struct {
	OnAccept     func()
	OnReject     func()
	OnDisconnect func()
	OnParseError func()
}

// Config configures the listening socket and gnet engine.
type Config struct {
	Addr            string
	Multicore       bool
	NumEventLoop    int
	ReusePort       bool
	MaxConnections  int
	MaxRequestBytes int64
	IdleTimeout     time.Duration
	ServerName      string
	Logger          *log.Logger
}

// EventLoop owns the listening socket, the connection table, and the read
// path. It implements gnet.EventHandler; gnet itself is the non-blocking
// multiplexer underneath (see notifier.go for the EventNotifier it
// registers connections with).
type EventLoop struct {
	gnet.BuiltinEventEngine

	cfg     Config
	manager *connmanager.Manager
	handler Handler
	logger  *log.Logger
	metrics Metrics

	notifier *chanNotifier

	connsMu sync.RWMutex
	conns   map[int]Conn

	engine  gnet.Engine
	started bool

	stopSweep context.CancelFunc
}

// New returns an EventLoop ready to Start.
func New(cfg Config, handler Handler, metrics Metrics) *EventLoop {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = "see-plus-plus/1.0"
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = connmanager.DefaultIdleTimeout
	}
	return &EventLoop{
		cfg:      cfg,
		manager:  connmanager.New(cfg.MaxConnections, cfg.MaxRequestBytes),
		handler:  handler,
		logger:   cfg.Logger,
		metrics:  metrics,
		notifier: newChanNotifier(),
		conns:    make(map[int]Conn),
	}
}

// Manager exposes the connection table, mainly for tests and metrics polling.
func (l *EventLoop) Manager() *connmanager.Manager { return l.manager }

// Start runs the gnet engine and the idle-sweeper. Blocks until Stop is
// called or the engine fails to bind.
func (l *EventLoop) Start() error {
	sweepCtx, cancel := context.WithCancel(context.Background())
	l.stopSweep = cancel
	go l.sweepLoop(sweepCtx)

	options := []gnet.Option{
		gnet.WithMulticore(l.cfg.Multicore),
		gnet.WithReusePort(l.cfg.ReusePort),
		gnet.WithLogger(silentGnetLogger{}),
	}
	if l.cfg.NumEventLoop > 0 {
		options = append(options, gnet.WithNumEventLoop(l.cfg.NumEventLoop))
	}

	l.logger.Printf("reactor: listening on %s (multicore=%v)", l.cfg.Addr, l.cfg.Multicore)
	return gnet.Run(l, "tcp://"+l.cfg.Addr, options...)
}

// Stop gracefully stops the gnet engine and the idle-sweeper.
func (l *EventLoop) Stop(ctx context.Context) error {
	if l.stopSweep != nil {
		l.stopSweep()
	}
	if l.started {
		return l.engine.Stop(ctx)
	}
	return nil
}

func (l *EventLoop) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweepOnce()
		}
	}
}

// sweepOnce evicts connections that have been idle past the configured timeout.
func (l *EventLoop) sweepOnce() {
	stale := l.manager.SweepIdle(time.Now(), l.cfg.IdleTimeout)
	for _, fd := range stale {
		l.disconnect(fd, "idle timeout")
	}
}

// OnBoot records the engine handle so Stop can use it.
func (l *EventLoop) OnBoot(eng gnet.Engine) gnet.Action {
	l.engine = eng
	l.started = true
	return gnet.None
}

// OnOpen admits the new connection or rejects it if the cap is reached.
func (l *EventLoop) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	fd := c.Fd()
	ip, port := splitHostPort(c.RemoteAddr())

	if !l.manager.Admit(fd, ip, port) {
		if l.metrics.OnReject != nil {
			l.metrics.OnReject()
		}
		l.logger.Printf("reactor: rejecting fd %d, connection cap reached", fd)
		return nil, gnet.Close
	}

	conn := &gnetConn{c: c}
	l.connsMu.Lock()
	l.conns[fd] = conn
	l.connsMu.Unlock()

	if err := l.notifier.Register(fd, EventRead); err != nil {
		l.logger.Printf("reactor: register fd %d: %v", fd, err)
	}
	if l.metrics.OnAccept != nil {
		l.metrics.OnAccept()
	}
	return nil, gnet.None
}

// OnClose disconnects and evicts fd. Idempotent via Manager.Evict.
func (l *EventLoop) OnClose(c gnet.Conn, err error) gnet.Action {
	fd := c.Fd()
	l.disconnect(fd, fmt.Sprintf("closed: %v", err))
	return gnet.None
}

// OnTraffic drains available bytes, feeds the parser, and dispatches
// complete requests.
func (l *EventLoop) OnTraffic(c gnet.Conn) gnet.Action {
	fd := c.Fd()
	data, err := c.Next(-1)
	if err != nil {
		l.logger.Printf("reactor: read fd %d: %v", fd, err)
		return gnet.Close
	}

	conn := l.lookupConn(fd)
	if conn == nil {
		return gnet.Close
	}
	return l.processFD(conn, fd, data)
}

// processFD is shared between OnTraffic (fresh bytes just read off the
// socket) and Resume (a worker finished and wants to drain a pipelined
// request already sitting in the parser's buffer). newData is always
// appended to the parser's buffer before anything else happens, even if a
// task is currently in flight for fd: OnTraffic only fires once per readable
// event, so bytes not appended now are gone for good, not merely delayed.
// Only *dispatching* a newly-complete request is gated on in-flight status.
func (l *EventLoop) processFD(conn Conn, fd int, newData []byte) gnet.Action {
	handle := l.manager.Borrow(fd)
	if !handle.Valid() {
		return gnet.Close
	}

	if len(newData) > 0 {
		if !l.manager.RecordBytes(fd, len(newData)) {
			l.sendAndClose(conn, fd, 413, "Request Entity Too Large")
			return gnet.Close
		}
	}

	parser := handle.Parser()
	if !parser.Append(newData) {
		status, text := errorResponse(parser.Err())
		l.sendAndClose(conn, fd, status, text)
		return gnet.Close
	}

	for {
		if l.manager.InFlight(fd) {
			return gnet.None
		}

		result := parser.Feed(nil)

		switch result {
		case httpparser.NeedMore:
			return gnet.None
		case httpparser.Error:
			if l.metrics.OnParseError != nil {
				l.metrics.OnParseError()
			}
			status, text := errorResponse(parser.Err())
			l.sendAndClose(conn, fd, status, text)
			return gnet.Close
		case httpparser.Complete:
			req := parser.Request()
			l.manager.ResetParser(fd)
			l.manager.MarkInFlight(fd)
			handle.State().Touch(time.Now())
			l.handler.HandleRequest(conn, req)
			// Loop: the next iteration sees InFlight == true and returns,
			// until the worker calls Resume.
		}
	}
}

// Resume is called by a finished RequestTask to continue parsing any bytes
// already buffered for fd (pipelined requests) and, if keep-alive held the
// connection open, to let a subsequent OnTraffic dispatch again.
func (l *EventLoop) Resume(fd int) {
	if !l.manager.Contains(fd) {
		return
	}
	conn := l.lookupConn(fd)
	if conn == nil {
		return
	}
	l.processFD(conn, fd, nil)
}

// Disconnect is exposed so a RequestTask can force-close a connection (e.g.
// on a send error) and have the table cleaned up consistently with every
// other termination path.
func (l *EventLoop) Disconnect(fd int) {
	l.disconnect(fd, "disconnected by worker")
}

func (l *EventLoop) disconnect(fd int, reason string) {
	if !l.manager.Contains(fd) {
		return
	}
	_ = l.notifier.Unregister(fd)
	l.manager.Evict(fd)

	l.connsMu.Lock()
	conn := l.conns[fd]
	delete(l.conns, fd)
	l.connsMu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if l.metrics.OnDisconnect != nil {
		l.metrics.OnDisconnect()
	}
}

func (l *EventLoop) lookupConn(fd int) Conn {
	l.connsMu.RLock()
	defer l.connsMu.RUnlock()
	return l.conns[fd]
}

func (l *EventLoop) sendAndClose(conn Conn, fd int, status int, text string) {
	body := text
	resp := "HTTP/1.1 " + strconv.Itoa(status) + " " + text + "\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Length: " + strconv.Itoa(len(body)) + "\r\n" +
		"Connection: close\r\n" +
		"Server: " + l.cfg.ServerName + "\r\n" +
		"\r\n" + body
	if err := conn.Write([]byte(resp)); err != nil {
		l.logger.Printf("reactor: send fd %d: %v", fd, err)
	}
	l.disconnect(fd, "error response sent")
}

// errorResponse maps a parser error kind to the status line it produces.
func errorResponse(kind httpparser.ErrorKind) (int, string) {
	switch kind {
	case httpparser.ErrBufferTooLarge:
		return 413, "Request Entity Too Large"
	default:
		return 400, "Bad Request"
	}
}

func splitHostPort(addr net.Addr) (string, uint16) {
	host, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String(), 0
	}
	port, _ := strconv.Atoi(portStr)
	return host, uint16(port)
}

// gnetConn adapts gnet.Conn to the Conn interface the task layer uses.
type gnetConn struct {
	c gnet.Conn
}

func (g *gnetConn) FD() int { return g.c.Fd() }
func (g *gnetConn) Write(b []byte) error {
	_, err := g.c.Write(b)
	return err
}
func (g *gnetConn) Close() error { return g.c.Close() }

// silentGnetLogger discards gnet's own internal logging; the reactor speaks
// through its own *log.Logger instead.
type silentGnetLogger struct{}

func (silentGnetLogger) Debugf(string, ...any) {}
func (silentGnetLogger) Infof(string, ...any)  {}
func (silentGnetLogger) Warnf(string, ...any)  {}
func (silentGnetLogger) Errorf(string, ...any) {}
func (silentGnetLogger) Fatalf(string, ...any) {}
