// Package connmanager implements the thread-safe table of live connections:
// one HTTPParser, one byte counter, and one ConnectionState per file
// descriptor, reached through a reader-writer lock.
package connmanager

import (
	"sync"
	"time"

	"github.com/mush1e/see-plus-plus/internal/httpparser"
)

// Default caps, carried from the original connection manager's constants.
const (
	DefaultMaxConnections  = 1024
	DefaultIdleTimeout     = 300 * time.Second
	DefaultMaxRequestBytes = 1 << 20 // 1 MiB
)

// Protocol tags a connection as HTTP or (post-handshake) WebSocket. Only
// handshake detection is in scope; no framing is implemented.
type Protocol int

const (
	ProtocolHTTP Protocol = iota
	ProtocolWebSocket
)

// ConnectionState is the identity and activity record for one accepted
// connection. FD, IP, and Port are immutable for the connection's life;
// the fields mutated after admission (last-activity through Touch, the
// protocol tag and handshake flag through MarkWebSocket) are only changed
// under the entry's lock.
type ConnectionState struct {
	FD      int
	IP      string
	Port    uint16
	Created time.Time

	mu                     sync.Mutex
	lastActivity           time.Time
	protocol               Protocol
	websocketHandshakeDone bool
}

// LastActivity returns the last-activity instant under the entry's lock.
func (c *ConnectionState) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// Touch advances last-activity to now. Last-activity is monotonic
// nondecreasing: a touch earlier than the stored value is ignored.
func (c *ConnectionState) Touch(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if now.After(c.lastActivity) {
		c.lastActivity = now
	}
}

// Protocol returns the connection's protocol tag.
func (c *ConnectionState) Protocol() Protocol {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.protocol
}

// MarkWebSocket flips the protocol tag and handshake-complete flag once a
// WebSocket upgrade handshake has been detected and completed.
func (c *ConnectionState) MarkWebSocket() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.protocol = ProtocolWebSocket
	c.websocketHandshakeDone = true
}

// entry is internal to Manager: the state shared with the in-flight task,
// the exclusively-owned parser, and the cumulative byte counter.
type entry struct {
	state         *ConnectionState
	parser        *httpparser.Parser
	bytesReceived int64
	inFlight      bool
	createdStats  time.Time
}

// Manager is the concurrent fd -> entry table. Reads (lookups, stats,
// idle-sweep inspection) may proceed concurrently; admissions, evictions,
// byte-count mutations, and parser resets take exclusive access.
type Manager struct {
	mu          sync.RWMutex
	entries     map[int]*entry
	maxConns    int
	maxReqBytes int64
}

// New returns an empty Manager with the given caps. Zero values fall back to
// the package defaults.
func New(maxConns int, maxRequestBytes int64) *Manager {
	if maxConns <= 0 {
		maxConns = DefaultMaxConnections
	}
	if maxRequestBytes <= 0 {
		maxRequestBytes = DefaultMaxRequestBytes
	}
	return &Manager{
		entries:     make(map[int]*entry),
		maxConns:    maxConns,
		maxReqBytes: maxRequestBytes,
	}
}

// Admit inserts a fresh entry for fd, refusing if the table is at capacity.
func (m *Manager) Admit(fd int, ip string, port uint16) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) >= m.maxConns {
		return false
	}
	now := time.Now()
	m.entries[fd] = &entry{
		state: &ConnectionState{
			FD:           fd,
			IP:           ip,
			Port:         port,
			Created:      now,
			lastActivity: now,
		},
		parser:       httpparser.New(),
		createdStats: now,
	}
	return true
}

// Handle is a scoped accessor granting access to one connection's state and
// parser. It is invalid (nil-backed) if the fd was absent at lookup time;
// callers must check Valid() before use.
type Handle struct {
	state  *ConnectionState
	parser *httpparser.Parser
}

// Valid reports whether the handle refers to a live entry.
func (h Handle) Valid() bool { return h.state != nil }

// State returns the connection's shared identity/activity record.
func (h Handle) State() *ConnectionState { return h.state }

// Parser returns the connection's exclusively-owned parser. Only the
// reactor's read path touches it; workers never reach the parser.
func (h Handle) Parser() *httpparser.Parser { return h.parser }

// Borrow returns a Handle for fd, or an invalid Handle if fd is unknown.
func (m *Manager) Borrow(fd int) Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[fd]
	if !ok {
		return Handle{}
	}
	return Handle{state: e.state, parser: e.parser}
}

// RecordBytes adds n to fd's cumulative byte counter for the current request
// cycle, returning false if the new total exceeds the configured cap.
func (m *Manager) RecordBytes(fd int, n int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[fd]
	if !ok {
		return false
	}
	e.bytesReceived += int64(n)
	return e.bytesReceived <= m.maxReqBytes
}

// ResetParser resets fd's parser and zeros its byte counter, readying it for
// the next request cycle on the same (kept-alive) connection.
func (m *Manager) ResetParser(fd int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[fd]
	if !ok {
		return
	}
	e.parser.Reset()
	e.bytesReceived = 0
}

// MarkInFlight records that a task now owns fd's send path, refusing to mark
// a connection that's already marked. The reactor consults this before
// dispatching a second task for the same fd (pipelined requests queue up
// behind the in-flight one instead of racing it onto the socket).
func (m *Manager) MarkInFlight(fd int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[fd]
	if !ok || e.inFlight {
		return false
	}
	e.inFlight = true
	return true
}

// ClearInFlight releases fd's in-flight marker once a task has finished
// sending its response.
func (m *Manager) ClearInFlight(fd int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[fd]; ok {
		e.inFlight = false
	}
}

// InFlight reports whether a task currently owns fd's send path.
func (m *Manager) InFlight(fd int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[fd]
	return ok && e.inFlight
}

// Evict removes fd's entry. Idempotent.
func (m *Manager) Evict(fd int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, fd)
}

// Contains reports whether fd currently has a live entry.
func (m *Manager) Contains(fd int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[fd]
	return ok
}

// Count returns the number of live entries.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// SweepIdle returns the fds whose last-activity is older than now-timeout.
// The caller is responsible for disconnecting and evicting each one.
func (m *Manager) SweepIdle(now time.Time, timeout time.Duration) []int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stale []int
	for fd, e := range m.entries {
		if now.Sub(e.state.LastActivity()) > timeout {
			stale = append(stale, fd)
		}
	}
	return stale
}
