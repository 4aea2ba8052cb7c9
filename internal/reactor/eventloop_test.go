package reactor

import (
	"net"
	"testing"

	"github.com/panjf2000/gnet/v2"

	"github.com/mush1e/see-plus-plus/internal/httpparser"
)

type nopHandler struct {
	calls int
	last  *httpparser.Request
}

func (h *nopHandler) HandleRequest(conn Conn, req *httpparser.Request) {
	h.calls++
	h.last = req
}

func TestNewAppliesDefaults(t *testing.T) {
	l := New(Config{Addr: "127.0.0.1:0"}, &nopHandler{}, Metrics{})
	if l.cfg.ServerName != "see-plus-plus/1.0" {
		t.Fatalf("unexpected default server name: %q", l.cfg.ServerName)
	}
	if l.cfg.IdleTimeout == 0 {
		t.Fatal("expected a default idle timeout")
	}
	if l.Manager() == nil {
		t.Fatal("expected a connection manager to be constructed")
	}
}

func TestResumeOnUnknownFDIsNoop(t *testing.T) {
	l := New(Config{Addr: "127.0.0.1:0"}, &nopHandler{}, Metrics{})
	l.Resume(42) // must not panic on an fd that was never admitted
}

func TestDisconnectIsIdempotent(t *testing.T) {
	l := New(Config{Addr: "127.0.0.1:0"}, &nopHandler{}, Metrics{})
	l.Manager().Admit(7, "127.0.0.1", 1234)
	l.Disconnect(7)
	l.Disconnect(7) // second call must not panic
	if l.Manager().Contains(7) {
		t.Fatal("expected fd to be evicted")
	}
}

func TestErrorResponseMapping(t *testing.T) {
	status, _ := errorResponse(httpparser.ErrBufferTooLarge)
	if status != 413 {
		t.Fatalf("expected 413 for buffer-too-large, got %d", status)
	}
	status, _ = errorResponse(httpparser.ErrInvalidRequestLine)
	if status != 400 {
		t.Fatalf("expected 400 for invalid request line, got %d", status)
	}
	status, _ = errorResponse(httpparser.ErrTooManyHeaders)
	if status != 400 {
		t.Fatalf("expected 400 for too-many-headers, got %d", status)
	}
}

func TestSplitHostPort(t *testing.T) {
	addr, err := net.ResolveTCPAddr("tcp", "10.0.0.5:8080")
	if err != nil {
		t.Fatal(err)
	}
	ip, port := splitHostPort(addr)
	if ip != "10.0.0.5" || port != 8080 {
		t.Fatalf("unexpected split: ip=%s port=%d", ip, port)
	}
}

// fakeConn is a minimal Conn used to drive processFD-adjacent behavior
// without a real gnet engine.
type fakeConn struct {
	fd     int
	writes [][]byte
	closed bool
}

func (f *fakeConn) FD() int { return f.fd }
func (f *fakeConn) Write(b []byte) error {
	f.writes = append(f.writes, append([]byte(nil), b...))
	return nil
}
func (f *fakeConn) Close() error { f.closed = true; return nil }

func TestProcessFDDispatchesCompleteRequest(t *testing.T) {
	h := &nopHandler{}
	l := New(Config{Addr: "127.0.0.1:0"}, h, Metrics{})
	l.Manager().Admit(1, "127.0.0.1", 9000)
	conn := &fakeConn{fd: 1}
	l.connsMu.Lock()
	l.conns[1] = conn
	l.connsMu.Unlock()

	req := []byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n")
	l.processFD(conn, 1, req)

	if h.calls != 1 {
		t.Fatalf("expected handler to be invoked once, got %d", h.calls)
	}
	if !l.Manager().InFlight(1) {
		t.Fatal("expected connection to be marked in-flight after dispatch")
	}
}

func TestProcessFDGatesSecondPipelinedRequestUntilResume(t *testing.T) {
	h := &nopHandler{}
	l := New(Config{Addr: "127.0.0.1:0"}, h, Metrics{})
	l.Manager().Admit(1, "127.0.0.1", 9000)
	conn := &fakeConn{fd: 1}
	l.connsMu.Lock()
	l.conns[1] = conn
	l.connsMu.Unlock()

	pipelined := []byte("GET /a HTTP/1.1\r\nHost: x\r\n\r\nGET /b HTTP/1.1\r\nHost: x\r\n\r\n")
	l.processFD(conn, 1, pipelined)
	if h.calls != 1 {
		t.Fatalf("expected only the first pipelined request to dispatch, got %d calls", h.calls)
	}

	l.Manager().ClearInFlight(1)
	l.Resume(1)
	if h.calls != 2 {
		t.Fatalf("expected Resume to drain the second pipelined request, got %d calls", h.calls)
	}
}

func TestProcessFDAppendsBytesArrivingWhileInFlight(t *testing.T) {
	h := &nopHandler{}
	l := New(Config{Addr: "127.0.0.1:0"}, h, Metrics{})
	l.Manager().Admit(1, "127.0.0.1", 9000)
	conn := &fakeConn{fd: 1}
	l.connsMu.Lock()
	l.conns[1] = conn
	l.connsMu.Unlock()

	first := []byte("GET /a HTTP/1.1\r\nHost: x\r\n\r\n")
	l.processFD(conn, 1, first)
	if h.calls != 1 {
		t.Fatalf("expected the first request to dispatch, got %d calls", h.calls)
	}
	if !l.Manager().InFlight(1) {
		t.Fatal("expected fd to be in flight after the first dispatch")
	}

	// A second OnTraffic event delivers the next request's bytes while the
	// first task is still executing. They must land in the parser's buffer
	// now, even though dispatch is gated, or they're lost for good.
	second := []byte("GET /b HTTP/1.1\r\nHost: x\r\n\r\n")
	action := l.processFD(conn, 1, second)
	if action != gnet.None {
		t.Fatalf("expected processFD to return None while in flight, got %v", action)
	}
	if h.calls != 1 {
		t.Fatalf("expected the second request to stay queued, got %d calls", h.calls)
	}

	l.Manager().ClearInFlight(1)
	l.Resume(1)
	if h.calls != 2 {
		t.Fatalf("expected Resume to dispatch the second request once bytes were appended, got %d calls", h.calls)
	}
	if h.last.Path != "/b" {
		t.Fatalf("expected the second request's path to be /b, got %q", h.last.Path)
	}
}

func TestProcessFDRejectsOversizedRequest(t *testing.T) {
	l := New(Config{Addr: "127.0.0.1:0", MaxRequestBytes: 4}, &nopHandler{}, Metrics{})
	l.Manager().Admit(1, "127.0.0.1", 9000)
	conn := &fakeConn{fd: 1}
	l.connsMu.Lock()
	l.conns[1] = conn
	l.connsMu.Unlock()

	l.processFD(conn, 1, []byte("GET / HTTP/1.1\r\n\r\n"))
	if len(conn.writes) != 1 {
		t.Fatalf("expected one error response to be written, got %d", len(conn.writes))
	}
	if !conn.closed {
		t.Fatal("expected connection to be closed after oversized request")
	}
}
