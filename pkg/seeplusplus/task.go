package seeplusplus

import (
	"fmt"
	"strings"
	"time"

	"github.com/mush1e/see-plus-plus/internal/connmanager"
	"github.com/mush1e/see-plus-plus/internal/reactor"
)

// resumer is the subset of *reactor.EventLoop a RequestTask needs: permission
// to let a pipelined request already buffered for fd continue parsing, and a
// uniform way to tear a connection down on any terminal condition.
type resumer interface {
	Resume(fd int)
	Disconnect(fd int)
}

// RequestTask is the unit of work the reactor hands the worker pool once a
// request is complete. It owns the parsed request (by value, via Request),
// the connection's shared state (by reference), a routing reference, and the
// server's keep-alive permission. Execute never runs concurrently with
// another task on the same fd: MarkInFlight/ClearInFlight around dispatch
// enforces that.
type RequestTask struct {
	conn    reactor.Conn
	state   *connmanager.ConnectionState
	manager *connmanager.Manager
	loop    resumer

	req    *Request
	router *Router

	serverKeepAlive bool
	serverName      string
}

// NewRequestTask assembles a task from one completed parse. Called only by
// Server's reactor.Handler implementation.
func NewRequestTask(conn reactor.Conn, state *connmanager.ConnectionState, manager *connmanager.Manager, loop resumer, req *Request, router *Router, serverKeepAlive bool, serverName string) *RequestTask {
	return &RequestTask{
		conn:            conn,
		state:           state,
		manager:         manager,
		loop:            loop,
		req:             req,
		router:          router,
		serverKeepAlive: serverKeepAlive,
		serverName:      serverName,
	}
}

// Execute implements workerpool.Task. workerID is carried through to the
// trace span purely for diagnostics.
func (t *RequestTask) Execute(workerID int) {
	start := time.Now()
	_, span := startRequestSpan(t.req, workerID)

	resp := newResponse(t.serverName)
	keepAlive := determineKeepAlive(t.req, t.serverKeepAlive)

	matched, err := t.routeRecovered(resp)
	switch {
	case err != nil:
		resp.Status = 500
		resp.StatusText = "Internal Server Error"
		resp.SetHeader("Content-Type", "text/plain")
		resp.Body = []byte("Internal Server Error")
		keepAlive = false
	case !matched:
		resp.Status = 404
		resp.StatusText = "Not Found"
		resp.SetHeader("Content-Type", "text/html")
		resp.Body = notFoundPage(t.req.Method, t.req.Path)
	}

	resp.SetHeader("Server", t.serverName)
	if keepAlive {
		resp.SetHeader("Connection", "keep-alive")
	} else {
		resp.SetHeader("Connection", "close")
	}

	// gnet's Conn.Write already retries internally against the kernel send
	// buffer until every byte is accepted or the connection errors, so the
	// partial-write loop collapses to a single call here; any error forces
	// keep-alive off regardless of what the routing decision chose.
	if werr := t.conn.Write(resp.Bytes()); werr != nil {
		keepAlive = false
	}

	finishRequestSpan(span, resp.Status, keepAlive, err)
	recordRequest(t.req.Method, resp.Status, start)

	fd := t.conn.FD()
	if keepAlive {
		t.state.Touch(time.Now())
		t.manager.ClearInFlight(fd)
		t.loop.Resume(fd)
		return
	}
	t.loop.Disconnect(fd)
}

// routeRecovered calls the router and converts a panicking handler into the
// same outcome as a handler that returned an error: a 500, with keep-alive
// forced off by the caller. Without this, a panic would unwind straight out
// of Execute and the fd's in-flight marker would never clear.
func (t *RequestTask) routeRecovered(resp *Response) (matched bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return t.router.Route(t.req, resp)
}

// determineKeepAlive decides the Connection header: HTTP/1.1 defaults to keep-alive
// unless Connection: close is present; HTTP/1.0 only keeps alive when
// Connection: keep-alive is explicitly present. Either way the server-wide
// keep-alive switch gates the decision first.
func determineKeepAlive(req *Request, serverKeepAlive bool) bool {
	if !serverKeepAlive {
		return false
	}
	conn := strings.ToLower(strings.TrimSpace(req.Header("Connection")))
	if req.Version == "HTTP/1.0" {
		return conn == "keep-alive"
	}
	return conn != "close"
}

// notFoundPage echoes the request method and path into the 404 body.
func notFoundPage(method, path string) []byte {
	return []byte("<html><body><h1>404 Not Found</h1><p>" +
		htmlEscape(method) + " " + htmlEscape(path) + " was not found on this server.</p></body></html>")
}

func htmlEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
