package seeplusplus

import (
	"context"
	"fmt"

	"github.com/mush1e/see-plus-plus/internal/httpdate"
	"github.com/mush1e/see-plus-plus/internal/httpparser"
	"github.com/mush1e/see-plus-plus/internal/reactor"
	"github.com/mush1e/see-plus-plus/internal/workerpool"
)

// Server wires the Router, the reactor's EventLoop, and the worker pool
// together: the reactor parses, the pool executes RequestTasks, and the
// router decides what each task's response looks like.
type Server struct {
	config   Config
	router   *Router
	pool     *workerpool.Pool
	loop     *reactor.EventLoop
	stopDate func()
}

// New constructs a Server from config (validated in place) and router.
func New(config Config, router *Router) *Server {
	if err := config.Validate(); err != nil {
		panic(err)
	}
	if router == nil {
		router = NewRouter()
	}
	return &Server{config: config, router: router}
}

// NewWithDefaults builds a Server from DefaultConfig and an empty Router the
// caller populates before ListenAndServe.
func NewWithDefaults() *Server {
	return New(DefaultConfig(), NewRouter())
}

// Router returns the server's Router so callers can register handlers
// before ListenAndServe.
func (s *Server) Router() *Router { return s.router }

// ListenAndServe starts accepting connections. Blocks until Stop is called
// or the listener fails to bind.
func (s *Server) ListenAndServe() error {
	s.stopDate = httpdate.StartTicker()
	s.pool = workerpool.New(s.config.WorkerCount, s.config.Logger)
	s.pool.OnDepthChange(recordQueueDepth)
	s.pool.OnBusyChange(recordWorkersBusy)

	s.loop = reactor.New(reactor.Config{
		Addr:            s.config.Addr,
		Multicore:       s.config.Multicore,
		NumEventLoop:    s.config.NumEventLoop,
		ReusePort:       s.config.ReusePort,
		MaxConnections:  s.config.MaxConnections,
		MaxRequestBytes: s.config.MaxRequestBytes,
		IdleTimeout:     s.config.IdleTimeout,
		ServerName:      s.config.ServerName,
		Logger:          s.config.Logger,
	}, s, reactorMetricsHooks())

	return s.loop.Start()
}

// Stop gracefully shuts the reactor down, then drains and joins the worker
// pool — the reactor stops producing new tasks before the pool stops
// consuming them, per the shutdown ordering in the concurrency model.
func (s *Server) Stop(ctx context.Context) error {
	if s.stopDate != nil {
		s.stopDate()
	}
	if s.loop == nil {
		return nil
	}
	if err := s.loop.Stop(ctx); err != nil {
		return fmt.Errorf("stopping reactor: %w", err)
	}
	if s.pool != nil {
		s.pool.Shutdown()
	}
	return nil
}

// HandleRequest implements reactor.Handler: it converts the parsed wire
// request to the public shape, looks up the connection's shared state, and
// submits a RequestTask to the pool. Never executes routing itself — that
// happens on the worker, never on the reactor goroutine.
func (s *Server) HandleRequest(conn reactor.Conn, req *httpparser.Request) {
	fd := conn.FD()
	handle := s.loop.Manager().Borrow(fd)
	if !handle.Valid() {
		return
	}
	task := NewRequestTask(conn, handle.State(), s.loop.Manager(), s.loop, fromParsed(req), s.router, s.config.KeepAlive, s.config.ServerName)
	s.pool.Submit(task)
}
