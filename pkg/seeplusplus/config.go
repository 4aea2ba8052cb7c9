package seeplusplus

import (
	"io"
	"log"
	"time"

	"github.com/mush1e/see-plus-plus/internal/connmanager"
)

// Config holds the server's listener, pool, and resource-cap settings.
type Config struct {
	Addr         string // listen address, e.g. ":8080"
	Multicore    bool
	NumEventLoop int
	ReusePort    bool

	WorkerCount int // default 4

	KeepAlive      bool          // server-side keep-alive permission; default off
	RequestTimeout time.Duration // reserved per-request timeout knob; default 30s

	MaxConnections  int
	MaxRequestBytes int64
	IdleTimeout     time.Duration // default 300s

	ServerName string // default "see-plus-plus/1.0"
	Logger     *log.Logger
}

// newSilentLogger returns a logger that discards all output. It is the
// logger DefaultConfig supplies; Validate instead fills a nil Logger with
// log.Default().
func newSilentLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// DefaultConfig returns the configuration named in the external interface:
// port 8080, 4 workers, keep-alive off, 30s request timeout.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		Multicore:       true,
		ReusePort:       true,
		WorkerCount:     4,
		KeepAlive:       false,
		RequestTimeout:  30 * time.Second,
		MaxConnections:  connmanager.DefaultMaxConnections,
		MaxRequestBytes: connmanager.DefaultMaxRequestBytes,
		IdleTimeout:     connmanager.DefaultIdleTimeout,
		ServerName:      "see-plus-plus/1.0",
		Logger:          newSilentLogger(),
	}
}

// Validate fills in zero-valued fields with defaults and normalizes caps.
func (c *Config) Validate() error {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = 4
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = connmanager.DefaultMaxConnections
	}
	if c.MaxRequestBytes <= 0 {
		c.MaxRequestBytes = connmanager.DefaultMaxRequestBytes
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = connmanager.DefaultIdleTimeout
	}
	if c.ServerName == "" {
		c.ServerName = "see-plus-plus/1.0"
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	return nil
}
