// Command seeplusplus runs the HTTP/1.x server standalone: a listen port,
// a worker count, keep-alive on/off, and a request timeout are all the
// configuration this core needs from the outside.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mush1e/see-plus-plus/pkg/seeplusplus"
)

func main() {
	var (
		port           = flag.Int("port", 8080, "listen port")
		workers        = flag.Int("workers", 4, "worker pool size")
		keepAlive      = flag.Bool("keep-alive", false, "enable HTTP keep-alive")
		requestTimeout = flag.Int("request-timeout", 30, "request timeout in seconds")
	)
	flag.Parse()

	cfg := seeplusplus.DefaultConfig()
	cfg.Addr = fmt.Sprintf(":%d", *port)
	cfg.WorkerCount = *workers
	cfg.KeepAlive = *keepAlive
	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
	cfg.Logger = log.New(os.Stdout, "seeplusplus: ", log.LstdFlags)

	router := seeplusplus.NewRouter()
	registerDemoRoutes(router)

	srv := seeplusplus.New(cfg, router)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		cfg.Logger.Printf("listening on %s", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case sig := <-sigCh:
		cfg.Logger.Printf("received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			cfg.Logger.Printf("shutdown error: %v", err)
			os.Exit(1)
		}
	case err := <-errCh:
		if err != nil {
			cfg.Logger.Printf("server error: %v", err)
			os.Exit(1)
		}
	}
}

// registerDemoRoutes wires the handler contract's minimal worked example
// (hello + JSON echo): a full handler library is a collaborator this core
// deliberately leaves external.
func registerDemoRoutes(r *seeplusplus.Router) {
	r.GET("/hello", seeplusplus.HandlerFunc(func(req *seeplusplus.Request, resp *seeplusplus.Response) error {
		resp.String(200, "Hello")
		return nil
	}))

	r.POST("/echo", seeplusplus.HandlerFunc(func(req *seeplusplus.Request, resp *seeplusplus.Response) error {
		resp.SetHeader("Content-Type", "application/json")
		resp.Status = 200
		resp.StatusText = "OK"
		resp.Body = req.Body
		return nil
	}))
}
