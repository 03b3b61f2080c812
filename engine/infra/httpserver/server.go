package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/miniflow/miniflow/pkg/config"
	"github.com/miniflow/miniflow/pkg/logger"
)

// Server owns the HTTP listener for the trigger-intake surface and its
// graceful shutdown.
type Server struct {
	httpServer *http.Server
	shutdown   chan struct{}
}

// NewServer binds router to cfg's configured address.
func NewServer(ctx context.Context, cfg config.ServerConfig, router http.Handler) *Server {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			BaseContext:  func(net.Listener) context.Context { return ctx },
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		shutdown: make(chan struct{}),
	}
}

// Run listens until ctx is cancelled or a SIGINT/SIGTERM arrives, then drains
// in-flight requests before returning.
func (s *Server) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", "address", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
			return
		}
		errCh <- nil
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	case <-quit:
	case <-s.shutdown:
	}

	log.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Stop triggers a programmatic shutdown, used by tests and the quickstart
// command's bounded run.
func (s *Server) Stop() {
	close(s.shutdown)
}
