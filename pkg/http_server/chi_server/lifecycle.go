package chiserver

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/irislabs/iris-serving/pkg/logging"
)

// Start starts the HTTP server and blocks until the context is cancelled or
// a shutdown signal is received.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info(ctx, "starting HTTP server",
		logging.String("address", s.config.Address),
		logging.String("service", s.config.ServiceName),
		logging.String("version", s.config.ServiceVersion),
		logging.String("environment", s.config.Environment),
	)

	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		s.logger.Error(ctx, "server failed to start", logging.Error(err))
		return err
	case <-ctx.Done():
		s.logger.Info(ctx, "context cancelled, initiating shutdown")
	case sig := <-sigChan:
		s.logger.Info(ctx, "signal received, initiating shutdown",
			logging.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.Shutdown(shutdownCtx)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "initiating graceful shutdown")

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error(ctx, "error shutting down HTTP server", logging.Error(err))
			shutdownErr = err
			return
		}

		s.logger.Info(ctx, "graceful shutdown completed")
	})

	return shutdownErr
}
