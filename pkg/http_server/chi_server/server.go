package chiserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/irislabs/iris-serving/pkg/logging"
	"github.com/irislabs/iris-serving/pkg/metrics"

	"github.com/go-chi/chi/v5"
)

// Server represents an HTTP server using the Chi router.
type Server struct {
	router            chi.Router
	httpServer        *http.Server
	config            Config
	logger            logging.Logger
	metricsRegistry   *metrics.Registry
	healthChecks      map[string]HealthCheckFunc
	customMiddlewares []func(http.Handler) http.Handler
	shutdownOnce      sync.Once
}

// New creates a new HTTP server with the given options.
func New(logger logging.Logger, opts ...Option) (*Server, error) {
	srv := &Server{
		config:       DefaultConfig(),
		logger:       logger,
		healthChecks: make(map[string]HealthCheckFunc),
	}

	for _, opt := range opts {
		opt(srv)
	}

	if err := srv.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	srv.router = chi.NewRouter()
	srv.registerMiddlewares()
	srv.registerSupportEndpoints()

	srv.httpServer = &http.Server{
		Addr:         srv.config.Address,
		Handler:      srv.router,
		ReadTimeout:  srv.config.ReadTimeout,
		WriteTimeout: srv.config.WriteTimeout,
		IdleTimeout:  srv.config.IdleTimeout,
	}

	return srv, nil
}

// RegisterRouters registers route handlers with the server.
func (s *Server) RegisterRouters(routers ...Router) *Server {
	for _, router := range routers {
		router.Register(s.router)
		s.logger.Info(context.Background(), "router registered")
	}

	return s
}

// registerMiddlewares registers all middlewares in the correct order.
func (s *Server) registerMiddlewares() {
	s.router.Use(recoverMiddleware(s.logger))
	s.router.Use(requestIDMiddleware())
	s.router.Use(loggingMiddleware(s.logger))
	s.router.Use(bodyLimitMiddleware(int64(s.config.BodyLimit)))
	s.router.Use(securityHeadersMiddleware())

	for _, middleware := range s.customMiddlewares {
		s.router.Use(middleware)
	}
}

// registerSupportEndpoints registers health checks and the metrics
// exposition endpoint.
func (s *Server) registerSupportEndpoints() {
	if s.config.EnableHealthChecks {
		s.router.Get("/health", healthHandler(s.config, s.healthChecks, s.logger))
		s.router.Get("/ready", readyHandler(s.healthChecks))
		s.router.Get("/live", liveHandler())
		s.logger.Info(context.Background(), "health check endpoints enabled")
	}

	if s.metricsRegistry != nil {
		s.router.Method(http.MethodGet, "/metrics", metrics.Handler(s.metricsRegistry))
		s.logger.Info(context.Background(), "metrics endpoint enabled")
	}
}
