// Package server assembles the HTTP server for the directory service.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/orgstack/orgdir/internal/apikey"
	"github.com/orgstack/orgdir/internal/config"
	"github.com/orgstack/orgdir/internal/handler"
	"github.com/orgstack/orgdir/internal/health"
	"github.com/orgstack/orgdir/internal/httperr"
	"github.com/orgstack/orgdir/internal/metrics"
	"github.com/orgstack/orgdir/internal/middleware"
	"github.com/orgstack/orgdir/internal/service"
	"github.com/orgstack/orgdir/internal/store"
)

// Server represents the HTTP server.
type Server struct {
	router       *mux.Router
	httpServer   *http.Server
	handlers     *handler.Handlers
	healthCheck  *health.HealthCheck
	errorHandler *httperr.Handler
	keys         apikey.Store
	metrics      *metrics.Metrics
	logger       *zap.Logger
	cfg          *config.Config
}

// NewServer creates a new HTTP server wired to the facade registry.
func NewServer(
	cfg *config.Config,
	registry *service.Registry,
	directoryStore store.DirectoryStore,
	keys apikey.Store,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Server {
	router := mux.NewRouter()
	errorHandler := httperr.NewHandler(logger)
	handlers := handler.NewHandlers(registry, directoryStore, keys, errorHandler, logger)
	healthCheck := health.NewHealthCheck(directoryStore, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		router:       router,
		httpServer:   httpServer,
		handlers:     handlers,
		healthCheck:  healthCheck,
		errorHandler: errorHandler,
		keys:         keys,
		metrics:      m,
		logger:       logger,
		cfg:          cfg,
	}
}

// SetupRoutes configures all HTTP routes.
func (s *Server) SetupRoutes() {
	middlewareChain := []func(http.Handler) http.Handler{
		middleware.Recovery(s.logger),
		middleware.RequestID,
		middleware.Logging(s.logger),
		middleware.Observe(s.metrics),
		middleware.Timeout(s.cfg.Server.RequestTimeout),
	}

	if s.cfg.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(
			s.cfg.RateLimit.RequestsPerSecond,
			s.cfg.RateLimit.Burst,
			s.logger,
		)
		middlewareChain = append(middlewareChain, rateLimiter.Limit)
	}

	chain := middleware.Chain(middlewareChain...)
	s.router.Use(func(next http.Handler) http.Handler {
		return chain(next)
	})

	// Health check endpoints
	s.router.HandleFunc("/health", s.healthCheck.LivenessHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", s.healthCheck.ReadinessHandler).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/api/v1").Subrouter()

	// Organization registration happens before the tenant has an API key.
	v1.HandleFunc("/organizations", s.handlers.RegisterOrganization).Methods(http.MethodPost)

	// Everything else is scoped to the tenant resolved from the API key.
	authed := v1.NewRoute().Subrouter()
	authed.Use(middleware.APIKeyAuth(s.keys, s.errorHandler, s.logger))

	authed.HandleFunc("/organization", s.handlers.GetOrganization).Methods(http.MethodGet)
	authed.HandleFunc("/organization/structure", s.handlers.GetOrganizationStructure).Methods(http.MethodGet)
	authed.HandleFunc("/employees/{id}", s.handlers.GetEmployee).Methods(http.MethodGet)
	authed.HandleFunc("/employees/{id}", s.handlers.UpdateEmployee).Methods(http.MethodPut)
	authed.HandleFunc("/departments", s.handlers.AddDepartment).Methods(http.MethodPost)
	authed.HandleFunc("/departments/{id}", s.handlers.GetDepartment).Methods(http.MethodGet)
	authed.HandleFunc("/departments/{id}", s.handlers.UpdateDepartment).Methods(http.MethodPut)
	authed.HandleFunc("/departments/{id}/employees", s.handlers.AddEmployee).Methods(http.MethodPost)
	authed.HandleFunc("/departments/{deptID}/employees/{empID}", s.handlers.RemoveEmployee).Methods(http.MethodDelete)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.errorHandler.WriteErrorResponse(w, http.StatusNotFound, httperr.ErrorCodeInvalidRequest, "endpoint not found", r.Header.Get("X-Request-ID"))
	})

	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.errorHandler.WriteErrorResponse(w, http.StatusMethodNotAllowed, httperr.ErrorCodeInvalidRequest, "method not allowed", r.Header.Get("X-Request-ID"))
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server",
		zap.String("host", s.cfg.Server.Host),
		zap.Int("port", s.cfg.Server.Port),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// GetRouter returns the router for testing purposes.
func (s *Server) GetRouter() *mux.Router {
	return s.router
}
