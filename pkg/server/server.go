package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"sentinel-hq/warden/pkg/config"
	"sentinel-hq/warden/pkg/gate"
)

// Server serves the operations API.
type Server struct {
	cfg        config.ServerConfig
	registry   *gate.Registry
	metrics    http.Handler
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a server for the given registry. The metrics handler is
// mounted at /metrics when non-nil.
func New(cfg config.ServerConfig, registry *gate.Registry, metricsHandler http.Handler) *Server {
	s := &Server{
		cfg:      cfg,
		registry: registry,
		metrics:  metricsHandler,
		logger:   slog.Default().With("component", "server"),
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	if s.cfg.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.CORS.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/detectors", s.handleListDetectors)
		r.Get("/metrics", s.handleAggregateMetrics)
		r.Post("/shadow-all", s.handleShadowAll)

		r.Route("/detectors/{name}", func(r chi.Router) {
			r.Post("/evaluate", s.handleEvaluate)
			r.Post("/shadow", s.handleEnableShadow)
			r.Delete("/shadow", s.handleDisableShadow)
			r.Put("/mode", s.handleSetMode)
			r.Get("/approvals", s.handleListPending)
			r.Post("/approvals/{id}/resolve", s.handleResolveApproval)
			r.Get("/metrics", s.handleDetectorMetrics)
		})
	})

	return r
}

// Router returns the chi router, used by tests to serve requests directly.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured address. It blocks until the
// server stops.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.ListenAddress,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout.Std(),
		WriteTimeout: s.cfg.WriteTimeout.Std(),
		IdleTimeout:  s.cfg.IdleTimeout.Std(),
	}

	s.logger.Info("operations API listening", "address", s.cfg.ListenAddress)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout.Std())
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}
