package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerline/invoice-adjust-backend/internal/adapters/billing"
	"github.com/ledgerline/invoice-adjust-backend/internal/api/handlers"
	"github.com/ledgerline/invoice-adjust-backend/internal/api/middleware"
	"github.com/ledgerline/invoice-adjust-backend/internal/application/service"
	"github.com/ledgerline/invoice-adjust-backend/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Server is the HTTP API server.
type Server struct {
	config        Config
	router        chi.Router
	httpServer    *http.Server
	logger        *slog.Logger
	repo          storage.Repository
	registry      *billing.Registry
	adjustService *service.AdjustmentService
}

// NewServer creates a new API server.
// If adjustService is nil, only the read endpoints are available.
func NewServer(cfg Config, repo storage.Repository, registry *billing.Registry, adjustService *service.AdjustmentService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:        cfg,
		router:        chi.NewRouter(),
		logger:        logger,
		repo:          repo,
		registry:      registry,
		adjustService: adjustService,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	// CORS
	corsConfig := middleware.CORSConfig{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}
	s.router.Use(middleware.CORS(corsConfig))

	// Request logging
	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler(s.registry)
	s.router.Get("/health", healthHandler.ServeHTTP)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		// Adjustment audit records
		adjustmentsHandler := handlers.NewAdjustmentsHandler(s.repo, s.adjustService)
		r.Get("/adjustments", adjustmentsHandler.List)
		r.Get("/adjustments/stats", adjustmentsHandler.Stats)
		r.Get("/adjustments/{requestId}", adjustmentsHandler.Get)

		// Adjustment operations (solver + provider writes)
		if s.adjustService != nil {
			r.Post("/adjustments/preview", adjustmentsHandler.Preview)

			invoicesHandler := handlers.NewInvoicesHandler(s.adjustService)
			r.Post("/invoices/{id}/adjustments", invoicesHandler.Apply)

			reconcileHandler := handlers.NewReconcileHandler(s.adjustService)
			r.Post("/reconcile", reconcileHandler.Start)
			r.Get("/reconcile", reconcileHandler.List)
			r.Get("/reconcile/{jobId}", reconcileHandler.Get)
			r.Delete("/reconcile/{jobId}", reconcileHandler.Cancel)
		}
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
