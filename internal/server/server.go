// Package server exposes the option calculator over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/optionlab/internal/domain"
	"github.com/alanyoungcy/optionlab/internal/server/handler"
	"github.com/alanyoungcy/optionlab/internal/server/middleware"
	"github.com/alanyoungcy/optionlab/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	// Auth is disabled when both keys are empty.
	APIKey     string
	APIKeyHash string
	// RateLimit requests per RateWindow per client IP; zero disables it.
	RateLimit  int
	RateWindow time.Duration
	Limiter    domain.RateLimiter

	// TrustedProxies may set X-Forwarded-For; empty trusts none.
	TrustedProxies []string
}

// Handlers aggregates all HTTP handlers that the server needs to register.
// Scenarios, Archives and Audit are optional.
type Handlers struct {
	Health    *handler.HealthHandler
	Status    *handler.StatusHandler
	Quotes    *handler.QuoteHandler
	Rate      *handler.RateHandler
	Scenarios *handler.ScenarioHandler
	Archives  *handler.ArchiveHandler
	Audit     *handler.AuditHandler
}

// Server is the headless HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (CORS, logging, rate limiting, auth) and attaches
// the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	h := Routes(cfg, handlers, wsHub, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Routes builds the full handler chain.
func Routes(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)

	// Calculator endpoints.
	mux.HandleFunc("POST /api/quote", handlers.Quotes.Quote)
	mux.HandleFunc("POST /api/curve", handlers.Quotes.Curve)
	mux.HandleFunc("GET /api/quotes/recent", handlers.Quotes.RecentQuotes)
	mux.HandleFunc("GET /api/quotes/history", handlers.Quotes.QuoteHistory)

	// Risk-free rate.
	mux.HandleFunc("GET /api/rate", handlers.Rate.GetRate)
	mux.HandleFunc("PUT /api/rate", handlers.Rate.SetRate)

	if handlers.Scenarios != nil {
		mux.HandleFunc("GET /api/scenarios", handlers.Scenarios.ListScenarios)
		mux.HandleFunc("POST /api/scenarios", handlers.Scenarios.SaveScenario)
		mux.HandleFunc("GET /api/scenarios/{id}", handlers.Scenarios.GetScenario)
		mux.HandleFunc("POST /api/scenarios/{id}/quote", handlers.Scenarios.QuoteScenario)
	}

	if handlers.Archives != nil {
		mux.HandleFunc("GET /api/archives", handlers.Archives.ListArchives)
		mux.HandleFunc("GET /api/archives/{name}", handlers.Archives.DownloadArchive)
		mux.HandleFunc("POST /api/archives/run", handlers.Archives.TriggerArchive)
	}

	if handlers.Audit != nil {
		mux.HandleFunc("GET /api/audit", handlers.Audit.ListAudit)
	}

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain; the last applied runs first.
	var h http.Handler = mux
	h = middleware.Auth(middleware.AuthConfig{
		APIKey:     cfg.APIKey,
		APIKeyHash: cfg.APIKeyHash,
		Public:     []string{"/api/health"},
	})(h)
	ips, err := middleware.NewClientIP(cfg.TrustedProxies)
	if err != nil {
		logger.Warn("server: ignoring trusted proxies", slog.String("error", err.Error()))
		ips, _ = middleware.NewClientIP(nil)
	}
	h = middleware.RateLimit(cfg.Limiter, cfg.RateLimit, cfg.RateWindow, ips, logger)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	return h
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
