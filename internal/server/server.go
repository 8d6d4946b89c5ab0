// Package server exposes the redaction engine over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/raaihank/llm-redactor/internal/config"
	"github.com/raaihank/llm-redactor/internal/lifecycle"
	"github.com/raaihank/llm-redactor/internal/logger"
	"github.com/raaihank/llm-redactor/internal/redaction"
	"github.com/raaihank/llm-redactor/internal/websocket"
)

// Deps are the components the server routes requests to. Hub may be nil.
type Deps struct {
	Engine    *redaction.Engine
	Lifecycle *lifecycle.Manager
	Hub       *websocket.Hub
	Version   string
}

// Server represents the HTTP API server
type Server struct {
	config  *config.Config
	logger  *logger.Logger
	deps    Deps
	router  *mux.Router
	server  *http.Server
	limiter *clientLimiter
}

// New creates a new server instance
func New(cfg *config.Config, deps Deps, log *logger.Logger) *Server {
	s := &Server{
		config: cfg,
		logger: log.WithComponent("server"),
		deps:   deps,
		router: mux.NewRouter(),
	}

	if cfg.API.RateLimit.Enabled {
		s.limiter = newClientLimiter(cfg.API.RateLimit.RequestsPerMin, cfg.API.RateLimit.Burst)
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)

	if s.deps.Hub != nil && s.config.WebSocket.Enabled {
		s.router.HandleFunc(s.config.WebSocket.Path, s.deps.Hub.HandleWebSocket).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/v1/sessions/{id}").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)

	api.HandleFunc("/redact", s.handleRedact).Methods(http.MethodPost)
	api.HandleFunc("/redact-json", s.handleRedactJSON).Methods(http.MethodPost)
	api.HandleFunc("/restore", s.handleRestore).Methods(http.MethodPost)
	api.HandleFunc("/restore-json", s.handleRestoreJSON).Methods(http.MethodPost)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.Handle("/map", s.adminMiddleware(http.HandlerFunc(s.handleExport))).Methods(http.MethodGet)
	api.HandleFunc("", s.handleDestroy).Methods(http.MethodDelete)
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting redaction API server",
		zap.Int("port", s.config.Server.Port),
		zap.Strings("enabled_rules", s.deps.Engine.Detector().EnabledRuleNames()),
		zap.Bool("export_enabled", s.config.API.ExportEnabled),
		zap.Bool("websocket_enabled", s.deps.Hub != nil && s.config.WebSocket.Enabled),
	)

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping redaction API server")
	return s.server.Shutdown(ctx)
}
