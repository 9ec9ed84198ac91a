// Package server provides the HTTP API for pdfchat.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/pdfchat/internal/chat"
	"github.com/hyperjump/pdfchat/internal/config"
	"github.com/hyperjump/pdfchat/internal/ingest"
	"github.com/hyperjump/pdfchat/internal/storage"
	"github.com/hyperjump/pdfchat/internal/workspace"
)

// Server is the HTTP server for the pdfchat API.
type Server struct {
	chat       *chat.Engine
	ingester   *ingest.Ingester
	workspaces *workspace.Manager
	storage    storage.Storage
	config     *config.Config
	logger     *zap.Logger
	limiter    *rate.Limiter
	server     *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *chat.Engine,
	ingester *ingest.Ingester,
	workspaces *workspace.Manager,
	storage storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.Server.ChatRateLimit > 0 {
		limit = rate.Limit(cfg.Server.ChatRateLimit)
	}
	burst := cfg.Server.ChatBurst
	if burst <= 0 {
		burst = 1
	}
	return &Server{
		chat:       engine,
		ingester:   ingester,
		workspaces: workspaces,
		storage:    storage,
		config:     cfg,
		logger:     logger,
		limiter:    rate.NewLimiter(limit, burst),
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Route("/workspaces", func(r chi.Router) {
		r.Post("/", s.handleCreateWorkspace)
		r.Get("/", s.handleListWorkspaces)
		r.Route("/{id}", func(r chi.Router) {
			r.Post("/upload", s.handleUpload)
			r.Get("/documents", s.handleListDocuments)
			r.Delete("/documents/{filename}", s.handleDeleteDocument)
			r.Post("/reindex", s.handleReindex)
			r.Get("/messages", s.handleListMessages)
		})
	})
	r.With(s.rateLimit).Post("/chat", s.handleChat)
	r.Post("/messages/{id}/feedback", s.handleFeedback)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			s.respondError(w, http.StatusTooManyRequests, "too many chat requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
