// Package server provides the HTTP API for DocuFind.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/docufind/internal/config"
	"github.com/hyperjump/docufind/internal/indexer"
	"github.com/hyperjump/docufind/internal/metrics"
	"github.com/hyperjump/docufind/internal/normalize"
	"github.com/hyperjump/docufind/internal/search"
	"go.uber.org/zap"
)

// maxUploadBytes bounds a multipart document upload.
const maxUploadBytes = 64 << 20

// Server is the HTTP server for the DocuFind API.
type Server struct {
	engine    *search.Engine
	indexer   *indexer.Indexer
	stopwords *normalize.StopwordSet
	metrics   *metrics.Metrics
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithMetrics instruments every route and serves /metrics.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *search.Engine,
	idx *indexer.Indexer,
	stopwords *normalize.StopwordSet,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...ServerOption,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:    engine,
		indexer:   idx,
		stopwords: stopwords,
		config:    cfg,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router serving the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	// Re-index runs as long as the corpus needs; it is the only route without a timeout.
	r.Post("/api/v1/reindex", s.handleReindex)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(middleware.Compress(5))

		r.Get("/health", s.handleHealth)
		r.Get("/api/v1/status", s.handleStatus)

		r.Get("/api/v1/search", s.handleSearchGet)
		r.Post("/api/v1/search", s.handleSearch)
		r.Get("/api/v1/suggest/{word}", s.handleSuggest)
		r.Get("/api/v1/stats", s.handleStats)

		r.Get("/api/v1/documents", s.handleListDocuments)
		r.Post("/api/v1/documents", s.handleUploadDocument)
		r.Get("/api/v1/documents/{id}", s.handleGetDocument)
		r.Get("/api/v1/documents/{id}/raw", s.handleRawDocument)
		r.Get("/api/v1/documents/{id}/terms", s.handleDocumentTerms)
		r.Delete("/api/v1/documents/{id}", s.handleDeleteDocument)

		r.Get("/api/v1/stopwords", s.handleListStopwords)
		r.Post("/api/v1/stopwords", s.handleAddStopword)
		r.Post("/api/v1/stopwords/reload", s.handleReloadStopwords)
		r.Delete("/api/v1/stopwords/{word}", s.handleRemoveStopword)
	})
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
