// Package server provides the HTTP API for crl.help.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/armish/crl.help/internal/config"
	"github.com/armish/crl.help/internal/metrics"
	"github.com/armish/crl.help/internal/rag"
	"github.com/armish/crl.help/internal/search"
	"github.com/armish/crl.help/internal/storage"
)

// Server is the HTTP server for the crl.help API.
type Server struct {
	storage   storage.Storage
	searcher  *search.Service
	rag       *rag.Engine
	collector *metrics.Collector
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies. ragEngine may be
// nil when no AI provider is configured; the Q&A endpoints then respond 503.
func NewServer(
	store storage.Storage,
	searcher *search.Service,
	ragEngine *rag.Engine,
	collector *metrics.Collector,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		storage:   store,
		searcher:  searcher,
		rag:       ragEngine,
		collector: collector,
		config:    cfg,
		logger:    logger,
	}
}

// Router assembles the chi router with middleware and all API routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(s.instrument)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/crls", s.handleListCRLs)
	r.Get("/api/crls/{id}", s.handleGetCRL)
	r.Get("/api/crls/{id}/text", s.handleGetCRLText)
	r.Get("/api/search", s.handleSearch)
	r.Get("/api/stats/overview", s.handleStatsOverview)
	r.Get("/api/stats/companies", s.handleCompanyStats)
	r.Get("/api/export/csv", s.handleExportCSV)
	r.Get("/api/export/excel", s.handleExportExcel)
	r.Post("/api/qa", s.handleAsk)
	r.Get("/api/qa/history", s.handleQAHistory)
	r.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(s.collector.Registry(), promhttp.HandlerOpts{}))

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
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

// instrument records a count and latency per route pattern, so path
// parameters do not blow up metric cardinality.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = r.URL.Path
		}
		s.collector.RecordRequest(pattern, strconv.Itoa(ww.Status()), time.Since(start))
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
