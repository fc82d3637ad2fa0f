// Package server exposes the read-only query API over the recorded markets:
// listing, lookup, free-text search and price history.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/pmtracker/pmtracker/internal/config"
	"github.com/pmtracker/pmtracker/internal/metrics"
	"github.com/pmtracker/pmtracker/internal/storage"
	"github.com/sirupsen/logrus"
)

// Pagination defaults and hard caps per endpoint
const (
	defaultListLimit    = 20
	maxListLimit        = 100
	defaultSearchLimit  = 10
	maxSearchLimit      = 100
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// Store is the read surface the API serves from
type Store interface {
	GetMarket(ctx context.Context, id string) (*storage.Market, error)
	ListMarkets(ctx context.Context, opts storage.ListOptions) ([]storage.Market, error)
	SearchMarkets(ctx context.Context, query string, limit int, source, status string) ([]storage.SearchResult, error)
	GetHistory(ctx context.Context, marketID string, limit int, hours int) ([]storage.PriceHistory, error)
}

// Server serves the HTTP query API
type Server struct {
	store Store
	log   *logrus.Logger
	http  *http.Server
}

// searchResponse wraps search hits with their total count
type searchResponse struct {
	Results []storage.SearchResult `json:"results"`
	Total   int                    `json:"total"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New creates the API server bound to the configured host and port
func New(cfg *config.Config, store Store, log *logrus.Logger) *Server {
	s := &Server{store: store, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.instrument("/health", s.handleHealth))
	mux.HandleFunc("GET /api/markets", s.instrument("/api/markets", s.handleListMarkets))
	mux.HandleFunc("GET /api/markets/{id}", s.instrument("/api/markets/{id}", s.handleGetMarket))
	mux.HandleFunc("GET /api/markets/{id}/history", s.instrument("/api/markets/{id}/history", s.handleGetHistory))
	mux.HandleFunc("GET /api/search", s.instrument("/api/search", s.handleSearch))

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// Handler returns the routing handler, for tests
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe blocks serving requests until the server is shut down
func (s *Server) ListenAndServe() error {
	s.log.WithField("addr", s.http.Addr).Info("Starting API server")
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	metrics.RecordHealthCheck(true)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListMarkets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := storage.ListOptions{
		Limit:  clampLimit(q.Get("limit"), defaultListLimit, maxListLimit),
		Offset: parseNonNegative(q.Get("offset")),
		SortBy: q.Get("sort_by"),
		Order:  q.Get("order"),
	}

	markets, err := s.store.ListMarkets(r.Context(), opts)
	if err != nil {
		s.serverError(w, r, "list markets", err)
		return
	}

	s.writeJSON(w, http.StatusOK, markets)
}

func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	market, err := s.store.GetMarket(r.Context(), id)
	if err != nil {
		s.serverError(w, r, "get market", err)
		return
	}
	if market == nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "market not found"})
		return
	}

	s.writeJSON(w, http.StatusOK, market)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	q := r.URL.Query()

	// History of an unknown market is a 404, not an empty list
	market, err := s.store.GetMarket(r.Context(), id)
	if err != nil {
		s.serverError(w, r, "get market", err)
		return
	}
	if market == nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "market not found"})
		return
	}

	limit := clampLimit(q.Get("limit"), defaultHistoryLimit, maxHistoryLimit)
	hours := parseNonNegative(q.Get("hours"))

	history, err := s.store.GetHistory(r.Context(), id, limit, hours)
	if err != nil {
		s.serverError(w, r, "get history", err)
		return
	}

	s.writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := q.Get("q")
	if query == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query parameter q is required"})
		return
	}

	limit := clampLimit(q.Get("limit"), defaultSearchLimit, maxSearchLimit)

	results, err := s.store.SearchMarkets(r.Context(), query, limit, q.Get("source"), q.Get("status"))
	if err != nil {
		s.serverError(w, r, "search markets", err)
		return
	}

	s.writeJSON(w, http.StatusOK, searchResponse{Results: results, Total: len(results)})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.log.WithError(err).WithField("path", r.URL.Path).Errorf("Failed to %s", op)
	s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
}

// instrument wraps a handler with per-endpoint request metrics
func (s *Server) instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		metrics.RecordAPIRequest(endpoint, strconv.Itoa(rec.status))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// clampLimit parses a limit parameter, applying the default when absent or
// invalid and the cap when exceeded.
func clampLimit(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

func parseNonNegative(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
