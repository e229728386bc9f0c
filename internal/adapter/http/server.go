// Package http exposes the history API plus the health, readiness, and
// metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/aviation-history/internal/domain"
	"github.com/couchcryptid/aviation-history/internal/history"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HistorySource answers single-station and route history queries.
type HistorySource interface {
	Resolve(ctx context.Context, q domain.Query) ([]history.Result, error)
	ResolveRoute(ctx context.Context, q domain.RouteQuery) (map[string][]history.Result, error)
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server serves the history API.
type Server struct {
	httpServer *http.Server
	source     HistorySource
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the lookup, route, health, readiness,
// and metrics routes.
func NewServer(addr string, source HistorySource, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		source:   source,
		validate: newValidator(),
		logger:   logger,
	}

	mux.HandleFunc("GET /api/{report_type}/{station}", s.handleLookup)
	mux.HandleFunc("GET /api/path/{report_type}", s.handleAlong)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	params, errResp := s.lookupParams(r)
	if errResp != nil {
		writeJSON(w, http.StatusBadRequest, errResp)
		return
	}

	results, err := s.source.Resolve(r.Context(), params.query())
	if err != nil {
		s.writeResolveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"meta":    time.Now().UTC(),
		"results": results,
	})
}

func (s *Server) handleAlong(w http.ResponseWriter, r *http.Request) {
	params, errResp := s.alongParams(r)
	if errResp != nil {
		writeJSON(w, http.StatusBadRequest, errResp)
		return
	}

	q := params.routeQuery()
	results, err := s.source.ResolveRoute(r.Context(), q)
	if err != nil {
		s.writeResolveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"meta":    time.Now().UTC(),
		"route":   q.Route,
		"results": results,
	})
}

func (s *Server) writeResolveError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrInvalidStation) {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: err.Error(),
			Param: "station",
			Help:  paramHelp["station"],
		})
		return
	}
	s.logger.Error("resolve failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
