// Package http exposes health, metrics, and the pull-based consumer API.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/hazard-proximity-service/internal/domain"
	"github.com/couchcryptid/hazard-proximity-service/internal/geo"
	"github.com/couchcryptid/hazard-proximity-service/internal/proximity"
	"github.com/couchcryptid/hazard-proximity-service/internal/report"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// HazardSource provides the current hazard set snapshot.
type HazardSource interface {
	Snapshot() []domain.HazardEvent
}

// AlertStore provides the alert list and the dismiss command.
type AlertStore interface {
	Active() []domain.Alert
	All() []domain.Alert
	Dismiss(id string) bool
}

// LocationStore receives the consumer's location stream.
type LocationStore interface {
	Set(p geo.Point)
	Clear()
	Current() *geo.Point
}

// Server exposes the consumer-facing HTTP surface. Everything except the
// dismiss command and the location updates is a re-queryable read.
type Server struct {
	httpServer *http.Server
	hazards    HazardSource
	alerts     AlertStore
	locations  LocationStore
	logger     *slog.Logger
}

// NewServer creates the HTTP server with health, metrics, and API routes.
func NewServer(addr string, ready ReadinessChecker, hazards HazardSource, alerts AlertStore,
	locations LocationStore, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		hazards:   hazards,
		alerts:    alerts,
		locations: locations,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/hazards", s.handleHazards)
	mux.HandleFunc("GET /api/proximity", s.handleProximity)
	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("GET /api/alerts", s.handleAlerts)
	mux.HandleFunc("POST /api/alerts/{id}/dismiss", s.handleDismiss)
	mux.HandleFunc("PUT /api/location", s.handleSetLocation)
	mux.HandleFunc("DELETE /api/location", s.handleClearLocation)

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

func (s *Server) handleHazards(w http.ResponseWriter, _ *http.Request) {
	hazards := s.hazards.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(hazards),
		"hazards": hazards,
	})
}

// handleProximity returns the danger-ranked hazard list for the current
// location. An unknown location is not an error; the results are simply
// empty.
func (s *Server) handleProximity(w http.ResponseWriter, _ *http.Request) {
	loc := s.locations.Current()
	results := []domain.ProximityResult{}
	if loc != nil {
		results = proximity.Rank(*loc, s.hazards.Snapshot())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"location": loc,
		"results":  results,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, report.Build(s.hazards.Snapshot()))
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	var alerts []domain.Alert
	if r.URL.Query().Get("all") == "true" {
		alerts = s.alerts.All()
	} else {
		alerts = s.alerts.Active()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(alerts),
		"alerts": alerts,
	})
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.alerts.Dismiss(id) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown alert id"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetLocation(w http.ResponseWriter, r *http.Request) {
	var p geo.Point
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid location body"})
		return
	}
	s.locations.Set(p)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearLocation(w http.ResponseWriter, _ *http.Request) {
	s.locations.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
