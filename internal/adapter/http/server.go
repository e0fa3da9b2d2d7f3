package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vigiapp/vigia/internal/domain"
	"github.com/vigiapp/vigia/internal/ingest"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// IngestRunner triggers an ingestion pass over every configured source.
type IngestRunner interface {
	RunAll(ctx context.Context) []ingest.Summary
}

// ScoreService computes a safety score for a coordinate.
type ScoreService interface {
	CalculateScore(ctx context.Context, geo domain.Geo, neighborhood, municipality string) (domain.SafetyScore, error)
}

// ScoreSaver persists computed scores so they join the peer population.
type ScoreSaver interface {
	SaveScore(ctx context.Context, score domain.SafetyScore, geo domain.Geo) error
}

// Server exposes the service's HTTP surface: health, readiness, metrics,
// manual ingestion runs, and score queries.
type Server struct {
	httpServer *http.Server
	runner     IngestRunner
	scores     ScoreService
	saver      ScoreSaver
	logger     *slog.Logger
}

// NewServer creates an HTTP server with health, metrics, ingest, and score routes.
func NewServer(addr string, ready ReadinessChecker, runner IngestRunner,
	scores ScoreService, saver ScoreSaver, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		runner: runner,
		scores: scores,
		saver:  saver,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /v1/ingest/run", s.handleIngestRun)
	mux.HandleFunc("GET /v1/score", s.handleScore)

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

// handleIngestRun runs every source synchronously and reports per-source
// summaries. The response is 200 even when individual runs fail; the
// summaries carry each run's terminal status.
func (s *Server) handleIngestRun(w http.ResponseWriter, r *http.Request) {
	summaries := s.runner.RunAll(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"runs": summaries})
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, err := parseCoord(q.Get("lat"), 90)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lat")
		return
	}
	lon, err := parseCoord(q.Get("lon"), 180)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lon")
		return
	}
	neighborhood := q.Get("neighborhood")
	municipality := q.Get("municipality")
	if neighborhood == "" || municipality == "" {
		writeError(w, http.StatusBadRequest, "neighborhood and municipality are required")
		return
	}

	geo := domain.Geo{Lat: lat, Lon: lon}
	score, err := s.scores.CalculateScore(r.Context(), geo, neighborhood, municipality)
	if err != nil {
		s.logger.Error("score calculation failed",
			"neighborhood", neighborhood,
			"municipality", municipality,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "score calculation failed")
		return
	}

	// Persisting feeds the peer population; the score itself is already
	// computed, so a failed save degrades comparisons but not this response.
	if err := s.saver.SaveScore(r.Context(), score, geo); err != nil {
		s.logger.Warn("score not persisted", "error", err)
	}

	writeJSON(w, http.StatusOK, score)
}

func parseCoord(raw string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if v < -limit || v > limit {
		return 0, strconv.ErrRange
	}
	return v, nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response body
}
