// Package api exposes the operator HTTP surface: health, metrics, stats,
// manual job triggers and score lookup.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/repute/internal/adapters/repository"
	service "github.com/okian/repute/internal/app"
	"github.com/okian/repute/pkg/json"
	"github.com/okian/repute/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Ping(ctx context.Context) error
	GetStats(ctx context.Context) (repository.Stats, error)
	Run(ctx context.Context, job string) (service.RunSummary, error)
	OfficialScores(ctx context.Context, officialID int64, limit int) (service.Scores, error)
}

// Server wires HTTP routes for the operator API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	runsHandler   *RunsHandler
	scoresHandler *ScoresHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler: NewHealthHandler(deps),
		statsHandler:  NewStatsHandler(deps),
		runsHandler:   NewRunsHandler(deps),
		scoresHandler: NewScoresHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/runs/", MetricsMiddleware(s.runsHandler.HandleRun, "runs"))
	mux.HandleFunc("/officials/", MetricsMiddleware(s.scoresHandler.HandleGetScores, "officials"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Get().Warn(context.Background(), "failed to encode response", logger.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// statusFor maps upstream errors onto HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrUnknownJob), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrJobRunning):
		return http.StatusConflict, "job_running"
	case errors.Is(err, service.ErrNoClassifier):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
