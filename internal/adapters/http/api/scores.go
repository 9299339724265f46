package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	service "github.com/okian/repute/internal/app"
)

const (
	defaultAdjustments = 20
	maxAdjustments     = 200
)

// ScoresDependencies defines the interface for score lookups.
type ScoresDependencies interface {
	OfficialScores(ctx context.Context, officialID int64, limit int) (service.Scores, error)
}

// ScoresHandler handles score lookups.
type ScoresHandler struct {
	deps ScoresDependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoresDependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

// HandleGetScores handles GET /officials/{id}/scores?limit=N requests.
func (h *ScoresHandler) HandleGetScores(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	// Extract path parameter between /officials/ and /scores
	rest := strings.TrimPrefix(r.URL.Path, "/officials/")
	idStr, ok := strings.CutSuffix(rest, "/scores")
	if !ok || idStr == "" || strings.Contains(idStr, "/") {
		writeError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	limit := defaultAdjustments
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		limit = min(n, maxAdjustments)
	}

	scores, err := h.deps.OfficialScores(r.Context(), id, limit)
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}
