package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/repute/internal/app"
	"github.com/okian/repute/pkg/logger"
)

// Runner triggers jobs by name.
type Runner interface {
	Run(ctx context.Context, job string) (service.RunSummary, error)
}

// RunsHandler handles manual job triggers.
type RunsHandler struct {
	runner Runner
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(r Runner) *RunsHandler {
	return &RunsHandler{runner: r}
}

// HandleRun handles POST /runs/{job}. The run happens inside the request;
// the response carries its summary. A job outlives the server's write
// timeout, so the deadline is lifted for this route.
func (h *RunsHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	job := strings.TrimPrefix(r.URL.Path, "/runs/")
	if job == "" || strings.Contains(job, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logger.Get().Warn(r.Context(), "failed to lift write deadline", logger.String("job", job), logger.Error(err))
	}
	sum, err := h.runner.Run(r.Context(), job)
	if err != nil {
		status, code := statusFor(err)
		if sum.RunID != "" && status == http.StatusInternalServerError {
			writeJSON(w, status, sum)
			return
		}
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
