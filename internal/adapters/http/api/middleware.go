package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/repute/pkg/metrics"
)

// MetricsMiddleware records request count, latency and error class for endpoint.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		code := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, float64(time.Since(start).Milliseconds()))
		if rec.status >= http.StatusBadRequest {
			kind, severity := classifyStatus(rec.status)
			metrics.RecordHTTPError(endpoint, r.Method, kind, severity)
		}
	}
}

// classifyStatus labels an error status. 409 and 503 are expected operator
// outcomes (job busy, no classifier) and rank below other server errors.
func classifyStatus(status int) (kind, severity string) {
	switch status {
	case http.StatusNotFound:
		return "not_found", "low"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed", "low"
	case http.StatusConflict:
		return "conflict", "low"
	case http.StatusServiceUnavailable:
		return "unavailable", "medium"
	}
	if status >= http.StatusInternalServerError {
		return "server_error", "high"
	}
	return "client_error", "medium"
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rec *statusRecorder) WriteHeader(code int) {
	if !rec.wroteHeader {
		rec.status = code
		rec.wroteHeader = true
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	rec.wroteHeader = true
	return rec.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}
