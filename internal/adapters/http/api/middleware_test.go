package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestClassifyStatus(t *testing.T) {
	Convey("Error statuses map to a kind and severity", t, func() {
		cases := []struct {
			status         int
			kind, severity string
		}{
			{http.StatusBadRequest, "client_error", "medium"},
			{http.StatusNotFound, "not_found", "low"},
			{http.StatusMethodNotAllowed, "method_not_allowed", "low"},
			{http.StatusConflict, "conflict", "low"},
			{http.StatusInternalServerError, "server_error", "high"},
			{http.StatusServiceUnavailable, "unavailable", "medium"},
		}
		for _, c := range cases {
			kind, severity := classifyStatus(c.status)
			So(kind, ShouldEqual, c.kind)
			So(severity, ShouldEqual, c.severity)
		}
	})
}

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given a wrapped handler", t, func() {
		var rec *statusRecorder
		h := MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			rec = w.(*statusRecorder)
			w.WriteHeader(http.StatusConflict)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("busy"))
		}, "test")

		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodPost, "/runs/debate", http.NoBody))

		Convey("Then the first status written is the one recorded", func() {
			So(rec.status, ShouldEqual, http.StatusConflict)
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(w.Body.String(), ShouldEqual, "busy")
		})
	})
}
