package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/repute/internal/adapters/http/api"
	"github.com/okian/repute/internal/adapters/repository"
	service "github.com/okian/repute/internal/app"
	"github.com/okian/repute/internal/domain/model"
	"github.com/okian/repute/internal/domain/promise"
)

// Mock implementations for testing
type mockDependencies struct {
	mu       sync.Mutex
	pingErr  error
	stats    repository.Stats
	statsErr error
	runErr   error
	jobs     []string
	scores   map[int64]service.Scores
	limits   []int
}

func (m *mockDependencies) Ping(context.Context) error { return m.pingErr }

func (m *mockDependencies) GetStats(context.Context) (repository.Stats, error) {
	return m.stats, m.statsErr
}

func (m *mockDependencies) Run(_ context.Context, job string) (service.RunSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
	if m.runErr != nil {
		return service.RunSummary{}, m.runErr
	}
	switch job {
	case service.JobVerify:
		return service.RunSummary{RunID: "r-1", Job: job, Verify: &promise.VerificationSummary{Due: 2, Processed: 2, Delivered: 1, Failed: 1}}, nil
	case service.JobDebate, service.JobIntake:
		return service.RunSummary{RunID: "r-2", Job: job}, nil
	}
	return service.RunSummary{}, fmt.Errorf("%w: %q", service.ErrUnknownJob, job)
}

func (m *mockDependencies) OfficialScores(_ context.Context, id int64, limit int) (service.Scores, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limits = append(m.limits, limit)
	sc, ok := m.scores[id]
	if !ok {
		return service.Scores{}, fmt.Errorf("official %d: %w", id, repository.ErrNotFound)
	}
	return sc, nil
}

func serve(deps api.Dependencies, method, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	api.NewServer(deps).Register(mux)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestHealth(t *testing.T) {
	Convey("Given the health endpoint", t, func() {
		Convey("When the store answers", func() {
			w := serve(&mockDependencies{}, http.MethodGet, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"ok"`)
		})

		Convey("When the store is down", func() {
			w := serve(&mockDependencies{pingErr: errors.New("dial tcp: refused")}, http.MethodGet, "/healthz")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(w.Body.String(), ShouldContainSubstring, "degraded")
		})
	})

	Convey("Given the metrics endpoint", t, func() {
		w := serve(&mockDependencies{}, http.MethodGet, "/metrics")
		So(w.Code, ShouldEqual, http.StatusOK)
		So(w.Body.String(), ShouldContainSubstring, "repute_engine_")
	})
}

func TestStats(t *testing.T) {
	Convey("Given the stats endpoint", t, func() {
		deps := &mockDependencies{stats: repository.Stats{
			Officials: 3,
			Promises:  map[model.PromiseStatus]int{model.StatusPending: 4},
		}}

		Convey("When stats are available", func() {
			w := serve(deps, http.MethodGet, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)

			var got repository.Stats
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(got.Officials, ShouldEqual, 3)
			So(got.Promises[model.StatusPending], ShouldEqual, 4)
		})

		Convey("When the store fails", func() {
			deps.statsErr = errors.New("boom")
			w := serve(deps, http.MethodGet, "/stats")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("When the method is wrong", func() {
			w := serve(deps, http.MethodPost, "/stats")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestRuns(t *testing.T) {
	Convey("Given the run trigger endpoint", t, func() {
		deps := &mockDependencies{}

		Convey("When verification is triggered", func() {
			w := serve(deps, http.MethodPost, "/runs/verify")

			Convey("Then the summary is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var sum service.RunSummary
				So(json.Unmarshal(w.Body.Bytes(), &sum), ShouldBeNil)
				So(sum.Verify.Delivered, ShouldEqual, 1)
				So(deps.jobs, ShouldResemble, []string{"verify"})
			})
		})

		Convey("When the job is unknown", func() {
			w := serve(deps, http.MethodPost, "/runs/reindex")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the job is already running", func() {
			deps.runErr = service.ErrJobRunning
			w := serve(deps, http.MethodPost, "/runs/debate")
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(w.Body.String(), ShouldContainSubstring, "job_running")
		})

		Convey("When no classifier is configured", func() {
			deps.runErr = service.ErrNoClassifier
			w := serve(deps, http.MethodPost, "/runs/intake")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When triggered with GET", func() {
			w := serve(deps, http.MethodGet, "/runs/debate")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(deps.jobs, ShouldBeEmpty)
		})

		Convey("When the path has no job", func() {
			w := serve(deps, http.MethodPost, "/runs/")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

// slowDependencies runs jobs for longer than the server's write timeout.
type slowDependencies struct {
	mockDependencies
	delay time.Duration
}

func (s *slowDependencies) Run(ctx context.Context, job string) (service.RunSummary, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return service.RunSummary{}, ctx.Err()
	}
	return s.mockDependencies.Run(ctx, job)
}

func TestLongRun(t *testing.T) {
	Convey("Given a server whose write timeout is shorter than a job", t, func() {
		deps := &slowDependencies{delay: 300 * time.Millisecond}
		mux := http.NewServeMux()
		api.NewServer(deps).Register(mux)
		srv := httptest.NewUnstartedServer(mux)
		srv.Config.WriteTimeout = 50 * time.Millisecond
		srv.Start()
		defer srv.Close()

		Convey("When verification is triggered", func() {
			resp, err := srv.Client().Post(srv.URL+"/runs/verify", "application/json", nil)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the summary still reaches the caller", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var sum service.RunSummary
				So(json.NewDecoder(resp.Body).Decode(&sum), ShouldBeNil)
				So(sum.RunID, ShouldEqual, "r-1")
				So(sum.Verify.Processed, ShouldEqual, 2)
			})
		})
	})
}

func TestScores(t *testing.T) {
	Convey("Given the official scores endpoint", t, func() {
		deps := &mockDependencies{scores: map[int64]service.Scores{
			7: {Score: model.RunningScore{OfficialID: 7, Effectiveness: 61.5, Headline: 52}},
		}}

		Convey("When the official exists", func() {
			w := serve(deps, http.MethodGet, "/officials/7/scores?limit=5")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "61.5")
			So(deps.limits, ShouldResemble, []int{5})
		})

		Convey("When the limit is too large it is capped", func() {
			serve(deps, http.MethodGet, "/officials/7/scores?limit=100000")
			So(deps.limits, ShouldResemble, []int{200})
		})

		Convey("When the official is unknown", func() {
			w := serve(deps, http.MethodGet, "/officials/8/scores")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the id is malformed", func() {
			for _, target := range []string{"/officials/abc/scores", "/officials/-1/scores", "/officials/7/scores?limit=x"} {
				w := serve(deps, http.MethodGet, target)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("When the path is not a scores path", func() {
			w := serve(deps, http.MethodGet, "/officials/7")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(strings.Contains(w.Body.String(), "not_found"), ShouldBeTrue)
		})
	})
}
