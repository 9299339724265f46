package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/repute/internal/adapters/classifier"
	"github.com/okian/repute/internal/adapters/classifier/classifiertest"
	"github.com/okian/repute/internal/adapters/repository"
	service "github.com/okian/repute/internal/app"
	"github.com/okian/repute/internal/config"
	"github.com/okian/repute/internal/domain/model"
	"github.com/okian/repute/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func ptr[T any](v T) *T { return &v }

func testConfig() *config.Config {
	cfg := config.New()
	cfg.ClassifierDelayMS = 0
	return cfg
}

// gatedStore blocks Ping until released, and can fail it.
type gatedStore struct {
	*repository.MemStore
	entered chan struct{}
	release chan struct{}
	pingErr error
}

func (g *gatedStore) Ping(ctx context.Context) error {
	if g.entered != nil {
		close(g.entered)
		g.entered = nil
		<-g.release
	}
	return g.pingErr
}

func TestService_Jobs(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service over an in-memory store", t, func() {
		store := repository.NewMemStore()
		cls := classifiertest.New()
		svc := service.New(testConfig(), store, cls)

		Convey("When a debate run finds a section", func() {
			winner := int64(1)
			So(store.UpsertSection(ctx, model.DebateSection{
				ID: 10, DebateDayID: 1, WinnerOfficialID: &winner,
				Evaluations: []model.ParticipantEvaluation{
					{OfficialID: 1, Rating: model.RatingStrong, OverallScore: 0.9, WordCount: 1200, ArgumentQuality: ptr(0.8)},
				},
			}), ShouldBeNil)

			sum, err := svc.RunDebate(ctx)

			Convey("Then the summary reports it", func() {
				So(err, ShouldBeNil)
				So(sum.RunID, ShouldNotBeEmpty)
				So(sum.Job, ShouldEqual, service.JobDebate)
				So(sum.Debate, ShouldNotBeNil)
				So(sum.Debate.Processed, ShouldEqual, 1)
				So(sum.Error, ShouldBeEmpty)
			})

			Convey("Then the official's scores are readable", func() {
				sc, err := svc.OfficialScores(ctx, 1, 10)
				So(err, ShouldBeNil)
				So(sc.Score.Effectiveness, ShouldBeGreaterThan, 50)
			})
		})

		Convey("When a job is triggered by name", func() {
			sum, err := svc.Run(ctx, service.JobVerify)
			So(err, ShouldBeNil)
			So(sum.Verify, ShouldNotBeNil)

			_, err = svc.Run(ctx, "reindex")
			So(errors.Is(err, service.ErrUnknownJob), ShouldBeTrue)
		})

		Convey("When stats are requested", func() {
			_, _ = store.InsertEvent(ctx, model.NewsEvent{OfficialID: 1, Title: "x"})
			st, err := svc.GetStats(ctx)
			So(err, ShouldBeNil)
			So(st.Events, ShouldEqual, 1)
		})

		Convey("When an unknown official is looked up", func() {
			_, err := svc.OfficialScores(ctx, 404, 10)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("Given a service without a classifier", t, func() {
		svc := service.New(testConfig(), repository.NewMemStore(), nil)

		Convey("Then intake and verification refuse to run", func() {
			_, err := svc.RunIntake(ctx)
			So(errors.Is(err, service.ErrNoClassifier), ShouldBeTrue)
			_, err = svc.RunVerification(ctx)
			So(errors.Is(err, service.ErrNoClassifier), ShouldBeTrue)
		})

		Convey("Then debate still runs", func() {
			_, err := svc.RunDebate(ctx)
			So(err, ShouldBeNil)
		})
	})

	Convey("Given an unreachable store", t, func() {
		store := &gatedStore{MemStore: repository.NewMemStore(), pingErr: errors.New("connection refused")}
		svc := service.New(testConfig(), store, classifiertest.New())

		Convey("Then the job aborts with zero progress", func() {
			sum, err := svc.RunDebate(ctx)
			So(err, ShouldNotBeNil)
			So(sum.Debate, ShouldBeNil)
			So(sum.Error, ShouldContainSubstring, "store unavailable")
		})
	})

	Convey("Given a job that is still running", t, func() {
		store := &gatedStore{
			MemStore: repository.NewMemStore(),
			entered:  make(chan struct{}),
			release:  make(chan struct{}),
		}
		entered := store.entered
		svc := service.New(testConfig(), store, classifier.Classifier(classifiertest.New()))

		done := make(chan error, 1)
		go func() {
			_, err := svc.RunDebate(ctx)
			done <- err
		}()
		<-entered

		Convey("Then a second trigger is refused", func() {
			_, err := svc.RunDebate(ctx)
			So(errors.Is(err, service.ErrJobRunning), ShouldBeTrue)

			close(store.release)
			select {
			case err := <-done:
				So(err, ShouldBeNil)
			case <-time.After(5 * time.Second):
				So("first run finished", ShouldBeEmpty)
			}
		})
	})
}
