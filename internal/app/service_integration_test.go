package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/repute/internal/adapters/classifier"
	"github.com/okian/repute/internal/adapters/classifier/classifiertest"
	"github.com/okian/repute/internal/adapters/repository"
	service "github.com/okian/repute/internal/app"
	"github.com/okian/repute/internal/domain/model"
)

// clock is a settable time source.
type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func TestService_EndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping sqlite end-to-end test in short mode")
	}
	ctx := context.Background()

	Convey("Given a service over a sqlite store", t, func() {
		store, err := repository.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "repute.db"))
		So(err, ShouldBeNil)
		defer store.Close()

		clk := &clock{now: time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)}
		cls := classifiertest.New()
		svc := service.New(testConfig(), store, cls, service.WithClock(clk.Now))

		winner := int64(7)
		So(store.UpsertSection(ctx, model.DebateSection{
			ID: 1, DebateDayID: 1, Title: "Housing (Amendment) Bill", WinnerOfficialID: &winner,
			Evaluations: []model.ParticipantEvaluation{
				{OfficialID: 7, Rating: model.RatingStrong, OverallScore: 0.85, WordCount: 2400, SpeechCount: 6, ArgumentQuality: ptr(0.8)},
				{OfficialID: 8, Rating: model.RatingPoor, OverallScore: 0.2, WordCount: 150, SpeechCount: 1, ArgumentQuality: ptr(0.3)},
			},
		}), ShouldBeNil)

		kept, err := store.InsertEvent(ctx, model.NewsEvent{
			OfficialID: 7, Title: "Minister pledges 200 school places", PublishedAt: clk.now, Impact: 10,
		})
		So(err, ShouldBeNil)
		broken, err := store.InsertEvent(ctx, model.NewsEvent{
			OfficialID: 8, Title: "TD promises new bridge", PublishedAt: clk.now, Impact: 5,
		})
		So(err, ShouldBeNil)

		Convey("When every job runs across the verification horizon", func() {
			debateRun, err := svc.RunDebate(ctx)
			So(err, ShouldBeNil)
			intakeRun, err := svc.RunIntake(ctx)
			So(err, ShouldBeNil)

			keptPromise, brokenPromise := int64(1), int64(2)
			cls.Verdicts[keptPromise] = classifier.Verdict{Delivered: true, Evidence: "places opened", Confidence: 0.9}
			cls.Verdicts[brokenPromise] = classifier.Verdict{Delivered: false, Evidence: "no tender issued", Confidence: 0.8}

			early, err := svc.RunVerification(ctx)
			So(err, ShouldBeNil)

			clk.now = clk.now.AddDate(0, 7, 0)
			late, err := svc.RunVerification(ctx)
			So(err, ShouldBeNil)

			Convey("Then each job reports its work", func() {
				So(debateRun.Debate.Processed, ShouldEqual, 1)
				So(debateRun.Debate.Contributions, ShouldEqual, 2)
				So(intakeRun.Intake.Tracked, ShouldEqual, 2)
				So(early.Verify.Due, ShouldEqual, 0)
				So(late.Verify.Delivered, ShouldEqual, 1)
				So(late.Verify.Failed, ShouldEqual, 1)
			})

			Convey("Then the kept promise earned its full impact", func() {
				sc, err := svc.OfficialScores(ctx, 7, 10)
				So(err, ShouldBeNil)
				So(sc.Adjustments, ShouldHaveLength, 2)
				var total float64
				for _, a := range sc.Adjustments {
					total += a.Delta
				}
				So(total, ShouldAlmostEqual, 10, 1e-9)
				So(sc.Score.Effectiveness, ShouldBeGreaterThan, 50)
			})

			Convey("Then the broken promise nets negative", func() {
				sc, err := svc.OfficialScores(ctx, 8, 10)
				So(err, ShouldBeNil)
				So(sc.Score.Headline, ShouldBeLessThan, 50)

				p, err := store.GetPromise(ctx, brokenPromise)
				So(err, ShouldBeNil)
				So(p.SourceEventID, ShouldEqual, broken)
				So(p.Status, ShouldEqual, model.StatusFailed)
				So(*p.OutcomeScore, ShouldAlmostEqual, -3, 1e-9)
			})

			Convey("Then stats reflect the final state", func() {
				st, err := svc.GetStats(ctx)
				So(err, ShouldBeNil)
				So(st.Contributions, ShouldEqual, 2)
				So(st.Promises[model.StatusDelivered], ShouldEqual, 1)
				So(st.Promises[model.StatusFailed], ShouldEqual, 1)
				So(kept, ShouldBeLessThan, broken)
			})

			Convey("Then rerunning changes nothing", func() {
				again, err := svc.RunDebate(ctx)
				So(err, ShouldBeNil)
				So(again.Debate.Processed, ShouldEqual, 0)

				verify, err := svc.RunVerification(ctx)
				So(err, ShouldBeNil)
				So(verify.Verify.Due, ShouldEqual, 0)
			})
		})
	})
}
