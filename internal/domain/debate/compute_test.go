package debate

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/repute/internal/domain/model"
	"github.com/okian/repute/internal/domain/scoring"
)

func ptr[T any](v T) *T { return &v }

func TestRoleOf(t *testing.T) {
	Convey("Given a section with a designated winner", t, func() {
		s := model.DebateSection{ID: 1, WinnerOfficialID: ptr(int64(7))}

		Convey("The winner is a winner even when rated weak", func() {
			So(RoleOf(s, model.ParticipantEvaluation{OfficialID: 7, Rating: model.RatingWeak}), ShouldEqual, model.RoleWinner)
		})

		Convey("Weak and poor non-winners are poor performers", func() {
			So(RoleOf(s, model.ParticipantEvaluation{OfficialID: 8, Rating: model.RatingWeak}), ShouldEqual, model.RolePoorPerformer)
			So(RoleOf(s, model.ParticipantEvaluation{OfficialID: 9, Rating: model.RatingPoor}), ShouldEqual, model.RolePoorPerformer)
		})

		Convey("Everyone else participates", func() {
			So(RoleOf(s, model.ParticipantEvaluation{OfficialID: 8, Rating: model.RatingStrong}), ShouldEqual, model.RoleParticipant)
			So(RoleOf(model.DebateSection{}, model.ParticipantEvaluation{OfficialID: 7, Rating: model.RatingModerate}), ShouldEqual, model.RoleParticipant)
		})
	})
}

func TestWeights(t *testing.T) {
	Convey("Combined weight stays within [0.35, 1]", t, func() {
		Convey("At zero words and zero confidence", func() {
			word, conf, combined := Weights(0, ptr(0.0))
			So(word, ShouldEqual, 0.3)
			So(conf, ShouldEqual, 0.45)
			So(combined, ShouldEqual, 0.35)
		})

		Convey("At very large word counts and full confidence", func() {
			word, conf, combined := Weights(1_000_000, ptr(1.0))
			So(word, ShouldEqual, 1)
			So(conf, ShouldEqual, 1)
			So(combined, ShouldEqual, 1)
		})

		Convey("With out-of-range confidence and negative words", func() {
			_, _, hi := Weights(600, ptr(40.0))
			_, _, lo := Weights(-5, ptr(-1.0))
			So(hi, ShouldEqual, 1)
			So(lo, ShouldEqual, 0.35)
		})

		Convey("Missing confidence uses the default", func() {
			_, conf, _ := Weights(600, nil)
			So(conf, ShouldAlmostEqual, 0.8176, 0.001)
		})
	})
}

func TestActivityOf(t *testing.T) {
	Convey("Activity sub-terms are capped", t, func() {
		a := ActivityOf(model.ParticipantEvaluation{
			WordCount:   50_000,
			SpeechCount: 10,
			Topics:      []string{"Housing", "housing ", "health", ""},
			Sentiment:   &model.Sentiment{Positive: 3, Negative: 1},
		})
		So(a.Words, ShouldEqual, 2)
		So(a.Speeches, ShouldEqual, 0.5)
		So(a.Topics, ShouldAlmostEqual, 0.4)
		So(a.Sentiment, ShouldAlmostEqual, 0.75)
		So(a.Total(), ShouldAlmostEqual, 3.65)

		Convey("An empty tally is neutral", func() {
			So(ActivityOf(model.ParticipantEvaluation{Sentiment: &model.Sentiment{}}).Sentiment, ShouldEqual, 0.5)
		})
	})
}

func TestCompute(t *testing.T) {
	params := Params{Multipliers: DefaultMultipliers, Updater: scoring.NewSoftUpdater()}
	mid := model.Triple{Effectiveness: 50, Influence: 50, Performance: 50}

	Convey("Given a strong winner at the midpoint with no activity", t, func() {
		s := model.DebateSection{ID: 3, WinnerOfficialID: ptr(int64(1))}
		e := model.ParticipantEvaluation{OfficialID: 1, Rating: model.RatingStrong, OverallScore: 0.9}
		out := Compute(params, s, e, mid)

		Convey("Then every dimension rises and stays bounded", func() {
			So(out.Role, ShouldEqual, model.RoleWinner)
			So(out.Deltas.Effectiveness, ShouldBeGreaterThan, 0)
			So(out.After.Effectiveness, ShouldBeGreaterThan, 50)
			So(out.After.Effectiveness, ShouldBeLessThanOrEqualTo, 95)
			So(out.After.Influence, ShouldBeGreaterThan, 50)
			So(out.After.Performance, ShouldBeGreaterThan, 50)
		})

		Convey("Then provenance records the breakdown", func() {
			p := out.Provenance
			So(p.Multiplier, ShouldEqual, 1.2)
			So(p.BaseDelta, ShouldAlmostEqual, 4)
			So(p.OutcomeBonus, ShouldEqual, 2)
			So(p.CombinedWeight, ShouldEqual, 0.35)
			So(p.RawDeltas.Influence, ShouldAlmostEqual, 2.07)
			So(p.RawDeltas.Effectiveness, ShouldAlmostEqual, 4.88)
			So(out.Deltas.Effectiveness, ShouldAlmostEqual, 4.88*0.35)
		})
	})

	Convey("Given evaluations that differ only in argument quality", t, func() {
		s := model.DebateSection{ID: 5}
		base := model.ParticipantEvaluation{OfficialID: 4, Rating: model.RatingModerate, OverallScore: 0.6}
		withQuality := func(q *float64) model.Triple {
			e := base
			e.ArgumentQuality = q
			return Compute(params, s, e, mid).Provenance.RawDeltas
		}

		Convey("An unrecorded quality is neutral", func() {
			So(withQuality(nil), ShouldResemble, withQuality(ptr(0.5)))
		})

		Convey("A recorded quality moves effectiveness only", func() {
			low, high := withQuality(ptr(0.0)), withQuality(ptr(1.0))
			So(high.Effectiveness-low.Effectiveness, ShouldAlmostEqual, 2)
			So(high.Influence, ShouldEqual, low.Influence)
		})
	})

	Convey("Given a poor performer well below neutral", t, func() {
		e := model.ParticipantEvaluation{OfficialID: 2, Rating: model.RatingPoor, OverallScore: 0, ArgumentQuality: ptr(0.0)}
		out := Compute(params, model.DebateSection{ID: 4}, e, mid)

		Convey("Then deltas are negative and clamped at -3", func() {
			So(out.Role, ShouldEqual, model.RolePoorPerformer)
			So(out.Provenance.RawDeltas.Effectiveness, ShouldBeGreaterThanOrEqualTo, -3)
			So(out.After.Effectiveness, ShouldBeLessThan, 50)
			So(out.After.Effectiveness, ShouldBeGreaterThanOrEqualTo, 15)
		})
	})

	Convey("Given an unknown rating", t, func() {
		e := model.ParticipantEvaluation{OfficialID: 3, Rating: model.Rating("stellar"), OverallScore: 0.6}
		out := Compute(params, model.DebateSection{}, e, mid)
		So(out.Provenance.Multiplier, ShouldEqual, 0.8)
	})
}
