// Package debate turns adjudicated debate sections into bounded running
// score updates with a per-official audit trail.
package debate

import (
	"math"
	"strings"

	"github.com/okian/repute/internal/domain/model"
	"github.com/okian/repute/internal/domain/scoring"
)

// Formula constants.
const (
	baseScale = 10.0

	wordCap       = 10_000.0
	wordCapWeight = 2.0
	speechCap     = 20.0
	topicCap      = 5.0

	influenceBaseShare  = 0.4
	effectiveBaseShare  = 0.6
	activityAboveWeight = 0.3
	activityBelowWeight = 0.1
	argumentScale       = 2.0

	winnerBonus = 2.0
	poorPenalty = -1.0

	deltaMin = -3.0
	deltaMax = 5.0

	perfEffShare = 0.6
	perfInfShare = 0.4

	wordRef           = 600.0
	wordWeightFloor   = 0.3
	confExponent      = 0.7
	confWeightFloor   = 0.45
	defaultConfidence = 0.75
	combinedMin       = 0.35
	combinedMax       = 1.0
)

// DefaultMultipliers is the rating multiplier table.
var DefaultMultipliers = map[model.Rating]float64{
	model.RatingStrong:   1.2,
	model.RatingModerate: 0.8,
	model.RatingWeak:     0.5,
	model.RatingPoor:     0.2,
}

// Params holds what Compute needs beyond the section itself.
type Params struct {
	Multipliers map[model.Rating]float64
	Updater     scoring.Updater
}

func (p Params) multiplier(r model.Rating) float64 {
	if m, ok := p.Multipliers[r]; ok {
		return m
	}
	if m, ok := DefaultMultipliers[r]; ok {
		return m
	}
	return DefaultMultipliers[model.RatingModerate]
}

// Activity is the capped participation breakdown of one evaluation.
type Activity struct {
	Words     float64
	Speeches  float64
	Topics    float64
	Sentiment float64
}

// Total sums the sub-terms.
func (a Activity) Total() float64 { return a.Words + a.Speeches + a.Topics + a.Sentiment }

// ActivityOf computes the activity sub-terms of an evaluation.
func ActivityOf(e model.ParticipantEvaluation) Activity {
	return Activity{
		Words:     math.Min(float64(max(e.WordCount, 0))/wordCap, 1) * wordCapWeight,
		Speeches:  math.Min(float64(max(e.SpeechCount, 0))/speechCap, 1),
		Topics:    math.Min(float64(uniqueTopics(e.Topics))/topicCap, 1),
		Sentiment: sentimentTerm(e.Sentiment),
	}
}

func uniqueTopics(topics []string) int {
	seen := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			seen[t] = struct{}{}
		}
	}
	return len(seen)
}

// sentimentTerm rescales (pos-neg)/total into [0,1]; no tally is neutral.
func sentimentTerm(s *model.Sentiment) float64 {
	if s == nil || s.Total() <= 0 {
		return 0.5
	}
	return (float64(s.Positive-s.Negative)/float64(s.Total()) + 1) / 2
}

// RoleOf assigns the outcome role. The designated winner always wins, even
// with a weak rating.
func RoleOf(s model.DebateSection, e model.ParticipantEvaluation) model.Role {
	switch {
	case s.WinnerOfficialID != nil && *s.WinnerOfficialID == e.OfficialID:
		return model.RoleWinner
	case e.Rating == model.RatingWeak || e.Rating == model.RatingPoor:
		return model.RolePoorPerformer
	default:
		return model.RoleParticipant
	}
}

func outcomeBonus(r model.Role) float64 {
	switch r {
	case model.RoleWinner:
		return winnerBonus
	case model.RolePoorPerformer:
		return poorPenalty
	}
	return 0
}

// Weights returns the word-count, confidence and combined weights.
// confidence is the section outcome confidence in [0,1]; nil uses the default.
func Weights(words int, confidence *float64) (word, conf, combined float64) {
	word = math.Max(wordWeightFloor, math.Min(1, math.Sqrt(float64(max(words, 0))/wordRef)))
	c := defaultConfidence
	if confidence != nil && !math.IsNaN(*confidence) {
		c = math.Max(0, math.Min(1, *confidence))
	}
	conf = math.Max(confWeightFloor, math.Min(1, math.Pow(c, confExponent)))
	combined = clamp(word*conf, combinedMin, combinedMax)
	return word, conf, combined
}

// Contribution is the computed effect of one evaluation.
type Contribution struct {
	Role       model.Role
	Before     model.Triple
	After      model.Triple
	Deltas     model.Triple
	Provenance model.DebateProvenance
}

// Compute derives one official's score change from one section. It reads
// nothing but its arguments.
func Compute(p Params, s model.DebateSection, e model.ParticipantEvaluation, current model.Triple) Contribution {
	mult := p.multiplier(e.Rating)
	overall := finite(e.OverallScore, 0.5)
	base := (overall - 0.5) * baseScale

	act := ActivityOf(e)
	actWeight := activityBelowWeight
	if overall >= 0.5 {
		actWeight = activityAboveWeight
	}

	role := RoleOf(s, e)
	bonus := outcomeBonus(role)
	var argument float64
	if e.ArgumentQuality != nil {
		argument = (finite(*e.ArgumentQuality, 0.5) - 0.5) * argumentScale
	}

	infl := clamp(base*mult*influenceBaseShare+act.Total()*actWeight, deltaMin, deltaMax)
	eff := clamp(base*mult*effectiveBaseShare+bonus+argument, deltaMin, deltaMax)
	perf := clamp(perfEffShare*eff+perfInfShare*infl, deltaMin, deltaMax)
	raw := model.Triple{Effectiveness: eff, Influence: infl, Performance: perf}

	wordW, confW, combined := Weights(e.WordCount, s.OutcomeConfidence)
	deltas := model.Triple{
		Effectiveness: raw.Effectiveness * combined,
		Influence:     raw.Influence * combined,
		Performance:   raw.Performance * combined,
	}
	after := model.Triple{
		Effectiveness: p.Updater.Update(current.Effectiveness, deltas.Effectiveness),
		Influence:     p.Updater.Update(current.Influence, deltas.Influence),
		Performance:   p.Updater.Update(current.Performance, deltas.Performance),
	}

	return Contribution{
		Role:   role,
		Before: current,
		After:  after,
		Deltas: deltas,
		Provenance: model.DebateProvenance{
			SectionID:        s.ID,
			DebateDayID:      s.DebateDayID,
			Multiplier:       mult,
			BaseDelta:        base,
			WordTerm:         act.Words,
			SpeechTerm:       act.Speeches,
			TopicTerm:        act.Topics,
			SentimentTerm:    act.Sentiment,
			ActivityTerm:     act.Total(),
			OutcomeBonus:     bonus,
			WordWeight:       wordW,
			ConfidenceWeight: confW,
			CombinedWeight:   combined,
			RawDeltas:        raw,
		},
	}
}

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }

func finite(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
