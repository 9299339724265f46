// Package model contains domain models passed between layers.
package model

import "time"

// Dimension names a running-score axis.
type Dimension string

// Running-score dimensions. Headline is the aggregate score that promise
// verification corrects; the other three are fed by debate sections.
const (
	Effectiveness Dimension = "effectiveness"
	Influence     Dimension = "influence"
	Performance   Dimension = "performance"
	Headline      Dimension = "headline"
)

// Midpoint is the seed value for lazily created scores.
const Midpoint = 50.0

// RunningScore is the currently-in-effect bounded score set for one official.
type RunningScore struct {
	OfficialID    int64
	Effectiveness float64
	Influence     float64
	Performance   float64
	Headline      float64
	UpdatedAt     time.Time
	// Metadata records the provenance of the most recent update.
	Metadata Provenance
}

// SeedScore returns a running score at the midpoint on every dimension.
func SeedScore(officialID int64, now time.Time) RunningScore {
	return RunningScore{
		OfficialID:    officialID,
		Effectiveness: Midpoint,
		Influence:     Midpoint,
		Performance:   Midpoint,
		Headline:      Midpoint,
		UpdatedAt:     now,
	}
}

// Get returns the value of dimension d.
func (r RunningScore) Get(d Dimension) float64 {
	switch d {
	case Effectiveness:
		return r.Effectiveness
	case Influence:
		return r.Influence
	case Performance:
		return r.Performance
	case Headline:
		return r.Headline
	}
	return Midpoint
}

// Triple is an (effectiveness, influence, performance) value set.
type Triple struct {
	Effectiveness float64 `json:"effectiveness"`
	Influence     float64 `json:"influence"`
	Performance   float64 `json:"performance"`
}

// Debate returns the three debate-fed dimensions.
func (r RunningScore) Debate() Triple {
	return Triple{Effectiveness: r.Effectiveness, Influence: r.Influence, Performance: r.Performance}
}
