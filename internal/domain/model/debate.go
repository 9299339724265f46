package model

import (
	"strings"
	"time"
)

// Rating is a discrete debate performance rating.
type Rating string

// Ratings.
const (
	RatingStrong   Rating = "strong"
	RatingModerate Rating = "moderate"
	RatingWeak     Rating = "weak"
	RatingPoor     Rating = "poor"
)

// ParseRating normalizes a rating string. Unknown values map to moderate.
func ParseRating(s string) Rating {
	switch r := Rating(strings.ToLower(strings.TrimSpace(s))); r {
	case RatingStrong, RatingModerate, RatingWeak, RatingPoor:
		return r
	}
	return RatingModerate
}

// Role is the outcome role assigned to an official within one section.
type Role string

// Roles.
const (
	RoleWinner        Role = "winner"
	RoleParticipant   Role = "participant"
	RolePoorPerformer Role = "poor_performer"
)

// Sentiment is a tally of positive, negative and neutral reactions.
type Sentiment struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

// Total returns the number of tallied reactions.
func (s Sentiment) Total() int { return s.Positive + s.Negative + s.Neutral }

// ParticipantEvaluation is one official's evaluation within a debate section.
type ParticipantEvaluation struct {
	OfficialID              int64
	WordCount               int
	SpeechCount             int
	Rating                  Rating
	// Sub-scores are in [0,1] when the adjudication recorded them.
	ArgumentQuality         *float64
	Relevance               *float64
	Persuasiveness          *float64
	FactualAccuracy         *float64
	RhetoricalEffectiveness *float64
	// OverallScore is in [0,1]; 0.5 is neutral.
	OverallScore float64
	Topics       []string
	Sentiment    *Sentiment
}

// DebateSection is one adjudicated unit of debate. Read-only input.
type DebateSection struct {
	ID          int64
	DebateDayID int64
	Title       string
	WordCount   int
	HeldOn      time.Time
	// WinnerOfficialID is the designated winner, if the adjudication named one.
	WinnerOfficialID *int64
	// OutcomeConfidence is the adjudicator's confidence in [0,1], if recorded.
	OutcomeConfidence *float64
	Evaluations       []ParticipantEvaluation
}

// ScoreContribution is the immutable audit record of one official's score
// change from one section. Unique per (SectionID, OfficialID).
type ScoreContribution struct {
	SectionID  int64
	OfficialID int64
	Before     Triple
	After      Triple
	Deltas     Triple
	Rating     Rating
	Role       Role
	Metadata   Provenance
	CreatedAt  time.Time
}
