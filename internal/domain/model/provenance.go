package model

import "time"

// ProvenanceKind discriminates the Provenance union.
type ProvenanceKind string

// Provenance kinds.
const (
	ProvenanceDebate       ProvenanceKind = "debate"
	ProvenanceAnnouncement ProvenanceKind = "announcement"
	ProvenanceVerification ProvenanceKind = "verification"
)

// Provenance records where a score change came from. Exactly one of the
// typed payloads is set, matching Kind. Extra holds schema-free text such as
// raw classifier evidence.
type Provenance struct {
	Kind         ProvenanceKind          `json:"kind,omitempty"`
	Debate       *DebateProvenance       `json:"debate,omitempty"`
	Announcement *AnnouncementProvenance `json:"announcement,omitempty"`
	Verification *VerificationProvenance `json:"verification,omitempty"`
	Extra        map[string]string       `json:"extra,omitempty"`
}

// DebateProvenance captures the activity sub-terms and weights behind a
// debate contribution.
type DebateProvenance struct {
	SectionID        int64   `json:"section_id"`
	DebateDayID      int64   `json:"debate_day_id"`
	Multiplier       float64 `json:"multiplier"`
	BaseDelta        float64 `json:"base_delta"`
	WordTerm         float64 `json:"word_term"`
	SpeechTerm       float64 `json:"speech_term"`
	TopicTerm        float64 `json:"topic_term"`
	SentimentTerm    float64 `json:"sentiment_term"`
	ActivityTerm     float64 `json:"activity_term"`
	OutcomeBonus     float64 `json:"outcome_bonus"`
	WordWeight       float64 `json:"word_weight"`
	ConfidenceWeight float64 `json:"confidence_weight"`
	CombinedWeight   float64 `json:"combined_weight"`
	RawDeltas        Triple  `json:"raw_deltas"`
}

// AnnouncementProvenance captures an intake credit decision.
type AnnouncementProvenance struct {
	EventID      int64     `json:"event_id"`
	Kind         EventKind `json:"kind"`
	CreditFactor float64   `json:"credit_factor"`
	FullImpact   float64   `json:"full_impact"`
	Credit       float64   `json:"credit"`
	Withheld     float64   `json:"withheld"`
	Unverifiable bool      `json:"unverifiable,omitempty"`
}

// VerificationProvenance captures a promise resolution.
type VerificationProvenance struct {
	PromiseID  int64         `json:"promise_id"`
	Status     PromiseStatus `json:"status"`
	Initial    float64       `json:"initial"`
	Withheld   float64       `json:"withheld"`
	Adjustment float64       `json:"adjustment"`
	Confidence float64       `json:"confidence"`
	VerifiedAt time.Time     `json:"verified_at"`
}
