package model

import "time"

// PromiseStatus is the lifecycle state of a tracked promise.
type PromiseStatus string

// Statuses. Pending is the only non-terminal state.
const (
	StatusPending   PromiseStatus = "pending"
	StatusDelivered PromiseStatus = "delivered"
	StatusPartial   PromiseStatus = "partial"
	StatusFailed    PromiseStatus = "failed"
)

// Terminal reports whether s admits no further transitions.
func (s PromiseStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusPartial || s == StatusFailed
}

// EventKind is the lexical classification of a news event.
type EventKind string

// Event kinds.
const (
	KindNone         EventKind = "none"
	KindAnnouncement EventKind = "announcement"
	KindAchievement  EventKind = "achievement"
	KindMixed        EventKind = "mixed"
	KindAmbiguous    EventKind = "ambiguous"
)

// Tracked reports whether events of this kind create a promise.
func (k EventKind) Tracked() bool {
	return k == KindAnnouncement || k == KindMixed || k == KindAmbiguous
}

// PromiseType tags the extracted commitment.
type PromiseType string

// Promise types.
const (
	PromiseTypeLegislation PromiseType = "legislation"
	PromiseTypeFunding     PromiseType = "funding"
	PromiseTypeProject     PromiseType = "infrastructure"
	PromiseTypePolicy      PromiseType = "policy"
	PromiseTypeOther       PromiseType = "other"
)

// ParsePromiseType normalizes a classifier-supplied type tag.
func ParsePromiseType(s string) PromiseType {
	switch t := PromiseType(s); t {
	case PromiseTypeLegislation, PromiseTypeFunding, PromiseTypeProject, PromiseTypePolicy:
		return t
	}
	return PromiseTypeOther
}

// ImpactDimension names one dimensional impact component of a news event.
type ImpactDimension string

// Impact dimensions carried on news events.
const (
	ImpactTransparency   ImpactDimension = "transparency"
	ImpactEffectiveness  ImpactDimension = "effectiveness"
	ImpactIntegrity      ImpactDimension = "integrity"
	ImpactConsistency    ImpactDimension = "consistency"
	ImpactConstituency   ImpactDimension = "constituency_service"
	ImpactAccountability ImpactDimension = "accountability"
)

// NewsEvent is a news-derived event with its prior impact analysis.
type NewsEvent struct {
	ID          int64
	OfficialID  int64
	Title       string
	Summary     string
	URL         string
	PublishedAt time.Time
	// Impact is the computed headline impact before any discount.
	Impact float64
	// Dimensions holds the per-dimension impact components.
	Dimensions map[ImpactDimension]float64
}

// PolicyPromise is a tracked commitment awaiting verification.
type PolicyPromise struct {
	ID            int64
	OfficialID    int64
	SourceEventID int64
	Text          string
	Type          PromiseType
	Kind          EventKind
	Metrics       map[string]string
	Unverifiable  bool
	AnnouncedAt   time.Time
	// CreditFactor is the fraction of impact issued at intake.
	CreditFactor float64
	// InitialScoreGiven is the provisional credit already issued.
	InitialScoreGiven float64
	// WithheldScore is the credit held back pending verification.
	WithheldScore float64
	TargetDate    time.Time
	Status        PromiseStatus
	OutcomeScore  *float64
	Evidence      string
	Sources       []string
	Confidence    *float64
	VerifiedAt    *time.Time
	LastCheckedAt *time.Time
	CreatedAt     time.Time
}

// FullImpact returns the undiscounted credit the event would have earned.
func (p PolicyPromise) FullImpact() float64 {
	return p.InitialScoreGiven + p.WithheldScore
}

// Resolution is the terminal outcome recorded on a promise.
type Resolution struct {
	PromiseID  int64
	Status     PromiseStatus
	Adjustment float64
	Evidence   string
	Sources    []string
	Confidence float64
	VerifiedAt time.Time
}

// ScoreAdjustment is an audit entry for a headline score change.
type ScoreAdjustment struct {
	ID         int64
	OfficialID int64
	PromiseID  *int64
	EventID    *int64
	Reason     string
	Delta      float64
	Before     float64
	After      float64
	Metadata   Provenance
	CreatedAt  time.Time
}

// Adjustment reasons.
const (
	ReasonIntakeCredit = "intake_credit"
	ReasonVerification = "verification"
)
