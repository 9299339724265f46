// Package repository defines the engine's persistence contracts and their
// SQL and in-memory implementations.
package repository

import (
	"context"
	"time"

	"github.com/okian/repute/internal/domain/model"
)

// HeadlineUpdate sets an official's headline score without touching the
// debate dimensions. A missing running score is seeded at the midpoint.
type HeadlineUpdate struct {
	OfficialID int64
	Headline   float64
	UpdatedAt  time.Time
	Metadata   model.Provenance
}

// IntakeCommit is everything one processed news event writes.
type IntakeCommit struct {
	EventID  int64
	Kind     model.EventKind
	At       time.Time
	Headline *HeadlineUpdate
	// Promise is set for tracked kinds; its ID is assigned on commit.
	Promise    *model.PolicyPromise
	Adjustment *model.ScoreAdjustment
}

// ResolutionCommit is everything one promise verification writes.
type ResolutionCommit struct {
	Resolution model.Resolution
	Headline   HeadlineUpdate
	Adjustment model.ScoreAdjustment
}

// Stats summarizes store contents for operators.
type Stats struct {
	Officials     int                         `json:"officials"`
	Sections      int                         `json:"sections"`
	Contributions int                         `json:"contributions"`
	Events        int                         `json:"events"`
	Promises      map[model.PromiseStatus]int `json:"promises"`
}

// ScoreStore reads running scores and their audit trail.
type ScoreStore interface {
	// GetRunningScore returns ErrNotFound if the official has no scores yet.
	GetRunningScore(ctx context.Context, officialID int64) (model.RunningScore, error)
	// ListAdjustments returns the newest headline adjustments first.
	ListAdjustments(ctx context.Context, officialID int64, limit int) ([]model.ScoreAdjustment, error)
}

// SectionStore serves the debate pipeline.
type SectionStore interface {
	// UpsertSection stores a section and its evaluations. Ingest only.
	UpsertSection(ctx context.Context, s model.DebateSection) error
	// ListPendingSections returns sections with id > afterID that have no
	// contributions, ordered by id.
	ListPendingSections(ctx context.Context, afterID int64, limit int) ([]model.DebateSection, error)
	HasContributions(ctx context.Context, sectionID int64) (bool, error)
	ListContributions(ctx context.Context, sectionID int64) ([]model.ScoreContribution, error)
	// CommitSection writes every contribution and debate-dimension update of
	// one section atomically. Returns ErrAlreadyProcessed if any
	// contribution for the section already exists.
	CommitSection(ctx context.Context, sectionID int64, contributions []model.ScoreContribution, scores []model.RunningScore) error
}

// PromiseStore serves announcement intake and promise verification.
type PromiseStore interface {
	// InsertEvent stores a news event and returns its id. Ingest only.
	InsertEvent(ctx context.Context, e model.NewsEvent) (int64, error)
	// ListPendingEvents returns unprocessed events with id > afterID, ordered by id.
	ListPendingEvents(ctx context.Context, afterID int64, limit int) ([]model.NewsEvent, error)
	// CommitIntake marks the event processed and writes its effects.
	// Returns ErrAlreadyProcessed if the event was processed before.
	CommitIntake(ctx context.Context, c IntakeCommit) (promiseID int64, err error)
	// ListDuePromises pages pending promises with target date <= now,
	// ordered by target date then id.
	ListDuePromises(ctx context.Context, now time.Time, offset, limit int) ([]model.PolicyPromise, error)
	GetPromise(ctx context.Context, id int64) (model.PolicyPromise, error)
	// CommitResolution records a terminal status. Returns ErrAlreadyResolved
	// if the promise is no longer pending.
	CommitResolution(ctx context.Context, c ResolutionCommit) error
}

// Store is the full persistence contract.
type Store interface {
	ScoreStore
	SectionStore
	PromiseStore

	Stats(ctx context.Context) (Stats, error)
	Ping(ctx context.Context) error
	Close() error
}
