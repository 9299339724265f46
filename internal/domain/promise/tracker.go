package promise

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/repute/internal/adapters/classifier"
	"github.com/okian/repute/internal/adapters/repository"
	"github.com/okian/repute/internal/domain/dedupe"
	"github.com/okian/repute/internal/domain/model"
	"github.com/okian/repute/internal/domain/scoring"
	"github.com/okian/repute/internal/domain/serial"
	"github.com/okian/repute/pkg/logger"
)

// Defaults.
const (
	DefaultAnnouncementCredit = 0.3
	DefaultMixedCredit        = 0.6
	DefaultLead               = 183 * 24 * time.Hour
	DefaultBatchSize          = 50
	DefaultPageSize           = 1000
	defaultEventPageSize      = 200
	defaultDelay              = time.Second
)

// Store is the store surface the tracker needs.
type Store interface {
	repository.PromiseStore
	repository.ScoreStore
}

// Tracker runs announcement intake and promise verification.
type Tracker struct {
	store      Store
	classifier classifier.Classifier
	updater    scoring.Updater
	locks      *serial.Locker
	seen       dedupe.Deduper
	now        func() time.Time
	log        logger.Logger

	announcementCredit float64
	mixedCredit        float64
	lead               time.Duration
	batchSize          int
	pageSize           int
	eventPageSize      int
	delay              time.Duration
}

// NewTracker creates a Tracker.
func NewTracker(store Store, c classifier.Classifier, opts ...Option) *Tracker {
	t := &Tracker{
		store:              store,
		classifier:         c,
		updater:            scoring.NewSoftUpdater(),
		locks:              serial.New(),
		seen:               dedupe.NewInMemoryDeduper(),
		now:                time.Now,
		log:                logger.Named("promise"),
		announcementCredit: DefaultAnnouncementCredit,
		mixedCredit:        DefaultMixedCredit,
		lead:               DefaultLead,
		batchSize:          DefaultBatchSize,
		pageSize:           DefaultPageSize,
		eventPageSize:      defaultEventPageSize,
		delay:              defaultDelay,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// CreditFactor returns the fraction of impact issued at intake for kind.
func (t *Tracker) CreditFactor(kind model.EventKind) float64 {
	switch kind {
	case model.KindAnnouncement:
		return t.announcementCredit
	case model.KindMixed, model.KindAmbiguous:
		return t.mixedCredit
	}
	return 1
}

// currentScore returns the official's running score, seeding it if absent.
func (t *Tracker) currentScore(ctx context.Context, officialID int64, now time.Time) (model.RunningScore, error) {
	rs, err := t.store.GetRunningScore(ctx, officialID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.SeedScore(officialID, now), nil
	}
	if err != nil {
		return rs, fmt.Errorf("load score for official %d: %w", officialID, err)
	}
	return rs, nil
}

// pause waits d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
