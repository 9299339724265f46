// Package service wires the store, the classification client and the engine
// components into the jobs the scheduler and the operator API trigger.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/repute/internal/adapters/classifier"
	"github.com/okian/repute/internal/adapters/repository"
	"github.com/okian/repute/internal/config"
	"github.com/okian/repute/internal/domain/debate"
	"github.com/okian/repute/internal/domain/dedupe"
	"github.com/okian/repute/internal/domain/model"
	"github.com/okian/repute/internal/domain/promise"
	"github.com/okian/repute/internal/domain/scoring"
	"github.com/okian/repute/internal/domain/serial"
	"github.com/okian/repute/pkg/logger"
	"github.com/okian/repute/pkg/metrics"
)

// Job names.
const (
	JobDebate = "debate"
	JobIntake = "intake"
	JobVerify = "verify"
)

// Job result labels.
const (
	resultOK    = "ok"
	resultError = "error"
	resultBusy  = "busy"
)

// RunSummary is the operator-facing report of one job run.
type RunSummary struct {
	RunID      string                       `json:"run_id"`
	Job        string                       `json:"job"`
	StartedAt  time.Time                    `json:"started_at"`
	FinishedAt time.Time                    `json:"finished_at"`
	Debate     *debate.Summary              `json:"debate,omitempty"`
	Intake     *promise.IntakeSummary       `json:"intake,omitempty"`
	Verify     *promise.VerificationSummary `json:"verify,omitempty"`
	Error      string                       `json:"error,omitempty"`
}

// Scores is an official's running score with its latest headline adjustments.
type Scores struct {
	Score       model.RunningScore      `json:"score"`
	Adjustments []model.ScoreAdjustment `json:"adjustments"`
}

// Service runs the engine jobs. Each job runs at most once at a time.
type Service struct {
	store      repository.Store
	classifier classifier.Classifier
	runner     *debate.BatchRunner
	tracker    *promise.Tracker
	now        func() time.Time
	logger     logger.Logger

	mu      sync.Mutex
	running map[string]bool
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the time source used by verification.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New wires the engine from cfg. cls may be nil, in which case intake and
// verification refuse to run.
func New(cfg *config.Config, store repository.Store, cls classifier.Classifier, opts ...Option) *Service {
	s := &Service{
		store:      store,
		classifier: cls,
		now:        time.Now,
		logger:     logger.Named("service"),
		running:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}

	updater := scoring.NewSoftUpdater(
		scoring.WithBounds(cfg.ScoreFloor, cfg.ScoreCeiling),
		scoring.WithDisplayMax(cfg.ScoreDisplayMax),
		scoring.WithLatentScale(cfg.LatentScale),
		scoring.WithShrinkage(cfg.Shrinkage),
	)
	locks := serial.New()

	multipliers := make(map[model.Rating]float64, len(cfg.RatingMultipliers))
	for r, m := range cfg.RatingMultipliers {
		multipliers[model.Rating(r)] = m
	}
	calc := debate.NewCalculator(store,
		debate.WithMultipliers(multipliers),
		debate.WithUpdater(updater),
		debate.WithLocker(locks),
		debate.WithClock(s.now),
	)
	s.runner = debate.NewBatchRunner(calc, store, cfg.SectionPageSize, cfg.DebateWorkers)

	if cls != nil {
		s.tracker = promise.NewTracker(store, cls,
			promise.WithCredits(cfg.AnnouncementCredit, cfg.MixedCredit),
			promise.WithLead(cfg.VerificationLead()),
			promise.WithBatchSize(cfg.VerifyBatchSize),
			promise.WithPageSize(cfg.VerifyPageSize),
			promise.WithEventPageSize(cfg.EventPageSize),
			promise.WithDelay(cfg.ClassifierDelay()),
			promise.WithUpdater(updater),
			promise.WithLocker(locks),
			promise.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize))),
			promise.WithClock(s.now),
		)
	}
	return s
}

// Run triggers a job by name.
func (s *Service) Run(ctx context.Context, job string) (RunSummary, error) {
	switch job {
	case JobDebate:
		return s.RunDebate(ctx)
	case JobIntake:
		return s.RunIntake(ctx)
	case JobVerify:
		return s.RunVerification(ctx)
	}
	return RunSummary{}, fmt.Errorf("%w: %q", ErrUnknownJob, job)
}

// RunDebate applies every pending debate section.
func (s *Service) RunDebate(ctx context.Context) (RunSummary, error) {
	return s.run(ctx, JobDebate, func(ctx context.Context, sum *RunSummary) error {
		res, err := s.runner.Run(ctx)
		sum.Debate = &res
		return err
	})
}

// RunIntake processes every pending news event.
func (s *Service) RunIntake(ctx context.Context) (RunSummary, error) {
	return s.run(ctx, JobIntake, func(ctx context.Context, sum *RunSummary) error {
		if s.tracker == nil {
			return ErrNoClassifier
		}
		res, err := s.tracker.IntakePending(ctx)
		sum.Intake = &res
		return err
	})
}

// RunVerification resolves one batch of due promises.
func (s *Service) RunVerification(ctx context.Context) (RunSummary, error) {
	return s.run(ctx, JobVerify, func(ctx context.Context, sum *RunSummary) error {
		if s.tracker == nil {
			return ErrNoClassifier
		}
		res, err := s.tracker.Verify(ctx, s.now())
		sum.Verify = &res
		return err
	})
}

func (s *Service) run(ctx context.Context, job string, fn func(context.Context, *RunSummary) error) (RunSummary, error) {
	sum := RunSummary{RunID: uuid.NewString(), Job: job, StartedAt: s.now().UTC()}
	if !s.acquire(job) {
		metrics.RecordJobRun(job, resultBusy, 0)
		return sum, ErrJobRunning
	}
	defer s.release(job)

	log := s.logger.With(logger.String("job", job), logger.String("run_id", sum.RunID))
	log.Info(ctx, "job started")

	start := time.Now()
	err := s.store.Ping(ctx)
	if err != nil {
		err = fmt.Errorf("store unavailable: %w", err)
	} else {
		err = fn(ctx, &sum)
	}
	sum.FinishedAt = s.now().UTC()

	if err != nil {
		sum.Error = err.Error()
		metrics.RecordJobRun(job, resultError, time.Since(start))
		log.Error(ctx, "job failed", logger.Error(err), logger.Any("summary", sum))
		return sum, err
	}
	metrics.RecordJobRun(job, resultOK, time.Since(start))
	log.Info(ctx, "job finished", logger.Duration("took", time.Since(start)), logger.Any("summary", sum))
	return sum, nil
}

func (s *Service) acquire(job string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[job] {
		return false
	}
	s.running[job] = true
	return true
}

func (s *Service) release(job string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, job)
}

// GetStats returns store counts for monitoring.
func (s *Service) GetStats(ctx context.Context) (repository.Stats, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return st, err
	}
	metrics.UpdatePromisesPending(st.Promises[model.StatusPending])
	return st, nil
}

// OfficialScores returns an official's running score and recent adjustments.
func (s *Service) OfficialScores(ctx context.Context, officialID int64, limit int) (Scores, error) {
	rs, err := s.store.GetRunningScore(ctx, officialID)
	if err != nil {
		return Scores{}, err
	}
	adj, err := s.store.ListAdjustments(ctx, officialID, limit)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return Scores{}, err
	}
	return Scores{Score: rs, Adjustments: adj}, nil
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Close releases the store.
func (s *Service) Close() error {
	return s.store.Close()
}
