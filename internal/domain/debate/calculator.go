package debate

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/okian/repute/internal/adapters/repository"
	"github.com/okian/repute/internal/domain/model"
	"github.com/okian/repute/internal/domain/scoring"
	"github.com/okian/repute/internal/domain/serial"
	"github.com/okian/repute/pkg/logger"
	"github.com/okian/repute/pkg/metrics"
)

// Result is the outcome of processing one section.
type Result struct {
	SectionID     int64
	Contributions []model.ScoreContribution
}

// SectionScoreStore is the store surface the calculator needs.
type SectionScoreStore interface {
	repository.SectionStore
	repository.ScoreStore
}

// Calculator applies debate sections to running scores. It is safe for
// concurrent use; sections that share an official are serialized.
type Calculator struct {
	store  SectionScoreStore
	params Params
	locks  *serial.Locker
	now    func() time.Time
	log    logger.Logger
}

// NewCalculator creates a Calculator over store.
func NewCalculator(store SectionScoreStore, opts ...Option) *Calculator {
	c := &Calculator{
		store: store,
		params: Params{
			Multipliers: maps.Clone(DefaultMultipliers),
			Updater:     scoring.NewSoftUpdater(),
		},
		locks: serial.New(),
		now:   time.Now,
		log:   logger.Named("debate"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Process applies one section. It returns ErrNoEvaluations or
// ErrAlreadyProcessed for sections that need no work.
func (c *Calculator) Process(ctx context.Context, s model.DebateSection) (Result, error) {
	res := Result{SectionID: s.ID}
	if len(s.Evaluations) == 0 {
		c.log.Info(ctx, "skipping section without evaluations", logger.Int64("section_id", s.ID))
		metrics.RecordSectionSkipped("no_evaluations")
		return res, ErrNoEvaluations
	}

	evals := c.distinct(ctx, s)
	ids := make([]int64, 0, len(evals))
	for _, e := range evals {
		ids = append(ids, e.OfficialID)
	}
	unlock, err := c.locks.Lock(ctx, ids...)
	if err != nil {
		return res, err
	}
	defer unlock()

	done, err := c.store.HasContributions(ctx, s.ID)
	if err != nil {
		metrics.RecordSectionFailed()
		return res, fmt.Errorf("check section %d: %w", s.ID, err)
	}
	if done {
		c.log.Info(ctx, "skipping processed section", logger.Int64("section_id", s.ID))
		metrics.RecordSectionSkipped("already_processed")
		return res, ErrAlreadyProcessed
	}

	now := c.now().UTC()
	contribs := make([]model.ScoreContribution, 0, len(evals))
	scores := make([]model.RunningScore, 0, len(evals))
	for _, e := range evals {
		current, err := c.store.GetRunningScore(ctx, e.OfficialID)
		if errors.Is(err, repository.ErrNotFound) {
			current = model.SeedScore(e.OfficialID, now)
		} else if err != nil {
			metrics.RecordSectionFailed()
			return res, fmt.Errorf("load score for official %d: %w", e.OfficialID, err)
		}

		out := Compute(c.params, s, e, current.Debate())
		prov := model.Provenance{Kind: model.ProvenanceDebate, Debate: &out.Provenance}

		contribs = append(contribs, model.ScoreContribution{
			SectionID:  s.ID,
			OfficialID: e.OfficialID,
			Before:     out.Before,
			After:      out.After,
			Deltas:     out.Deltas,
			Rating:     e.Rating,
			Role:       out.Role,
			Metadata:   prov,
			CreatedAt:  now,
		})
		current.Effectiveness = out.After.Effectiveness
		current.Influence = out.After.Influence
		current.Performance = out.After.Performance
		current.UpdatedAt = now
		current.Metadata = prov
		scores = append(scores, current)
		metrics.RecordContributionWeight(out.Provenance.CombinedWeight)
	}

	if err := c.store.CommitSection(ctx, s.ID, contribs, scores); err != nil {
		if errors.Is(err, repository.ErrAlreadyProcessed) {
			metrics.RecordSectionSkipped("already_processed")
			return res, ErrAlreadyProcessed
		}
		metrics.RecordSectionFailed()
		return res, fmt.Errorf("commit section %d: %w", s.ID, err)
	}

	metrics.RecordSectionProcessed()
	metrics.RecordContributions(len(contribs))
	for _, d := range []model.Dimension{model.Effectiveness, model.Influence, model.Performance} {
		metrics.RecordRunningScoreUpdate(string(d))
	}
	c.log.Debug(ctx, "section applied",
		logger.Int64("section_id", s.ID), logger.Int("contributions", len(contribs)))

	res.Contributions = contribs
	return res, nil
}

// distinct keeps the first evaluation per official.
func (c *Calculator) distinct(ctx context.Context, s model.DebateSection) []model.ParticipantEvaluation {
	seen := make(map[int64]struct{}, len(s.Evaluations))
	out := make([]model.ParticipantEvaluation, 0, len(s.Evaluations))
	for _, e := range s.Evaluations {
		if _, dup := seen[e.OfficialID]; dup {
			c.log.Warn(ctx, "duplicate evaluation ignored",
				logger.Int64("section_id", s.ID), logger.Int64("official_id", e.OfficialID))
			continue
		}
		seen[e.OfficialID] = struct{}{}
		out = append(out, e)
	}
	return out
}
