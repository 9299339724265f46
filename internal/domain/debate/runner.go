package debate

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/okian/repute/internal/adapters/repository"
	"github.com/okian/repute/pkg/logger"
)

// Summary counts the outcome of one batch run.
type Summary struct {
	Processed     int `json:"processed"`
	Skipped       int `json:"skipped"`
	Failed        int `json:"failed"`
	Contributions int `json:"contributions"`
}

func (s *Summary) add(res Result, err error) {
	switch {
	case err == nil:
		s.Processed++
		s.Contributions += len(res.Contributions)
	case errors.Is(err, ErrNoEvaluations), errors.Is(err, ErrAlreadyProcessed):
		s.Skipped++
	default:
		s.Failed++
	}
}

// BatchRunner processes every pending section with bounded parallelism.
type BatchRunner struct {
	calc     *Calculator
	store    repository.SectionStore
	pageSize int
	workers  int
	log      logger.Logger
}

// NewBatchRunner creates a runner. Non-positive sizes fall back to one
// worker and pages of 200.
func NewBatchRunner(calc *Calculator, store repository.SectionStore, pageSize, workers int) *BatchRunner {
	if pageSize <= 0 {
		pageSize = 200
	}
	if workers <= 0 {
		workers = 1
	}
	return &BatchRunner{
		calc:     calc,
		store:    store,
		pageSize: pageSize,
		workers:  workers,
		log:      logger.Named("debate.runner"),
	}
}

// Run pages through pending sections until exhausted. A failing section is
// counted and left for the next run; only listing errors and cancellation
// abort the batch.
func (r *BatchRunner) Run(ctx context.Context) (Summary, error) {
	var (
		mu      sync.Mutex
		summary Summary
		afterID int64
	)
	for {
		page, err := r.store.ListPendingSections(ctx, afterID, r.pageSize)
		if err != nil {
			return summary, err
		}
		if len(page) == 0 {
			return summary, nil
		}

		var g errgroup.Group
		g.SetLimit(r.workers)
		for _, s := range page {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				res, err := r.calc.Process(ctx, s)
				if err != nil && !errors.Is(err, ErrNoEvaluations) && !errors.Is(err, ErrAlreadyProcessed) {
					r.log.Error(ctx, "section failed", logger.Int64("section_id", s.ID), logger.Error(err))
				}
				mu.Lock()
				summary.add(res, err)
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return summary, err
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		afterID = page[len(page)-1].ID
		if len(page) < r.pageSize {
			return summary, nil
		}
	}
}
