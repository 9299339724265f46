package promise

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/okian/repute/internal/adapters/classifier"
	"github.com/okian/repute/internal/adapters/repository"
	"github.com/okian/repute/internal/domain/model"
	"github.com/okian/repute/pkg/logger"
	"github.com/okian/repute/pkg/metrics"
)

// unverifiable prefixes the evidence of promises resolved without a usable verdict.
const unverifiable = "unverifiable"

// VerificationSummary counts the outcome of one verification run.
type VerificationSummary struct {
	Due       int `json:"due"`
	Processed int `json:"processed"`
	Delivered int `json:"delivered"`
	Partial   int `json:"partial"`
	Failed    int `json:"failed"`
	Errored   int `json:"errored"`
	// Halted is set when the classifier refused calls and the batch stopped.
	Halted bool `json:"halted,omitempty"`
}

// Adjustment returns the retroactive headline correction for a resolved
// promise. Delivered restores the withheld credit, partial restores half of
// the full impact less what was issued, and failed takes back twice the
// issued credit.
func Adjustment(status model.PromiseStatus, initial, withheld float64) (float64, error) {
	switch status {
	case model.StatusDelivered:
		return withheld, nil
	case model.StatusPartial:
		return 0.5*(initial+withheld) - initial, nil
	case model.StatusFailed:
		return -2 * math.Abs(initial), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOutcome, status)
}

// Due pages through every pending promise whose target date has passed.
func (t *Tracker) Due(ctx context.Context, now time.Time) ([]model.PolicyPromise, error) {
	var all []model.PolicyPromise
	for offset := 0; ; offset += t.pageSize {
		page, err := t.store.ListDuePromises(ctx, now, offset, t.pageSize)
		if err != nil {
			return nil, fmt.Errorf("list due promises at offset %d: %w", offset, err)
		}
		all = append(all, page...)
		if len(page) < t.pageSize {
			return all, nil
		}
	}
}

// Verify resolves up to one batch of due promises. Store failures are
// counted per promise; a classifier outage stops the batch and leaves the
// rest pending.
func (t *Tracker) Verify(ctx context.Context, now time.Time) (VerificationSummary, error) {
	var sum VerificationSummary
	due, err := t.Due(ctx, now)
	if err != nil {
		return sum, err
	}
	sum.Due = len(due)
	metrics.UpdatePromisesPending(len(due))

	batch := due[:min(len(due), t.batchSize)]
	for i, p := range batch {
		if i > 0 {
			if err := pause(ctx, t.delay); err != nil {
				return sum, err
			}
		}

		res, err := t.resolve(ctx, p, now)
		switch {
		case errors.Is(err, classifier.ErrUnavailable):
			sum.Errored += len(batch) - i
			sum.Halted = true
			t.log.Warn(ctx, "classifier unavailable, stopping verification",
				logger.Int("remaining", len(batch)-i), logger.Error(err))
			return sum, nil
		case errors.Is(err, repository.ErrAlreadyResolved):
			continue
		case ctx.Err() != nil:
			return sum, ctx.Err()
		case err != nil:
			sum.Errored++
			t.log.Error(ctx, "promise verification failed", logger.Int64("promise_id", p.ID), logger.Error(err))
			continue
		}

		sum.Processed++
		switch res.Status {
		case model.StatusDelivered:
			sum.Delivered++
		case model.StatusPartial:
			sum.Partial++
		default:
			sum.Failed++
		}
	}
	return sum, nil
}

// resolve verifies and commits a single promise.
func (t *Tracker) resolve(ctx context.Context, p model.PolicyPromise, now time.Time) (model.Resolution, error) {
	verdict, err := t.classifier.VerifyPromise(ctx, classifier.VerificationRequest{
		PromiseID:   p.ID,
		OfficialID:  p.OfficialID,
		Text:        p.Text,
		Type:        p.Type,
		AnnouncedAt: p.AnnouncedAt,
		TargetDate:  p.TargetDate,
	})
	switch {
	case errors.Is(err, classifier.ErrUnavailable):
		return model.Resolution{}, err
	case err != nil && ctx.Err() != nil:
		return model.Resolution{}, ctx.Err()
	case err != nil:
		t.log.Warn(ctx, "no usable verdict, resolving as failed",
			logger.Int64("promise_id", p.ID), logger.Error(err))
		metrics.RecordClassifierFallback(classifier.OpVerify)
		verdict = classifier.Verdict{Evidence: unverifiable + ": " + err.Error()}
	}

	status := verdict.Status()
	adj, err := Adjustment(status, p.InitialScoreGiven, p.WithheldScore)
	if err != nil {
		return model.Resolution{}, err
	}
	at := now.UTC()
	res := model.Resolution{
		PromiseID:  p.ID,
		Status:     status,
		Adjustment: adj,
		Evidence:   verdict.Evidence,
		Sources:    verdict.Sources,
		Confidence: verdict.Confidence,
		VerifiedAt: at,
	}

	unlock, err := t.locks.Lock(ctx, p.OfficialID)
	if err != nil {
		return res, err
	}
	defer unlock()

	current, err := t.currentScore(ctx, p.OfficialID, at)
	if err != nil {
		return res, err
	}
	after := t.updater.Update(current.Headline, adj)
	promiseID := p.ID
	eventID := p.SourceEventID
	prov := model.Provenance{
		Kind: model.ProvenanceVerification,
		Verification: &model.VerificationProvenance{
			PromiseID:  p.ID,
			Status:     status,
			Initial:    p.InitialScoreGiven,
			Withheld:   p.WithheldScore,
			Adjustment: adj,
			Confidence: verdict.Confidence,
			VerifiedAt: at,
		},
	}
	if verdict.Evidence != "" {
		prov.Extra = map[string]string{"evidence": verdict.Evidence}
	}

	err = t.store.CommitResolution(ctx, repository.ResolutionCommit{
		Resolution: res,
		Headline: repository.HeadlineUpdate{
			OfficialID: p.OfficialID,
			Headline:   after,
			UpdatedAt:  at,
			Metadata:   prov,
		},
		Adjustment: model.ScoreAdjustment{
			OfficialID: p.OfficialID,
			PromiseID:  &promiseID,
			EventID:    &eventID,
			Reason:     model.ReasonVerification,
			Delta:      adj,
			Before:     current.Headline,
			After:      after,
			Metadata:   prov,
			CreatedAt:  at,
		},
	})
	if err != nil {
		return res, fmt.Errorf("commit resolution for promise %d: %w", p.ID, err)
	}
	metrics.RecordPromiseVerified(string(status), adj)
	metrics.RecordRunningScoreUpdate(string(model.Headline))
	return res, nil
}
