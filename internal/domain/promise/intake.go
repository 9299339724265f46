package promise

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/repute/internal/adapters/classifier"
	"github.com/okian/repute/internal/adapters/repository"
	"github.com/okian/repute/internal/domain/model"
	"github.com/okian/repute/pkg/logger"
	"github.com/okian/repute/pkg/metrics"
)

// IntakeResult describes what one event did.
type IntakeResult struct {
	EventID   int64
	Kind      model.EventKind
	Credit    float64
	Withheld  float64
	PromiseID int64
	// Fallback is set when the promise text came from the headline.
	Fallback bool
}

// IntakeSummary counts the outcome of one intake run.
type IntakeSummary struct {
	Processed int `json:"processed"`
	Tracked   int `json:"tracked"`
	Passed    int `json:"passed_through"`
	Fallbacks int `json:"fallbacks"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	// Halted is set when the classifier was unusable and the run stopped,
	// leaving the remaining events pending.
	Halted bool `json:"halted,omitempty"`
}

// Split divides an event's impact into what is issued now and what is held
// back. Transparency is about disclosure rather than delivery, so its
// component is always issued in full and never withheld.
func Split(e model.NewsEvent, factor float64) (issued, initial, withheld float64) {
	transparency := e.Dimensions[model.ImpactTransparency]
	discountable := e.Impact - transparency
	initial = discountable * factor
	withheld = discountable - initial
	return transparency + initial, initial, withheld
}

// Intake classifies one news event, issues its discounted credit and, for
// tracked kinds, opens a promise. Events seen before return ErrAlreadyHandled.
func (t *Tracker) Intake(ctx context.Context, e model.NewsEvent) (IntakeResult, error) {
	res := IntakeResult{EventID: e.ID}
	if t.seen.SeenAndRecord(ctx, e.ID) {
		return res, ErrAlreadyHandled
	}
	committed := false
	defer func() {
		if !committed {
			t.seen.Unrecord(ctx, e.ID)
		}
	}()

	kind := Classify(e.Title, e.Summary)
	res.Kind = kind
	metrics.RecordEventClassified(string(kind))

	factor := t.CreditFactor(kind)
	issued, initial, withheld := Split(e, factor)
	if !kind.Tracked() {
		issued, initial, withheld = e.Impact, 0, 0
	}
	res.Credit = issued
	res.Withheld = withheld

	now := t.now().UTC()
	announced := e.PublishedAt
	if announced.IsZero() {
		announced = now
	}

	var promise *model.PolicyPromise
	if kind.Tracked() {
		ext, fallback, err := t.extract(ctx, e)
		if err != nil {
			return res, err
		}
		res.Fallback = fallback
		promise = &model.PolicyPromise{
			OfficialID:        e.OfficialID,
			SourceEventID:     e.ID,
			Text:              ext.Promise,
			Type:              ext.Type,
			Kind:              kind,
			Metrics:           ext.Metrics,
			Unverifiable:      fallback,
			AnnouncedAt:       announced,
			CreditFactor:      factor,
			InitialScoreGiven: initial,
			WithheldScore:     withheld,
			TargetDate:        announced.Add(t.lead),
			Status:            model.StatusPending,
			CreatedAt:         now,
		}
	}

	unlock, err := t.locks.Lock(ctx, e.OfficialID)
	if err != nil {
		return res, err
	}
	defer unlock()

	current, err := t.currentScore(ctx, e.OfficialID, now)
	if err != nil {
		return res, err
	}
	after := t.updater.Update(current.Headline, issued)
	eventID := e.ID
	prov := model.Provenance{
		Kind: model.ProvenanceAnnouncement,
		Announcement: &model.AnnouncementProvenance{
			EventID:      e.ID,
			Kind:         kind,
			CreditFactor: factor,
			FullImpact:   e.Impact,
			Credit:       issued,
			Withheld:     withheld,
			Unverifiable: res.Fallback,
		},
	}

	promiseID, err := t.store.CommitIntake(ctx, repository.IntakeCommit{
		EventID: e.ID,
		Kind:    kind,
		At:      now,
		Headline: &repository.HeadlineUpdate{
			OfficialID: e.OfficialID,
			Headline:   after,
			UpdatedAt:  now,
			Metadata:   prov,
		},
		Promise: promise,
		Adjustment: &model.ScoreAdjustment{
			OfficialID: e.OfficialID,
			EventID:    &eventID,
			Reason:     model.ReasonIntakeCredit,
			Delta:      issued,
			Before:     current.Headline,
			After:      after,
			Metadata:   prov,
			CreatedAt:  now,
		},
	})
	if errors.Is(err, repository.ErrAlreadyProcessed) {
		committed = true
		return res, ErrAlreadyHandled
	}
	if err != nil {
		return res, fmt.Errorf("commit intake for event %d: %w", e.ID, err)
	}
	committed = true
	res.PromiseID = promiseID
	metrics.RecordRunningScoreUpdate(string(model.Headline))
	if promise != nil {
		metrics.RecordPromiseCreated(string(kind))
	}
	return res, nil
}

// extract asks the classifier for the promise and falls back to the
// headline when it cannot answer. An unavailable classifier is returned
// as is so the event stays pending.
func (t *Tracker) extract(ctx context.Context, e model.NewsEvent) (classifier.Extraction, bool, error) {
	ext, err := t.classifier.ExtractPromise(ctx, classifier.ExtractionRequest{
		EventID:     e.ID,
		OfficialID:  e.OfficialID,
		Title:       e.Title,
		Summary:     e.Summary,
		PublishedAt: e.PublishedAt,
	})
	if err == nil {
		if ext.Type == "" {
			ext.Type = model.PromiseTypeOther
		}
		return ext, false, nil
	}
	if ctx.Err() != nil {
		return ext, false, ctx.Err()
	}
	if errors.Is(err, classifier.ErrUnavailable) {
		return ext, false, err
	}
	t.log.Warn(ctx, "promise extraction failed, using headline",
		logger.Int64("event_id", e.ID), logger.Error(err))
	metrics.RecordClassifierFallback(classifier.OpExtract)
	return classifier.Extraction{Promise: e.Title, Type: model.PromiseTypeOther}, true, nil
}

// IntakePending processes every unprocessed event in id order. A failing
// event is counted and left for the next run.
func (t *Tracker) IntakePending(ctx context.Context) (IntakeSummary, error) {
	var (
		sum     IntakeSummary
		afterID int64
		calls   int
	)
	for {
		page, err := t.store.ListPendingEvents(ctx, afterID, t.eventPageSize)
		if err != nil {
			return sum, err
		}
		for _, e := range page {
			if Classify(e.Title, e.Summary).Tracked() {
				if calls > 0 {
					if err := pause(ctx, t.delay); err != nil {
						return sum, err
					}
				}
				calls++
			}
			res, err := t.Intake(ctx, e)
			switch {
			case errors.Is(err, ErrAlreadyHandled):
				sum.Skipped++
			case errors.Is(err, classifier.ErrUnavailable):
				sum.Halted = true
				t.log.Warn(ctx, "classifier unavailable, stopping intake",
					logger.Int64("event_id", e.ID), logger.Error(err))
				return sum, nil
			case ctx.Err() != nil:
				return sum, ctx.Err()
			case err != nil:
				sum.Failed++
				t.log.Error(ctx, "event intake failed", logger.Int64("event_id", e.ID), logger.Error(err))
			default:
				sum.Processed++
				if res.PromiseID != 0 {
					sum.Tracked++
				} else {
					sum.Passed++
				}
				if res.Fallback {
					sum.Fallbacks++
				}
			}
		}
		if len(page) < t.eventPageSize {
			return sum, nil
		}
		afterID = page[len(page)-1].ID
	}
}
