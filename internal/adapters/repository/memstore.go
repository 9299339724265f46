package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/okian/repute/internal/domain/model"
)

type contributionKey struct {
	section  int64
	official int64
}

// MemStore is a mutex-guarded in-memory Store with the same semantics as
// SQLStore. Records are copied in and out.
type MemStore struct {
	mu sync.RWMutex

	scores        map[int64]model.RunningScore
	sections      map[int64]model.DebateSection
	contributions map[contributionKey]model.ScoreContribution
	bySection     map[int64][]int64

	events    map[int64]model.NewsEvent
	processed map[int64]model.EventKind
	nextEvent int64

	promises      map[int64]model.PolicyPromise
	promiseSource map[int64]int64
	nextPromise   int64

	adjustments    []model.ScoreAdjustment
	nextAdjustment int64
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		scores:        make(map[int64]model.RunningScore),
		sections:      make(map[int64]model.DebateSection),
		contributions: make(map[contributionKey]model.ScoreContribution),
		bySection:     make(map[int64][]int64),
		events:        make(map[int64]model.NewsEvent),
		processed:     make(map[int64]model.EventKind),
		promises:      make(map[int64]model.PolicyPromise),
		promiseSource: make(map[int64]int64),
	}
}

// GetRunningScore implements ScoreStore.
func (m *MemStore) GetRunningScore(_ context.Context, officialID int64) (model.RunningScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rs, ok := m.scores[officialID]
	if !ok {
		return model.RunningScore{}, fmt.Errorf("running score %d: %w", officialID, ErrNotFound)
	}
	return rs, nil
}

// ListAdjustments implements ScoreStore.
func (m *MemStore) ListAdjustments(_ context.Context, officialID int64, limit int) ([]model.ScoreAdjustment, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.ScoreAdjustment
	for i := len(m.adjustments) - 1; i >= 0 && len(out) < limit; i-- {
		if m.adjustments[i].OfficialID == officialID {
			out = append(out, m.adjustments[i])
		}
	}
	return out, nil
}

// UpsertSection implements SectionStore.
func (m *MemStore) UpsertSection(_ context.Context, s model.DebateSection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.Evaluations = slices.Clone(s.Evaluations)
	m.sections[s.ID] = s
	return nil
}

// ListPendingSections implements SectionStore.
func (m *MemStore) ListPendingSections(_ context.Context, afterID int64, limit int) ([]model.DebateSection, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]int64, 0, len(m.sections))
	for id := range m.sections {
		if id > afterID && len(m.bySection[id]) == 0 {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]model.DebateSection, 0, len(ids))
	for _, id := range ids {
		s := m.sections[id]
		s.Evaluations = slices.Clone(s.Evaluations)
		out = append(out, s)
	}
	return out, nil
}

// HasContributions implements SectionStore.
func (m *MemStore) HasContributions(_ context.Context, sectionID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bySection[sectionID]) > 0, nil
}

// ListContributions implements SectionStore.
func (m *MemStore) ListContributions(_ context.Context, sectionID int64) ([]model.ScoreContribution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	officials := slices.Sorted(slices.Values(m.bySection[sectionID]))
	out := make([]model.ScoreContribution, 0, len(officials))
	for _, o := range officials {
		out = append(out, m.contributions[contributionKey{sectionID, o}])
	}
	return out, nil
}

// CommitSection implements SectionStore.
func (m *MemStore) CommitSection(_ context.Context, sectionID int64, contributions []model.ScoreContribution, scores []model.RunningScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.bySection[sectionID]) > 0 {
		return fmt.Errorf("section %d: %w", sectionID, ErrAlreadyProcessed)
	}
	for _, c := range contributions {
		if _, dup := m.contributions[contributionKey{sectionID, c.OfficialID}]; dup {
			return fmt.Errorf("section %d official %d: %w", sectionID, c.OfficialID, ErrAlreadyProcessed)
		}
	}
	for _, c := range contributions {
		c.SectionID = sectionID
		m.contributions[contributionKey{sectionID, c.OfficialID}] = c
		m.bySection[sectionID] = append(m.bySection[sectionID], c.OfficialID)
	}
	for _, rs := range scores {
		cur, ok := m.scores[rs.OfficialID]
		if !ok {
			cur = model.SeedScore(rs.OfficialID, rs.UpdatedAt)
		}
		cur.Effectiveness = rs.Effectiveness
		cur.Influence = rs.Influence
		cur.Performance = rs.Performance
		cur.UpdatedAt = rs.UpdatedAt
		cur.Metadata = rs.Metadata
		m.scores[rs.OfficialID] = cur
	}
	return nil
}

// InsertEvent implements PromiseStore.
func (m *MemStore) InsertEvent(_ context.Context, e model.NewsEvent) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == 0 {
		m.nextEvent++
		e.ID = m.nextEvent
	} else if e.ID > m.nextEvent {
		m.nextEvent = e.ID
	}
	m.events[e.ID] = e
	return e.ID, nil
}

// ListPendingEvents implements PromiseStore.
func (m *MemStore) ListPendingEvents(_ context.Context, afterID int64, limit int) ([]model.NewsEvent, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]int64, 0)
	for id := range m.events {
		if _, done := m.processed[id]; !done && id > afterID {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]model.NewsEvent, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.events[id])
	}
	return out, nil
}

// CommitIntake implements PromiseStore.
func (m *MemStore) CommitIntake(_ context.Context, c IntakeCommit) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[c.EventID]; !ok {
		return 0, fmt.Errorf("news_events %d: %w", c.EventID, ErrNotFound)
	}
	if _, done := m.processed[c.EventID]; done {
		return 0, fmt.Errorf("event %d: %w", c.EventID, ErrAlreadyProcessed)
	}
	if _, dup := m.promiseSource[c.EventID]; dup && c.Promise != nil {
		return 0, fmt.Errorf("promise for event %d: %w", c.EventID, ErrAlreadyProcessed)
	}
	m.processed[c.EventID] = c.Kind

	if c.Headline != nil {
		m.applyHeadline(*c.Headline)
	}
	var promiseID int64
	if c.Promise != nil {
		m.nextPromise++
		p := *c.Promise
		p.ID = m.nextPromise
		p.SourceEventID = c.EventID
		if p.Status == "" {
			p.Status = model.StatusPending
		}
		p.Sources = slices.Clone(p.Sources)
		m.promises[p.ID] = p
		m.promiseSource[c.EventID] = p.ID
		promiseID = p.ID
	}
	if c.Adjustment != nil {
		a := *c.Adjustment
		if promiseID != 0 {
			a.PromiseID = &promiseID
		}
		m.appendAdjustment(a)
	}
	return promiseID, nil
}

// ListDuePromises implements PromiseStore.
func (m *MemStore) ListDuePromises(_ context.Context, now time.Time, offset, limit int) ([]model.PolicyPromise, error) {
	if limit <= 0 || offset < 0 {
		return nil, ErrInvalidLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	due := make([]model.PolicyPromise, 0)
	for _, p := range m.promises {
		if p.Status == model.StatusPending && !p.TargetDate.After(now) {
			due = append(due, p)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].TargetDate.Equal(due[j].TargetDate) {
			return due[i].TargetDate.Before(due[j].TargetDate)
		}
		return due[i].ID < due[j].ID
	})
	if offset >= len(due) {
		return []model.PolicyPromise{}, nil
	}
	due = due[offset:]
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// GetPromise implements PromiseStore.
func (m *MemStore) GetPromise(_ context.Context, id int64) (model.PolicyPromise, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.promises[id]
	if !ok {
		return model.PolicyPromise{}, fmt.Errorf("promise %d: %w", id, ErrNotFound)
	}
	return p, nil
}

// CommitResolution implements PromiseStore.
func (m *MemStore) CommitResolution(_ context.Context, c ResolutionCommit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := c.Resolution
	p, ok := m.promises[r.PromiseID]
	if !ok {
		return fmt.Errorf("promise %d: %w", r.PromiseID, ErrNotFound)
	}
	if p.Status != model.StatusPending {
		return fmt.Errorf("promise %d is %s: %w", r.PromiseID, p.Status, ErrAlreadyResolved)
	}
	adj := r.Adjustment
	conf := r.Confidence
	at := r.VerifiedAt
	p.Status = r.Status
	p.OutcomeScore = &adj
	p.Evidence = r.Evidence
	p.Sources = slices.Clone(r.Sources)
	p.Confidence = &conf
	p.VerifiedAt = &at
	p.LastCheckedAt = &at
	m.promises[p.ID] = p

	m.applyHeadline(c.Headline)
	m.appendAdjustment(c.Adjustment)
	return nil
}

// Stats implements Store.
func (m *MemStore) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := Stats{
		Officials:     len(m.scores),
		Sections:      len(m.sections),
		Contributions: len(m.contributions),
		Events:        len(m.events),
		Promises:      make(map[model.PromiseStatus]int),
	}
	for _, p := range m.promises {
		st.Promises[p.Status]++
	}
	return st, nil
}

// Ping implements Store.
func (m *MemStore) Ping(context.Context) error { return nil }

// Close implements Store.
func (m *MemStore) Close() error { return nil }

// applyHeadline must be called with m.mu held.
func (m *MemStore) applyHeadline(h HeadlineUpdate) {
	cur, ok := m.scores[h.OfficialID]
	if !ok {
		cur = model.SeedScore(h.OfficialID, h.UpdatedAt)
	}
	cur.Headline = h.Headline
	cur.UpdatedAt = h.UpdatedAt
	cur.Metadata = h.Metadata
	m.scores[h.OfficialID] = cur
}

// appendAdjustment must be called with m.mu held.
func (m *MemStore) appendAdjustment(a model.ScoreAdjustment) {
	m.nextAdjustment++
	a.ID = m.nextAdjustment
	m.adjustments = append(m.adjustments, a)
}
