package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/okian/repute/internal/domain/model"
	"github.com/okian/repute/pkg/json"
	"github.com/okian/repute/pkg/metrics"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

const (
	defaultMaxOpenConns   = 10
	defaultConnectTimeout = 30 * time.Second
	defaultBusyTimeout    = 5 * time.Second
)

// SQLStore implements Store on database/sql for SQLite and Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect dialect

	maxOpenConns   int
	connectTimeout time.Duration
	busyTimeout    time.Duration
}

var _ Store = (*SQLStore)(nil)

// Open connects to driver ("sqlite" or "postgres"), retrying the first ping
// with exponential backoff, and applies the schema.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	s := &SQLStore{
		maxOpenConns:   defaultMaxOpenConns,
		connectTimeout: defaultConnectTimeout,
		busyTimeout:    defaultBusyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case "sqlite":
		s.dialect = dialectSQLite
		db, err = openDB("sqlite", s.sqliteDSN(dsn))
		if err == nil {
			db.SetMaxOpenConns(1)
		}
	case "postgres":
		s.dialect = dialectPostgres
		db, err = openDB("postgres", dsn)
		if err == nil {
			db.SetMaxOpenConns(s.maxOpenConns)
			db.SetMaxIdleConns(s.maxOpenConns)
			db.SetConnMaxLifetime(time.Hour)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	if err != nil {
		return nil, fmt.Errorf("repository: open %s: %w", driver, err)
	}
	s.db = db

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = s.connectTimeout
	if err := backoff.Retry(func() error { return db.PingContext(ctx) }, backoff.WithContext(bo, ctx)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("repository: ping %s: %w", driver, err)
	}

	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("repository: migration: %w", err)
	}
	return s, nil
}

func (s *SQLStore) sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join([]string{
		"_pragma=busy_timeout(" + strconv.FormatInt(s.busyTimeout.Milliseconds(), 10) + ")",
		"_pragma=journal_mode(WAL)",
		"_pragma=synchronous(NORMAL)",
		"_pragma=foreign_keys(1)",
		"_txlock=immediate",
	}, "&")
}

// Migrate applies the schema. Open already calls it; exposed for the
// migrate command.
func (s *SQLStore) Migrate(ctx context.Context) error {
	return s.migrate(ctx)
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Ping implements Store.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $N for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func observe(op string, start time.Time, err error) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
	if err != nil && !errors.Is(err, ErrNotFound) {
		metrics.RecordStoreError(op)
	}
}

// GetRunningScore implements ScoreStore.
func (s *SQLStore) GetRunningScore(ctx context.Context, officialID int64) (rs model.RunningScore, err error) {
	defer func(start time.Time) { observe("get_running_score", start, err) }(time.Now())

	var updated int64
	var meta string
	err = s.db.QueryRowContext(ctx, s.rebind(`
		SELECT official_id, effectiveness, influence, performance, headline, updated_at, metadata
		FROM running_scores WHERE official_id = ?`), officialID).
		Scan(&rs.OfficialID, &rs.Effectiveness, &rs.Influence, &rs.Performance, &rs.Headline, &updated, &meta)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RunningScore{}, fmt.Errorf("running score %d: %w", officialID, ErrNotFound)
	}
	if err != nil {
		return model.RunningScore{}, fmt.Errorf("get running score: %w", err)
	}
	rs.UpdatedAt = fromMillis(updated)
	if err = decode(meta, &rs.Metadata); err != nil {
		return model.RunningScore{}, err
	}
	return rs, nil
}

// ListAdjustments implements ScoreStore.
func (s *SQLStore) ListAdjustments(ctx context.Context, officialID int64, limit int) (out []model.ScoreAdjustment, err error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	defer func(start time.Time) { observe("list_adjustments", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, official_id, promise_id, event_id, reason, delta, before_score, after_score, metadata, created_at
		FROM score_adjustments WHERE official_id = ? ORDER BY id DESC LIMIT ?`), officialID, limit)
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			a                model.ScoreAdjustment
			promiseID, evtID sql.NullInt64
			meta             string
			created          int64
		)
		if err = rows.Scan(&a.ID, &a.OfficialID, &promiseID, &evtID, &a.Reason, &a.Delta, &a.Before, &a.After, &meta, &created); err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		a.PromiseID = nullInt(promiseID)
		a.EventID = nullInt(evtID)
		a.CreatedAt = fromMillis(created)
		if err = decode(meta, &a.Metadata); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpsertSection implements SectionStore.
func (s *SQLStore) UpsertSection(ctx context.Context, sec model.DebateSection) (err error) {
	defer func(start time.Time) { observe("upsert_section", start, err) }(time.Now())

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO debate_sections (id, debate_day_id, title, word_count, held_on, winner_official_id, outcome_confidence)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				debate_day_id = excluded.debate_day_id,
				title = excluded.title,
				word_count = excluded.word_count,
				held_on = excluded.held_on,
				winner_official_id = excluded.winner_official_id,
				outcome_confidence = excluded.outcome_confidence`),
			sec.ID, sec.DebateDayID, sec.Title, sec.WordCount, toMillis(sec.HeldOn),
			nullableInt(sec.WinnerOfficialID), nullableFloat(sec.OutcomeConfidence))
		if err != nil {
			return fmt.Errorf("upsert section: %w", err)
		}

		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM participant_evaluations WHERE section_id = ?`), sec.ID); err != nil {
			return fmt.Errorf("clear evaluations: %w", err)
		}
		for _, e := range sec.Evaluations {
			topics, err := encode(e.Topics)
			if err != nil {
				return err
			}
			var sentiment sql.NullString
			if e.Sentiment != nil {
				raw, err := encode(e.Sentiment)
				if err != nil {
					return err
				}
				sentiment = sql.NullString{String: raw, Valid: true}
			}
			_, err = tx.ExecContext(ctx, s.rebind(`
				INSERT INTO participant_evaluations (section_id, official_id, word_count, speech_count, rating,
					argument_quality, relevance, persuasiveness, factual_accuracy, rhetorical_effectiveness,
					overall_score, topics, sentiment)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
				sec.ID, e.OfficialID, e.WordCount, e.SpeechCount, string(e.Rating),
				nullableFloat(e.ArgumentQuality), nullableFloat(e.Relevance), nullableFloat(e.Persuasiveness),
				nullableFloat(e.FactualAccuracy), nullableFloat(e.RhetoricalEffectiveness),
				e.OverallScore, topics, sentiment)
			if err != nil {
				return fmt.Errorf("insert evaluation %d/%d: %w", sec.ID, e.OfficialID, err)
			}
		}
		return nil
	})
}

// ListPendingSections implements SectionStore.
func (s *SQLStore) ListPendingSections(ctx context.Context, afterID int64, limit int) (out []model.DebateSection, err error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	defer func(start time.Time) { observe("list_pending_sections", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT s.id, s.debate_day_id, s.title, s.word_count, s.held_on, s.winner_official_id, s.outcome_confidence
		FROM debate_sections s
		WHERE s.id > ? AND NOT EXISTS (SELECT 1 FROM score_contributions c WHERE c.section_id = s.id)
		ORDER BY s.id LIMIT ?`), afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending sections: %w", err)
	}
	index := make(map[int64]int)
	for rows.Next() {
		var (
			sec    model.DebateSection
			held   int64
			winner sql.NullInt64
			conf   sql.NullFloat64
		)
		if err = rows.Scan(&sec.ID, &sec.DebateDayID, &sec.Title, &sec.WordCount, &held, &winner, &conf); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan section: %w", err)
		}
		sec.HeldOn = fromMillis(held)
		sec.WinnerOfficialID = nullInt(winner)
		sec.OutcomeConfidence = nullFloat(conf)
		index[sec.ID] = len(out)
		out = append(out, sec)
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	// Sections come back ordered by id, so one range scan covers them all.
	rows, err = s.db.QueryContext(ctx, s.rebind(`
		SELECT section_id, official_id, word_count, speech_count, rating,
			argument_quality, relevance, persuasiveness, factual_accuracy, rhetorical_effectiveness,
			overall_score, topics, sentiment
		FROM participant_evaluations
		WHERE section_id >= ? AND section_id <= ?
		ORDER BY section_id, official_id`), out[0].ID, out[len(out)-1].ID)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			sectionID int64
			e         model.ParticipantEvaluation
			rating    string
			topics    string
			sentiment sql.NullString
			sub       [5]sql.NullFloat64
		)
		if err = rows.Scan(&sectionID, &e.OfficialID, &e.WordCount, &e.SpeechCount, &rating,
			&sub[0], &sub[1], &sub[2], &sub[3], &sub[4],
			&e.OverallScore, &topics, &sentiment); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		e.ArgumentQuality = nullFloat(sub[0])
		e.Relevance = nullFloat(sub[1])
		e.Persuasiveness = nullFloat(sub[2])
		e.FactualAccuracy = nullFloat(sub[3])
		e.RhetoricalEffectiveness = nullFloat(sub[4])
		i, ok := index[sectionID]
		if !ok {
			continue
		}
		e.Rating = model.Rating(rating)
		if err = decode(topics, &e.Topics); err != nil {
			return nil, err
		}
		if sentiment.Valid {
			e.Sentiment = &model.Sentiment{}
			if err = decode(sentiment.String, e.Sentiment); err != nil {
				return nil, err
			}
		}
		out[i].Evaluations = append(out[i].Evaluations, e)
	}
	return out, rows.Err()
}

// HasContributions implements SectionStore.
func (s *SQLStore) HasContributions(ctx context.Context, sectionID int64) (ok bool, err error) {
	defer func(start time.Time) { observe("has_contributions", start, err) }(time.Now())

	var n int
	err = s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM score_contributions WHERE section_id = ?`), sectionID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count contributions: %w", err)
	}
	return n > 0, nil
}

// ListContributions implements SectionStore.
func (s *SQLStore) ListContributions(ctx context.Context, sectionID int64) (out []model.ScoreContribution, err error) {
	defer func(start time.Time) { observe("list_contributions", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT section_id, official_id,
			before_effectiveness, before_influence, before_performance,
			after_effectiveness, after_influence, after_performance,
			delta_effectiveness, delta_influence, delta_performance,
			rating, role, metadata, created_at
		FROM score_contributions WHERE section_id = ? ORDER BY official_id`), sectionID)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			c            model.ScoreContribution
			rating, role string
			meta         string
			created      int64
		)
		if err = rows.Scan(&c.SectionID, &c.OfficialID,
			&c.Before.Effectiveness, &c.Before.Influence, &c.Before.Performance,
			&c.After.Effectiveness, &c.After.Influence, &c.After.Performance,
			&c.Deltas.Effectiveness, &c.Deltas.Influence, &c.Deltas.Performance,
			&rating, &role, &meta, &created); err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		c.Rating = model.Rating(rating)
		c.Role = model.Role(role)
		c.CreatedAt = fromMillis(created)
		if err = decode(meta, &c.Metadata); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CommitSection implements SectionStore.
func (s *SQLStore) CommitSection(ctx context.Context, sectionID int64, contributions []model.ScoreContribution, scores []model.RunningScore) (err error) {
	defer func(start time.Time) { observe("commit_section", start, err) }(time.Now())

	return s.inTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM score_contributions WHERE section_id = ?`), sectionID).Scan(&n); err != nil {
			return fmt.Errorf("count contributions: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("section %d: %w", sectionID, ErrAlreadyProcessed)
		}

		for _, c := range contributions {
			meta, err := encode(c.Metadata)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, s.rebind(`
				INSERT INTO score_contributions (section_id, official_id,
					before_effectiveness, before_influence, before_performance,
					after_effectiveness, after_influence, after_performance,
					delta_effectiveness, delta_influence, delta_performance,
					rating, role, metadata, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
				sectionID, c.OfficialID,
				c.Before.Effectiveness, c.Before.Influence, c.Before.Performance,
				c.After.Effectiveness, c.After.Influence, c.After.Performance,
				c.Deltas.Effectiveness, c.Deltas.Influence, c.Deltas.Performance,
				string(c.Rating), string(c.Role), meta, toMillis(c.CreatedAt))
			if err != nil {
				return fmt.Errorf("insert contribution %d/%d: %w", sectionID, c.OfficialID, err)
			}
		}

		for _, rs := range scores {
			meta, err := encode(rs.Metadata)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, s.rebind(`
				INSERT INTO running_scores (official_id, effectiveness, influence, performance, headline, updated_at, metadata)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (official_id) DO UPDATE SET
					effectiveness = excluded.effectiveness,
					influence = excluded.influence,
					performance = excluded.performance,
					updated_at = excluded.updated_at,
					metadata = excluded.metadata`),
				rs.OfficialID, rs.Effectiveness, rs.Influence, rs.Performance, model.Midpoint, toMillis(rs.UpdatedAt), meta)
			if err != nil {
				return fmt.Errorf("upsert running score %d: %w", rs.OfficialID, err)
			}
		}
		return nil
	})
}

// InsertEvent implements PromiseStore.
func (s *SQLStore) InsertEvent(ctx context.Context, e model.NewsEvent) (id int64, err error) {
	defer func(start time.Time) { observe("insert_event", start, err) }(time.Now())

	dims, err := encode(e.Dimensions)
	if err != nil {
		return 0, err
	}
	if e.ID != 0 {
		_, err = s.db.ExecContext(ctx, s.rebind(`
			INSERT INTO news_events (id, official_id, title, summary, url, published_at, impact, dimensions)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			e.ID, e.OfficialID, e.Title, e.Summary, e.URL, toMillis(e.PublishedAt), e.Impact, dims)
		if err != nil {
			return 0, fmt.Errorf("insert event: %w", err)
		}
		return e.ID, nil
	}
	err = s.db.QueryRowContext(ctx, s.rebind(`
		INSERT INTO news_events (official_id, title, summary, url, published_at, impact, dimensions)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		e.OfficialID, e.Title, e.Summary, e.URL, toMillis(e.PublishedAt), e.Impact, dims).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return id, nil
}

// ListPendingEvents implements PromiseStore.
func (s *SQLStore) ListPendingEvents(ctx context.Context, afterID int64, limit int) (out []model.NewsEvent, err error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	defer func(start time.Time) { observe("list_pending_events", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, official_id, title, summary, url, published_at, impact, dimensions
		FROM news_events WHERE processed_at IS NULL AND id > ? ORDER BY id LIMIT ?`), afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			e         model.NewsEvent
			published int64
			dims      string
		)
		if err = rows.Scan(&e.ID, &e.OfficialID, &e.Title, &e.Summary, &e.URL, &published, &e.Impact, &dims); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.PublishedAt = fromMillis(published)
		if err = decode(dims, &e.Dimensions); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CommitIntake implements PromiseStore.
func (s *SQLStore) CommitIntake(ctx context.Context, c IntakeCommit) (promiseID int64, err error) {
	defer func(start time.Time) { observe("commit_intake", start, err) }(time.Now())

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.rebind(`
			UPDATE news_events SET processed_at = ?, kind = ? WHERE id = ? AND processed_at IS NULL`),
			toMillis(c.At), string(c.Kind), c.EventID)
		if err != nil {
			return fmt.Errorf("mark event processed: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			if err := s.exists(ctx, tx, "news_events", c.EventID); err != nil {
				return err
			}
			return fmt.Errorf("event %d: %w", c.EventID, ErrAlreadyProcessed)
		}

		if c.Headline != nil {
			if err := s.upsertHeadline(ctx, tx, *c.Headline); err != nil {
				return err
			}
		}
		if c.Promise != nil {
			if promiseID, err = s.insertPromise(ctx, tx, c.EventID, *c.Promise); err != nil {
				return err
			}
		}
		if c.Adjustment != nil {
			a := *c.Adjustment
			if promiseID != 0 {
				a.PromiseID = &promiseID
			}
			if err := s.insertAdjustment(ctx, tx, a); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return promiseID, nil
}

const promiseColumns = `id, official_id, source_event_id, text, type, kind, metrics, unverifiable, announced_at,
	credit_factor, initial_score_given, withheld_score, target_date, status, outcome_score, evidence, sources,
	confidence, verified_at, last_checked_at, created_at`

func (s *SQLStore) insertPromise(ctx context.Context, tx *sql.Tx, eventID int64, p model.PolicyPromise) (int64, error) {
	metricsJSON, err := encode(p.Metrics)
	if err != nil {
		return 0, err
	}
	sources, err := encode(p.Sources)
	if err != nil {
		return 0, err
	}
	unverifiable := 0
	if p.Unverifiable {
		unverifiable = 1
	}
	status := p.Status
	if status == "" {
		status = model.StatusPending
	}
	var id int64
	err = tx.QueryRowContext(ctx, s.rebind(`
		INSERT INTO policy_promises (official_id, source_event_id, text, type, kind, metrics, unverifiable,
			announced_at, credit_factor, initial_score_given, withheld_score, target_date, status, evidence,
			sources, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		p.OfficialID, eventID, p.Text, string(p.Type), string(p.Kind), metricsJSON, unverifiable,
		toMillis(p.AnnouncedAt), p.CreditFactor, p.InitialScoreGiven, p.WithheldScore, toMillis(p.TargetDate),
		string(status), p.Evidence, sources, toMillis(p.CreatedAt)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert promise for event %d: %w", eventID, err)
	}
	return id, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPromise(row rowScanner) (model.PolicyPromise, error) {
	var (
		p                          model.PolicyPromise
		typ, kind, status          string
		metricsJSON, sources       string
		unverifiable               int
		announced, target, created int64
		outcome, confidence        sql.NullFloat64
		verified, checked          sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.OfficialID, &p.SourceEventID, &p.Text, &typ, &kind, &metricsJSON, &unverifiable,
		&announced, &p.CreditFactor, &p.InitialScoreGiven, &p.WithheldScore, &target, &status, &outcome,
		&p.Evidence, &sources, &confidence, &verified, &checked, &created)
	if err != nil {
		return model.PolicyPromise{}, err
	}
	p.Type = model.PromiseType(typ)
	p.Kind = model.EventKind(kind)
	p.Status = model.PromiseStatus(status)
	p.Unverifiable = unverifiable != 0
	p.AnnouncedAt = fromMillis(announced)
	p.TargetDate = fromMillis(target)
	p.CreatedAt = fromMillis(created)
	p.OutcomeScore = nullFloat(outcome)
	p.Confidence = nullFloat(confidence)
	p.VerifiedAt = nullTime(verified)
	p.LastCheckedAt = nullTime(checked)
	if err := decode(metricsJSON, &p.Metrics); err != nil {
		return model.PolicyPromise{}, err
	}
	if err := decode(sources, &p.Sources); err != nil {
		return model.PolicyPromise{}, err
	}
	return p, nil
}

// ListDuePromises implements PromiseStore.
func (s *SQLStore) ListDuePromises(ctx context.Context, now time.Time, offset, limit int) (out []model.PolicyPromise, err error) {
	if limit <= 0 || offset < 0 {
		return nil, ErrInvalidLimit
	}
	defer func(start time.Time) { observe("list_due_promises", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+promiseColumns+`
		FROM policy_promises
		WHERE status = ? AND target_date <= ?
		ORDER BY target_date, id LIMIT ? OFFSET ?`),
		string(model.StatusPending), toMillis(now), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list due promises: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out = make([]model.PolicyPromise, 0, limit)
	for rows.Next() {
		p, err := scanPromise(rows)
		if err != nil {
			return nil, fmt.Errorf("scan promise: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPromise implements PromiseStore.
func (s *SQLStore) GetPromise(ctx context.Context, id int64) (p model.PolicyPromise, err error) {
	defer func(start time.Time) { observe("get_promise", start, err) }(time.Now())

	p, err = scanPromise(s.db.QueryRowContext(ctx, s.rebind(`SELECT `+promiseColumns+` FROM policy_promises WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.PolicyPromise{}, fmt.Errorf("promise %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.PolicyPromise{}, fmt.Errorf("get promise: %w", err)
	}
	return p, nil
}

// CommitResolution implements PromiseStore.
func (s *SQLStore) CommitResolution(ctx context.Context, c ResolutionCommit) (err error) {
	defer func(start time.Time) { observe("commit_resolution", start, err) }(time.Now())

	r := c.Resolution
	sources, err := encode(r.Sources)
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		at := toMillis(r.VerifiedAt)
		res, err := tx.ExecContext(ctx, s.rebind(`
			UPDATE policy_promises
			SET status = ?, outcome_score = ?, evidence = ?, sources = ?, confidence = ?, verified_at = ?, last_checked_at = ?
			WHERE id = ? AND status = ?`),
			string(r.Status), r.Adjustment, r.Evidence, sources, r.Confidence, at, at,
			r.PromiseID, string(model.StatusPending))
		if err != nil {
			return fmt.Errorf("resolve promise %d: %w", r.PromiseID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			if err := s.exists(ctx, tx, "policy_promises", r.PromiseID); err != nil {
				return err
			}
			return fmt.Errorf("promise %d: %w", r.PromiseID, ErrAlreadyResolved)
		}

		if err := s.upsertHeadline(ctx, tx, c.Headline); err != nil {
			return err
		}
		return s.insertAdjustment(ctx, tx, c.Adjustment)
	})
}

// Stats implements Store.
func (s *SQLStore) Stats(ctx context.Context) (st Stats, err error) {
	defer func(start time.Time) { observe("stats", start, err) }(time.Now())

	counts := []struct {
		table string
		dest  *int
	}{
		{"running_scores", &st.Officials},
		{"debate_sections", &st.Sections},
		{"score_contributions", &st.Contributions},
		{"news_events", &st.Events},
	}
	for _, c := range counts {
		if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+c.table).Scan(c.dest); err != nil {
			return Stats{}, fmt.Errorf("count %s: %w", c.table, err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM policy_promises GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("count promises: %w", err)
	}
	defer func() { _ = rows.Close() }()
	st.Promises = make(map[model.PromiseStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err = rows.Scan(&status, &n); err != nil {
			return Stats{}, err
		}
		st.Promises[model.PromiseStatus(status)] = n
	}
	return st, rows.Err()
}

func (s *SQLStore) upsertHeadline(ctx context.Context, tx *sql.Tx, h HeadlineUpdate) error {
	meta, err := encode(h.Metadata)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO running_scores (official_id, effectiveness, influence, performance, headline, updated_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (official_id) DO UPDATE SET
			headline = excluded.headline,
			updated_at = excluded.updated_at,
			metadata = excluded.metadata`),
		h.OfficialID, model.Midpoint, model.Midpoint, model.Midpoint, h.Headline, toMillis(h.UpdatedAt), meta)
	if err != nil {
		return fmt.Errorf("upsert headline %d: %w", h.OfficialID, err)
	}
	return nil
}

func (s *SQLStore) insertAdjustment(ctx context.Context, tx *sql.Tx, a model.ScoreAdjustment) error {
	meta, err := encode(a.Metadata)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO score_adjustments (official_id, promise_id, event_id, reason, delta, before_score, after_score, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		a.OfficialID, nullableInt(a.PromiseID), nullableInt(a.EventID), a.Reason, a.Delta, a.Before, a.After, meta, toMillis(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert adjustment: %w", err)
	}
	return nil
}

// exists returns ErrNotFound when table has no row with id.
func (s *SQLStore) exists(ctx context.Context, tx *sql.Tx, table string, id int64) error {
	var n int
	if err := tx.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM `+table+` WHERE id = ?`), id).Scan(&n); err != nil {
		return fmt.Errorf("lookup %s %d: %w", table, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
	}
	return nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.UnixMilli(v).UTC()
}

func nullableInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}
	return string(b), nil
}

func decode(raw string, v any) error {
	if raw == "" || raw == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
