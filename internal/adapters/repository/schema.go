package repository

import "strings"

// Timestamps are stored as unix milliseconds so both dialects compare and
// order them the same way. {{id}} expands to the dialect's surrogate key.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS running_scores (
		official_id   BIGINT PRIMARY KEY,
		effectiveness DOUBLE PRECISION NOT NULL,
		influence     DOUBLE PRECISION NOT NULL,
		performance   DOUBLE PRECISION NOT NULL,
		headline      DOUBLE PRECISION NOT NULL,
		updated_at    BIGINT NOT NULL,
		metadata      TEXT NOT NULL DEFAULT '{}'
	)`,
	`CREATE TABLE IF NOT EXISTS debate_sections (
		id                 BIGINT PRIMARY KEY,
		debate_day_id      BIGINT NOT NULL,
		title              TEXT NOT NULL DEFAULT '',
		word_count         INTEGER NOT NULL DEFAULT 0,
		held_on            BIGINT NOT NULL DEFAULT 0,
		winner_official_id BIGINT,
		outcome_confidence DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS participant_evaluations (
		section_id               BIGINT NOT NULL REFERENCES debate_sections(id),
		official_id              BIGINT NOT NULL,
		word_count               INTEGER NOT NULL DEFAULT 0,
		speech_count             INTEGER NOT NULL DEFAULT 0,
		rating                   TEXT NOT NULL,
		argument_quality         DOUBLE PRECISION,
		relevance                DOUBLE PRECISION,
		persuasiveness           DOUBLE PRECISION,
		factual_accuracy         DOUBLE PRECISION,
		rhetorical_effectiveness DOUBLE PRECISION,
		overall_score            DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		topics                   TEXT NOT NULL DEFAULT '[]',
		sentiment                TEXT,
		PRIMARY KEY (section_id, official_id)
	)`,
	`CREATE TABLE IF NOT EXISTS score_contributions (
		section_id           BIGINT NOT NULL,
		official_id          BIGINT NOT NULL,
		before_effectiveness DOUBLE PRECISION NOT NULL,
		before_influence     DOUBLE PRECISION NOT NULL,
		before_performance   DOUBLE PRECISION NOT NULL,
		after_effectiveness  DOUBLE PRECISION NOT NULL,
		after_influence      DOUBLE PRECISION NOT NULL,
		after_performance    DOUBLE PRECISION NOT NULL,
		delta_effectiveness  DOUBLE PRECISION NOT NULL,
		delta_influence      DOUBLE PRECISION NOT NULL,
		delta_performance    DOUBLE PRECISION NOT NULL,
		rating               TEXT NOT NULL,
		role                 TEXT NOT NULL,
		metadata             TEXT NOT NULL DEFAULT '{}',
		created_at           BIGINT NOT NULL,
		PRIMARY KEY (section_id, official_id)
	)`,
	`CREATE TABLE IF NOT EXISTS news_events (
		id           {{id}},
		official_id  BIGINT NOT NULL,
		title        TEXT NOT NULL,
		summary      TEXT NOT NULL DEFAULT '',
		url          TEXT NOT NULL DEFAULT '',
		published_at BIGINT NOT NULL,
		impact       DOUBLE PRECISION NOT NULL DEFAULT 0,
		dimensions   TEXT NOT NULL DEFAULT '{}',
		kind         TEXT,
		processed_at BIGINT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_news_events_pending ON news_events (processed_at, id)`,
	`CREATE TABLE IF NOT EXISTS policy_promises (
		id                  {{id}},
		official_id         BIGINT NOT NULL,
		source_event_id     BIGINT NOT NULL UNIQUE,
		text                TEXT NOT NULL,
		type                TEXT NOT NULL,
		kind                TEXT NOT NULL,
		metrics             TEXT NOT NULL DEFAULT '{}',
		unverifiable        INTEGER NOT NULL DEFAULT 0,
		announced_at        BIGINT NOT NULL,
		credit_factor       DOUBLE PRECISION NOT NULL,
		initial_score_given DOUBLE PRECISION NOT NULL,
		withheld_score      DOUBLE PRECISION NOT NULL,
		target_date         BIGINT NOT NULL,
		status              TEXT NOT NULL DEFAULT 'pending',
		outcome_score       DOUBLE PRECISION,
		evidence            TEXT NOT NULL DEFAULT '',
		sources             TEXT NOT NULL DEFAULT '[]',
		confidence          DOUBLE PRECISION,
		verified_at         BIGINT,
		last_checked_at     BIGINT,
		created_at          BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_policy_promises_due ON policy_promises (status, target_date, id)`,
	`CREATE TABLE IF NOT EXISTS score_adjustments (
		id           {{id}},
		official_id  BIGINT NOT NULL,
		promise_id   BIGINT,
		event_id     BIGINT,
		reason       TEXT NOT NULL,
		delta        DOUBLE PRECISION NOT NULL,
		before_score DOUBLE PRECISION NOT NULL,
		after_score  DOUBLE PRECISION NOT NULL,
		metadata     TEXT NOT NULL DEFAULT '{}',
		created_at   BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_score_adjustments_official ON score_adjustments (official_id, id)`,
}

func (d dialect) schema() []string {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if d == dialectPostgres {
		id = "BIGSERIAL PRIMARY KEY"
	}
	out := make([]string, len(schema))
	for i, stmt := range schema {
		out[i] = strings.ReplaceAll(stmt, "{{id}}", id)
	}
	return out
}
