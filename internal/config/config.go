// Package config defines engine configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config populated with defaults.
// - Load layers a YAML file and REPUTE_* environment variables on top.
// - Validate is the single gate that rejects inconsistent settings.
package config

import (
	"fmt"
	"time"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Cache drivers.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the operator HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the relational store: sqlite, postgres or memory.
	StoreDriver string `koanf:"store_driver"`
	// StoreDSN is the postgres connection string.
	StoreDSN string `koanf:"store_dsn"`
	// SQLitePath is the database file for the sqlite driver.
	SQLitePath string `koanf:"sqlite_path"`

	// Score bounds and latent-update shape.
	ScoreFloor      float64 `koanf:"score_floor"`
	ScoreCeiling    float64 `koanf:"score_ceiling"`
	ScoreDisplayMax float64 `koanf:"score_display_max"`
	LatentScale     float64 `koanf:"latent_scale"`
	Shrinkage       float64 `koanf:"shrinkage"`

	// RatingMultipliers maps discrete debate ratings to delta multipliers.
	RatingMultipliers map[string]float64 `koanf:"rating_multipliers"`

	// Promise credit fractions issued at intake.
	AnnouncementCredit float64 `koanf:"announcement_credit"`
	MixedCredit        float64 `koanf:"mixed_credit"`

	// VerificationLeadDays is the gap between announcement and first check.
	VerificationLeadDays int `koanf:"verification_lead_days"`

	// Batch sizes.
	VerifyBatchSize int `koanf:"verify_batch_size"`
	VerifyPageSize  int `koanf:"verify_page_size"`
	SectionPageSize int `koanf:"section_page_size"`
	EventPageSize   int `koanf:"event_page_size"`

	// ClassifierDelayMS is the pause between successive classifier calls.
	ClassifierDelayMS int `koanf:"classifier_delay_ms"`

	// DebateWorkers bounds concurrent section processing.
	DebateWorkers int `koanf:"debate_workers"`

	// Classification service.
	OpenAIAPIKey         string `koanf:"openai_api_key"`
	OpenAIModel          string `koanf:"openai_model"`
	ClassifierTimeoutMS  int    `koanf:"classifier_timeout_ms"`
	ClassifierMaxRetries int    `koanf:"classifier_max_retries"`

	// Extraction cache.
	CacheDriver     string `koanf:"cache_driver"`
	CacheSize       int    `koanf:"cache_size"`
	CacheTTLMinutes int    `koanf:"cache_ttl_minutes"`
	RedisAddr       string `koanf:"redis_addr"`

	// DedupeSize bounds the in-process set of already-handled event ids.
	DedupeSize int `koanf:"dedupe_size"`

	// Schedules use robfig/cron expressions with a leading seconds field.
	VerifyCron       string `koanf:"verify_cron"`
	IntakeCron       string `koanf:"intake_cron"`
	DebateCron       string `koanf:"debate_cron"`
	ScheduleTimezone string `koanf:"schedule_timezone"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		StoreDriver:     DriverSQLite,
		SQLitePath:      "repute.db",
		ScoreFloor:      15,
		ScoreCeiling:    95,
		ScoreDisplayMax: 100,
		LatentScale:     0.15,
		Shrinkage:       0.98,
		RatingMultipliers: map[string]float64{
			"strong":   1.2,
			"moderate": 0.8,
			"weak":     0.5,
			"poor":     0.2,
		},
		AnnouncementCredit:   0.3,
		MixedCredit:          0.6,
		VerificationLeadDays: 183,
		VerifyBatchSize:      50,
		VerifyPageSize:       1000,
		SectionPageSize:      200,
		EventPageSize:        200,
		ClassifierDelayMS:    1000,
		DebateWorkers:        1,
		OpenAIModel:          "gpt-4o-mini",
		ClassifierTimeoutMS:  30_000,
		ClassifierMaxRetries: 3,
		CacheDriver:          CacheMemory,
		CacheSize:            10_000,
		CacheTTLMinutes:      24 * 60,
		RedisAddr:            "localhost:6379",
		DedupeSize:           100_000,
		VerifyCron:           "0 0 6 1 * *",
		IntakeCron:           "0 0 8 * * *",
		DebateCron:           "0 */15 * * * *",
		ScheduleTimezone:     "Europe/Dublin",
	}
}

// ClassifierDelay returns the inter-call delay as a duration.
func (c *Config) ClassifierDelay() time.Duration {
	return time.Duration(c.ClassifierDelayMS) * time.Millisecond
}

// ClassifierTimeout returns the per-call classifier timeout.
func (c *Config) ClassifierTimeout() time.Duration {
	return time.Duration(c.ClassifierTimeoutMS) * time.Millisecond
}

// CacheTTL returns the extraction cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// VerificationLead returns the announcement-to-verification gap.
func (c *Config) VerificationLead() time.Duration {
	return time.Duration(c.VerificationLeadDays) * 24 * time.Hour
}

// Location resolves ScheduleTimezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.ScheduleTimezone)
	if err != nil {
		return nil, fmt.Errorf("%w: schedule_timezone %q: %v", ErrInvalidConfig, c.ScheduleTimezone, err)
	}
	return loc, nil
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.ScoreDisplayMax <= 0:
		return invalid("score_display_max must be positive")
	case c.ScoreFloor <= 0 || c.ScoreCeiling >= c.ScoreDisplayMax || c.ScoreFloor >= c.ScoreCeiling:
		return invalid("score bounds must satisfy 0 < floor < ceiling < display max")
	case c.Shrinkage <= 0 || c.Shrinkage >= 1:
		return invalid("shrinkage must be in (0, 1)")
	case c.LatentScale <= 0:
		return invalid("latent_scale must be positive")
	case c.AnnouncementCredit <= 0 || c.AnnouncementCredit > 1:
		return invalid("announcement_credit must be in (0, 1]")
	case c.MixedCredit <= 0 || c.MixedCredit > 1:
		return invalid("mixed_credit must be in (0, 1]")
	case c.VerificationLeadDays <= 0:
		return invalid("verification_lead_days must be positive")
	case c.VerifyBatchSize <= 0 || c.VerifyPageSize <= 0 || c.SectionPageSize <= 0 || c.EventPageSize <= 0:
		return invalid("batch and page sizes must be positive")
	case c.ClassifierDelayMS < 0:
		return invalid("classifier_delay_ms must not be negative")
	case c.DebateWorkers <= 0:
		return invalid("debate_workers must be positive")
	}

	switch c.StoreDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return invalid("sqlite_path must not be empty")
		}
	case DriverPostgres:
		if c.StoreDSN == "" {
			return invalid("store_dsn is required for postgres")
		}
	case DriverMemory:
	default:
		return invalid(fmt.Sprintf("unknown store_driver %q", c.StoreDriver))
	}

	switch c.CacheDriver {
	case CacheMemory, CacheRedis:
	default:
		return invalid(fmt.Sprintf("unknown cache_driver %q", c.CacheDriver))
	}

	for _, rating := range []string{"strong", "moderate", "weak", "poor"} {
		if m, ok := c.RatingMultipliers[rating]; !ok || m <= 0 {
			return invalid(fmt.Sprintf("rating_multipliers.%s must be positive", rating))
		}
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}
