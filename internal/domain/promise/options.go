package promise

import (
	"time"

	"github.com/okian/repute/internal/domain/dedupe"
	"github.com/okian/repute/internal/domain/scoring"
	"github.com/okian/repute/internal/domain/serial"
	"github.com/okian/repute/pkg/logger"
)

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithCredits sets the intake credit fractions for announcements and for
// mixed or ambiguous events. Values outside (0, 1] are ignored.
func WithCredits(announcement, mixed float64) Option {
	return func(t *Tracker) {
		if announcement > 0 && announcement <= 1 {
			t.announcementCredit = announcement
		}
		if mixed > 0 && mixed <= 1 {
			t.mixedCredit = mixed
		}
	}
}

// WithLead sets the gap between announcement and verification.
func WithLead(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.lead = d
		}
	}
}

// WithBatchSize caps how many promises one verification run resolves.
func WithBatchSize(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.batchSize = n
		}
	}
}

// WithPageSize sets the page size for due-promise reads.
func WithPageSize(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.pageSize = n
		}
	}
}

// WithEventPageSize sets the page size for pending-event reads.
func WithEventPageSize(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.eventPageSize = n
		}
	}
}

// WithDelay sets the pause between successive classifier calls.
func WithDelay(d time.Duration) Option {
	return func(t *Tracker) {
		if d >= 0 {
			t.delay = d
		}
	}
}

// WithUpdater sets the soft score updater used on headline scores.
func WithUpdater(u scoring.Updater) Option {
	return func(t *Tracker) {
		if u != nil {
			t.updater = u
		}
	}
}

// WithLocker shares a per-official locker with other score writers.
func WithLocker(l *serial.Locker) Option {
	return func(t *Tracker) {
		if l != nil {
			t.locks = l
		}
	}
}

// WithDeduper sets the in-process seen-set for event ids.
func WithDeduper(d dedupe.Deduper) Option {
	return func(t *Tracker) {
		if d != nil {
			t.seen = d
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.log = l
		}
	}
}
