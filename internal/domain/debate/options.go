package debate

import (
	"time"

	"github.com/okian/repute/internal/domain/model"
	"github.com/okian/repute/internal/domain/scoring"
	"github.com/okian/repute/internal/domain/serial"
	"github.com/okian/repute/pkg/logger"
)

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithMultipliers overrides rating multipliers. Non-positive values are ignored.
func WithMultipliers(m map[model.Rating]float64) Option {
	return func(c *Calculator) {
		for r, v := range m {
			if v > 0 {
				c.params.Multipliers[model.ParseRating(string(r))] = v
			}
		}
	}
}

// WithUpdater sets the soft score updater.
func WithUpdater(u scoring.Updater) Option {
	return func(c *Calculator) {
		if u != nil {
			c.params.Updater = u
		}
	}
}

// WithLocker shares a per-official locker with other score writers.
func WithLocker(l *serial.Locker) Option {
	return func(c *Calculator) {
		if l != nil {
			c.locks = l
		}
	}
}

// WithClock sets the time source used for audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Calculator) {
		if l != nil {
			c.log = l
		}
	}
}
