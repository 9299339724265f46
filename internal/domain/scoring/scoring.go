// Package scoring implements the bounded soft score update used by every
// component that moves a running score.
package scoring

import (
	"math"

	"github.com/okian/repute/internal/domain/model"
)

// Default update constants.
const (
	defaultFloor       = 15.0
	defaultCeiling     = 95.0
	defaultDisplayMax  = 100.0
	defaultLatentScale = 0.15
	defaultShrinkage   = 0.98
	defaultEpsilon     = 1e-6
)

// Updater maps a current score and a signed delta to a new bounded score.
type Updater interface {
	Update(current, delta float64) float64
}

// Option applies a configuration option to the SoftUpdater.
type Option func(*SoftUpdater)

// WithBounds sets the floor and ceiling. Ignored unless floor < ceiling.
func WithBounds(floor, ceiling float64) Option {
	return func(u *SoftUpdater) {
		if floor < ceiling {
			u.floor = floor
			u.ceiling = ceiling
		}
	}
}

// WithDisplayMax sets the top of the display range [0, max].
func WithDisplayMax(max float64) Option {
	return func(u *SoftUpdater) {
		if max > 0 {
			u.displayMax = max
		}
	}
}

// WithLatentScale sets K, the latent-space step per unit of delta.
func WithLatentScale(k float64) Option {
	return func(u *SoftUpdater) {
		if k > 0 {
			u.scale = k
		}
	}
}

// WithShrinkage sets the pull toward the midpoint. Must be in (0, 1).
func WithShrinkage(s float64) Option {
	return func(u *SoftUpdater) {
		if s > 0 && s < 1 {
			u.shrink = s
		}
	}
}

// WithEpsilon sets how far inputs are kept from the range edges before logit.
func WithEpsilon(e float64) Option {
	return func(u *SoftUpdater) {
		if e > 0 && e < 0.5 {
			u.eps = e
		}
	}
}

// SoftUpdater moves scores in logit space so they cannot leave their range.
// It is pure and safe for concurrent use.
type SoftUpdater struct {
	floor      float64
	ceiling    float64
	displayMax float64
	scale      float64
	shrink     float64
	eps        float64
}

// NewSoftUpdater creates an updater with the engine defaults.
func NewSoftUpdater(opts ...Option) *SoftUpdater {
	u := &SoftUpdater{
		floor:      defaultFloor,
		ceiling:    defaultCeiling,
		displayMax: defaultDisplayMax,
		scale:      defaultLatentScale,
		shrink:     defaultShrinkage,
		eps:        defaultEpsilon,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Update applies delta to current and returns the new score, rounded to two
// decimals and clamped to [floor, ceiling].
func (u *SoftUpdater) Update(current, delta float64) float64 {
	mid := u.Midpoint()
	if math.IsNaN(current) || math.IsInf(current, 0) {
		current = mid
	}
	if math.IsNaN(delta) {
		delta = 0
	}

	p := clamp(current/u.displayMax, u.eps, 1-u.eps)
	z := logit(p) + delta*u.scale
	raw := u.displayMax * sigmoid(z)
	out := mid + (raw-mid)*u.shrink

	return round2(clamp(out, u.floor, u.ceiling))
}

// Seed returns the value new scores start from.
func (u *SoftUpdater) Seed() float64 { return model.Midpoint }

// Midpoint returns the center of the display range.
func (u *SoftUpdater) Midpoint() float64 { return u.displayMax / 2 }

// Bounds returns the floor and ceiling.
func (u *SoftUpdater) Bounds() (floor, ceiling float64) { return u.floor, u.ceiling }

func logit(p float64) float64 { return math.Log(p / (1 - p)) }

// sigmoid saturates cleanly for ±Inf.
func sigmoid(z float64) float64 { return 1 / (1 + math.Exp(-z)) }

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
