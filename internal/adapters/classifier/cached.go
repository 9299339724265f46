package classifier

import (
	"context"
	"errors"
	"strconv"

	"github.com/okian/repute/internal/adapters/cache"
	"github.com/okian/repute/pkg/json"
	"github.com/okian/repute/pkg/logger"
)

// Cached memoizes extractions by source event id, so a rerun after a
// partial failure does not pay for the same call twice. Verifications are
// never cached.
type Cached struct {
	inner Classifier
	cache cache.Cache
	log   logger.Logger
}

var _ Classifier = (*Cached)(nil)

// NewCached wraps inner with c.
func NewCached(inner Classifier, c cache.Cache) *Cached {
	return &Cached{inner: inner, cache: c, log: logger.Named("classifier.cache")}
}

func extractionKey(eventID int64) string {
	return "extract:" + strconv.FormatInt(eventID, 10)
}

// ExtractPromise implements Classifier.
func (c *Cached) ExtractPromise(ctx context.Context, req ExtractionRequest) (Extraction, error) {
	key := extractionKey(req.EventID)
	raw, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		var out Extraction
		if err := json.Unmarshal(raw, &out); err == nil {
			return out, nil
		}
		_ = c.cache.Delete(ctx, key)
	case !errors.Is(err, cache.ErrMiss):
		c.log.Warn(ctx, "extraction cache read failed", logger.String("key", key), logger.Error(err))
	}

	out, err := c.inner.ExtractPromise(ctx, req)
	if err != nil {
		return Extraction{}, err
	}
	if raw, err := json.Marshal(out); err == nil {
		if err := c.cache.Set(ctx, key, raw); err != nil {
			c.log.Warn(ctx, "extraction cache write failed", logger.String("key", key), logger.Error(err))
		}
	}
	return out, nil
}

// VerifyPromise implements Classifier.
func (c *Cached) VerifyPromise(ctx context.Context, req VerificationRequest) (Verdict, error) {
	return c.inner.VerifyPromise(ctx, req)
}
