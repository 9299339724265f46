// Package cache provides explicitly scoped key/value caches with eviction.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache stores opaque values under string keys.
type Cache interface {
	// Get returns ErrMiss when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

const (
	defaultSize = 10_000
	defaultTTL  = 24 * time.Hour
)
