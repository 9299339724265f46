package cache

import (
	"context"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Memory is a bounded in-process LRU cache whose entries expire after a TTL.
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

var _ Cache = (*Memory)(nil)

// NewMemory creates a Memory cache. Non-positive arguments use defaults.
func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = defaultSize
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.lru.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	return slices.Clone(v), nil
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.lru.Add(key, slices.Clone(value))
	return nil
}

// Delete implements Cache.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.lru.Remove(key)
	return nil
}

// Len returns the number of live entries.
func (m *Memory) Len() int { return m.lru.Len() }

// Close implements Cache.
func (m *Memory) Close() error {
	m.lru.Purge()
	return nil
}
