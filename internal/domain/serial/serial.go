// Package serial serializes read-modify-write cycles per official.
package serial

import (
	"context"
	"slices"
	"sync"
)

// Locker hands out per-key exclusive locks. Keys with no holder are freed.
type Locker struct {
	mu    sync.Mutex
	slots map[int64]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// New creates an empty Locker.
func New() *Locker {
	return &Locker{slots: make(map[int64]*slot)}
}

// Lock acquires the locks for every key, in ascending order so two callers
// with overlapping key sets cannot deadlock. The returned func releases them.
func (l *Locker) Lock(ctx context.Context, keys ...int64) (func(), error) {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	held := make([]int64, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.unlock(held[i])
		}
	}

	for _, k := range keys {
		if err := l.lock(ctx, k); err != nil {
			release()
			return nil, err
		}
		held = append(held, k)
	}
	return release, nil
}

func (l *Locker) lock(ctx context.Context, key int64) error {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		l.drop(key, s)
		l.mu.Unlock()
		return ctx.Err()
	}
}

func (l *Locker) unlock(key int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.slots[key]
	<-s.ch
	l.drop(key, s)
}

// drop must be called with l.mu held.
func (l *Locker) drop(key int64, s *slot) {
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// Len returns the number of keys currently held or awaited.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
