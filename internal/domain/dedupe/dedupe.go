// Package dedupe tracks source ids already handled within this process.
package dedupe

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMaxSize = 50_000

// Deduper records seen ids so a run does not reprocess the same event.
// The store's uniqueness constraint remains the durable gate; this set only
// saves a round trip for ids already handled since startup.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id int64) bool

	// Unrecord removes an id so a failed item can be retried.
	Unrecord(ctx context.Context, id int64)

	Size() int64
}

// inMemoryDeduper evicts the least recently recorded id once full.
// A non-positive maxSize disables eviction.
type inMemoryDeduper struct {
	maxSize int

	bounded *lru.Cache[int64, struct{}]

	mu   sync.Mutex
	seen map[int64]struct{}
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}

	if d.maxSize > 0 {
		// lru.New only fails for a non-positive size.
		d.bounded, _ = lru.New[int64, struct{}](d.maxSize)
	} else {
		d.seen = make(map[int64]struct{})
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id int64) bool {
	if d.bounded != nil {
		found, _ := d.bounded.ContainsOrAdd(id, struct{}{})
		return found
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = struct{}{}
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id int64) {
	if d.bounded != nil {
		d.bounded.Remove(id)
		return
	}

	d.mu.Lock()
	delete(d.seen, id)
	d.mu.Unlock()
}

func (d *inMemoryDeduper) Size() int64 {
	if d.bounded != nil {
		return int64(d.bounded.Len())
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
