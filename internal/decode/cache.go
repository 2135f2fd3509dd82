package decode

import (
	"context"
	"log"
	"sync"
)

// DefaultCapacity bounds the cache for a typical editing session.
const DefaultCapacity = 50

// entry memoizes a single fetch+decode. It is inserted before the work
// starts, so concurrent Gets for the same ref share one in-flight
// operation instead of racing duplicate fetches.
type entry struct {
	done chan struct{}
	buf  *Buffer
	err  error
}

// Cache fetches and decodes assets on demand, keyed by source ref.
// Capacity is bounded; eviction is FIFO by insertion order rather than
// LRU, a deliberate simplification for short editing sessions.
type Cache struct {
	fetchers []Fetcher
	capacity int

	mu      sync.Mutex
	entries map[string]*entry
	order   []string // insertion order, oldest first
}

// NewCache creates a cache with the given capacity (DefaultCapacity when
// v <= 0) over the fallback fetch chain.
func NewCache(capacity int, fetchers ...Fetcher) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		fetchers: fetchers,
		capacity: capacity,
		entries:  make(map[string]*entry),
	}
}

// Get returns the decoded buffer for a source ref, fetching and decoding
// it on first use. Concurrent calls for the same ref wait on the same
// in-flight operation. Failed operations are not cached, so a later Get
// retries.
func (c *Cache) Get(ctx context.Context, sourceRef string) (*Buffer, error) {
	c.mu.Lock()
	if e, ok := c.entries[sourceRef]; ok {
		c.mu.Unlock()
		return e.wait(ctx)
	}

	e := &entry{done: make(chan struct{})}
	c.entries[sourceRef] = e
	c.order = append(c.order, sourceRef)
	c.evictLocked()
	c.mu.Unlock()

	e.buf, e.err = c.load(ctx, sourceRef)
	close(e.done)

	if e.err != nil {
		c.remove(sourceRef, e)
	}
	return e.buf, e.err
}

// Len returns the number of cached (or in-flight) entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (e *entry) wait(ctx context.Context) (*Buffer, error) {
	select {
	case <-e.done:
		return e.buf, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) load(ctx context.Context, sourceRef string) (*Buffer, error) {
	data, err := FetchWithFallback(ctx, sourceRef, c.fetchers)
	if err != nil {
		return nil, err
	}
	buf, err := DecodeBytes(sourceRef, data)
	if err != nil {
		return nil, err
	}
	log.Printf("Decoded %s: %.2fs of PCM", sourceRef, buf.Duration())
	return buf, nil
}

// evictLocked drops the oldest entries until the cache fits its
// capacity. Waiters holding an evicted in-flight entry still complete;
// the entry just stops being findable.
func (c *Cache) evictLocked() {
	for len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// remove forgets a failed entry so the next Get can retry, unless the
// slot was already replaced.
func (c *Cache) remove(sourceRef string, e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[sourceRef] != e {
		return
	}
	delete(c.entries, sourceRef)
	for i, ref := range c.order {
		if ref == sourceRef {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
