// Package cache provides short-lived in-process memoization of fetch
// results, keyed by normalized URL.
//
// Entries expire lazily: a Get past the expiry is a miss and deletes
// the stale entry. The cache is process-local and never survives a
// restart.
package cache

import (
	"sync"
	"time"

	"github.com/socialcap/profile-api/internal/domain"
)

// DefaultTTL is how long a fetched page stays fresh.
const DefaultTTL = 30 * time.Minute

type entry struct {
	value     domain.PageResult
	expiresAt time.Time
}

// Cache is a TTL map of PageResults. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time // injectable clock for testing
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty Cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached result for key, or ok=false on a miss.
// An expired entry counts as a miss and is purged.
func (c *Cache) Get(key string) (domain.PageResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.PageResult{}, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return domain.PageResult{}, false
	}
	return e.value, true
}

// Put stores value under key for ttl. A non-positive ttl stores nothing.
func (c *Cache) Put(key string, value domain.PageResult, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
}

// Len reports the number of entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
