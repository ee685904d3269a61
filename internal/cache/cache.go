// Package cache implements the bounded, time-expiring search result cache.
//
// Entries are keyed by the lowercased raw query. Eviction is FIFO by insertion, not
// LRU: reads use Peek so a hit never changes an entry's position.
package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/eduportal/eduportal-search/pkg/types"
)

const (
	// DefaultMaxEntries caps the number of cached queries
	DefaultMaxEntries = 100
	// DefaultTTL is how long an entry may be served after it was written
	DefaultTTL = 5 * time.Minute
)

// entry represents cached results with their write time
type entry struct {
	results   []types.ScoredResult
	timestamp time.Time
}

// Cache is a FIFO-bounded result cache with expiry on read
type Cache struct {
	mu         sync.Mutex
	entries    *lru.Cache[string, *entry]
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

// Option configures a Cache
type Option func(*Cache)

// WithMaxEntries sets the entry cap
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithTTL sets the expiry window
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock sets the time source
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a Cache
func New(opts ...Option) *Cache {
	c := &Cache{
		maxEntries: DefaultMaxEntries,
		ttl:        DefaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	entries, err := lru.New[string, *entry](c.maxEntries)
	if err != nil {
		// This should never happen with a positive size
		panic(fmt.Sprintf("failed to create result cache: %v", err))
	}
	c.entries = entries
	return c
}

func cacheKey(query string) string {
	return strings.ToLower(query)
}

// Get returns a copy of the results for query if an entry younger than the TTL exists.
// Stale entries are reported as misses but left in place.
func (c *Cache) Get(query string) ([]types.ScoredResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Peek(cacheKey(query))
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.timestamp) >= c.ttl {
		return nil, false
	}
	return copyResults(e.results), true
}

// Put stores results for query. When the cache is full the earliest inserted entry
// is evicted first, even if query is already present.
func (c *Cache) Put(query string, results []types.ScoredResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries.Len() >= c.maxEntries {
		c.entries.RemoveOldest()
	}
	c.entries.Add(cacheKey(query), &entry{
		results:   copyResults(results),
		timestamp: c.now(),
	})
}

// Sweep removes every entry older than the TTL and returns how many were removed
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, key := range c.entries.Keys() {
		e, ok := c.entries.Peek(key)
		if !ok {
			continue
		}
		if now.Sub(e.timestamp) >= c.ttl {
			c.entries.Remove(key)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, including stale ones not yet swept
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Keys returns the cached keys from earliest to latest inserted
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Keys()
}

// Purge empties the cache
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
}

// copyResults deep copies results so callers cannot mutate cached values
func copyResults(src []types.ScoredResult) []types.ScoredResult {
	if src == nil {
		return nil
	}
	dst := make([]types.ScoredResult, len(src))
	for i, r := range src {
		dst[i] = types.ScoredResult{
			Opportunity: r.Opportunity.Clone(),
			Score:       r.Score,
			Rank:        r.Rank,
		}
	}
	return dst
}
