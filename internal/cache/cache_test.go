package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduportal/eduportal-search/pkg/types"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func results(names ...string) []types.ScoredResult {
	out := make([]types.ScoredResult, len(names))
	for i, n := range names {
		out[i] = types.ScoredResult{
			Opportunity: types.Opportunity{Name: n, URL: "https://example.org/" + n, Category: types.CategoryWorkshops},
			Score:       float64(len(names) - i),
			Rank:        i + 1,
		}
	}
	return out
}

func TestCache_GetPut(t *testing.T) {
	c := New()

	_, ok := c.Get("nsp")
	assert.False(t, ok)

	c.Put("NSP", results("a", "b"))

	got, ok := c.Get("nsp")
	require.True(t, ok)
	assert.Len(t, got, 2)

	got, ok = c.Get("Nsp")
	require.True(t, ok, "lookup is case-insensitive")
	assert.Equal(t, "a", got[0].Name)
}

func TestCache_ReturnsCopies(t *testing.T) {
	c := New()
	c.Put("q", results("a"))

	got, _ := c.Get("q")
	got[0].Name = "mutated"

	again, _ := c.Get("q")
	assert.Equal(t, "a", again[0].Name)
}

func TestCache_Expiry(t *testing.T) {
	clock := newClock()
	c := New(WithClock(clock.Now))

	c.Put("hackathon", results("a"))

	clock.Advance(4*time.Minute + 59*time.Second)
	_, ok := c.Get("hackathon")
	assert.True(t, ok)

	clock.Advance(2 * time.Second)
	_, ok = c.Get("hackathon")
	assert.False(t, ok, "entry older than five minutes is a miss")
	assert.Equal(t, 1, c.Len(), "stale entries are not purged on read")

	c.Put("hackathon", results("b"))
	got, ok := c.Get("hackathon")
	require.True(t, ok)
	assert.Equal(t, "b", got[0].Name)
}

func TestCache_FIFOEviction(t *testing.T) {
	c := New()

	for i := 0; i < DefaultMaxEntries; i++ {
		c.Put(fmt.Sprintf("query-%d", i), results("x"))
	}
	require.Equal(t, DefaultMaxEntries, c.Len())

	// Reading the oldest entry must not protect it from eviction
	_, ok := c.Get("query-0")
	require.True(t, ok)

	c.Put("query-100", results("y"))

	assert.Equal(t, DefaultMaxEntries, c.Len())
	_, ok = c.Get("query-0")
	assert.False(t, ok, "earliest inserted entry is evicted")
	_, ok = c.Get("query-1")
	assert.True(t, ok)
	_, ok = c.Get("query-100")
	assert.True(t, ok)
}

func TestCache_Sweep(t *testing.T) {
	clock := newClock()
	c := New(WithClock(clock.Now))

	c.Put("old", results("a"))
	clock.Advance(3 * time.Minute)
	c.Put("new", results("b"))
	clock.Advance(3 * time.Minute)

	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, []string{"new"}, c.Keys())
	assert.Equal(t, 0, c.Sweep())
}

func TestCache_Options(t *testing.T) {
	clock := newClock()
	c := New(WithMaxEntries(2), WithTTL(time.Second), WithClock(clock.Now))

	c.Put("a", nil)
	c.Put("b", nil)
	c.Put("c", nil)
	assert.Equal(t, []string{"b", "c"}, c.Keys())

	clock.Advance(time.Second)
	_, ok := c.Get("c")
	assert.False(t, ok)

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				key := fmt.Sprintf("q-%d-%d", i, j)
				c.Put(key, results("x"))
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), DefaultMaxEntries)
}
