package tracker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduportal/eduportal-search/internal/debounce"
	"github.com/eduportal/eduportal-search/internal/scorer"
	"github.com/eduportal/eduportal-search/internal/storage"
	"github.com/eduportal/eduportal-search/pkg/types"
)

var _ scorer.Profile = (*Tracker)(nil)

// memStore is an in-memory Store that can be told to reject writes
type memStore struct {
	mu         sync.Mutex
	values     map[string]string
	writes     int
	failWrites int // number of upcoming SetValue calls that fail with ErrQuotaExceeded
}

func newMemStore() *memStore {
	return &memStore{values: make(map[string]string)}
}

func (m *memStore) GetValue(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

func (m *memStore) SetValue(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites > 0 {
		m.failWrites--
		return fmt.Errorf("set %s: %w", key, storage.ErrQuotaExceeded)
	}
	m.writes++
	m.values[key] = value
	return nil
}

func (m *memStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func TestSearchHistoryCap(t *testing.T) {
	tr := New()
	for i := 0; i < 150; i++ {
		require.NoError(t, tr.Record(SearchEvent(types.CategoryScholarships, fmt.Sprintf("q%d", i), nil, nil)))
	}

	history := tr.SearchHistory()
	require.Len(t, history, MaxSearchHistory)
	assert.Equal(t, "q50", history[0].Query)
	assert.Equal(t, "q149", history[len(history)-1].Query)
}

func TestViewHistoryCap(t *testing.T) {
	tr := New()
	for i := 0; i < 250; i++ {
		require.NoError(t, tr.Record(ViewEvent(types.CategoryWorkshops, fmt.Sprintf("item-%d", i))))
	}

	history := tr.ViewHistory()
	require.Len(t, history, MaxViewHistory)
	assert.Equal(t, "item-50", history[0].ItemID)
	assert.Equal(t, "item-249", history[len(history)-1].ItemID)
}

func TestClickAveragePosition(t *testing.T) {
	tr := New()

	require.NoError(t, tr.Record(ClickEvent(types.CategoryHackathons, "sih", "hackathon", 4)))
	stats := tr.Clicks(types.CategoryHackathons, "sih")
	assert.Equal(t, 2.0, stats.AvgPosition)

	require.NoError(t, tr.Record(ClickEvent(types.CategoryHackathons, "sih", "hackathon", 2)))
	stats = tr.Clicks(types.CategoryHackathons, "sih")
	assert.Equal(t, 2.0, stats.AvgPosition)
	assert.Equal(t, 2, stats.Clicks)
	assert.Equal(t, 2, stats.Impressions)

	assert.Equal(t, ClickStats{}, tr.Clicks(types.CategoryHackathons, "unknown"))
}

func TestSearchUpdatesPreferences(t *testing.T) {
	tr := New()
	filters := types.Filters{types.FilterSource: "AICTE"}

	require.NoError(t, tr.Record(SearchEvent(types.CategoryScholarships, "merit engineering",
		[]string{"merit", "engineering"}, filters)))
	require.NoError(t, tr.Record(SearchEvent(types.CategoryScholarships, "merit",
		[]string{"merit"}, nil)))

	assert.Equal(t, 2, tr.KeywordWeight(types.CategoryScholarships, "merit"))
	assert.Equal(t, 1, tr.KeywordWeight(types.CategoryScholarships, "engineering"))
	assert.Equal(t, 0, tr.KeywordWeight(types.CategoryHackathons, "merit"))
	assert.Equal(t, []string{"merit", "engineering"}, tr.TopKeywords(types.CategoryScholarships, 5))
}

func TestViewWeightsProfile(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Record(ViewEvent(types.CategoryInternships, "a")))
	require.NoError(t, tr.Record(ViewEvent(types.CategoryInternships, "a")))
	require.NoError(t, tr.Record(ViewEvent(types.CategoryInternships, "b")))

	assert.Equal(t, 2, tr.ItemViews(types.CategoryInternships, "a"))
	assert.Equal(t, 3, tr.CategoryViews(types.CategoryInternships))
	assert.Equal(t, 0, tr.CategoryViews(types.CategoryWorkshops))
}

func TestFilterUsage(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Record(FilterEvent(types.CategoryWorkshops, types.FilterSource, "IIT Bombay")))
	require.NoError(t, tr.Record(FilterEvent(types.CategoryWorkshops, types.FilterSource, "IIT Bombay")))

	assert.Equal(t, 2, tr.FilterUsage(types.CategoryWorkshops, types.FilterSource, "IIT Bombay"))
	assert.Equal(t, 0, tr.FilterUsage(types.CategoryWorkshops, types.FilterSource, "IIT Delhi"))
}

func TestRecordRejectsInvalidEvents(t *testing.T) {
	tr := New()

	tests := []struct {
		name  string
		event Event
	}{
		{"unknown kind", Event{Kind: "hover", Category: types.CategoryWorkshops}},
		{"unknown category", SearchEvent("jobs", "q", nil, nil)},
		{"view without item", ViewEvent(types.CategoryWorkshops, "")},
		{"click without item", ClickEvent(types.CategoryWorkshops, "", "q", 1)},
		{"negative position", ClickEvent(types.CategoryWorkshops, "x", "q", -1)},
		{"unknown filter field", FilterEvent(types.CategoryWorkshops, "colour", "red")},
		{"bad search filter", SearchEvent(types.CategoryWorkshops, "q", nil, types.Filters{"colour": "red"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tr.Record(tt.event))
		})
	}
	assert.Empty(t, tr.SearchHistory())
	assert.Empty(t, tr.ViewHistory())
}

func TestRecentQueries(t *testing.T) {
	tr := New()
	for _, q := range []string{"coding", "merit", "coding", "remote"} {
		require.NoError(t, tr.Record(SearchEvent(types.CategoryInternships, q, nil, nil)))
	}
	require.NoError(t, tr.Record(SearchEvent(types.CategoryHackathons, "web3", nil, nil)))

	assert.Equal(t, []string{"web3", "remote", "coding"}, tr.RecentQueries("", 3))
	assert.Equal(t, []string{"remote", "coding", "merit"}, tr.RecentQueries(types.CategoryInternships, 10))
}

func TestDebouncedFlush(t *testing.T) {
	store := newMemStore()
	sched := debounce.NewManualScheduler()
	tr := New(WithStore(store), WithScheduler(sched), WithFlushDelay(time.Second))

	for i := 0; i < 5; i++ {
		require.NoError(t, tr.Record(ViewEvent(types.CategoryWorkshops, "w")))
	}
	assert.Equal(t, 0, store.writeCount())

	sched.Advance(999 * time.Millisecond)
	assert.Equal(t, 0, store.writeCount())

	// One more record restarts the window
	require.NoError(t, tr.Record(ViewEvent(types.CategoryWorkshops, "w")))
	sched.Advance(500 * time.Millisecond)
	assert.Equal(t, 0, store.writeCount())

	sched.Advance(500 * time.Millisecond)
	assert.Equal(t, len(persistedKeys), store.writeCount())

	// Nothing left to fire
	sched.Advance(time.Hour)
	assert.Equal(t, len(persistedKeys), store.writeCount())
}

func TestFlushPrunesOnQuota(t *testing.T) {
	store := newMemStore()
	tr := New(WithStore(store), WithScheduler(debounce.NewManualScheduler()))

	for i := 0; i < 80; i++ {
		require.NoError(t, tr.Record(SearchEvent(types.CategoryScholarships, fmt.Sprintf("q%d", i),
			[]string{fmt.Sprintf("rare%d", i), "merit"}, nil)))
	}
	require.NoError(t, tr.Record(ViewEvent(types.CategoryScholarships, "once")))

	store.failWrites = 1
	require.NoError(t, tr.Flush(context.Background()))

	assert.Len(t, tr.SearchHistory(), MaxSearchHistory/2)
	assert.Equal(t, 80, tr.KeywordWeight(types.CategoryScholarships, "merit"))
	assert.Equal(t, 0, tr.KeywordWeight(types.CategoryScholarships, "rare3"))
	assert.Equal(t, 0, tr.ItemViews(types.CategoryScholarships, "once"))
	assert.Equal(t, len(persistedKeys), store.writeCount())
}

func TestFlushGivesUpAfterOneRetry(t *testing.T) {
	store := newMemStore()
	tr := New(WithStore(store), WithScheduler(debounce.NewManualScheduler()))
	require.NoError(t, tr.Record(SearchEvent(types.CategoryScholarships, "q", nil, nil)))

	store.failWrites = 2
	err := tr.Flush(context.Background())
	assert.ErrorIs(t, err, storage.ErrQuotaExceeded)
	assert.Equal(t, 0, store.writeCount())

	// Recording still works after a failed flush
	assert.NoError(t, tr.Record(SearchEvent(types.CategoryScholarships, "again", nil, nil)))
}

func TestCloseFlushesPending(t *testing.T) {
	store := newMemStore()
	tr := New(WithStore(store), WithScheduler(debounce.NewManualScheduler()))
	require.NoError(t, tr.Record(ViewEvent(types.CategoryHackathons, "h")))

	require.NoError(t, tr.Close())
	assert.Equal(t, len(persistedKeys), store.writeCount())
	assert.Contains(t, store.values[KeyViewWeights], `"h":1`)
}

func TestLoadRoundTripSQLite(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	tr := New(WithStore(db), WithScheduler(debounce.NewManualScheduler()))
	require.NoError(t, tr.Record(SearchEvent(types.CategoryScholarships, "merit", []string{"merit"}, nil)))
	require.NoError(t, tr.Record(ViewEvent(types.CategoryScholarships, "nsp")))
	require.NoError(t, tr.Record(ClickEvent(types.CategoryScholarships, "nsp", "merit", 4)))
	require.NoError(t, tr.Record(FilterEvent(types.CategoryScholarships, types.FilterSource, "UGC")))
	require.NoError(t, tr.Flush(ctx))

	restored := New(WithStore(db))
	restored.Load(ctx)

	assert.Len(t, restored.SearchHistory(), 1)
	assert.Len(t, restored.ViewHistory(), 1)
	assert.Equal(t, 1, restored.KeywordWeight(types.CategoryScholarships, "merit"))
	assert.Equal(t, 1, restored.ItemViews(types.CategoryScholarships, "nsp"))
	assert.Equal(t, 2.0, restored.Clicks(types.CategoryScholarships, "nsp").AvgPosition)
	assert.Equal(t, 1, restored.FilterUsage(types.CategoryScholarships, types.FilterSource, "UGC"))
}

func TestLoadMalformedState(t *testing.T) {
	store := newMemStore()
	store.values[KeyPreferences] = "{not json"
	store.values[KeyViewWeights] = `{"workshops":{"w1":3}}`
	store.values[KeySearchHistory] = `[{"type":"search","category":"hackathons","query":"ai"}]`

	tr := New(WithStore(store))
	tr.Load(context.Background())

	// Malformed key falls back to defaults, others still load
	assert.Equal(t, 0, tr.KeywordWeight(types.CategoryScholarships, "merit"))
	assert.Equal(t, 3, tr.ItemViews(types.CategoryWorkshops, "w1"))
	assert.Equal(t, []string{"ai"}, tr.RecentQueries("", 5))

	// Categories missing from stored maps are usable
	require.NoError(t, tr.Record(ViewEvent(types.CategoryInternships, "i1")))
	require.NoError(t, tr.Record(SearchEvent(types.CategoryScholarships, "merit", []string{"merit"}, nil)))
	assert.Equal(t, 1, tr.ItemViews(types.CategoryInternships, "i1"))
	assert.Equal(t, 1, tr.KeywordWeight(types.CategoryScholarships, "merit"))
}

func TestConcurrentRecord(t *testing.T) {
	tr := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = tr.Record(ViewEvent(types.CategoryWorkshops, "w"))
				_ = tr.ItemViews(types.CategoryWorkshops, "w")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 400, tr.ItemViews(types.CategoryWorkshops, "w"))
}
