// Package tracker records search, view, click and filter interactions and derives
// the preference counters used for personalization.
//
// State lives in memory behind one mutex. Every mutation schedules a debounced flush
// to a key/value Store; the last mutation within the quiet period wins.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eduportal/eduportal-search/internal/debounce"
	"github.com/eduportal/eduportal-search/internal/logger"
	"github.com/eduportal/eduportal-search/internal/storage"
	"github.com/eduportal/eduportal-search/pkg/types"
)

// DefaultFlushDelay is the quiet period before state is written
const DefaultFlushDelay = time.Second

// Store is the key/value persistence the tracker writes to
type Store interface {
	GetValue(ctx context.Context, key string) (string, error)
	SetValue(ctx context.Context, key, value string) error
}

// Tracker owns the interaction logs and preference profile for one session
type Tracker struct {
	mu    sync.Mutex
	state *state

	store    Store
	flusher  *debounce.Debouncer
	logger   *zap.Logger
	now      func() time.Time
	timeout  time.Duration
	flushMu  sync.Mutex
	flushErr error
}

// Option configures a Tracker
type Option func(*trackerOptions)

type trackerOptions struct {
	store     Store
	delay     time.Duration
	sched     debounce.Scheduler
	logger    *zap.Logger
	now       func() time.Time
	ioTimeout time.Duration
}

// WithStore persists state to s. Without a store the tracker is memory only.
func WithStore(s Store) Option {
	return func(o *trackerOptions) { o.store = s }
}

// WithFlushDelay sets the debounce window for persistence
func WithFlushDelay(d time.Duration) Option {
	return func(o *trackerOptions) { o.delay = d }
}

// WithScheduler sets the scheduler used for debounced flushes
func WithScheduler(s debounce.Scheduler) Option {
	return func(o *trackerOptions) { o.sched = s }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *trackerOptions) { o.logger = l }
}

// WithClock sets the time source for event timestamps
func WithClock(now func() time.Time) Option {
	return func(o *trackerOptions) { o.now = now }
}

// New creates a Tracker with empty state. Call Load to restore persisted state.
func New(opts ...Option) *Tracker {
	o := trackerOptions{
		delay:     DefaultFlushDelay,
		now:       time.Now,
		ioTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = logger.OrNop(o.logger)
	return &Tracker{
		state:   newState(),
		store:   o.store,
		flusher: debounce.New(o.delay, o.sched),
		logger:  o.logger,
		now:     o.now,
		timeout: o.ioTimeout,
	}
}

// Record applies an interaction. Invalid events are rejected; valid ones always
// succeed, persistence problems are only logged.
func (t *Tracker) Record(e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = t.now()
	}

	t.mu.Lock()
	switch e.Kind {
	case KindSearch:
		t.recordSearch(e)
	case KindView:
		t.recordView(e)
	case KindClick:
		t.recordClick(e)
	case KindFilter:
		t.recordFilter(e)
	}
	t.mu.Unlock()

	t.scheduleFlush()
	return nil
}

func (t *Tracker) recordSearch(e Event) {
	t.state.SearchHistory = appendCapped(t.state.SearchHistory, e, MaxSearchHistory)

	prefs := t.state.Preferences[e.Category]
	for _, kw := range e.Keywords {
		prefs.Keywords[kw]++
	}
	for field, value := range e.Filters {
		prefs.Filters[string(field)+":"+value]++
	}
}

func (t *Tracker) recordView(e Event) {
	t.state.ViewHistory = appendCapped(t.state.ViewHistory, e, MaxViewHistory)
	t.state.ViewWeights[e.Category][e.ItemID]++
}

// recordClick keeps a smoothed position: each click halves the distance to the new
// position rather than computing a true mean
func (t *Tracker) recordClick(e Event) {
	stats := t.state.ClickThrough[e.Category][e.ItemID]
	if stats == nil {
		stats = &ClickStats{}
		t.state.ClickThrough[e.Category][e.ItemID] = stats
	}
	stats.Clicks++
	stats.Impressions++
	stats.AvgPosition = (stats.AvgPosition + float64(e.Position)) / 2
}

func (t *Tracker) recordFilter(e Event) {
	usage := t.state.FilterUsage[e.Category]
	values := usage[e.FilterName]
	if values == nil {
		values = make(map[string]int)
		usage[e.FilterName] = values
	}
	values[e.FilterValue]++
}

// ItemViews returns how often itemID was viewed in category
func (t *Tracker) ItemViews(category types.Category, itemID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.ViewWeights[category][itemID]
}

// CategoryViews returns the total number of views recorded in category
func (t *Tracker) CategoryViews(category types.Category) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := 0
	for _, n := range t.state.ViewWeights[category] {
		total += n
	}
	return total
}

// Clicks returns the click aggregate for itemID in category
func (t *Tracker) Clicks(category types.Category, itemID string) ClickStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	if stats := t.state.ClickThrough[category][itemID]; stats != nil {
		return *stats
	}
	return ClickStats{}
}

// KeywordWeight returns how often keyword was searched for in category
func (t *Tracker) KeywordWeight(category types.Category, keyword string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p := t.state.Preferences[category]; p != nil {
		return p.Keywords[keyword]
	}
	return 0
}

// FilterUsage returns how often field=value was applied in category
func (t *Tracker) FilterUsage(category types.Category, field types.FilterField, value string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.FilterUsage[category][string(field)][value]
}

// SearchHistory returns a copy of the search log, oldest first
func (t *Tracker) SearchHistory() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Event(nil), t.state.SearchHistory...)
}

// ViewHistory returns a copy of the view log, oldest first
func (t *Tracker) ViewHistory() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Event(nil), t.state.ViewHistory...)
}

// RecentQueries returns up to limit distinct non-empty search queries, newest first.
// An empty category matches every category.
func (t *Tracker) RecentQueries(category types.Category, limit int) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	seen := make(map[string]struct{})
	queries := make([]string, 0)
	for i := len(t.state.SearchHistory) - 1; i >= 0 && len(queries) < limit; i-- {
		e := t.state.SearchHistory[i]
		if e.Query == "" || (category != "" && e.Category != category) {
			continue
		}
		if _, ok := seen[e.Query]; ok {
			continue
		}
		seen[e.Query] = struct{}{}
		queries = append(queries, e.Query)
	}
	return queries
}

// TopKeywords returns the n most searched keywords for category, heaviest first
func (t *Tracker) TopKeywords(category types.Category, n int) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.state.Preferences[category]
	if p == nil {
		return nil
	}
	keywords := make([]string, 0, len(p.Keywords))
	for kw := range p.Keywords {
		keywords = append(keywords, kw)
	}
	sort.Slice(keywords, func(i, j int) bool {
		wi, wj := p.Keywords[keywords[i]], p.Keywords[keywords[j]]
		if wi != wj {
			return wi > wj
		}
		return keywords[i] < keywords[j]
	})
	if len(keywords) > n {
		keywords = keywords[:n]
	}
	return keywords
}

// Persistence

func (t *Tracker) scheduleFlush() {
	if t.store == nil {
		return
	}
	t.flusher.Trigger(func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		if err := t.Flush(ctx); err != nil {
			t.logger.Error("failed to persist interaction state", zap.Error(err))
		}
	})
}

// Close writes any pending state
func (t *Tracker) Close() error {
	if t.flusher.Flush() {
		t.flushMu.Lock()
		defer t.flushMu.Unlock()
		return t.flushErr
	}
	return nil
}

// Flush writes the full state to the store. When the store reports the quota is
// exhausted the state is pruned and the write retried once.
func (t *Tracker) Flush(ctx context.Context) error {
	if t.store == nil {
		return nil
	}
	t.flushMu.Lock()
	defer t.flushMu.Unlock()

	err := t.writeSnapshot(ctx)
	if errors.Is(err, storage.ErrQuotaExceeded) {
		t.mu.Lock()
		t.state.prune()
		t.mu.Unlock()
		t.logger.Warn("storage quota exceeded, pruned interaction state", zap.Error(err))
		err = t.writeSnapshot(ctx)
	}
	t.flushErr = err
	return err
}

func (t *Tracker) writeSnapshot(ctx context.Context) error {
	values, err := t.snapshot()
	if err != nil {
		return err
	}
	for _, key := range persistedKeys {
		if err := t.store.SetValue(ctx, key, values[key]); err != nil {
			return fmt.Errorf("failed to write %s: %w", key, err)
		}
	}
	return nil
}

var persistedKeys = []string{
	KeySearchHistory,
	KeyViewHistory,
	KeyPreferences,
	KeyViewWeights,
	KeyClickThrough,
	KeyFilterUsage,
}

func (t *Tracker) snapshot() (map[string]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	parts := map[string]interface{}{
		KeySearchHistory: t.state.SearchHistory,
		KeyViewHistory:   t.state.ViewHistory,
		KeyPreferences:   t.state.Preferences,
		KeyViewWeights:   t.state.ViewWeights,
		KeyClickThrough:  t.state.ClickThrough,
		KeyFilterUsage:   t.state.FilterUsage,
	}
	values := make(map[string]string, len(parts))
	for key, v := range parts {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", key, err)
		}
		values[key] = string(data)
	}
	return values, nil
}

// Load restores persisted state. Missing or malformed values fall back to empty
// defaults, and categories absent from the stored maps are filled in.
func (t *Tracker) Load(ctx context.Context) {
	if t.store == nil {
		return
	}
	s := &state{}
	targets := map[string]interface{}{
		KeySearchHistory: &s.SearchHistory,
		KeyViewHistory:   &s.ViewHistory,
		KeyPreferences:   &s.Preferences,
		KeyViewWeights:   &s.ViewWeights,
		KeyClickThrough:  &s.ClickThrough,
		KeyFilterUsage:   &s.FilterUsage,
	}
	for _, key := range persistedKeys {
		raw, err := t.store.GetValue(ctx, key)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				t.logger.Warn("failed to read interaction state", zap.String("key", key), zap.Error(err))
			}
			continue
		}
		if err := json.Unmarshal([]byte(raw), targets[key]); err != nil {
			t.logger.Warn("discarding malformed interaction state", zap.String("key", key), zap.Error(err))
			resetTarget(s, key)
		}
	}

	s.SearchHistory = keepNewest(s.SearchHistory, MaxSearchHistory)
	s.ViewHistory = keepNewest(s.ViewHistory, MaxViewHistory)
	s.fillDefaults()

	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// resetTarget clears a field that a failed decode may have partially filled
func resetTarget(s *state, key string) {
	switch key {
	case KeySearchHistory:
		s.SearchHistory = nil
	case KeyViewHistory:
		s.ViewHistory = nil
	case KeyPreferences:
		s.Preferences = nil
	case KeyViewWeights:
		s.ViewWeights = nil
	case KeyClickThrough:
		s.ClickThrough = nil
	case KeyFilterUsage:
		s.FilterUsage = nil
	}
}
