package searcher

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eduportal/eduportal-search/internal/cache"
	"github.com/eduportal/eduportal-search/internal/debounce"
	"github.com/eduportal/eduportal-search/internal/logger"
	"github.com/eduportal/eduportal-search/internal/query"
	"github.com/eduportal/eduportal-search/internal/scorer"
	"github.com/eduportal/eduportal-search/internal/tracker"
	"github.com/eduportal/eduportal-search/pkg/types"
)

const (
	// DefaultTypeaheadDelay is the quiet period before a typed query is searched
	DefaultTypeaheadDelay = 300 * time.Millisecond

	// DefaultRecommendLimit is used when Recommend is called without a limit
	DefaultRecommendLimit = 5
)

// Catalog supplies candidate sets per category
type Catalog interface {
	GetCategory(ctx context.Context, category types.Category) []types.Opportunity
}

// TrendingFeed supplies the remote trending list, whole or by category
type TrendingFeed interface {
	Fetch(ctx context.Context) []types.Opportunity
	Opportunities(ctx context.Context, category types.Category) ([]types.Opportunity, error)
}

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Category  types.Category
	Query     string
	Filters   types.Filters
	Limit     int  // Maximum results returned, 0 for all
	SkipCache bool // Bypass the result cache
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Category     types.Category
	Query        string // Normalized query; empty for the unscored listing
	Results      []types.ScoredResult
	TotalResults int // Matches before Limit was applied
	Duration     time.Duration
	CacheHit     bool
	Unscored     bool // Blank query: the category listing in catalog order
}

// Searcher is the search entry point for one session. It owns the result caches
// and the interaction tracker that personalizes scores.
type Searcher struct {
	catalog  Catalog
	trending TrendingFeed
	scorer   *scorer.Scorer
	tracker  *tracker.Tracker
	caches   map[types.Category]*cache.Cache
	logger   *zap.Logger

	typeahead *debounce.Debouncer

	maintMu   sync.Mutex
	stopMaint context.CancelFunc
	maintDone chan struct{}
}

// Option configures a Searcher
type Option func(*options)

type options struct {
	trending       TrendingFeed
	scorer         *scorer.Scorer
	tracker        *tracker.Tracker
	cacheOpts      []cache.Option
	typeaheadDelay time.Duration
	sched          debounce.Scheduler
	logger         *zap.Logger
}

// WithTrending sets the trending feed
func WithTrending(t TrendingFeed) Option {
	return func(o *options) { o.trending = t }
}

// WithScorer replaces the default scorer
func WithScorer(s *scorer.Scorer) Option {
	return func(o *options) { o.scorer = s }
}

// WithTracker sets the interaction tracker. Without one a memory-only tracker is used.
func WithTracker(t *tracker.Tracker) Option {
	return func(o *options) { o.tracker = t }
}

// WithCacheOptions configures every per-category cache
func WithCacheOptions(opts ...cache.Option) Option {
	return func(o *options) { o.cacheOpts = append(o.cacheOpts, opts...) }
}

// WithTypeaheadDelay sets the typeahead debounce window
func WithTypeaheadDelay(d time.Duration) Option {
	return func(o *options) { o.typeaheadDelay = d }
}

// WithScheduler sets the scheduler for typeahead debouncing
func WithScheduler(s debounce.Scheduler) Option {
	return func(o *options) { o.sched = s }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates a Searcher over catalog
func New(catalog Catalog, opts ...Option) *Searcher {
	o := options{
		typeaheadDelay: DefaultTypeaheadDelay,
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = logger.OrNop(o.logger)
	if o.scorer == nil {
		o.scorer = scorer.New()
	}
	if o.tracker == nil {
		o.tracker = tracker.New(tracker.WithLogger(o.logger))
	}

	caches := make(map[types.Category]*cache.Cache, len(types.AllCategories))
	for _, c := range types.AllCategories {
		caches[c] = cache.New(o.cacheOpts...)
	}

	return &Searcher{
		catalog:   catalog,
		trending:  o.trending,
		scorer:    o.scorer,
		tracker:   o.tracker,
		caches:    caches,
		logger:    o.logger,
		typeahead: debounce.New(o.typeaheadDelay, o.sched),
	}
}

// Tracker returns the interaction tracker
func (s *Searcher) Tracker() *tracker.Tracker {
	return s.tracker
}

// Search ranks the category's candidates against the query. Only malformed
// requests return an error; an empty catalog yields an empty response.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if err := s.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	// Blank query lists the category unscored, bypassing cache and tracking
	if strings.TrimSpace(req.Query) == "" {
		candidates := s.catalog.GetCategory(ctx, req.Category)
		results := make([]types.ScoredResult, len(candidates))
		for i, opp := range candidates {
			results[i] = types.ScoredResult{Opportunity: opp, Rank: i + 1}
		}
		return s.finish(req, "", results, false, true, startTime), nil
	}

	// Filtered searches are never cached since the key is the query alone
	useCache := !req.SkipCache && len(req.Filters) == 0
	if useCache {
		if cached, ok := s.caches[req.Category].Get(req.Query); ok {
			return s.finish(req, query.Normalize(req.Query), cached, true, false, startTime), nil
		}
	}

	parsed := query.Parse(req.Query)
	candidates := s.catalog.GetCategory(ctx, req.Category)

	// Search is recorded even when nothing matches
	event := tracker.SearchEvent(req.Category, parsed.Original, parsed.Keywords, req.Filters)
	if err := s.tracker.Record(event); err != nil {
		s.logger.Warn("failed to record search", zap.Error(err))
	}

	results := s.rank(candidates, scorer.FromParsed(parsed, req.Filters))

	if useCache {
		s.caches[req.Category].Put(req.Query, results)
	}
	return s.finish(req, parsed.Original, results, false, false, startTime), nil
}

// rank scores every candidate, keeps positive scores and sorts them descending.
// Equal scores keep catalog order.
func (s *Searcher) rank(candidates []types.Opportunity, q *scorer.Query) []types.ScoredResult {
	results := make([]types.ScoredResult, 0, len(candidates))
	for _, opp := range candidates {
		score := s.scorer.Score(opp, q, s.tracker)
		if score <= 0 {
			continue
		}
		results = append(results, types.ScoredResult{Opportunity: opp, Score: score})
	}

	sortResults(results)
	return results
}

func sortResults(results []types.ScoredResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	for i := range results {
		results[i].Rank = i + 1
	}
}

func (s *Searcher) finish(req SearchRequest, normalized string, results []types.ScoredResult,
	cacheHit, unscored bool, startTime time.Time) *SearchResponse {

	total := len(results)
	if req.Limit > 0 && len(results) > req.Limit {
		results = results[:req.Limit]
	}
	return &SearchResponse{
		Category:     req.Category,
		Query:        normalized,
		Results:      results,
		TotalResults: total,
		Duration:     time.Since(startTime),
		CacheHit:     cacheHit,
		Unscored:     unscored,
	}
}

// validateRequest validates a search request
func (s *Searcher) validateRequest(req *SearchRequest) error {
	if !req.Category.Valid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidCategory, req.Category)
	}
	if req.Limit < 0 {
		return fmt.Errorf("limit must be >= 0, got %d", req.Limit)
	}
	if len(req.Filters) > 0 {
		if err := req.Filters.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SearchAll runs the query against every category concurrently
func (s *Searcher) SearchAll(ctx context.Context, rawQuery string, filters types.Filters, limit int) (map[types.Category]*SearchResponse, error) {
	responses := make([]*SearchResponse, len(types.AllCategories))

	g, gctx := errgroup.WithContext(ctx)
	for i, category := range types.AllCategories {
		g.Go(func() error {
			resp, err := s.Search(gctx, SearchRequest{
				Category: category,
				Query:    rawQuery,
				Filters:  filters,
				Limit:    limit,
			})
			if err != nil {
				return fmt.Errorf("search %s: %w", category, err)
			}
			responses[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[types.Category]*SearchResponse, len(responses))
	for i, category := range types.AllCategories {
		out[category] = responses[i]
	}
	return out, nil
}

// Explain returns the score breakdown for the opportunity with id in the category's
// candidate set, and whether it was found
func (s *Searcher) Explain(ctx context.Context, req SearchRequest, id string) (scorer.Breakdown, bool, error) {
	if err := s.validateRequest(&req); err != nil {
		return scorer.Breakdown{}, false, fmt.Errorf("invalid search request: %w", err)
	}
	q := scorer.FromParsed(query.Parse(req.Query), req.Filters)
	for _, opp := range s.catalog.GetCategory(ctx, req.Category) {
		if opp.ID == id {
			return s.scorer.Explain(opp, q, s.tracker), true, nil
		}
	}
	return scorer.Breakdown{}, false, nil
}

// Record passes an interaction to the tracker
func (s *Searcher) Record(e tracker.Event) error {
	return s.tracker.Record(e)
}

// Analytics returns the tracker's activity summary
func (s *Searcher) Analytics() tracker.Analytics {
	return s.tracker.Analytics()
}

// Recommend ranks the category by engagement: item views, clicks, the official
// flag and recency. Ties keep catalog order.
func (s *Searcher) Recommend(ctx context.Context, category types.Category, limit int) ([]types.ScoredResult, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidCategory, category)
	}
	if limit <= 0 {
		limit = DefaultRecommendLimit
	}

	candidates := s.catalog.GetCategory(ctx, category)
	results := make([]types.ScoredResult, 0, len(candidates))
	for _, opp := range candidates {
		results = append(results, types.ScoredResult{
			Opportunity: opp,
			Score:       s.recommendScore(opp),
		})
	}

	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Recommendation weights
const (
	recommendViewWeight     = 2.0
	recommendClickWeight    = 3.0
	recommendOfficialWeight = 5.0
)

func (s *Searcher) recommendScore(opp types.Opportunity) float64 {
	score := recommendViewWeight*float64(s.tracker.ItemViews(opp.Category, opp.ID)) +
		recommendClickWeight*float64(s.tracker.Clicks(opp.Category, opp.ID).Clicks) +
		s.scorer.Recency(opp)
	if opp.IsOfficial() {
		score += recommendOfficialWeight
	}
	return score
}

// Trending returns the remote trending list, optionally restricted to a category.
// Without a configured feed the list is empty.
func (s *Searcher) Trending(ctx context.Context, category types.Category) []types.Opportunity {
	if s.trending == nil {
		return []types.Opportunity{}
	}
	if category == "" {
		return s.trending.Fetch(ctx)
	}
	opps, err := s.trending.Opportunities(ctx, category)
	if err != nil {
		s.logger.Warn("trending feed unavailable",
			zap.String("category", string(category)), zap.Error(err))
		return []types.Opportunity{}
	}
	return opps
}

// Typeahead schedules a search for a query being typed. Each call supersedes the
// pending one; deliver receives the response of the last call once typing pauses.
func (s *Searcher) Typeahead(req SearchRequest, deliver func(*SearchResponse, error)) {
	s.typeahead.Trigger(func() {
		resp, err := s.Search(context.Background(), req)
		deliver(resp, err)
	})
}

// CancelTypeahead drops a pending typeahead search
func (s *Searcher) CancelTypeahead() {
	s.typeahead.Cancel()
}

// SweepCaches removes expired entries from every category cache
func (s *Searcher) SweepCaches() int {
	removed := 0
	for _, c := range types.AllCategories {
		removed += s.caches[c].Sweep()
	}
	return removed
}

// InvalidateCache empties every category cache, e.g. after a catalog import
func (s *Searcher) InvalidateCache() {
	for _, c := range types.AllCategories {
		s.caches[c].Purge()
	}
}

// CacheSize returns the number of cached queries across categories
func (s *Searcher) CacheSize() int {
	n := 0
	for _, c := range types.AllCategories {
		n += s.caches[c].Len()
	}
	return n
}

// StartMaintenance sweeps the caches every interval until ctx ends or Close is called
func (s *Searcher) StartMaintenance(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.maintMu.Lock()
	defer s.maintMu.Unlock()
	if s.stopMaint != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.stopMaint = cancel
	s.maintDone = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.SweepCaches(); n > 0 {
					s.logger.Debug("swept expired cache entries", zap.Int("removed", n))
				}
			}
		}
	}()
}

// Close stops maintenance, drops pending typeahead work and flushes the tracker
func (s *Searcher) Close() error {
	s.maintMu.Lock()
	if s.stopMaint != nil {
		s.stopMaint()
		<-s.maintDone
		s.stopMaint = nil
	}
	s.maintMu.Unlock()

	s.typeahead.Cancel()
	return s.tracker.Close()
}
