package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/eduportal/eduportal-search/internal/logger"
	"github.com/eduportal/eduportal-search/pkg/types"
)

const (
	// DefaultTrendingTimeout bounds one Fetch including retries
	DefaultTrendingTimeout = 5 * time.Second

	maxFeedBytes = 1 << 20
)

// TrendingClient fetches the remote trending feed. Fetch never fails: when the feed
// is slow or broken it returns the last good result, or nothing.
type TrendingClient struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      RetryConfig
	timeout    time.Duration
	logger     *zap.Logger

	group singleflight.Group

	mu       sync.RWMutex
	lastGood []types.Opportunity
	fetched  time.Time
}

// TrendingOption configures a TrendingClient
type TrendingOption func(*TrendingClient)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(c *http.Client) TrendingOption {
	return func(t *TrendingClient) { t.httpClient = c }
}

// WithTimeout bounds each Fetch call
func WithTimeout(d time.Duration) TrendingOption {
	return func(t *TrendingClient) { t.timeout = d }
}

// WithRetry sets the retry policy
func WithRetry(cfg RetryConfig) TrendingOption {
	return func(t *TrendingClient) { t.retry = cfg }
}

// WithRateLimit allows perSecond requests with the given burst
func WithRateLimit(perSecond float64, burst int) TrendingOption {
	return func(t *TrendingClient) { t.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// WithTrendingLogger sets the logger
func WithTrendingLogger(l *zap.Logger) TrendingOption {
	return func(t *TrendingClient) { t.logger = l }
}

// NewTrendingClient creates a client for the feed at url. An empty url disables it.
func NewTrendingClient(url string, opts ...TrendingOption) *TrendingClient {
	c := &TrendingClient{
		url:        url,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(1), 2),
		retry:      DefaultRetryConfig(),
		timeout:    DefaultTrendingTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logger.OrNop(c.logger)
	return c
}

// Name identifies the client as a catalog source
func (c *TrendingClient) Name() string { return "trending" }

// Opportunities returns the trending entries of category
func (c *TrendingClient) Opportunities(ctx context.Context, category types.Category) ([]types.Opportunity, error) {
	all := c.Fetch(ctx)
	out := make([]types.Opportunity, 0)
	for _, opp := range all {
		if opp.Category == category {
			out = append(out, opp)
		}
	}
	return out, nil
}

// Fetch returns the current trending list. Concurrent callers share one request.
func (c *TrendingClient) Fetch(ctx context.Context) []types.Opportunity {
	if c.url == "" {
		return []types.Opportunity{}
	}

	ch := c.group.DoChan("trending", func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		return retryWithBackoff(fetchCtx, c.retry, func() ([]types.Opportunity, error) {
			return c.fetchOnce(fetchCtx)
		})
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			c.logger.Warn("trending feed unavailable, serving last good result",
				zap.String("url", c.url), zap.Error(res.Err))
			return c.LastGood()
		}
		opps := res.Val.([]types.Opportunity)
		c.mu.Lock()
		c.lastGood = opps
		c.fetched = time.Now()
		c.mu.Unlock()
		return cloneAll(opps)
	case <-ctx.Done():
		return c.LastGood()
	}
}

// LastGood returns a copy of the last successful result
func (c *TrendingClient) LastGood() []types.Opportunity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneAll(c.lastGood)
}

// FetchedAt returns when the feed last succeeded
func (c *TrendingClient) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetched
}

func (c *TrendingClient) fetchOnce(ctx context.Context) ([]types.Opportunity, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, permanent(fmt.Errorf("rate limited: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("feed returned status %d: %s", resp.StatusCode, string(body))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, permanent(err)
		}
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read feed: %w", err)
	}

	opps, err := DecodeRecords(data, "")
	if err != nil {
		if len(opps) == 0 {
			return nil, permanent(err)
		}
		c.logger.Warn("skipping invalid trending records", zap.Error(err))
	}
	return opps, nil
}

func cloneAll(opps []types.Opportunity) []types.Opportunity {
	out := make([]types.Opportunity, len(opps))
	for i, opp := range opps {
		out[i] = opp.Clone()
	}
	return out
}

// errDisabled is reported by Status when no feed is configured
var errDisabled = errors.New("trending feed disabled")

// Status reports whether the feed is configured and when it last succeeded
func (c *TrendingClient) Status() (time.Time, error) {
	if c.url == "" {
		return time.Time{}, errDisabled
	}
	return c.FetchedAt(), nil
}
