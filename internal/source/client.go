package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/marketscout/internal/cache"
	"github.com/ppiankov/marketscout/internal/logging"
	"github.com/ppiankov/marketscout/internal/metrics"
	"github.com/ppiankov/marketscout/internal/model"
	"github.com/ppiankov/marketscout/internal/util"
	"github.com/ppiankov/marketscout/internal/worker"
)

const maxResponseBytes = 2 << 20

// Searcher runs one source query against a search provider
type Searcher interface {
	Search(ctx context.Context, query model.SourceQuery) ([]model.RawResultItem, error)
}

// SearcherFunc adapts a function to Searcher
type SearcherFunc func(ctx context.Context, query model.SourceQuery) ([]model.RawResultItem, error)

func (f SearcherFunc) Search(ctx context.Context, query model.SourceQuery) ([]model.RawResultItem, error) {
	return f(ctx, query)
}

// StatusError is returned when the provider answers with a non-2xx status
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// searchSleepFunc waits between attempts; replaced in tests
var searchSleepFunc = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Client talks to a Serper-compatible search endpoint
type Client struct {
	httpClient *http.Client
	cfg        model.SearchConfig
	cache      cache.Cache
	cacheTTL   time.Duration
	limiter    *worker.Limiter
	metrics    *metrics.Collector
	logger     *zap.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithCache serves repeated queries from c for ttl
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(cl *Client) {
		cl.cache = c
		cl.cacheTTL = ttl
	}
}

// WithLimiter throttles provider calls
func WithLimiter(l *worker.Limiter) Option {
	return func(cl *Client) { cl.limiter = l }
}

// WithMetrics records request outcomes
func WithMetrics(m *metrics.Collector) Option {
	return func(cl *Client) { cl.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) { cl.logger = logging.OrNop(l) }
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(cl *Client) { cl.httpClient = hc }
}

// NewClient creates a search client from the search configuration
func NewClient(cfg model.SearchConfig, opts ...Option) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.ResultCount <= 0 {
		cfg.ResultCount = 10
	}

	c := &Client{
		httpClient: util.NewHTTPClient(cfg.Timeout, cfg.HTTPProxy, cfg.HTTPSProxy),
		cfg:        cfg,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type searchRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
	TBS string `json:"tbs"`
}

type searchResponse struct {
	Organic []organicResult `json:"organic"`
}

type organicResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
	Date    string `json:"date"`
}

// Search runs the query, consulting the cache first and retrying
// transient provider failures
func (c *Client) Search(ctx context.Context, query model.SourceQuery) ([]model.RawResultItem, error) {
	key := cache.SearchKey(query)
	if items, ok := c.cached(ctx, key); ok {
		return items, nil
	}

	start := time.Now()
	items, err := c.searchWithRetry(ctx, query)
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	c.metrics.ObserveSearch(string(query.Tag), outcome, time.Since(start))
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, items)
	return items, nil
}

func (c *Client) searchWithRetry(ctx context.Context, query model.SourceQuery) ([]model.RawResultItem, error) {
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(1<<(attempt-2)) * time.Second
			c.logger.Debug("retrying search",
				zap.String("source", string(query.Tag)),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			if err := searchSleepFunc(ctx, backoff); err != nil {
				return nil, err
			}
		}

		items, err := c.searchOnce(ctx, query)
		if err == nil {
			return items, nil
		}
		lastErr = err

		if ctx.Err() != nil || !isRetryableSearchError(err) {
			break
		}
	}

	return nil, lastErr
}

func (c *Client) searchOnce(ctx context.Context, query model.SourceQuery) ([]model.RawResultItem, error) {
	if err := c.limiter.Wait(ctx, c.cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(searchRequest{
		Q:   query.Query,
		Num: c.cfg.ResultCount,
		TBS: query.Recency.Token(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.cfg.APIKey)
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	var decoded searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	items := make([]model.RawResultItem, 0, len(decoded.Organic))
	for _, r := range decoded.Organic {
		items = append(items, model.RawResultItem{
			Title:   PlainText(r.Title),
			Snippet: PlainText(r.Snippet),
			Link:    strings.TrimSpace(r.Link),
			Date:    strings.TrimSpace(r.Date),
		})
	}

	return items, nil
}

func (c *Client) cached(ctx context.Context, key string) ([]model.RawResultItem, bool) {
	if c.cache == nil {
		return nil, false
	}

	raw, found := c.cache.Get(ctx, key)
	if found {
		var items []model.RawResultItem
		if err := json.Unmarshal(raw, &items); err == nil {
			c.metrics.ObserveCache(true)
			return items, true
		}
		_ = c.cache.Delete(ctx, key)
	}

	c.metrics.ObserveCache(false)
	return nil, false
}

func (c *Client) store(ctx context.Context, key string, items []model.RawResultItem) {
	if c.cache == nil {
		return
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.cacheTTL); err != nil {
		c.logger.Warn("failed to cache search response", zap.Error(err))
	}
}

// isRetryableSearchError reports whether a failed attempt is worth repeating
func isRetryableSearchError(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset")
}
