package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/marketscout/internal/cache"
	"github.com/ppiankov/marketscout/internal/metrics"
	"github.com/ppiankov/marketscout/internal/model"
)

func noSleep(t *testing.T) {
	t.Helper()
	orig := searchSleepFunc
	searchSleepFunc = func(context.Context, time.Duration) error { return nil }
	t.Cleanup(func() { searchSleepFunc = orig })
}

func testConfig(endpoint string) model.SearchConfig {
	return model.SearchConfig{
		Endpoint:    endpoint,
		APIKey:      "test-key",
		ResultCount: 10,
		Timeout:     5 * time.Second,
		MaxAttempts: 3,
		UserAgent:   "test-agent",
	}
}

var githubQuery = model.SourceQuery{
	Tag:     model.SourceGitHub,
	Query:   `"Acme" site:github.com release OR commit OR repository`,
	Recency: model.RecencyWeek,
}

func TestSearch_RequestShape(t *testing.T) {
	var got searchRequest
	var apiKey, contentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		apiKey = r.Header.Get("X-API-KEY")
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = fmt.Fprint(w, `{"organic":[{"title":"<b>Acme</b> v2","snippet":"Acme ships","link":"https://github.com/acme/acme","date":"2 days ago"},{"title":"Other"}]}`)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	items, err := client.Search(context.Background(), githubQuery)
	require.NoError(t, err)

	assert.Equal(t, "test-key", apiKey)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, githubQuery.Query, got.Q)
	assert.Equal(t, 10, got.Num)
	assert.Equal(t, "qdr:w", got.TBS)

	require.Len(t, items, 2)
	assert.Equal(t, model.RawResultItem{
		Title:   "Acme v2",
		Snippet: "Acme ships",
		Link:    "https://github.com/acme/acme",
		Date:    "2 days ago",
	}, items[0])
	assert.Equal(t, model.RawResultItem{Title: "Other"}, items[1], "missing fields default to empty")
}

func TestSearch_MissingOrganicIsZeroResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"searchParameters":{"q":"x"}}`)
	}))
	defer server.Close()

	items, err := NewClient(testConfig(server.URL)).Search(context.Background(), githubQuery)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSearch_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `not json`)
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL)).Search(context.Background(), githubQuery)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestSearch_TransientThenSuccess(t *testing.T) {
	noSleep(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, `{"organic":[{"title":"Acme"}]}`)
	}))
	defer server.Close()

	items, err := NewClient(testConfig(server.URL)).Search(context.Background(), githubQuery)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestSearch_PermanentFailure(t *testing.T) {
	noSleep(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL)).Search(context.Background(), githubQuery)
	require.Error(t, err)
	assert.Equal(t, "unexpected status: 401 401 Unauthorized", err.Error())
	assert.Equal(t, int32(1), attempts.Load(), "401 is not retryable")
}

func TestSearch_AllRetriesExhausted(t *testing.T) {
	noSleep(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL)).Search(context.Background(), githubQuery)
	require.Error(t, err)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestSearch_PerCallDeadline(t *testing.T) {
	noSleep(t)

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	cfg := testConfig(server.URL)
	cfg.Timeout = 50 * time.Millisecond
	cfg.MaxAttempts = 1

	start := time.Now()
	_, err := NewClient(cfg).Search(context.Background(), githubQuery)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSearch_CacheHit(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		_, _ = fmt.Fprint(w, `{"organic":[{"title":"Acme"}]}`)
	}))
	defer server.Close()

	collector := metrics.NewCollector()
	client := NewClient(testConfig(server.URL),
		WithCache(cache.NewMemoryCache(time.Minute, time.Minute), time.Minute),
		WithMetrics(collector))

	for i := 0; i < 3; i++ {
		items, err := client.Search(context.Background(), githubQuery)
		require.NoError(t, err)
		require.Len(t, items, 1)
	}

	assert.Equal(t, int32(1), attempts.Load())
	assert.Equal(t, 2.0, cacheLookups(t, collector, "hit"))
	assert.Equal(t, 1.0, cacheLookups(t, collector, "miss"))
}

func cacheLookups(t *testing.T, collector *metrics.Collector, result string) float64 {
	t.Helper()
	families, err := collector.Registry().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != metrics.MetricSearchCacheLookupsTotal {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "result" && label.GetValue() == result {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestIsRetryableSearchError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"503", &StatusError{Code: 503, Status: "503 Service Unavailable"}, true},
		{"500", &StatusError{Code: 500, Status: "500 Internal Server Error"}, true},
		{"429", &StatusError{Code: 429, Status: "429 Too Many Requests"}, true},
		{"wrapped 502", fmt.Errorf("search: %w", &StatusError{Code: 502}), true},
		{"404", &StatusError{Code: 404, Status: "404 Not Found"}, false},
		{"403", &StatusError{Code: 403, Status: "403 Forbidden"}, false},
		{"connection refused", fmt.Errorf("search: connection refused"), true},
		{"connection reset", fmt.Errorf("search: connection reset by peer"), true},
		{"deadline", fmt.Errorf("search: %w", context.DeadlineExceeded), true},
		{"create request", fmt.Errorf("create request: invalid URL"), false},
		{"decode", fmt.Errorf("decode response: unexpected EOF"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableSearchError(tt.err); got != tt.retryable {
				t.Errorf("isRetryableSearchError(%v) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}
}
