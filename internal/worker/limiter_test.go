package worker

import (
	"context"
	"testing"
	"time"

	"github.com/ppiankov/marketscout/internal/model"
)

func shortContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	t.Cleanup(cancel)
	return ctx
}

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_ZeroRateIsUnlimited(t *testing.T) {
	limiter := NewLimiterFromConfig(model.RateLimitingConfig{RequestsPerSecond: 0, BurstSize: 1})
	ctx := shortContext(t)

	for i := 0; i < 20; i++ {
		if err := limiter.Wait(ctx, "https://google.serper.dev/search"); err != nil {
			t.Fatalf("request %d should pass with unlimited rate: %v", i, err)
		}
	}
}

func TestLimiter_NilNeverBlocks(t *testing.T) {
	var limiter *Limiter

	for i := 0; i < 3; i++ {
		if err := limiter.Wait(shortContext(t), "https://google.serper.dev/search"); err != nil {
			t.Errorf("nil limiter wait failed: %v", err)
		}
	}
}

func TestLimiter_PerHost(t *testing.T) {
	limiter := NewLimiter(1, 1)
	endpoint := "https://google.serper.dev/search"

	if err := limiter.Wait(context.Background(), endpoint); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	// Burst of one is consumed; the refill takes a second
	if err := limiter.Wait(shortContext(t), endpoint); err == nil {
		t.Errorf("expected second wait on the same host to fail")
	}

	if err := limiter.Wait(shortContext(t), "https://discord.com/api/webhooks/1/abc"); err != nil {
		t.Errorf("expected another host to pass: %v", err)
	}
}

func TestLimiter_WaitHonorsContext(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	endpoint := "https://google.serper.dev/search"

	if err := limiter.Wait(context.Background(), endpoint); err != nil {
		t.Fatalf("first request should pass: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Wait(ctx, endpoint); err == nil {
		t.Errorf("expected wait to fail on a cancelled context")
	}
}

func TestLimiter_InvalidURL(t *testing.T) {
	limiter := NewLimiter(10, 5)

	if err := limiter.Wait(context.Background(), "::invalid"); err == nil {
		t.Errorf("expected error for invalid URL")
	}
}

func TestExtractHost(t *testing.T) {
	host, err := extractHost("https://google.serper.dev/search")
	if err != nil {
		t.Fatalf("extractHost failed: %v", err)
	}
	if host != "google.serper.dev" {
		t.Errorf("expected google.serper.dev, got %s", host)
	}

	if _, err := extractHost("::invalid"); err == nil {
		t.Errorf("expected error for invalid URL")
	}
}
