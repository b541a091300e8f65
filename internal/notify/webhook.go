// Package notify delivers scout results to chat webhooks and alert streams.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/marketscout/internal/logging"
	"github.com/ppiankov/marketscout/internal/metrics"
	"github.com/ppiankov/marketscout/internal/model"
	"github.com/ppiankov/marketscout/internal/util"
	"github.com/ppiankov/marketscout/internal/worker"
)

// EmbedColor is the accent color of rich webhook embeds
const EmbedColor = 0x00F2FF

// richHostToken selects the embed payload when present in the destination host
const richHostToken = "discord"

// WebhookDispatcher posts brief batches to a webhook URL
type WebhookDispatcher struct {
	httpClient *http.Client
	timeout    time.Duration
	limiter    *worker.Limiter
	metrics    *metrics.Collector
	logger     *zap.Logger
}

// NewWebhookDispatcher creates a dispatcher whose deliveries time out after timeout
func NewWebhookDispatcher(timeout time.Duration, limiter *worker.Limiter, collector *metrics.Collector, logger *zap.Logger) *WebhookDispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookDispatcher{
		httpClient: util.NewHTTPClient(timeout, "", ""),
		timeout:    timeout,
		limiter:    limiter,
		metrics:    collector,
		logger:     logging.OrNop(logger),
	}
}

type textPayload struct {
	Text string `json:"text"`
}

type embedPayload struct {
	Embeds []embed `json:"embeds"`
}

type embed struct {
	Title  string       `json:"title"`
	Color  int          `json:"color"`
	Fields []embedField `json:"fields"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Dispatch delivers briefs to destination and reports whether the
// endpoint answered 2xx. Errors are logged, never returned.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, destination string, query string, briefs []model.Brief) bool {
	ok, err := d.deliver(ctx, destination, query, briefs)
	if err != nil {
		d.logger.Warn("webhook delivery failed",
			zap.String("host", hostOf(destination)),
			zap.Error(err))
	}
	d.metrics.ObserveWebhook(ok)
	return ok
}

func (d *WebhookDispatcher) deliver(ctx context.Context, destination string, query string, briefs []model.Brief) (bool, error) {
	body, err := BuildPayload(destination, query, briefs)
	if err != nil {
		return false, err
	}

	if err := d.limiter.Wait(ctx, destination); err != nil {
		return false, fmt.Errorf("rate limit: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}
	return true, nil
}

// BuildPayload encodes the payload shape matching destination's host
func BuildPayload(destination string, query string, briefs []model.Brief) ([]byte, error) {
	if IsRichDestination(destination) {
		return json.Marshal(richPayload(query, briefs))
	}
	return json.Marshal(textPayload{Text: TextSummary(query, briefs)})
}

// IsRichDestination reports whether the destination host takes embeds
func IsRichDestination(destination string) bool {
	return strings.Contains(strings.ToLower(hostOf(destination)), richHostToken)
}

// TextSummary renders the generic payload text, one line per brief
func TextSummary(query string, briefs []model.Brief) string {
	lines := make([]string, 0, len(briefs)+1)
	lines = append(lines, fmt.Sprintf("Market Scout report: %s", query))
	for _, b := range briefs {
		if b.Insight == nil {
			lines = append(lines, fmt.Sprintf("%s: %s", b.Company, b.Error))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %d%% %s | Velocity: %s",
			b.Company, b.Insight.Sentiment, b.Insight.Status, b.Insight.Velocity))
	}
	return strings.Join(lines, "\n")
}

func richPayload(query string, briefs []model.Brief) embedPayload {
	fields := make([]embedField, 0, len(briefs))
	for _, b := range briefs {
		value := b.Error
		if b.Insight != nil {
			value = fmt.Sprintf("Sentiment: %d%% (%s)\nVelocity: %s",
				b.Insight.Sentiment, b.Insight.Status, b.Insight.Velocity)
		}
		if value == "" {
			value = "No data"
		}
		fields = append(fields, embedField{Name: b.Company, Value: value})
	}

	return embedPayload{
		Embeds: []embed{{
			Title:  fmt.Sprintf("Market Scout: %s", query),
			Color:  EmbedColor,
			Fields: fields,
		}},
	}
}

func hostOf(destination string) string {
	parsed, err := url.Parse(destination)
	if err != nil {
		return ""
	}
	return parsed.Host
}
