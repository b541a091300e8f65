// Package metrics exposes prometheus instrumentation for scout runs.
// A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric names
const (
	MetricSourceRequestsTotal     = "marketscout_source_requests_total"
	MetricSearchDurationSeconds   = "marketscout_search_duration_seconds"
	MetricBriefsTotal             = "marketscout_briefs_total"
	MetricAlertsTotal             = "marketscout_alerts_total"
	MetricWebhookDeliveriesTotal  = "marketscout_webhook_deliveries_total"
	MetricSearchCacheLookupsTotal = "marketscout_search_cache_lookups_total"
)

// Collector owns a private registry with all marketscout metrics
type Collector struct {
	registry          *prometheus.Registry
	sourceRequests    *prometheus.CounterVec
	searchDuration    *prometheus.HistogramVec
	briefs            *prometheus.CounterVec
	alerts            *prometheus.CounterVec
	webhookDeliveries *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
}

// NewCollector creates a collector backed by a fresh registry
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		sourceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricSourceRequestsTotal,
			Help: "Search provider requests by source and outcome.",
		}, []string{"source", "outcome"}),
		searchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricSearchDurationSeconds,
			Help:    "Search provider request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		briefs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricBriefsTotal,
			Help: "Briefs produced by outcome (insight, error).",
		}, []string{"outcome"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricAlertsTotal,
			Help: "Alerts raised by type.",
		}, []string{"type"}),
		webhookDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricWebhookDeliveriesTotal,
			Help: "Webhook deliveries by outcome.",
		}, []string{"outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricSearchCacheLookupsTotal,
			Help: "Search cache lookups by result (hit, miss).",
		}, []string{"result"}),
	}

	registry.MustRegister(
		c.sourceRequests,
		c.searchDuration,
		c.briefs,
		c.alerts,
		c.webhookDeliveries,
		c.cacheLookups,
	)

	return c
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler returns an HTTP handler serving the registry
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveSearch records one search provider call
func (c *Collector) ObserveSearch(source string, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.sourceRequests.WithLabelValues(source, outcome).Inc()
	c.searchDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// ObserveCache records a search cache lookup
func (c *Collector) ObserveCache(hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveBrief records a finished brief
func (c *Collector) ObserveBrief(hasInsight bool) {
	if c == nil {
		return
	}
	outcome := "error"
	if hasInsight {
		outcome = "insight"
	}
	c.briefs.WithLabelValues(outcome).Inc()
}

// ObserveAlert records a raised alert
func (c *Collector) ObserveAlert(alertType string) {
	if c == nil {
		return
	}
	c.alerts.WithLabelValues(alertType).Inc()
}

// ObserveWebhook records a webhook delivery attempt
func (c *Collector) ObserveWebhook(ok bool) {
	if c == nil {
		return
	}
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	c.webhookDeliveries.WithLabelValues(outcome).Inc()
}
