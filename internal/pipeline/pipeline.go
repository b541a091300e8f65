package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/marketscout/internal/cache"
	"github.com/ppiankov/marketscout/internal/extract"
	"github.com/ppiankov/marketscout/internal/logging"
	"github.com/ppiankov/marketscout/internal/metrics"
	"github.com/ppiankov/marketscout/internal/model"
	"github.com/ppiankov/marketscout/internal/score"
	"github.com/ppiankov/marketscout/internal/source"
	"github.com/ppiankov/marketscout/internal/worker"
)

// Date range labels
const (
	LiveDateRange      = "Last 7 Days (Live)"
	SimulatedDateRange = "Demo Mode (Enhanced Simulation)"
)

// FailureMessage is the error text of a brief whose pipeline broke unexpectedly
const FailureMessage = "Search failed. Please try again later."

// Pipeline turns one entity name into a Brief
type Pipeline struct {
	fetcher     *source.Fetcher // nil in simulated mode
	simulator   *Simulator
	synthesizer *score.Synthesizer
	stageDelay  time.Duration
	now         func() time.Time
	metrics     *metrics.Collector
	logger      *zap.Logger
	closer      io.Closer // response cache connection, if any
}

// Option customizes a Pipeline
type Option func(*options)

type options struct {
	searcher source.Searcher
	cache    cache.Cache
	logger   *zap.Logger
	metrics  *metrics.Collector
	now      func() time.Time
}

// WithSearcher replaces the HTTP search client
func WithSearcher(s source.Searcher) Option {
	return func(o *options) { o.searcher = s }
}

// WithCache replaces the configured response cache. The pipeline takes
// ownership and closes it in Close. Ignored when a searcher is injected.
func WithCache(c cache.Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records brief and search outcomes
func WithMetrics(m *metrics.Collector) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewPipeline creates a pipeline. Live or simulated mode is decided here,
// once, from whether a search API key is configured.
func NewPipeline(cfg *model.Config, opts ...Option) (*Pipeline, error) {
	o := &options{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	logger := logging.OrNop(o.logger)

	p := &Pipeline{
		synthesizer: score.NewSynthesizer(),
		stageDelay:  cfg.Pacing.StageDelay,
		now:         o.now,
		metrics:     o.metrics,
		logger:      logger,
	}

	if !cfg.Search.Live() {
		logger.Warn("search API key missing, using simulated data")
		p.simulator = NewSimulator(cfg.Simulation.Seed, o.now)
		return p, nil
	}

	searcher := o.searcher
	if searcher == nil {
		responseCache := o.cache
		if responseCache == nil {
			var err error
			if responseCache, err = cache.New(cfg.Cache); err != nil {
				return nil, fmt.Errorf("create cache: %w", err)
			}
		}
		if c, ok := responseCache.(io.Closer); ok {
			p.closer = c
		}

		clientOpts := []source.Option{
			source.WithLimiter(worker.NewLimiterFromConfig(cfg.RateLimiting)),
			source.WithMetrics(o.metrics),
			source.WithLogger(logger),
		}
		if responseCache != nil {
			clientOpts = append(clientOpts, source.WithCache(responseCache, cfg.Cache.TTL))
		}
		searcher = source.NewClient(cfg.Search, clientOpts...)
	}

	p.fetcher = source.NewFetcher(searcher, logger)
	return p, nil
}

// Close releases the response cache connection
func (p *Pipeline) Close() error {
	if p.closer == nil {
		return nil
	}
	c := p.closer
	p.closer = nil
	return c.Close()
}

// Simulated reports whether the pipeline serves demo data
func (p *Pipeline) Simulated() bool {
	return p.fetcher == nil
}

// ScoutEntity runs PLAN, FETCH, VERIFY and SYNTHESIZE for one entity,
// reporting each stage on entry. It always returns a Brief; failures
// become error briefs.
func (p *Pipeline) ScoutEntity(ctx context.Context, entity string, report model.StageFunc) (brief model.Brief) {
	name := strings.TrimSpace(entity)
	if report == nil {
		report = func(model.Stage) {}
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline panicked",
				zap.String("entity", name),
				zap.Any("panic", r))
			brief = p.errorBrief(name, FailureMessage)
		}
		p.metrics.ObserveBrief(brief.HasInsight())
	}()

	report(model.StagePlan)
	queries, err := source.BuildQueries(name)
	if err != nil {
		return p.errorBrief(name, err.Error())
	}
	if err := p.pace(ctx); err != nil {
		return p.errorBrief(name, FailureMessage)
	}

	report(model.StageFetch)
	var features []model.Feature
	if p.Simulated() {
		features = p.simulator.Features(name)
		report(model.StageVerify)
	} else {
		results := p.fetcher.FetchAll(ctx, queries)
		if ctx.Err() != nil {
			p.logger.Warn("scout cancelled", zap.String("entity", name), zap.Error(ctx.Err()))
			return p.errorBrief(name, FailureMessage)
		}

		report(model.StageVerify)
		features = extract.FilterFeatures(name, results)
	}

	if len(features) == 0 {
		p.logger.Info("no relevant results", zap.String("entity", name))
		return p.errorBrief(name, NoResultsMessage(name))
	}

	report(model.StageSynthesize)
	if err := p.pace(ctx); err != nil {
		return p.errorBrief(name, FailureMessage)
	}
	insight := p.synthesizer.Synthesize(name, features)

	return model.Brief{
		Company:   strings.ToUpper(name),
		DateRange: p.dateRange(),
		Timestamp: p.now(),
		Insight:   &insight,
		Features:  features,
	}
}

// NoResultsMessage is the error text of a brief with no relevant results
func NoResultsMessage(entity string) string {
	return fmt.Sprintf("No verified updates found for \"%s\" in the last 7 days.", entity)
}

func (p *Pipeline) errorBrief(name string, message string) model.Brief {
	return model.Brief{
		Company:   strings.ToUpper(name),
		DateRange: p.dateRange(),
		Timestamp: p.now(),
		Features:  []model.Feature{},
		Error:     message,
	}
}

func (p *Pipeline) dateRange() string {
	if p.Simulated() {
		return SimulatedDateRange
	}
	return LiveDateRange
}

// pace sleeps for the configured stage delay
func (p *Pipeline) pace(ctx context.Context) error {
	if p.stageDelay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(p.stageDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
