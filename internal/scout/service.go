// Package scout runs complete scout invocations: orchestration, alerting,
// notification and history.
package scout

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/marketscout/internal/alert"
	"github.com/ppiankov/marketscout/internal/history"
	"github.com/ppiankov/marketscout/internal/logging"
	"github.com/ppiankov/marketscout/internal/metrics"
	"github.com/ppiankov/marketscout/internal/model"
	"github.com/ppiankov/marketscout/internal/worker"
)

// Runner scouts a comma-separated entity list
type Runner interface {
	Run(ctx context.Context, input string, onProgress worker.ProgressFunc) []model.Brief
}

// Dispatcher delivers a brief batch to a webhook
type Dispatcher interface {
	Dispatch(ctx context.Context, destination string, query string, briefs []model.Brief) bool
}

// Publisher streams alerts
type Publisher interface {
	Publish(ctx context.Context, query string, alerts []model.Alert) error
}

// Request is one scout invocation
type Request struct {
	Query   string
	Webhook string // Optional destination
	Save    bool   // Append to history
}

// Service wires the orchestrator to the alert analyzer and the outbound channels
type Service struct {
	runner     Runner
	simulated  bool
	dispatcher Dispatcher
	publisher  Publisher
	history    *history.Store
	metrics    *metrics.Collector
	now        func() time.Time
	logger     *zap.Logger
}

// Option customizes a Service
type Option func(*Service)

// WithDispatcher enables webhook delivery
func WithDispatcher(d Dispatcher) Option {
	return func(s *Service) { s.dispatcher = d }
}

// WithPublisher enables the alert stream
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithHistory enables saving invocations
func WithHistory(h *history.Store) Option {
	return func(s *Service) { s.history = h }
}

// WithMetrics counts raised alerts
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = logging.OrNop(l) }
}

// NewService creates a service. simulated marks reports built from demo data.
func NewService(runner Runner, simulated bool, opts ...Option) *Service {
	s := &Service{
		runner:    runner,
		simulated: simulated,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Simulated reports whether reports carry demo data
func (s *Service) Simulated() bool {
	return s.simulated
}

// Scout runs one invocation. Notification, streaming and history failures
// are logged and never fail the invocation.
func (s *Service) Scout(ctx context.Context, req Request, onProgress worker.ProgressFunc) *model.Report {
	query := strings.TrimSpace(req.Query)
	briefs := s.runner.Run(ctx, query, onProgress)
	if briefs == nil {
		briefs = []model.Brief{}
	}

	alerts := alert.Analyze(briefs)
	for _, a := range alerts {
		s.metrics.ObserveAlert(string(a.Type))
	}

	report := &model.Report{
		Query:       query,
		GeneratedAt: s.now(),
		Simulated:   s.simulated,
		Briefs:      briefs,
		Alerts:      alerts,
	}

	if len(briefs) == 0 {
		return report
	}

	if req.Webhook != "" && s.dispatcher != nil {
		notified := s.dispatcher.Dispatch(ctx, req.Webhook, query, briefs)
		report.Notified = &notified
	}

	if s.publisher != nil && len(alerts) > 0 {
		if err := s.publisher.Publish(ctx, query, alerts); err != nil {
			s.logger.Warn("alert publish failed", zap.Int("alerts", len(alerts)), zap.Error(err))
		}
	}

	if req.Save && s.history != nil {
		entry := history.NewEntry(query, briefs, report.GeneratedAt)
		if err := s.history.Append(entry); err != nil {
			s.logger.Warn("history save failed", zap.String("path", s.history.Path()), zap.Error(err))
		}
	}

	return report
}
