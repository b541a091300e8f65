package cli

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/marketscout/internal/history"
	"github.com/ppiankov/marketscout/internal/logging"
	"github.com/ppiankov/marketscout/internal/metrics"
	"github.com/ppiankov/marketscout/internal/model"
	"github.com/ppiankov/marketscout/internal/notify"
	"github.com/ppiankov/marketscout/internal/pipeline"
	"github.com/ppiankov/marketscout/internal/scout"
	"github.com/ppiankov/marketscout/internal/worker"
)

// app holds the components shared by the scout, batch and serve commands
type app struct {
	cfg          *model.Config
	logger       *zap.Logger
	metrics      *metrics.Collector
	pipeline     *pipeline.Pipeline
	orchestrator *worker.Orchestrator
	service      *scout.Service
	closers      []func() error
}

// newApp builds the engine from configuration. collector may be nil.
func newApp(cfg *model.Config, collector *metrics.Collector) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(cfg.Log)

	p, err := pipeline.NewPipeline(cfg,
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(collector))
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	orchestrator := worker.NewOrchestrator(p, cfg.Concurrency.Workers, logger)

	a := &app{
		cfg:          cfg,
		logger:       logger,
		metrics:      collector,
		pipeline:     p,
		orchestrator: orchestrator,
		closers:      []func() error{p.Close},
	}

	opts := []scout.Option{
		scout.WithLogger(logger),
		scout.WithMetrics(collector),
		scout.WithDispatcher(notify.NewWebhookDispatcher(cfg.Notify.Timeout, worker.NewLimiter(1, 2), collector, logger)),
	}
	if cfg.History.Path != "" {
		opts = append(opts, scout.WithHistory(history.NewStore(cfg.History.Path)))
	}
	if cfg.Kafka.Enabled() {
		publisher := notify.NewKafkaPublisher(cfg.Kafka, logger)
		opts = append(opts, scout.WithPublisher(publisher))
		a.closers = append(a.closers, publisher.Close)
		logger.Info("alert stream enabled",
			zap.String("brokers", strings.Join(cfg.Kafka.Brokers, ",")),
			zap.String("topic", cfg.Kafka.Topic))
	}

	a.service = scout.NewService(orchestrator, p.Simulated(), opts...)
	return a, nil
}

// Close releases outbound connections and flushes the logger
func (a *app) Close() error {
	var errs []error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
