package worker

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/marketscout/internal/logging"
	"github.com/ppiankov/marketscout/internal/model"
)

// EntityScouter produces the brief for one entity, reporting stages as it goes
type EntityScouter interface {
	ScoutEntity(ctx context.Context, entity string, report model.StageFunc) model.Brief
}

// EntityJob scouts one entity of a batch
type EntityJob struct {
	Index   int
	Entity  string
	Scouter EntityScouter
	Report  model.StageFunc
}

// Execute runs the scouter for the job's entity
func (j *EntityJob) Execute(ctx context.Context) Result {
	return &EntityResult{
		Index: j.Index,
		Brief: j.Scouter.ScoutEntity(ctx, j.Entity, j.Report),
	}
}

// EntityResult is the brief produced for one batch position
type EntityResult struct {
	Index int
	Brief model.Brief
}

// GetError returns the brief's error message as an error
func (r *EntityResult) GetError() error {
	if r.Brief.Error == "" {
		return nil
	}
	return errors.New(r.Brief.Error)
}

// Orchestrator scouts many entities concurrently on a bounded pool
type Orchestrator struct {
	scouter EntityScouter
	workers int
	logger  *zap.Logger
}

// NewOrchestrator creates an orchestrator running at most workers pipelines at once
func NewOrchestrator(scouter EntityScouter, workers int, logger *zap.Logger) *Orchestrator {
	if workers <= 0 {
		workers = 1
	}
	return &Orchestrator{
		scouter: scouter,
		workers: workers,
		logger:  logging.OrNop(logger),
	}
}

// Run scouts every entity of a comma-separated list and returns the briefs
// in input order. onProgress receives the overall stage and may be nil.
func (o *Orchestrator) Run(ctx context.Context, input string, onProgress ProgressFunc) []model.Brief {
	return o.RunEntities(ctx, ParseEntities(input), onProgress)
}

// RunEntities scouts the given entity names. Empty input starts nothing.
func (o *Orchestrator) RunEntities(ctx context.Context, entities []string, onProgress ProgressFunc) []model.Brief {
	if len(entities) == 0 {
		return []model.Brief{}
	}

	start := time.Now()
	tracker := NewProgressTracker(len(entities), onProgress)
	tracker.Begin()

	pool := NewPool(ctx, o.workers)
	pool.Start()

	for i, entity := range entities {
		pool.Submit(&EntityJob{
			Index:   i,
			Entity:  entity,
			Scouter: o.scouter,
			Report:  tracker.Reporter(i),
		})
	}

	briefs := make([]model.Brief, len(entities))
	done := make([]bool, len(entities))
	for _, result := range pool.Wait() {
		r := result.(*EntityResult)
		briefs[r.Index] = r.Brief
		done[r.Index] = true
	}

	// Entities dropped by a cancelled pool still get a brief
	for i, ok := range done {
		if !ok {
			briefs[i] = o.scouter.ScoutEntity(ctx, entities[i], nil)
		}
	}

	o.logger.Info("scout run finished",
		zap.Int("entities", len(entities)),
		zap.Int("workers", o.workers),
		zap.Duration("elapsed", time.Since(start)))

	return briefs
}

// ParseEntities splits a comma-separated entity list, trimming whitespace
// and dropping empty segments
func ParseEntities(input string) []string {
	var entities []string
	for _, part := range strings.Split(input, ",") {
		if name := strings.TrimSpace(part); name != "" {
			entities = append(entities, name)
		}
	}
	return entities
}
