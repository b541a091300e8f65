package worker

import (
	"sync"

	"github.com/ppiankov/marketscout/internal/model"
)

// ProgressFunc receives the overall stage of a multi-entity run
type ProgressFunc func(stage model.Stage)

// ProgressTracker folds the stages of many concurrent pipelines into one
// signal: the lowest stage reached by any started pipeline. Updates are
// serialized so the emitted sequence never decreases.
type ProgressTracker struct {
	mu         sync.Mutex
	stages     []model.Stage
	overall    model.Stage
	onProgress ProgressFunc
}

// NewProgressTracker creates a tracker for n pipelines, none started
func NewProgressTracker(n int, onProgress ProgressFunc) *ProgressTracker {
	stages := make([]model.Stage, n)
	for i := range stages {
		stages[i] = model.StageNotStarted
	}
	return &ProgressTracker{
		stages:     stages,
		overall:    model.StageNotStarted,
		onProgress: onProgress,
	}
}

// Begin records every pipeline at PLAN and emits PLAN once. Pipelines
// still waiting for a worker then count as planned, so a late starter
// cannot pull the overall stage back down.
func (t *ProgressTracker) Begin() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.stages) == 0 {
		return
	}
	for i, s := range t.stages {
		if s < model.StagePlan {
			t.stages[i] = model.StagePlan
		}
	}
	t.emitLocked()
}

// Report records that pipeline index entered stage. Stages that do not
// advance the pipeline are ignored.
func (t *ProgressTracker) Report(index int, stage model.Stage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if index < 0 || index >= len(t.stages) || stage <= t.stages[index] {
		return
	}
	t.stages[index] = stage
	t.emitLocked()
}

// Reporter returns a StageFunc bound to one pipeline
func (t *ProgressTracker) Reporter(index int) model.StageFunc {
	return func(stage model.Stage) {
		t.Report(index, stage)
	}
}

// Overall returns the last computed overall stage
func (t *ProgressTracker) Overall() model.Stage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.overall
}

func (t *ProgressTracker) emitLocked() {
	minStage := model.StageNotStarted
	for _, s := range t.stages {
		if s == model.StageNotStarted {
			continue
		}
		if minStage == model.StageNotStarted || s < minStage {
			minStage = s
		}
	}
	if minStage == model.StageNotStarted {
		return
	}

	// Defensive: Begin pre-marks every pipeline at PLAN, so the minimum can
	// only drop below overall when a caller reports without calling Begin.
	if minStage < t.overall {
		minStage = t.overall
	}
	t.overall = minStage

	if t.onProgress != nil {
		t.onProgress(minStage)
	}
}
