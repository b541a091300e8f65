package worker

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ppiankov/marketscout/internal/model"
)

type stageLog struct {
	mu     sync.Mutex
	stages []model.Stage
}

func (l *stageLog) record(s model.Stage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stages = append(l.stages, s)
}

func (l *stageLog) snapshot() []model.Stage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Stage(nil), l.stages...)
}

func assertNonDecreasing(t *testing.T, stages []model.Stage) {
	t.Helper()
	for i := 1; i < len(stages); i++ {
		if stages[i] < stages[i-1] {
			t.Fatalf("overall stage regressed at %d: %v", i, stages)
		}
	}
}

func TestProgressTracker_MinimumOfStarted(t *testing.T) {
	log := &stageLog{}
	tracker := NewProgressTracker(3, log.record)

	assert.Equal(t, model.StageNotStarted, tracker.Overall())

	// Only pipeline 0 has started; the others do not hold the minimum down
	tracker.Report(0, model.StagePlan)
	tracker.Report(0, model.StageFetch)
	assert.Equal(t, model.StageFetch, tracker.Overall())

	tracker.Report(1, model.StageVerify)
	assert.Equal(t, model.StageFetch, tracker.Overall())

	tracker.Report(0, model.StageSynthesize)
	assert.Equal(t, model.StageVerify, tracker.Overall())

	assert.Equal(t, []model.Stage{
		model.StagePlan,
		model.StageFetch,
		model.StageFetch,
		model.StageVerify,
	}, log.snapshot())
}

func TestProgressTracker_BeginHoldsQueuedAtPlan(t *testing.T) {
	log := &stageLog{}
	tracker := NewProgressTracker(2, log.record)
	tracker.Begin()

	tracker.Report(0, model.StagePlan) // no-op, already planned
	tracker.Report(0, model.StageFetch)
	tracker.Report(0, model.StageVerify)
	tracker.Report(0, model.StageSynthesize)

	// Pipeline 1 is still waiting for a worker
	assert.Equal(t, model.StagePlan, tracker.Overall())

	tracker.Report(1, model.StagePlan)
	tracker.Report(1, model.StageFetch)
	tracker.Report(1, model.StageVerify)
	tracker.Report(1, model.StageSynthesize)
	assert.Equal(t, model.StageSynthesize, tracker.Overall())

	stages := log.snapshot()
	assert.Equal(t, model.StagePlan, stages[0])
	assertNonDecreasing(t, stages)
}

func TestProgressTracker_IgnoresRegressionsAndBadIndexes(t *testing.T) {
	log := &stageLog{}
	tracker := NewProgressTracker(1, log.record)

	tracker.Report(0, model.StageVerify)
	tracker.Report(0, model.StageFetch)
	tracker.Report(-1, model.StageSynthesize)
	tracker.Report(5, model.StageSynthesize)

	assert.Equal(t, []model.Stage{model.StageVerify}, log.snapshot())
}

// Reports without Begin exercise the overall clamp
func TestProgressTracker_LateStarterDoesNotLowerSignal(t *testing.T) {
	log := &stageLog{}
	tracker := NewProgressTracker(2, log.record)

	tracker.Report(0, model.StageVerify)
	tracker.Report(1, model.StagePlan)

	assert.Equal(t, model.StageVerify, tracker.Overall())
	assertNonDecreasing(t, log.snapshot())
}

func TestProgressTracker_BeginHoldsLateStarterAtPlan(t *testing.T) {
	log := &stageLog{}
	tracker := NewProgressTracker(2, log.record)
	tracker.Begin()

	tracker.Report(0, model.StageVerify)
	assert.Equal(t, model.StagePlan, tracker.Overall())

	tracker.Report(1, model.StagePlan)
	tracker.Report(1, model.StageFetch)

	assert.Equal(t, model.StageFetch, tracker.Overall())
	assertNonDecreasing(t, log.snapshot())
}

func TestProgressTracker_Empty(t *testing.T) {
	called := false
	tracker := NewProgressTracker(0, func(model.Stage) { called = true })
	tracker.Begin()
	tracker.Report(0, model.StagePlan)

	assert.False(t, called)
	assert.Equal(t, model.StageNotStarted, tracker.Overall())
}
