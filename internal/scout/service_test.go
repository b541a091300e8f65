package scout

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/marketscout/internal/history"
	"github.com/ppiankov/marketscout/internal/model"
	"github.com/ppiankov/marketscout/internal/worker"
)

var testTime = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

type runnerFunc func(ctx context.Context, input string, onProgress worker.ProgressFunc) []model.Brief

func (f runnerFunc) Run(ctx context.Context, input string, onProgress worker.ProgressFunc) []model.Brief {
	return f(ctx, input, onProgress)
}

func staticRunner(briefs ...model.Brief) Runner {
	return runnerFunc(func(ctx context.Context, input string, onProgress worker.ProgressFunc) []model.Brief {
		if onProgress != nil {
			onProgress(model.StagePlan)
			onProgress(model.StageSynthesize)
		}
		return briefs
	})
}

type recordingDispatcher struct {
	mu     sync.Mutex
	calls  int
	query  string
	result bool
}

func (d *recordingDispatcher) Dispatch(_ context.Context, _ string, query string, _ []model.Brief) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	d.query = query
	return d.result
}

type recordingPublisher struct {
	alerts []model.Alert
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, alerts []model.Alert) error {
	p.alerts = append(p.alerts, alerts...)
	return p.err
}

func hotBrief() model.Brief {
	return model.Brief{
		Company:   "ACME",
		Timestamp: testTime,
		Insight: &model.Insight{
			Sentiment: 92,
			Status:    model.StatusBullish,
			Velocity:  model.VelocityHigh,
			Signals:   model.Signals{Releases: true},
		},
		Features: []model.Feature{{Title: "Acme launches"}},
	}
}

func emptyBrief() model.Brief {
	return model.Brief{Company: "GLOBEX", Timestamp: testTime, Features: []model.Feature{}, Error: "nothing"}
}

func TestScout_AlertsAndNotification(t *testing.T) {
	dispatcher := &recordingDispatcher{result: true}
	publisher := &recordingPublisher{}

	svc := NewService(staticRunner(hotBrief(), emptyBrief()), false,
		WithDispatcher(dispatcher),
		WithPublisher(publisher),
		WithClock(func() time.Time { return testTime }))

	var stages []model.Stage
	report := svc.Scout(context.Background(), Request{Query: " Acme, Globex ", Webhook: "https://example.com/hook"},
		func(s model.Stage) { stages = append(stages, s) })

	assert.Equal(t, "Acme, Globex", report.Query)
	assert.Equal(t, testTime, report.GeneratedAt)
	assert.False(t, report.Simulated)
	require.Len(t, report.Briefs, 2)

	require.Len(t, report.Alerts, 3)
	assert.Equal(t, model.AlertCritical, report.Alerts[0].Type)
	assert.Equal(t, model.AlertMomentum, report.Alerts[1].Type)
	assert.Equal(t, model.AlertRelease, report.Alerts[2].Type)

	require.NotNil(t, report.Notified)
	assert.True(t, *report.Notified)
	assert.Equal(t, 1, dispatcher.calls)
	assert.Equal(t, "Acme, Globex", dispatcher.query)

	assert.Len(t, publisher.alerts, 3)
	assert.Equal(t, []model.Stage{model.StagePlan, model.StageSynthesize}, stages)
}

func TestScout_NoWebhookLeavesNotifiedUnset(t *testing.T) {
	dispatcher := &recordingDispatcher{result: true}
	svc := NewService(staticRunner(hotBrief()), true, WithDispatcher(dispatcher))

	report := svc.Scout(context.Background(), Request{Query: "Acme"}, nil)

	assert.Nil(t, report.Notified)
	assert.Zero(t, dispatcher.calls)
	assert.True(t, report.Simulated)
}

func TestScout_FailuresAreNotFatal(t *testing.T) {
	dispatcher := &recordingDispatcher{result: false}
	publisher := &recordingPublisher{err: errors.New("broker down")}

	svc := NewService(staticRunner(hotBrief()), false, WithDispatcher(dispatcher), WithPublisher(publisher))
	report := svc.Scout(context.Background(), Request{Query: "Acme", Webhook: "https://example.com/hook"}, nil)

	require.NotNil(t, report.Notified)
	assert.False(t, *report.Notified)
	assert.Len(t, report.Briefs, 1)
}

func TestScout_EmptyQuery(t *testing.T) {
	dispatcher := &recordingDispatcher{result: true}
	svc := NewService(staticRunner(), false, WithDispatcher(dispatcher))

	report := svc.Scout(context.Background(), Request{Query: " , ", Webhook: "https://example.com/hook"}, nil)

	assert.Empty(t, report.Briefs)
	assert.NotNil(t, report.Alerts)
	assert.Nil(t, report.Notified)
	assert.Zero(t, dispatcher.calls)
}

func TestScout_SavesHistory(t *testing.T) {
	store := history.NewStore(filepath.Join(t.TempDir(), "history.json"))
	svc := NewService(staticRunner(hotBrief(), emptyBrief()), false,
		WithHistory(store),
		WithClock(func() time.Time { return testTime }))

	svc.Scout(context.Background(), Request{Query: "Acme, Globex", Save: true}, nil)
	svc.Scout(context.Background(), Request{Query: "Acme, Globex"}, nil)

	entries, err := store.Load()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Acme, Globex", entries[0].Query)
	assert.Equal(t, []string{"ACME", "GLOBEX"}, entries[0].Competitors)
	assert.Equal(t, testTime, entries[0].Timestamp)
}
