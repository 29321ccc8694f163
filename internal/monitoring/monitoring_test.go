package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/urbanhydro/abimo/internal/config"
	"github.com/urbanhydro/abimo/internal/model"
	"github.com/urbanhydro/abimo/internal/store"
)

type fakeRuns struct {
	runs   []model.Run
	err    error
	filter store.RunFilter
}

func (f *fakeRuns) ListRuns(_ context.Context, filter store.RunFilter) ([]model.Run, error) {
	f.filter = filter
	return f.runs, f.err
}

func run(status model.RunStatus, read, diags int, durationMS int64) model.Run {
	r := model.Run{ID: string(status), Status: status}
	if status.Terminal() {
		r.Result = &model.RunResult{
			Status:     status,
			Counters:   model.Counters{RecordsRead: read, RecordsWritten: read, Diagnostics: diags},
			DurationMS: durationMS,
		}
	}
	return r
}

func TestCollector_EmptyStore(t *testing.T) {
	c := NewCollector(&fakeRuns{})

	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.RunsTotal)
	assert.Zero(t, snap.FailRate)
	assert.Zero(t, snap.DiagnosticRate)
	assert.Equal(t, 24, snap.LookbackHours)
}

func TestCollector_RunMetrics(t *testing.T) {
	runs := &fakeRuns{runs: []model.Run{
		run(model.RunStatusComplete, 100, 5, 1000),
		run(model.RunStatusComplete, 300, 15, 3000),
		run(model.RunStatusFailed, 0, 0, 0),
		run(model.RunStatusCancelled, 10, 0, 500),
		run(model.RunStatusRunning, 0, 0, 0),
		run(model.RunStatusQueued, 0, 0, 0),
	}}
	c := NewCollector(runs)

	snap, err := c.Collect(context.Background(), 12)
	require.NoError(t, err)

	assert.Equal(t, 6, snap.RunsTotal)
	assert.Equal(t, 2, snap.RunsComplete)
	assert.Equal(t, 1, snap.RunsFailed)
	assert.Equal(t, 1, snap.RunsCancelled)
	assert.Equal(t, 2, snap.RunsActive)
	assert.InDelta(t, 1.0/3.0, snap.FailRate, 1e-9)
	assert.Equal(t, 410, snap.RecordsRead)
	assert.Equal(t, 20, snap.Diagnostics)
	assert.InDelta(t, 20.0/410.0, snap.DiagnosticRate, 1e-9)
	assert.Equal(t, int64(1500), snap.AvgDurationMS)

	assert.WithinDuration(t, time.Now().Add(-12*time.Hour), runs.filter.CreatedAfter, time.Minute)
}

func TestCollector_ListError(t *testing.T) {
	c := NewCollector(&fakeRuns{err: errors.New("db down")})

	_, err := c.Collect(context.Background(), 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list runs")
}

func TestAlerter_Evaluate(t *testing.T) {
	cfg := config.MonitoringConfig{FailureRateThreshold: 0.10, DiagnosticRateThreshold: 0.05}

	tests := []struct {
		name  string
		snap  MetricsSnapshot
		types []AlertType
	}{
		{
			name:  "healthy",
			snap:  MetricsSnapshot{RunsComplete: 95, RunsFailed: 5, FailRate: 0.05, DiagnosticRate: 0.01},
			types: nil,
		},
		{
			name:  "failure rate",
			snap:  MetricsSnapshot{RunsComplete: 12, RunsFailed: 8, FailRate: 0.4},
			types: []AlertType{AlertRunFailureRate},
		},
		{
			name:  "too few runs",
			snap:  MetricsSnapshot{RunsComplete: 1, RunsFailed: 3, FailRate: 0.75},
			types: nil,
		},
		{
			name:  "diagnostics",
			snap:  MetricsSnapshot{RecordsRead: 100, Diagnostics: 20, DiagnosticRate: 0.2},
			types: []AlertType{AlertDiagnosticRate},
		},
		{
			name:  "both",
			snap:  MetricsSnapshot{RunsComplete: 5, RunsFailed: 5, FailRate: 0.5, DiagnosticRate: 0.5},
			types: []AlertType{AlertRunFailureRate, AlertDiagnosticRate},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := NewAlerter(cfg).Evaluate(&tt.snap)
			var got []AlertType
			for _, a := range alerts {
				got = append(got, a.Type)
			}
			assert.Equal(t, tt.types, got)
		})
	}
}

func TestAlerter_Evaluate_Message(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})
	alerts := a.Evaluate(&MetricsSnapshot{RunsComplete: 12, RunsFailed: 8, FailRate: 0.4, LookbackHours: 24})
	require.Len(t, alerts, 1)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "40.0%")
	assert.Contains(t, alerts[0].Message, "last 24h")
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var alert Alert
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		assert.Equal(t, AlertRunFailureRate, alert.Type)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertRunFailureRate}, {Type: AlertRunFailureRate}})
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	assert.Equal(t, 0, a.SendAlerts(context.Background(), []Alert{{Type: AlertDiagnosticRate}}))
}

func TestAlerter_SendAlerts_NoURL(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	assert.Equal(t, 0, a.SendAlerts(context.Background(), []Alert{{Type: AlertDiagnosticRate}}))
}

func TestChecker_RunChecksImmediatelyAndStops(t *testing.T) {
	cfg := config.MonitoringConfig{CheckIntervalSecs: 3600, LookbackWindowHours: 6}
	runs := &fakeRuns{runs: []model.Run{run(model.RunStatusComplete, 10, 0, 100)}}
	c := NewChecker(NewCollector(runs), NewAlerter(cfg), cfg)

	var mu sync.Mutex
	var snaps []*MetricsSnapshot
	c.OnSnapshot = func(s *MetricsSnapshot) {
		mu.Lock()
		snaps = append(snaps, s)
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(snaps) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("checker did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, snaps[0].RunsComplete)
	assert.Equal(t, 6, snaps[0].LookbackHours)
}

func TestChecker_DefaultInterval(t *testing.T) {
	c := NewChecker(nil, nil, config.MonitoringConfig{})
	assert.Equal(t, 5*time.Minute, c.interval())
}

func TestChecker_Transitions(t *testing.T) {
	c := NewChecker(nil, nil, config.MonitoringConfig{})
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	failing := Alert{Type: AlertRunFailureRate, Severity: "high"}
	noisy := Alert{Type: AlertDiagnosticRate, Severity: "medium"}

	got := c.transitions([]Alert{failing}, now)
	require.Len(t, got, 1)
	assert.Equal(t, "high", got[0].Severity)

	// Still firing: nothing new to send.
	assert.Empty(t, c.transitions([]Alert{failing}, now))

	got = c.transitions([]Alert{noisy}, now)
	require.Len(t, got, 2)
	assert.Equal(t, AlertDiagnosticRate, got[0].Type)
	assert.Equal(t, AlertRunFailureRate, got[1].Type)
	assert.Equal(t, SeverityResolved, got[1].Severity)
	assert.Equal(t, now, got[1].Timestamp)

	got = c.transitions(nil, now)
	require.Len(t, got, 1)
	assert.Equal(t, AlertDiagnosticRate, got[0].Type)
	assert.Equal(t, SeverityResolved, got[0].Severity)

	assert.Empty(t, c.transitions(nil, now))
}

func TestChecker_SendsOnlyChanges(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := config.MonitoringConfig{FailureRateThreshold: 0.1, WebhookURL: srv.URL}
	runs := &fakeRuns{}
	for range 5 {
		runs.runs = append(runs.runs, run(model.RunStatusFailed, 0, 0, 0))
	}
	c := NewChecker(NewCollector(runs), NewAlerter(cfg), cfg)

	ctx := context.Background()
	log := zap.NewNop()
	c.check(ctx, log)
	c.check(ctx, log)
	assert.Equal(t, int32(1), received.Load())

	runs.runs = nil
	c.check(ctx, log)
	assert.Equal(t, int32(2), received.Load())
}
