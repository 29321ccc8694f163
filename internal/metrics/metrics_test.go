package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanhydro/abimo/internal/balance"
	"github.com/urbanhydro/abimo/internal/model"
	"github.com/urbanhydro/abimo/internal/monitoring"
)

func TestProvider_Handler(t *testing.T) {
	p := Init(BuildInfo{Version: "test", Revision: "r"})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, "go_goroutines")
	assert.Contains(t, body, `abimo_build_info{build_date="",revision="r",version="test"} 1`)
}

func TestProvider_RecordDone(t *testing.T) {
	p := Init(BuildInfo{})

	p.RecordDone(balance.Result{Emitted: true})
	p.RecordDone(balance.Result{Emitted: true, Diagnostics: []model.Diagnostic{
		{Kind: model.DiagnosticUnknownType}, {Kind: model.DiagnosticNoArea},
	}})
	p.RecordDone(balance.Result{})

	assert.Equal(t, 2.0, testutil.ToFloat64(p.records.WithLabelValues("written")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.records.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.diagnostics.WithLabelValues(string(model.DiagnosticNoArea))))
}

func TestProvider_RunFinished(t *testing.T) {
	p := Init(BuildInfo{})

	p.RunFinished(model.RunStatusComplete, 2*time.Second)
	p.RunFinished(model.RunStatusCancelled, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.runs.WithLabelValues("complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.runs.WithLabelValues("cancelled")))
	assert.Equal(t, 1, testutil.CollectAndCount(p.runDuration))
}

func TestProvider_ObserveSnapshot(t *testing.T) {
	p := Init(BuildInfo{})

	p.ObserveSnapshot(&monitoring.MetricsSnapshot{RunsComplete: 3, RunsFailed: 1, RunsActive: 2, FailRate: 0.25})

	assert.Equal(t, 3.0, testutil.ToFloat64(p.recentRuns.WithLabelValues("complete")))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.recentRuns.WithLabelValues("active")))
	assert.Equal(t, 0.25, testutil.ToFloat64(p.recentFailRate))
}

func TestProvider_ObserveHTTP(t *testing.T) {
	p := Init(BuildInfo{})

	p.ObserveHTTP(http.MethodPost, "/v1/balance", http.StatusOK, 10*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.httpRequests.WithLabelValues("POST", "/v1/balance", "200")))
}

func TestProviderIsObserver(t *testing.T) {
	var _ balance.Observer = Init(BuildInfo{})
}
