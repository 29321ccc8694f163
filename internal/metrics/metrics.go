// Package metrics exposes Prometheus metrics for calculation runs and the
// HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/urbanhydro/abimo/internal/balance"
	"github.com/urbanhydro/abimo/internal/model"
	"github.com/urbanhydro/abimo/internal/monitoring"
)

type BuildInfo struct {
	Version   string
	Revision  string
	BuildDate string
}

// Provider owns a registry with the process collectors and the abimo
// metrics. It implements balance.Observer.
type Provider struct {
	reg *prometheus.Registry

	records     *prometheus.CounterVec
	diagnostics *prometheus.CounterVec
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram

	recentRuns     *prometheus.GaugeVec
	recentFailRate prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func Init(build BuildInfo) *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	info := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "abimo_build_info",
			Help: "Build info for this binary (value is always 1).",
		},
		[]string{"version", "revision", "build_date"},
	)
	if build.Version == "" {
		build.Version = "dev"
	}
	info.WithLabelValues(build.Version, build.Revision, build.BuildDate).Set(1)

	p := &Provider{
		reg: reg,
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "abimo_records_total",
			Help: "Input records processed, by outcome.",
		}, []string{"outcome"}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "abimo_diagnostics_total",
			Help: "Protocol diagnostics, by kind.",
		}, []string{"kind"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "abimo_runs_total",
			Help: "Finished calculation runs, by status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "abimo_run_duration_seconds",
			Help:    "Wall time of calculation runs.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		recentRuns: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "abimo_recent_runs",
			Help: "Runs in the monitoring lookback window, by status.",
		}, []string{"status"}),
		recentFailRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "abimo_recent_fail_rate",
			Help: "Share of failed among finished runs in the lookback window.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "abimo_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "abimo_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"method", "route"}),
	}
	reg.MustRegister(info, p.records, p.diagnostics, p.runs, p.runDuration,
		p.recentRuns, p.recentFailRate, p.httpRequests, p.httpDuration)
	return p
}

func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

func (p *Provider) Registerer() prometheus.Registerer { return p.reg }

// RecordDone counts one handled record.
func (p *Provider) RecordDone(res balance.Result) {
	outcome := "skipped"
	if res.Emitted {
		outcome = "written"
	}
	p.records.WithLabelValues(outcome).Inc()
	for _, d := range res.Diagnostics {
		p.diagnostics.WithLabelValues(string(d.Kind)).Inc()
	}
}

// RunFinished records the outcome of a run.
func (p *Provider) RunFinished(status model.RunStatus, d time.Duration) {
	p.runs.WithLabelValues(string(status)).Inc()
	p.runDuration.Observe(d.Seconds())
}

// ObserveSnapshot publishes a monitoring snapshot as gauges.
func (p *Provider) ObserveSnapshot(s *monitoring.MetricsSnapshot) {
	p.recentRuns.WithLabelValues(string(model.RunStatusComplete)).Set(float64(s.RunsComplete))
	p.recentRuns.WithLabelValues(string(model.RunStatusFailed)).Set(float64(s.RunsFailed))
	p.recentRuns.WithLabelValues(string(model.RunStatusCancelled)).Set(float64(s.RunsCancelled))
	p.recentRuns.WithLabelValues("active").Set(float64(s.RunsActive))
	p.recentFailRate.Set(s.FailRate)
}

// ObserveHTTP records one served request.
func (p *Provider) ObserveHTTP(method, route string, status int, d time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
