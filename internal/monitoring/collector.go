// Package monitoring summarizes the run history and raises alerts when
// calculation runs fail or report too many diagnostics.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/urbanhydro/abimo/internal/model"
	"github.com/urbanhydro/abimo/internal/store"
)

// MetricsSnapshot holds a point-in-time view of recent runs.
type MetricsSnapshot struct {
	RunsTotal     int     `json:"runs_total"`
	RunsComplete  int     `json:"runs_complete"`
	RunsFailed    int     `json:"runs_failed"`
	RunsCancelled int     `json:"runs_cancelled"`
	RunsActive    int     `json:"runs_active"`
	FailRate      float64 `json:"fail_rate"`

	RecordsRead    int     `json:"records_read"`
	RecordsWritten int     `json:"records_written"`
	Diagnostics    int     `json:"diagnostics"`
	DiagnosticRate float64 `json:"diagnostic_rate"`
	AvgDurationMS  int64   `json:"avg_duration_ms"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the part of store.Store the collector reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector gathers metrics from the run history.
type Collector struct {
	runs RunLister
}

// NewCollector creates a new metrics collector.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := time.Now().UTC()
	snap := &MetricsSnapshot{LookbackHours: lookbackHours, CollectedAt: now}

	runs, err := c.runs.ListRuns(ctx, store.RunFilter{
		CreatedAfter: now.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RunsTotal = len(runs)
	var totalDuration int64
	var timed int64

	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusFailed:
			snap.RunsFailed++
		case model.RunStatusCancelled:
			snap.RunsCancelled++
		case model.RunStatusQueued, model.RunStatusRunning:
			snap.RunsActive++
		}
		if r.Result == nil {
			continue
		}
		snap.RecordsRead += r.Result.Counters.RecordsRead
		snap.RecordsWritten += r.Result.Counters.RecordsWritten
		snap.Diagnostics += r.Result.Counters.Diagnostics
		if r.Result.DurationMS > 0 {
			totalDuration += r.Result.DurationMS
			timed++
		}
	}

	if finished := snap.RunsComplete + snap.RunsFailed; finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if snap.RecordsRead > 0 {
		snap.DiagnosticRate = float64(snap.Diagnostics) / float64(snap.RecordsRead)
	}
	if timed > 0 {
		snap.AvgDurationMS = totalDuration / timed
	}
	return snap, nil
}
