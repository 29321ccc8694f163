// Package store records calculation runs and, optionally, their per-parcel
// results in SQLite or Postgres.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/urbanhydro/abimo/internal/model"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = eris.New("run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status       model.RunStatus `json:"status,omitempty"`
	Source       string          `json:"source,omitempty"`
	CreatedAfter time.Time       `json:"created_after,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	Offset       int             `json:"offset,omitempty"`
}

// Store defines the run history persistence.
type Store interface {
	CreateRun(ctx context.Context, input model.RunInput) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

// ResultRow is one exported parcel result. Geometry is EWKB or nil.
type ResultRow struct {
	Output   model.OutputRecord
	Geometry []byte
}

// ResultStore is implemented by stores that keep per-parcel results.
type ResultStore interface {
	SaveResults(ctx context.Context, runID string, rows []ResultRow) (int64, error)
}

// resultColumns is the column order of the run_results tables.
var resultColumns = []string{
	"run_id", "code",
	"runoff", "surface_runoff", "infiltration",
	"runoff_volume", "surface_volume", "infiltration_volume",
	"area", "evaporation", "geom",
}

func resultValues(runID string, r ResultRow) []any {
	o := r.Output
	return []any{
		runID, o.Code,
		float64(o.Runoff), float64(o.SurfaceRunoff), float64(o.Infiltration),
		float64(o.RunoffVolume), float64(o.SurfaceVolume), float64(o.InfiltrationVolume),
		float64(o.Area), float64(o.Evaporation),
		r.Geometry,
	}
}

const defaultListLimit = 100
