package pipeline

import (
	"context"
	"io"

	"github.com/urbanhydro/abimo/internal/balance"
	"github.com/urbanhydro/abimo/internal/dbase"
	"github.com/urbanhydro/abimo/internal/input"
	"github.com/urbanhydro/abimo/internal/model"
	"github.com/urbanhydro/abimo/internal/store"
)

func (p *Pipeline) resultStore() store.ResultStore {
	if p.opts.Store == nil {
		return nil
	}
	rs, _ := p.opts.Store.(store.ResultStore)
	return rs
}

// exportSink keeps every record it forwards for the results export.
type exportSink struct {
	balance.Sink
	outputs []model.OutputRecord
}

func (s *exportSink) Write(rec model.OutputRecord) error {
	if err := s.Sink.Write(rec); err != nil {
		return err
	}
	s.outputs = append(s.outputs, rec)
	return nil
}

// resultRows attaches the geometries of src, if it has any.
func (s *exportSink) resultRows(src input.Source) []store.ResultRow {
	geoms, _ := src.(input.GeometrySource)
	rows := make([]store.ResultRow, len(s.outputs))
	for i, out := range s.outputs {
		rows[i].Output = out
		if geoms != nil {
			rows[i].Geometry, _ = geoms.Geometry(out.Code)
		}
	}
	return rows
}

// Evaluation is the in-memory outcome of Evaluate.
type Evaluation struct {
	Status      model.RunStatus      `json:"status"`
	Outputs     []model.OutputRecord `json:"outputs"`
	Diagnostics []model.Diagnostic   `json:"diagnostics"`
	Counters    model.Counters       `json:"counters"`
}

// Evaluate computes recs without touching the file system or the store.
// Output values are rounded to the configured decimals, as they would be
// stored in the result table.
func (p *Pipeline) Evaluate(ctx context.Context, recs []model.InputRecord) (*Evaluation, error) {
	params := p.calc.Parameters()
	ev := &Evaluation{
		Outputs:     []model.OutputRecord{},
		Diagnostics: []model.Diagnostic{},
	}
	sink := &collectSink{round: func(rec model.OutputRecord) model.OutputRecord {
		return roundOutput(rec, params)
	}}
	diag := &collectDiagnostics{}

	outcome, err := p.calc.Run(ctx, &sliceSource{recs: recs}, sink, diag, balance.Options{
		Workers:   p.opts.Workers,
		BatchSize: p.opts.BatchSize,
		Observer:  p.observer(),
	})
	ev.Status = outcome.Status
	ev.Counters = outcome.Counters
	ev.Outputs = append(ev.Outputs, sink.outputs...)
	ev.Diagnostics = append(ev.Diagnostics, diag.entries...)
	return ev, err
}

func (p *Pipeline) observer() balance.Observer {
	if p.opts.Metrics == nil {
		return nil
	}
	return p.opts.Metrics
}

func roundOutput(rec model.OutputRecord, params model.Parameters) model.OutputRecord {
	round := func(v float32, field string) float32 {
		return dbase.RoundValue(v, params.Decimals[field], params.Rounding)
	}
	rec.Runoff = round(rec.Runoff, model.FieldRunoff)
	rec.SurfaceRunoff = round(rec.SurfaceRunoff, model.FieldSurfaceRunoff)
	rec.Infiltration = round(rec.Infiltration, model.FieldInfiltration)
	rec.RunoffVolume = round(rec.RunoffVolume, model.FieldRunoffVolume)
	rec.SurfaceVolume = round(rec.SurfaceVolume, model.FieldSurfaceVolume)
	rec.InfiltrationVolume = round(rec.InfiltrationVolume, model.FieldInfiltrationVolume)
	rec.Area = round(rec.Area, model.FieldArea)
	rec.Evaporation = round(rec.Evaporation, model.FieldEvaporation)
	return rec
}

type sliceSource struct {
	recs []model.InputRecord
	pos  int
}

func (s *sliceSource) Next(context.Context) (model.InputRecord, error) {
	if s.pos >= len(s.recs) {
		return model.InputRecord{}, io.EOF
	}
	rec := s.recs[s.pos]
	s.pos++
	return rec, nil
}

type collectSink struct {
	round   func(model.OutputRecord) model.OutputRecord
	outputs []model.OutputRecord
}

func (s *collectSink) Write(rec model.OutputRecord) error {
	s.outputs = append(s.outputs, s.round(rec))
	return nil
}

type collectDiagnostics struct {
	entries []model.Diagnostic
}

func (d *collectDiagnostics) Diagnostic(e model.Diagnostic) {
	d.entries = append(d.entries, e)
}
