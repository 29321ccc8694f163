// Package pipeline runs a complete water balance calculation: it opens the
// input table, computes every parcel, writes the dBase result table and the
// protocol, and records the run in the store.
package pipeline

import (
	"context"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urbanhydro/abimo/internal/balance"
	"github.com/urbanhydro/abimo/internal/dbase"
	"github.com/urbanhydro/abimo/internal/fetcher"
	"github.com/urbanhydro/abimo/internal/input"
	"github.com/urbanhydro/abimo/internal/model"
	"github.com/urbanhydro/abimo/internal/protocol"
	"github.com/urbanhydro/abimo/internal/store"
)

// Metrics receives record and run level observations.
type Metrics interface {
	balance.Observer
	RunFinished(status model.RunStatus, d time.Duration)
}

// Options tunes the pipeline.
type Options struct {
	Workers          int
	BatchSize        int
	ProgressInterval time.Duration

	// Store records runs when set.
	Store store.Store

	// Metrics is optional.
	Metrics Metrics

	// Now replaces the clock used for protocol timestamps and the dBase
	// header date.
	Now func() time.Time
}

// Request describes one batch run.
type Request struct {
	// Source is a local path or an http(s)/ftp URL of the input table.
	Source string

	// Output is the result table; empty derives <input>_out.dbf.
	Output string

	// Protocol is the log file; empty derives it from Output.
	Protocol string

	// Summary, if set, receives a YAML run summary.
	Summary string

	// Export stores the per-parcel results, with geometries when the input
	// is a shapefile, in a store that supports it.
	Export bool

	Input input.Options

	// Config names the configuration file, for the run record only.
	Config string
}

// Pipeline runs batch calculations with one parameter set.
type Pipeline struct {
	calc *balance.Calculator
	opts Options
}

// New validates params and returns a Pipeline.
func New(params model.Parameters, opts Options) (*Pipeline, error) {
	calc, err := balance.NewCalculator(params)
	if err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{calc: calc, opts: opts}, nil
}

// Parameters returns the parameter set of the pipeline.
func (p *Pipeline) Parameters() model.Parameters {
	return p.calc.Parameters()
}

// Start creates the run record for req and marks it queued. It returns nil
// without a store.
func (p *Pipeline) Start(ctx context.Context, req Request) (*model.Run, error) {
	if p.opts.Store == nil {
		return nil, nil
	}
	req = p.withDefaults(req)
	run, err := p.opts.Store.CreateRun(ctx, model.RunInput{
		Source: req.Source,
		Output: req.Output,
		Format: req.Input.Format,
		Config: req.Config,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	return run, nil
}

// Run creates the run record and executes req. See Execute.
func (p *Pipeline) Run(ctx context.Context, req Request) (*model.RunResult, error) {
	run, err := p.Start(ctx, req)
	if err != nil {
		return nil, err
	}
	return p.Execute(ctx, run, req)
}

// Execute computes req for an already created run, which may be nil. The
// result table is written only when every record was computed; a cancelled
// run leaves no table behind and returns no error. The returned result is
// also stored with the run.
func (p *Pipeline) Execute(ctx context.Context, run *model.Run, req Request) (*model.RunResult, error) {
	req = p.withDefaults(req)
	log := zap.L().With(zap.String("source", req.Source), zap.String("output", req.Output))
	if run != nil {
		log = log.With(zap.String("run_id", run.ID))
	}

	// Status and result updates outlive a cancelled run context.
	bg := context.WithoutCancel(ctx)
	setStatus := func(status model.RunStatus) {
		if run == nil {
			return
		}
		if err := p.opts.Store.UpdateRunStatus(bg, run.ID, status); err != nil {
			log.Warn("pipeline: failed to update status", zap.Error(err))
		}
	}

	started := p.opts.Now()
	result := &model.RunResult{
		Status:    model.RunStatusRunning,
		Output:    req.Output,
		Protocol:  req.Protocol,
		StartedAt: started,
	}
	setStatus(model.RunStatusRunning)
	log.Info("pipeline: starting calculation")

	runID := ""
	if run != nil {
		runID = run.ID
	}
	runErr := p.execute(ctx, runID, req, result, log)

	result.CompletedAt = p.opts.Now()
	result.DurationMS = result.CompletedAt.Sub(started).Milliseconds()
	if runErr != nil {
		result.Status = model.RunStatusFailed
		result.Error = runErr.Error()
	}
	p.finish(bg, run, req, result, log)

	if runErr != nil {
		log.Error("pipeline: calculation failed", zap.Error(runErr))
		return result, runErr
	}
	log.Info("pipeline: calculation finished",
		zap.String("status", string(result.Status)),
		zap.Int("records_read", result.Counters.RecordsRead),
		zap.Int("records_written", result.Counters.RecordsWritten),
		zap.Int64("duration_ms", result.DurationMS),
	)
	return result, nil
}

func (p *Pipeline) execute(ctx context.Context, runID string, req Request, result *model.RunResult, log *zap.Logger) error {
	logFile, err := os.Create(req.Protocol)
	if err != nil {
		return eris.Wrapf(err, "pipeline: create protocol %s", req.Protocol)
	}
	defer logFile.Close() //nolint:errcheck

	plog := protocol.New(logFile, protocol.WithClock(p.opts.Now))
	plog.Start()

	err = p.calculate(ctx, runID, req, result, plog, log)
	switch {
	case err != nil:
		plog.Failed(err)
	case result.Status == model.RunStatusCancelled:
		plog.Cancelled()
	default:
		plog.Report(result.Counters)
	}

	if perr := plog.Err(); perr != nil && err == nil {
		err = perr
	}
	if cerr := logFile.Close(); cerr != nil && err == nil {
		err = eris.Wrapf(cerr, "pipeline: close protocol %s", req.Protocol)
	}
	return err
}

func (p *Pipeline) calculate(ctx context.Context, runID string, req Request, result *model.RunResult, plog *protocol.Log, log *zap.Logger) error {
	if ctx.Err() != nil {
		result.Status = model.RunStatusCancelled
		return nil
	}
	src, err := input.Open(ctx, req.Source, req.Input)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			log.Warn("pipeline: close input", zap.Error(cerr))
		}
	}()

	params := p.calc.Parameters()
	w := dbase.NewWriter(params.Decimals, params.Rounding, dbase.WithDate(p.opts.Now()))
	var sink balance.Sink = w
	var exp *exportSink
	rs := p.resultStore()
	if req.Export && rs != nil && runID != "" {
		exp = &exportSink{Sink: w}
		sink = exp
	}

	outcome, err := p.calc.Run(ctx, src, sink, plog, balance.Options{
		Workers:          p.opts.Workers,
		BatchSize:        p.opts.BatchSize,
		ProgressInterval: p.opts.ProgressInterval,
		Observer:         p.observer(),
	})
	result.Counters = outcome.Counters
	result.Status = outcome.Status
	if err != nil {
		return err
	}
	if outcome.Status != model.RunStatusComplete {
		return nil
	}

	if err := w.Save(req.Output); err != nil {
		return err
	}

	if exp != nil {
		n, err := rs.SaveResults(context.WithoutCancel(ctx), runID, exp.resultRows(src))
		if err != nil {
			log.Warn("pipeline: failed to export results", zap.Error(err))
			return nil
		}
		result.Exported = int(n)
	}
	return nil
}

func (p *Pipeline) finish(ctx context.Context, run *model.Run, req Request, result *model.RunResult, log *zap.Logger) {
	if p.opts.Metrics != nil {
		p.opts.Metrics.RunFinished(result.Status, time.Duration(result.DurationMS)*time.Millisecond)
	}

	if req.Summary != "" {
		s := protocol.Summary{
			Input:       req.Source,
			Output:      req.Output,
			Protocol:    req.Protocol,
			Status:      string(result.Status),
			Error:       result.Error,
			StartedAt:   result.StartedAt,
			CompletedAt: result.CompletedAt,
			DurationMS:  result.DurationMS,
			Counters:    result.Counters,
		}
		if run != nil {
			s.RunID = run.ID
		}
		if err := protocol.WriteSummary(req.Summary, s); err != nil {
			log.Warn("pipeline: failed to write summary", zap.Error(err))
		}
	}

	if run == nil {
		return
	}
	if err := p.opts.Store.UpdateRunResult(ctx, run.ID, result); err != nil {
		log.Warn("pipeline: failed to store result", zap.Error(err))
	}
}

func (p *Pipeline) withDefaults(req Request) Request {
	if req.Output == "" {
		req.Output = protocol.DefaultOutputName(localName(req.Source))
	}
	if req.Protocol == "" {
		req.Protocol = protocol.DefaultLogName(req.Output)
	}
	if req.Input.SRID == 0 {
		req.Input.SRID = defaultSRID
	}
	return req
}

// defaultSRID is ETRS89 / UTM zone 33N.
const defaultSRID = 25833

// localName maps a remote source to its file name in the working directory.
func localName(src string) string {
	if !fetcher.IsRemote(src) {
		return src
	}
	u, err := url.Parse(src)
	if err != nil || path.Base(u.Path) == "/" || path.Base(u.Path) == "." {
		return "download"
	}
	return path.Base(u.Path)
}
