package balance

import (
	"context"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/urbanhydro/abimo/internal/model"
)

// RecordSource yields input records in file order. Next returns io.EOF after
// the last record.
type RecordSource interface {
	Next(ctx context.Context) (model.InputRecord, error)
}

// Sink receives output records in input order.
type Sink interface {
	Write(rec model.OutputRecord) error
}

// DiagnosticSink receives per-record protocol entries in input order.
type DiagnosticSink interface {
	Diagnostic(d model.Diagnostic)
}

// Observer is notified after each record has been handled.
type Observer interface {
	RecordDone(res Result)
}

// Options tunes Run.
type Options struct {
	// Workers > 1 computes records concurrently. Output, diagnostics and
	// counters are the same as for a sequential run.
	Workers int

	// BatchSize is the number of records computed per parallel batch.
	BatchSize int

	// ProgressInterval throttles progress log lines. Zero disables them.
	ProgressInterval time.Duration

	Observer Observer
}

const defaultBatchSize = 512

// Outcome is the result of a run.
type Outcome struct {
	Status   model.RunStatus `json:"status"`
	Counters model.Counters  `json:"counters"`
}

// Run computes every record of src and writes the results to sink. A
// cancelled context stops the run before the next record with status
// cancelled and no error. Errors are returned for source and sink failures
// and for unknown usage codes under the fail policy.
func (c *Calculator) Run(ctx context.Context, src RecordSource, sink Sink, diag DiagnosticSink, opts Options) (Outcome, error) {
	r := &runner{
		calc: c,
		sink: sink,
		diag: diag,
		opts: opts,
		out:  Outcome{Status: model.RunStatusRunning},
	}
	if opts.ProgressInterval > 0 {
		r.progress = &rate.Sometimes{Interval: opts.ProgressInterval}
	}

	var err error
	if opts.Workers > 1 {
		err = r.parallel(ctx, src)
	} else {
		err = r.sequential(ctx, src)
	}

	switch {
	case err != nil:
		r.out.Status = model.RunStatusFailed
	case r.out.Status == model.RunStatusRunning:
		r.out.Status = model.RunStatusComplete
	}

	c.log.Info("run finished",
		zap.String("status", string(r.out.Status)),
		zap.Int("read", r.out.Counters.RecordsRead),
		zap.Int("written", r.out.Counters.RecordsWritten),
		zap.Int("diagnostics", r.out.Counters.Diagnostics),
	)
	return r.out, err
}

type runner struct {
	calc     *Calculator
	sink     Sink
	diag     DiagnosticSink
	opts     Options
	progress *rate.Sometimes
	out      Outcome
}

func (r *runner) sequential(ctx context.Context, src RecordSource) error {
	for {
		if ctx.Err() != nil {
			r.out.Status = model.RunStatusCancelled
			return nil
		}

		rec, err := src.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return eris.Wrap(err, "balance: read record")
		}
		r.out.Counters.RecordsRead++

		res, err := r.calc.Compute(rec)
		if err != nil {
			return eris.Wrapf(err, "balance: record %d", r.out.Counters.RecordsRead)
		}
		if err := r.emit(res); err != nil {
			return err
		}
	}
}

// parallel reads records in batches, computes each batch with a bounded
// errgroup into index-addressed slots and emits the batch in order.
func (r *runner) parallel(ctx context.Context, src RecordSource) error {
	size := r.opts.BatchSize
	if size <= 0 {
		size = defaultBatchSize
	}

	batch := make([]model.InputRecord, 0, size)
	results := make([]Result, size)
	errs := make([]error, size)

	for done := false; !done; {
		batch = batch[:0]
		for len(batch) < size {
			if ctx.Err() != nil {
				r.out.Status = model.RunStatusCancelled
				return nil
			}
			rec, err := src.Next(ctx)
			if err == io.EOF {
				done = true
				break
			}
			if err != nil {
				return eris.Wrap(err, "balance: read record")
			}
			batch = append(batch, rec)
		}

		// Failures are kept per slot so the batch is emitted up to the
		// first failing record, as a sequential run would.
		g := new(errgroup.Group)
		g.SetLimit(r.opts.Workers)
		for i := range batch {
			g.Go(func() error {
				results[i], errs[i] = r.calc.Compute(batch[i])
				return nil
			})
		}
		_ = g.Wait()

		for i := range batch {
			r.out.Counters.RecordsRead++
			if errs[i] != nil {
				return eris.Wrapf(errs[i], "balance: record %d", r.out.Counters.RecordsRead)
			}
			if err := r.emit(results[i]); err != nil {
				return err
			}
			results[i] = Result{}
		}
	}
	return nil
}

func (r *runner) emit(res Result) error {
	for _, d := range res.Diagnostics {
		if r.diag != nil {
			r.diag.Diagnostic(d)
		}
	}

	written := res.Counters.RecordsWritten
	res.Counters.RecordsWritten = 0
	r.out.Counters.Add(res.Counters)

	if res.Emitted {
		if err := r.sink.Write(res.Output); err != nil {
			return eris.Wrap(err, "write results")
		}
		r.out.Counters.RecordsWritten += written
	}

	if r.opts.Observer != nil {
		r.opts.Observer.RecordDone(res)
	}
	if r.progress != nil {
		r.progress.Do(func() {
			r.calc.log.Info("progress", zap.Int("records", r.out.Counters.RecordsRead))
		})
	}
	return nil
}
