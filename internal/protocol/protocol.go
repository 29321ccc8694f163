// Package protocol writes the human-readable calculation log that accompanies
// every output table. Lines end with CRLF.
package protocol

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/urbanhydro/abimo/internal/model"
)

const eol = "\r\n"

// Log writes protocol entries. Write errors are sticky and reported by Err.
// It is safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	w       io.Writer
	now     func() time.Time
	entries int
	err     error
}

// Option configures a Log.
type Option func(*Log)

// WithClock replaces the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// New returns a Log writing to w.
func New(w io.Writer, opts ...Option) *Log {
	l := &Log{w: w, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start writes the start line.
func (l *Log) Start() {
	l.printf("Calculation started %s"+eol, stamp(l.now()))
}

// Diagnostic writes one per-record entry.
func (l *Log) Diagnostic(d model.Diagnostic) {
	l.mu.Lock()
	l.entries++
	l.mu.Unlock()
	l.printf(eol+"%s"+eol, d.Message)
}

// Cancelled records that the calculation was aborted.
func (l *Log) Cancelled() {
	l.printf("Calculation cancelled." + eol)
}

// Failed records a fatal error.
func (l *Log) Failed(err error) {
	l.printf(eol+"Error: %s"+eol, err)
}

// Report writes the end-of-run summary.
func (l *Log) Report(c model.Counters) {
	l.printf(eol+"The calculation reported %d errors."+eol, c.Diagnostics)
	if c.NoAreaGiven != 0 {
		l.printf(eol+"For %d areas with value 0 the value 100 was used."+eol, c.NoAreaGiven)
	}
	if c.NoUsageGiven != 0 {
		l.printf(eol+"For %d records the usage was 0, these were ignored."+eol, c.NoUsageGiven)
	}
	if c.IrrigationForcedToZero != 0 {
		l.printf(eol+"For %d records irrigation was forced to 0."+eol, c.IrrigationForcedToZero)
	}
	if c.UnknownUsageSkipped != 0 {
		l.printf(eol+"For %d records the usage was unknown, these were skipped."+eol, c.UnknownUsageSkipped)
	}
	l.printf(eol+"Records read: %d"+eol, c.RecordsRead)
	l.printf(eol+"Records written: %d"+eol, c.RecordsWritten)
	l.printf(eol+"Calculation finished %s"+eol, stamp(l.now()))
}

// Entries returns the number of diagnostics written.
func (l *Log) Entries() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries
}

// Err returns the first write error.
func (l *Log) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *Log) printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return
	}
	if _, err := fmt.Fprintf(l.w, format, args...); err != nil {
		l.err = eris.Wrap(err, "protocol: write")
	}
}

func stamp(t time.Time) string {
	return "on " + t.Format("02.01.2006") + " at " + t.Format("15:04:05")
}
