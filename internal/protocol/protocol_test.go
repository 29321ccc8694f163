package protocol

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanhydro/abimo/internal/model"
)

var fixedClock = func() time.Time {
	return time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
}

func TestLog_Report(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	l := New(&sb, WithClock(fixedClock))

	l.Start()
	l.Diagnostic(model.Diagnostic{Code: "1", Kind: model.DiagnosticUnknownETP, Message: "ETP unknown for element 1 of district 3, ETP=660 assumed"})
	l.Report(model.Counters{
		RecordsRead:    10,
		RecordsWritten: 8,
		Diagnostics:    1,
		NoUsageGiven:   2,
	})
	require.NoError(t, l.Err())
	assert.Equal(t, 1, l.Entries())

	want := "Calculation started on 05.03.2024 at 14:07:09\r\n" +
		"\r\nETP unknown for element 1 of district 3, ETP=660 assumed\r\n" +
		"\r\nThe calculation reported 1 errors.\r\n" +
		"\r\nFor 2 records the usage was 0, these were ignored.\r\n" +
		"\r\nRecords read: 10\r\n" +
		"\r\nRecords written: 8\r\n" +
		"\r\nCalculation finished on 05.03.2024 at 14:07:09\r\n"
	assert.Equal(t, want, sb.String())
}

func TestLog_ReportOptionalLines(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	l := New(&sb, WithClock(fixedClock))
	l.Report(model.Counters{NoAreaGiven: 1, IrrigationForcedToZero: 4, UnknownUsageSkipped: 3})

	out := sb.String()
	assert.Contains(t, out, "For 1 areas with value 0 the value 100 was used.\r\n")
	assert.Contains(t, out, "For 4 records irrigation was forced to 0.\r\n")
	assert.Contains(t, out, "For 3 records the usage was unknown, these were skipped.\r\n")
	assert.NotContains(t, out, "usage was 0")
}

func TestLog_CancelledAndFailed(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	l := New(&sb)
	l.Cancelled()
	l.Failed(errors.New("disk full"))
	assert.Equal(t, "Calculation cancelled.\r\n\r\nError: disk full\r\n", sb.String())
}

type failingWriter struct{ n int }

func (w *failingWriter) Write(p []byte) (int, error) {
	w.n++
	return 0, errors.New("boom")
}

func TestLog_StickyError(t *testing.T) {
	t.Parallel()

	fw := &failingWriter{}
	l := New(fw)
	l.Start()
	l.Cancelled()
	require.Error(t, l.Err())
	assert.Contains(t, l.Err().Error(), "boom")
	assert.Equal(t, 1, fw.n)
}

func TestSummaryRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "summary.yaml")
	s := Summary{
		RunID:       "abc",
		Input:       "in.dbf",
		Output:      "in_out.dbf",
		Protocol:    "in_out.log",
		Status:      "complete",
		StartedAt:   fixedClock(),
		CompletedAt: fixedClock().Add(time.Second),
		DurationMS:  1000,
		Counters:    model.Counters{RecordsRead: 3, RecordsWritten: 2, NoUsageGiven: 1},
	}
	require.NoError(t, WriteSummary(path, s))

	got, err := ReadSummary(path)
	require.NoError(t, err)
	assert.Equal(t, s.Counters, got.Counters)
	assert.Equal(t, s.Status, got.Status)
	assert.True(t, s.StartedAt.Equal(got.StartedAt))

	_, err = ReadSummary(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "data/blocks_out.dbf", DefaultOutputName("data/blocks.dbf"))
	assert.Equal(t, "blocks_out.dbf", DefaultOutputName("blocks"))
	assert.Equal(t, "data/blocks_out.log", DefaultLogName("data/blocks_out.dbf"))
	assert.Equal(t, "result.log", DefaultLogName("result"))
}
