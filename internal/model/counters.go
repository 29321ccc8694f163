package model

// Counters are the run-scoped tallies reported at the end of a calculation.
type Counters struct {
	RecordsRead            int `json:"records_read" yaml:"records_read"`
	RecordsWritten         int `json:"records_written" yaml:"records_written"`
	Diagnostics            int `json:"diagnostics" yaml:"diagnostics"`
	NoAreaGiven            int `json:"no_area_given" yaml:"no_area_given"`
	NoUsageGiven           int `json:"no_usage_given" yaml:"no_usage_given"`
	IrrigationForcedToZero int `json:"irrigation_forced_to_zero" yaml:"irrigation_forced_to_zero"`
	UnknownUsageSkipped    int `json:"unknown_usage_skipped" yaml:"unknown_usage_skipped"`
}

// Add accumulates o into c.
func (c *Counters) Add(o Counters) {
	c.RecordsRead += o.RecordsRead
	c.RecordsWritten += o.RecordsWritten
	c.Diagnostics += o.Diagnostics
	c.NoAreaGiven += o.NoAreaGiven
	c.NoUsageGiven += o.NoUsageGiven
	c.IrrigationForcedToZero += o.IrrigationForcedToZero
	c.UnknownUsageSkipped += o.UnknownUsageSkipped
}

// DiagnosticKind classifies a protocol entry.
type DiagnosticKind string

const (
	DiagnosticUnknownType  DiagnosticKind = "unknown_type"
	DiagnosticUnknownUsage DiagnosticKind = "unknown_usage"
	DiagnosticUnknownETP   DiagnosticKind = "unknown_etp"
	DiagnosticUnknownETPS  DiagnosticKind = "unknown_etps"
	DiagnosticUnknownEG    DiagnosticKind = "unknown_eg"
	DiagnosticNoArea       DiagnosticKind = "no_area"
)

// Diagnostic is one per-record protocol entry.
type Diagnostic struct {
	Code    string         `json:"code"`
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message"`
}
