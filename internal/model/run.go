package model

import "time"

// RunStatus represents the current state of a calculation run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusComplete  RunStatus = "complete"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusFailed    RunStatus = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s RunStatus) Terminal() bool {
	return s == RunStatusComplete || s == RunStatusCancelled || s == RunStatusFailed
}

// RunInput describes what a run was started with.
type RunInput struct {
	Source string `json:"source"`
	Output string `json:"output"`
	Format string `json:"format,omitempty"`
	Config string `json:"config,omitempty"`
}

// Run represents a single batch calculation.
type Run struct {
	ID        string     `json:"id"`
	Input     RunInput   `json:"input"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult holds the final outcome of a run.
type RunResult struct {
	Status      RunStatus `json:"status" yaml:"status"`
	Counters    Counters  `json:"counters" yaml:"counters"`
	DurationMS  int64     `json:"duration_ms" yaml:"duration_ms"`
	Output      string    `json:"output" yaml:"output"`
	Protocol    string    `json:"protocol,omitempty" yaml:"protocol,omitempty"`
	Error       string    `json:"error,omitempty" yaml:"error,omitempty"`
	Exported    int       `json:"exported,omitempty" yaml:"exported,omitempty"`
	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	CompletedAt time.Time `json:"completed_at" yaml:"completed_at"`
}
