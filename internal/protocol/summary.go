package protocol

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/urbanhydro/abimo/internal/model"
)

// Summary is the machine-readable outcome of a run.
type Summary struct {
	RunID       string         `yaml:"run_id,omitempty"`
	Input       string         `yaml:"input"`
	Output      string         `yaml:"output"`
	Protocol    string         `yaml:"protocol"`
	Status      string         `yaml:"status"`
	Error       string         `yaml:"error,omitempty"`
	StartedAt   time.Time      `yaml:"started_at"`
	CompletedAt time.Time      `yaml:"completed_at"`
	DurationMS  int64          `yaml:"duration_ms"`
	Counters    model.Counters `yaml:"counters"`
}

// WriteSummary stores s as YAML at path.
func WriteSummary(path string, s Summary) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return eris.Wrap(err, "protocol: marshal summary")
	}
	return eris.Wrapf(os.WriteFile(path, data, 0o644), "protocol: write summary %s", path)
}

// ReadSummary loads a summary written by WriteSummary.
func ReadSummary(path string) (Summary, error) {
	var s Summary
	data, err := os.ReadFile(path)
	if err != nil {
		return s, eris.Wrapf(err, "protocol: read summary %s", path)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, eris.Wrapf(err, "protocol: parse summary %s", path)
	}
	return s, nil
}

// DefaultOutputName derives the output table name from the input name.
func DefaultOutputName(input string) string {
	return trimExt(input) + "_out.dbf"
}

// DefaultLogName derives the protocol file name from the output name.
func DefaultLogName(output string) string {
	return trimExt(output) + ".log"
}

func trimExt(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}
