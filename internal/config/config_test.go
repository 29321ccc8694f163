package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/urbanhydro/abimo/internal/model"
)

// chdir moves into a fresh temp dir so no stray config.yaml is found.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdir(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 1, cfg.Run.Workers)
	assert.Equal(t, 512, cfg.Run.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Run.ProgressInterval)
	assert.Equal(t, 25833, cfg.Run.SRID)
	assert.Equal(t, 60*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 3, cfg.Fetch.Retry.Attempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Fetch.Retry.Backoff)
	assert.Equal(t, 24, cfg.Monitoring.LookbackWindowHours)

	p, err := cfg.Model.Parameters()
	require.NoError(t, err)
	def := model.DefaultParameters()
	assert.Equal(t, def.PrecipitationCorrection, p.PrecipitationCorrection)
	assert.Equal(t, def.Infiltration, p.Infiltration)
	assert.Equal(t, def.Effectiveness, p.Effectiveness)
	assert.Equal(t, def.Decimals, p.Decimals)
	assert.Equal(t, model.UnknownUsageFail, p.UnknownUsage)
	assert.Equal(t, model.RoundHalfAway, p.Rounding)
	assert.Empty(t, p.ETP)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdir(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
server:
  port: 9090
run:
  workers: 4
model:
  precipitation_correction: 1.0
  infiltration:
    classes: [0.2, 0.3, 0.6, 0.9]
  etp:
    "0": 660
    "1-3,5": 640
  eg:
    "2": 800
  decimals:
    flaeche: 2
  unknown_usage: skip
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Run.Workers)
	assert.Equal(t, 512, cfg.Run.BatchSize)

	p, err := cfg.Model.Parameters()
	require.NoError(t, err)
	assert.Equal(t, float32(1.0), p.PrecipitationCorrection)
	assert.Equal(t, [4]float32{0.2, 0.3, 0.6, 0.9}, p.Infiltration.Classes)
	// Partial override keeps the default of the sibling key.
	assert.Equal(t, float32(0), p.Infiltration.Roof)
	assert.Equal(t, float32(0.05), p.Effectiveness.Roof)
	assert.Equal(t, map[int]int{0: 660, 1: 640, 2: 640, 3: 640, 5: 640}, p.ETP)
	assert.Equal(t, map[int]int{2: 800}, p.EG)
	assert.Equal(t, 2, p.Decimals[model.FieldArea])
	assert.Equal(t, 3, p.Decimals[model.FieldRunoff])
	assert.Equal(t, model.UnknownUsageSkip, p.UnknownUsage)
}

func TestLoadExplicitFile(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "abimo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("run:\n  export_results: true\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Run.ExportResults)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read file")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log:\n  level: debug\nrun:\n  workers: 2\n"), 0o644))

	t.Setenv("ABIMO_LOG_LEVEL", "warn")
	t.Setenv("ABIMO_RUN_WORKERS", "8")
	t.Setenv("ABIMO_MODEL_ROUNDING", "half-even")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 8, cfg.Run.Workers)

	p, err := cfg.Model.Parameters()
	require.NoError(t, err)
	assert.Equal(t, model.RoundHalfEven, p.Rounding)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0o644))

	_, err := Load("")
	require.Error(t, err)
}

func TestModelParameters_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		cfg    ModelConfig
		errMsg string
	}{
		{"bad range", ModelConfig{ETP: map[string]int{"1-x": 600}}, "model.etp"},
		{"bad policy", ModelConfig{UnknownUsage: "ignore"}, "unknown usage policy"},
		{"negative eg", ModelConfig{EG: map[string]int{"4": -1}}, "negative evaporation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := tt.cfg.Parameters()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParseRanges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []int
		err  bool
	}{
		{"1-5,7", []int{1, 2, 3, 4, 5, 7}, false},
		{"3", []int{3}, false},
		{" 1 - 2 , 9 ", []int{1, 2, 9}, false},
		{"4-4", []int{4}, false},
		{"1,,2", []int{1, 2}, false},
		{"", nil, true},
		{"5-1", nil, true},
		{"a", nil, true},
		{"1-", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseRanges(tt.in)
			if tt.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandDistricts_LaterKeyWins(t *testing.T) {
	t.Parallel()

	got, err := expandDistricts("etp", map[string]int{"1-3": 600, "2": 700})
	require.NoError(t, err)
	// "2" sorts after "1-3".
	assert.Equal(t, map[int]int{1: 600, 2: 700, 3: 600}, got)
}

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LogConfig
		wantErr bool
	}{
		{"json info", LogConfig{Level: "info", Format: "json"}, false},
		{"console debug", LogConfig{Level: "debug", Format: "console"}, false},
		{"bad level", LogConfig{Level: "loud"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := InitLogger(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, zap.L())
		})
	}
}
