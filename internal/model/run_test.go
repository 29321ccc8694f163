package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStatusValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status   RunStatus
		want     string
		terminal bool
	}{
		{RunStatusQueued, "queued", false},
		{RunStatusRunning, "running", false},
		{RunStatusComplete, "complete", true},
		{RunStatusCancelled, "cancelled", true},
		{RunStatusFailed, "failed", true},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.status))
			assert.Equal(t, tt.terminal, tt.status.Terminal())
		})
	}
}

func TestCountersAdd(t *testing.T) {
	t.Parallel()

	c := Counters{RecordsRead: 2, Diagnostics: 1}
	c.Add(Counters{RecordsRead: 3, RecordsWritten: 2, NoAreaGiven: 1, NoUsageGiven: 4, IrrigationForcedToZero: 5, UnknownUsageSkipped: 6, Diagnostics: 2})

	assert.Equal(t, Counters{
		RecordsRead:            5,
		RecordsWritten:         2,
		Diagnostics:            3,
		NoAreaGiven:            1,
		NoUsageGiven:           4,
		IrrigationForcedToZero: 5,
		UnknownUsageSkipped:    6,
	}, c)
}

func TestDefaultParameters(t *testing.T) {
	t.Parallel()

	p := DefaultParameters()
	require.NoError(t, p.Validate())

	assert.InDelta(t, 1.09, p.PrecipitationCorrection, 1e-6)
	assert.Equal(t, float32(0), p.Infiltration.Roof)
	assert.Equal(t, [4]float32{0.1, 0.3, 0.6, 0.9}, p.Infiltration.Classes)
	assert.Equal(t, float32(0.05), p.Effectiveness.Roof)
	assert.Equal(t, 0, p.Decimals[FieldArea])
	assert.Equal(t, 3, p.Decimals[FieldRunoff])
	assert.Equal(t, UnknownUsageFail, p.UnknownUsage)
	assert.Equal(t, RoundHalfAway, p.Rounding)
}

func TestParametersValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(p *Parameters)
		errMsg string
	}{
		{"bad correction", func(p *Parameters) { p.PrecipitationCorrection = 0 }, "precipitation correction"},
		{"bad decimals", func(p *Parameters) { p.Decimals[FieldRunoff] = -1 }, "decimals"},
		{"bad policy", func(p *Parameters) { p.UnknownUsage = "ignore" }, "unknown usage policy"},
		{"bad rounding", func(p *Parameters) { p.Rounding = "up" }, "rounding mode"},
		{"negative etp", func(p *Parameters) { p.ETP[3] = -1 }, "negative evaporation"},
		{"negative roof effectiveness", func(p *Parameters) { p.Effectiveness.Roof = -0.1 }, "negative effectiveness"},
		{"negative class effectiveness", func(p *Parameters) { p.Effectiveness.Classes[2] = -1 }, "pavement class 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := DefaultParameters()
			tt.mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParametersValidate_ZeroEffectiveness(t *testing.T) {
	t.Parallel()

	p := DefaultParameters()
	p.Effectiveness.Roof = 0
	p.Effectiveness.Classes = [4]float32{}
	assert.NoError(t, p.Validate())
}

func TestUsageString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "waterbody", UsageWaterbody.String())
	assert.Equal(t, "forested", UsageForested.String())
	assert.Equal(t, "unknown", Usage('x').String())
	assert.Len(t, OutputFields, 9)
	assert.Len(t, OutputRecord{}.Values(), 8)
}
