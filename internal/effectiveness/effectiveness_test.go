package effectiveness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/urbanhydro/abimo/internal/model"
)

func TestUnsealed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   Input
		want float32
	}{
		{"forest low G02", Input{Usage: model.UsageForested, FieldCapacity: 8}, 3},
		{"forest mid G02", Input{Usage: model.UsageForested, FieldCapacity: 13}, 4},
		{"forest high G02", Input{Usage: model.UsageForested, FieldCapacity: 20}, 8},
		{"quadratic", Input{Usage: model.UsageAgricultural, Yield: 40, FieldCapacity: 13}, 1.4610217},
		{"quadratic below override", Input{Usage: model.UsageAgricultural, Yield: 50, FieldCapacity: 13}, 1.9949961},
		{"zero yield", Input{Usage: model.UsageAgricultural, FieldCapacity: 13}, 0.4051969},
		{"override large n", Input{Usage: model.UsageAgricultural, Yield: 40, FieldCapacity: 40}, 4.688},
		{"override high yield", Input{Usage: model.UsageAgricultural, Yield: 60, FieldCapacity: 20}, 5.7956023},
		{"high yield quadratic", Input{Usage: model.UsageAgricultural, Yield: 100, FieldCapacity: 10}, 6.7749596},
		{"negative capacity clamps", Input{Usage: model.UsageAgricultural, Yield: 40, FieldCapacity: -3}, 1.039},
		{"dry correction", Input{Usage: model.UsageHorticultural, Yield: 40, Irrigation: 75, FieldCapacity: 13}, 1.7388179},
		{"no dry correction with summer data", Input{Usage: model.UsageHorticultural, Yield: 40, Irrigation: 75, FieldCapacity: 13, PrecipitationSummer: 300}, 1.4610217},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, Unsealed(tt.in), 1e-5)
		})
	}
}

func TestBand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		yield, want int
	}{
		{0, 3}, {4, 3}, {5, 3}, {10, 8}, {15, 13}, {20, 13}, {35, 28},
		{40, 33}, {49, 38}, {50, 43}, {60, 48}, {90, 63}, {200, 63},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, band(tt.yield), "yield %d", tt.yield)
	}
}

func TestPlantAvailableWater(t *testing.T) {
	t.Parallel()

	assert.Equal(t, float32(0), PlantAvailableWater(0))
	assert.Equal(t, float32(0.3), PlantAvailableWater(3.5))
	assert.Equal(t, float32(11.0), PlantAvailableWater(13))
	assert.Equal(t, float32(11.0), PlantAvailableWater(13.49))
	assert.Equal(t, float32(12.4), PlantAvailableWater(13.5))
	assert.Equal(t, float32(55.0), PlantAvailableWater(30))
	assert.Equal(t, float32(55.0), PlantAvailableWater(99))
	assert.Equal(t, float32(0), PlantAvailableWater(-8))
}

func TestWetFactor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, float32(0.65), WetFactor(0.1))
	assert.Equal(t, float32(1.70), WetFactor(1.5))
	assert.InDelta(t, 0.86, WetFactor(0.566), 1e-6)
	assert.InDelta(t, 0.70, WetFactor(0.5), 1e-6)
}

func TestEstimate(t *testing.T) {
	t.Parallel()

	base := Input{Usage: model.UsageAgricultural, Yield: 40, FieldCapacity: 13}
	assert.Equal(t, Unsealed(base), Estimate(base))

	// Summer supply 300 mm over 530 mm potential evaporation.
	wet := base
	wet.PrecipitationSummer = 300
	wet.ETPS = 530
	assert.InDelta(t, 0.86*1.4610217, Estimate(wet), 1e-5)

	// Irrigation and capillary rise add to the summer supply.
	wet.Irrigation = 100
	wet.CapillaryRise = 130
	assert.InDelta(t, 1.51*1.4610217, Estimate(wet), 1e-5)
}
