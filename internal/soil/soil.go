// Package soil derives the soil water parameters of an unsealed area: usable
// field capacity, rooting depth, potential capillary rise and the annual
// capillary contribution from groundwater.
package soil

import "github.com/urbanhydro/abimo/internal/model"

// DefaultFieldCapacity is used when no field capacity sample is available.
const DefaultFieldCapacity float32 = 13.0

// noRiseRate is the capillary rise rate [mm/d] when the water table reaches
// the root zone.
const noRiseRate float32 = 7.0

// Epsilon is the tolerance of the bucket lookup in the capillary rise grid.
const Epsilon float32 = 0.0001

// FieldCapacity estimates the usable field capacity from the samples at 30 cm
// and 150 cm depth. Forests root deeper, so the 150 cm sample dominates there.
func FieldCapacity(f30, f150 int, forest bool) float32 {
	lo := min(f30, f150)
	if lo < 1 {
		return DefaultFieldCapacity
	}

	primary, secondary := f30, f150
	if forest {
		primary, secondary = f150, f30
	}

	if abs(f30-f150) < lo {
		return float32(primary)
	}

	return 0.75*float32(primary) + 0.25*float32(secondary)
}

// RootingDepth returns the mean rooting depth [m] of a usage class.
func RootingDepth(usage model.Usage, yield int) float32 {
	switch usage {
	case model.UsageVegetationless:
		return 0.2
	case model.UsageAgricultural:
		if yield <= 50 {
			return 0.6
		}
		return 0.7
	case model.UsageHorticultural:
		return 0.7
	case model.UsageForested:
		return 1.0
	default:
		return 0.2
	}
}

// PotentialCapillaryRise is the distance between the water table and the
// root zone [m]. Negative values mean the roots reach the groundwater.
func PotentialCapillaryRise(depthToWaterTable float32, usage model.Usage, yield int) float32 {
	return depthToWaterTable - RootingDepth(usage, yield)
}

// DaysOfGrowth returns the mean number of growing days of a usage class.
func DaysOfGrowth(usage model.Usage, yield int) int {
	switch usage {
	case model.UsageAgricultural:
		if yield <= 50 {
			return 60
		}
		return 75
	case model.UsageHorticultural:
		return 100
	case model.UsageForested:
		return 90
	case model.UsageVegetationless:
		return 50
	default:
		return 50
	}
}

// DailyRiseRate returns the mean potential capillary rise rate [mm/d] of the
// summer half-year.
func DailyRiseRate(rise, fieldCapacity float32) float32 {
	if float64(rise) <= 0 {
		return noRiseRate
	}
	row := Index(fieldCapacity, fieldCapacities, Epsilon)
	col := Index(rise, ascentRates, Epsilon)
	return riseRates[row][col]
}

// MeanCapillaryRiseRate returns the annual capillary rise [mm/a], truncated
// to whole millimetres.
func MeanCapillaryRiseRate(rise, fieldCapacity float32, usage model.Usage, yield int) int {
	kr := DailyRiseRate(rise, fieldCapacity)
	return int(float32(DaysOfGrowth(usage, yield)) * kr)
}

// Params bundles the soil values the balance needs for one record.
type Params struct {
	FieldCapacity float32 `json:"field_capacity"`
	RootingDepth  float32 `json:"rooting_depth"`
	CapillaryRise float32 `json:"capillary_rise"`
	RiseRate      int     `json:"rise_rate"`
	DaysOfGrowth  int     `json:"days_of_growth"`
}

// Derive computes all soil values for a classified record.
func Derive(rec model.InputRecord, tuple model.UsageTuple) Params {
	fc := FieldCapacity(rec.FieldCapacity30, rec.FieldCapacity150, tuple.Usage == model.UsageForested)
	rise := PotentialCapillaryRise(rec.DepthToWaterTable, tuple.Usage, tuple.Yield)
	return Params{
		FieldCapacity: fc,
		RootingDepth:  RootingDepth(tuple.Usage, tuple.Yield),
		CapillaryRise: rise,
		RiseRate:      MeanCapillaryRiseRate(rise, fc, tuple.Usage, tuple.Yield),
		DaysOfGrowth:  DaysOfGrowth(tuple.Usage, tuple.Yield),
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
