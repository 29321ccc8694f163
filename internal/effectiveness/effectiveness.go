// Package effectiveness estimates the Bagrov effectiveness parameter n of the
// unsealed part of a parcel from its usage, yield and soil.
package effectiveness

import (
	"github.com/urbanhydro/abimo/internal/model"
	"github.com/urbanhydro/abimo/internal/soil"
)

// Input carries the record values the estimate depends on.
type Input struct {
	Usage               model.Usage
	Yield               int
	Irrigation          int
	FieldCapacity       float32
	PrecipitationSummer int
	ETPS                int
	CapillaryRise       int // annual capillary rise KR [mm/a]
}

// Estimate returns the effectiveness parameter including the summer wet
// correction. Waterbodies have no effectiveness parameter and must not be
// passed in.
func Estimate(in Input) float32 {
	n := Unsealed(in)
	if in.PrecipitationSummer > 0 && in.ETPS > 0 {
		wet := float32(in.PrecipitationSummer+in.Irrigation+in.CapillaryRise) / float32(in.ETPS)
		return WetFactor(wet) * n
	}
	return n
}

// Unsealed returns the base effectiveness parameter without the wet
// correction. Irrigated areas without summer data get the dry correction.
func Unsealed(in Input) float32 {
	g := PlantAvailableWater(in.FieldCapacity)

	if in.Usage == model.UsageForested {
		switch {
		case g <= 10:
			return 3.0
		case g <= 25:
			return 4.0
		default:
			return 8.0
		}
	}

	k := band(in.Yield)
	bag := eka[k-1] + eka[k]*g + eka[k+1]*g*g
	if (bag >= 2.0 && in.Yield < 60) || (g >= 20.0 && in.Yield >= 60) {
		bag = eka[k-3]*g + eka[k-2]
	}

	if in.Irrigation > 0 && in.PrecipitationSummer == 0 && in.ETPS == 0 {
		ber := float32(in.Irrigation)
		bag *= 0.9985 + 0.00284*ber - 0.00000379762*ber*ber
	}

	return bag
}

// band maps the yield power to the offset of its coefficient row in eka.
func band(yield int) int {
	k := yield / 5
	if yield > 49 {
		k = yield/10 + 5
	}
	if k <= 0 {
		k = 1
	}
	if k >= 4 {
		k--
	}
	if k > 13 {
		k = 13
	}
	return 5*k - 2
}

// PlantAvailableWater returns G02 for the field capacity rounded to whole
// numbers. Capacities outside the table are clamped.
func PlantAvailableWater(fieldCapacity float32) float32 {
	i := int(float64(fieldCapacity) + 0.5)
	i = max(0, min(i, len(g02)-1))
	return g02[i]
}

// WetFactor returns the correction factor for the ratio of summer water
// supply to summer potential evaporation.
func WetFactor(ratio float32) float32 {
	return soil.Interpolate(ratio, wetRatios, wetFactors)
}
