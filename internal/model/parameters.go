package model

import "github.com/rotisserie/eris"

// SurfaceFactors holds one coefficient for roofs and one per pavement class.
type SurfaceFactors struct {
	Roof    float32    `json:"roof" yaml:"roof"`
	Classes [4]float32 `json:"classes" yaml:"classes"`
}

// UnknownUsagePolicy selects how records with an unrecognized usage code are
// handled.
type UnknownUsagePolicy string

const (
	// UnknownUsageFail aborts the run.
	UnknownUsageFail UnknownUsagePolicy = "fail"
	// UnknownUsageSkip drops the record with a diagnostic.
	UnknownUsageSkip UnknownUsagePolicy = "skip"
)

// RoundingMode selects how output values are rounded before formatting.
type RoundingMode string

const (
	RoundHalfAway RoundingMode = "half-away"
	RoundHalfEven RoundingMode = "half-even"
)

// Parameters is the immutable parameter set of one calculation run.
type Parameters struct {
	// PrecipitationCorrection multiplies the annual precipitation (niedKorrF).
	PrecipitationCorrection float32 `json:"precipitation_correction" yaml:"precipitation_correction"`

	// Infiltration is the share of sealed runoff that infiltrates, per surface.
	Infiltration SurfaceFactors `json:"infiltration" yaml:"infiltration"`

	// Effectiveness is the Bagrov parameter n of each sealed surface.
	Effectiveness SurfaceFactors `json:"effectiveness" yaml:"effectiveness"`

	// Potential evaporation per district [mm/a]. District 0 is the fallback.
	ETP  map[int]int `json:"etp" yaml:"etp"`
	ETPS map[int]int `json:"etps" yaml:"etps"`
	EG   map[int]int `json:"eg" yaml:"eg"`

	// Decimals maps output field names to their number of decimal places.
	Decimals map[string]int `json:"decimals" yaml:"decimals"`

	IrrigationToZero bool               `json:"irrigation_to_zero" yaml:"irrigation_to_zero"`
	UnknownUsage     UnknownUsagePolicy `json:"unknown_usage" yaml:"unknown_usage"`
	Rounding         RoundingMode       `json:"rounding" yaml:"rounding"`
}

// DefaultParameters returns the built-in parameter set.
func DefaultParameters() Parameters {
	return Parameters{
		PrecipitationCorrection: 1.09,
		Infiltration: SurfaceFactors{
			Roof:    0,
			Classes: [4]float32{0.1, 0.3, 0.6, 0.9},
		},
		Effectiveness: SurfaceFactors{
			Roof:    0.05,
			Classes: [4]float32{0.11, 0.11, 0.25, 0.40},
		},
		ETP:  map[int]int{},
		ETPS: map[int]int{},
		EG:   map[int]int{},
		Decimals: map[string]int{
			FieldRunoff:             3,
			FieldSurfaceRunoff:      3,
			FieldInfiltration:       3,
			FieldRunoffVolume:       3,
			FieldSurfaceVolume:      3,
			FieldInfiltrationVolume: 3,
			FieldArea:               0,
			FieldEvaporation:        3,
		},
		UnknownUsage: UnknownUsageFail,
		Rounding:     RoundHalfAway,
	}
}

// Validate checks the parameter set for values the calculator cannot use.
func (p Parameters) Validate() error {
	if p.PrecipitationCorrection <= 0 {
		return eris.Errorf("parameters: precipitation correction must be positive, got %v", p.PrecipitationCorrection)
	}
	for name, d := range p.Decimals {
		if d < 0 || d > 15 {
			return eris.Errorf("parameters: decimals for %s out of range: %d", name, d)
		}
	}
	if p.Effectiveness.Roof < 0 {
		return eris.Errorf("parameters: negative effectiveness %v for roofs", p.Effectiveness.Roof)
	}
	for i, n := range p.Effectiveness.Classes {
		if n < 0 {
			return eris.Errorf("parameters: negative effectiveness %v for pavement class %d", n, i+1)
		}
	}
	switch p.UnknownUsage {
	case UnknownUsageFail, UnknownUsageSkip:
	default:
		return eris.Errorf("parameters: unknown usage policy %q", p.UnknownUsage)
	}
	switch p.Rounding {
	case RoundHalfAway, RoundHalfEven:
	default:
		return eris.Errorf("parameters: unknown rounding mode %q", p.Rounding)
	}
	for _, m := range []map[int]int{p.ETP, p.ETPS, p.EG} {
		for district, v := range m {
			if v < 0 {
				return eris.Errorf("parameters: negative evaporation %d for district %d", v, district)
			}
		}
	}
	return nil
}
