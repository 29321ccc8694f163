package config

import (
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/urbanhydro/abimo/internal/model"
)

// ModelConfig is the configurable part of the parameter set. District maps
// are keyed by district lists such as "1-5,7"; key "0" is the fallback.
type ModelConfig struct {
	PrecipitationCorrection float32              `yaml:"precipitation_correction" mapstructure:"precipitation_correction"`
	Infiltration            model.SurfaceFactors `yaml:"infiltration" mapstructure:"infiltration"`
	Effectiveness           model.SurfaceFactors `yaml:"effectiveness" mapstructure:"effectiveness"`

	ETP  map[string]int `yaml:"etp" mapstructure:"etp"`
	ETPS map[string]int `yaml:"etps" mapstructure:"etps"`
	EG   map[string]int `yaml:"eg" mapstructure:"eg"`

	Decimals map[string]int `yaml:"decimals" mapstructure:"decimals"`

	IrrigationToZero bool   `yaml:"irrigation_to_zero" mapstructure:"irrigation_to_zero"`
	UnknownUsage     string `yaml:"unknown_usage" mapstructure:"unknown_usage"`
	Rounding         string `yaml:"rounding" mapstructure:"rounding"`
}

// Parameters expands the district lists and returns the validated
// parameter set.
func (m ModelConfig) Parameters() (model.Parameters, error) {
	p := model.DefaultParameters()
	if m.PrecipitationCorrection != 0 {
		p.PrecipitationCorrection = m.PrecipitationCorrection
	}
	p.Infiltration = m.Infiltration
	p.Effectiveness = m.Effectiveness

	var err error
	if p.ETP, err = expandDistricts("etp", m.ETP); err != nil {
		return p, err
	}
	if p.ETPS, err = expandDistricts("etps", m.ETPS); err != nil {
		return p, err
	}
	if p.EG, err = expandDistricts("eg", m.EG); err != nil {
		return p, err
	}

	for field, d := range m.Decimals {
		p.Decimals[strings.ToUpper(field)] = d
	}
	p.IrrigationToZero = m.IrrigationToZero
	if m.UnknownUsage != "" {
		p.UnknownUsage = model.UnknownUsagePolicy(m.UnknownUsage)
	}
	if m.Rounding != "" {
		p.Rounding = model.RoundingMode(m.Rounding)
	}

	if err := p.Validate(); err != nil {
		return p, eris.Wrap(err, "config: model")
	}
	return p, nil
}

// expandDistricts applies the entries in sorted key order so that a later
// list overrides an earlier one deterministically.
func expandDistricts(name string, lists map[string]int) (map[int]int, error) {
	keys := make([]string, 0, len(lists))
	for k := range lists {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[int]int)
	for _, k := range keys {
		districts, err := ParseRanges(k)
		if err != nil {
			return nil, eris.Wrapf(err, "config: model.%s", name)
		}
		for _, d := range districts {
			out[d] = lists[k]
		}
	}
	return out, nil
}

// ParseRanges expands a district list such as "1-5,7" into its numbers in
// the order given. Blanks around items are ignored.
func ParseRanges(s string) ([]int, error) {
	var out []int
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(item, "-")
		from, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, eris.Errorf("invalid district %q in %q", item, s)
		}
		to := from
		if isRange {
			if to, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
				return nil, eris.Errorf("invalid district range %q in %q", item, s)
			}
		}
		if to < from {
			return nil, eris.Errorf("descending district range %q in %q", item, s)
		}
		for d := from; d <= to; d++ {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return nil, eris.Errorf("empty district list %q", s)
	}
	return out, nil
}
