// Package climate resolves the potential evaporation of a district.
package climate

import (
	"fmt"

	"github.com/urbanhydro/abimo/internal/model"
)

// Built-in potential evaporation [mm/a] for districts without a configured
// value and no district 0 entry.
const (
	DefaultETP  = 660
	DefaultETPS = 530
	DefaultEG   = 775
)

// Result holds the evaporation values of one record. For waterbodies ETP is
// the open water evaporation (EG) and ETPS is unused.
type Result struct {
	ETP         int
	ETPS        int
	Diagnostics []model.Diagnostic
}

// Resolver looks up district evaporation with fallback to district 0 and
// then to the built-in defaults. It is safe for concurrent use.
type Resolver struct {
	etp  map[int]int
	etps map[int]int
	eg   map[int]int
}

// NewResolver builds a Resolver from the run parameters.
func NewResolver(p model.Parameters) *Resolver {
	return &Resolver{etp: p.ETP, etps: p.ETPS, eg: p.EG}
}

// Resolve returns the evaporation values for a record of the given usage in
// district. Each fallback adds one diagnostic.
func (r *Resolver) Resolve(district int, usage model.Usage, code string) Result {
	var res Result

	if usage == model.UsageWaterbody {
		var d *model.Diagnostic
		res.ETP, d = lookup(r.eg, district, DefaultEG, "EG", model.DiagnosticUnknownEG, code)
		res.add(d)
		return res
	}

	var d *model.Diagnostic
	res.ETP, d = lookup(r.etp, district, DefaultETP, "ETP", model.DiagnosticUnknownETP, code)
	res.add(d)
	res.ETPS, d = lookup(r.etps, district, DefaultETPS, "ETPS", model.DiagnosticUnknownETPS, code)
	res.add(d)
	return res
}

func (r *Result) add(d *model.Diagnostic) {
	if d != nil {
		r.Diagnostics = append(r.Diagnostics, *d)
	}
}

func lookup(m map[int]int, district, def int, name string, kind model.DiagnosticKind, code string) (int, *model.Diagnostic) {
	if v, ok := m[district]; ok {
		return v, nil
	}

	v, ok := m[0]
	if !ok {
		v = def
	}

	return v, &model.Diagnostic{
		Code:    code,
		Kind:    kind,
		Message: fmt.Sprintf("%s unknown for element %s of district %d, %s=%d assumed", name, code, district, name, v),
	}
}
