// Package usage maps the land use code (NUTZUNG) and building structure type
// (TYP) of a parcel to its usage class, yield power and irrigation.
package usage

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/urbanhydro/abimo/internal/model"
)

// ErrUnknownUsage is returned for usage codes that have no classification.
var ErrUnknownUsage = eris.New("usage: unknown usage code")

// Result is the outcome of one classification.
type Result struct {
	Tuple model.UsageTuple

	// Diagnostic is set when the type code was not defined for the usage and
	// the band fallback was assumed.
	Diagnostic *model.Diagnostic
}

// Classify maps a (usage, type) pair. code identifies the record in
// diagnostics and errors.
func Classify(usageCode, typeCode int, code string) (Result, error) {
	b, ok := bands[usageCode]
	if !ok {
		return Result{Tuple: model.UsageTuple{Usage: model.UsageUnknown}},
			eris.Wrapf(ErrUnknownUsage, "usage %d for element %s", usageCode, code)
	}

	if len(b.types) == 0 {
		return Result{Tuple: b.fallback}, nil
	}

	if t, ok := b.types[typeCode]; ok {
		return Result{Tuple: t}, nil
	}

	return Result{
		Tuple: b.fallback,
		Diagnostic: &model.Diagnostic{
			Code:    code,
			Kind:    model.DiagnosticUnknownType,
			Message: fmt.Sprintf("type %d not defined for element %s, type=%d assumed", typeCode, code, b.fallbackType),
		},
	}, nil
}

// Known reports whether usageCode has a classification.
func Known(usageCode int) bool {
	_, ok := bands[usageCode]
	return ok
}

// Codes returns all classified usage codes in ascending order.
func Codes() []int {
	codes := make([]int, 0, len(bands))
	for c := range bands {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	return codes
}
