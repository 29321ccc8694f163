// Package balance computes the annual water balance of parcels: runoff from
// sealed and unsealed surfaces, its split into surface runoff and
// infiltration, and the resulting evaporation.
package balance

import (
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/urbanhydro/abimo/internal/bagrov"
	"github.com/urbanhydro/abimo/internal/climate"
	"github.com/urbanhydro/abimo/internal/effectiveness"
	"github.com/urbanhydro/abimo/internal/f32"
	"github.com/urbanhydro/abimo/internal/model"
	"github.com/urbanhydro/abimo/internal/soil"
	"github.com/urbanhydro/abimo/internal/usage"
)

// minArea is the total area below which a parcel is treated as unsized.
const minArea = 0.0001

// defaultArea replaces the area of unsized parcels [m2].
const defaultArea float32 = 100

// volumeFactor converts mm/a over m2 into the volume unit of RVOL.
const volumeFactor float32 = 3.171

// Intermediate holds the values a record's balance is derived from.
type Intermediate struct {
	Tuple model.UsageTuple `json:"tuple"`
	Soil  soil.Params      `json:"soil"`
	ETP   int              `json:"etp"`
	ETPS  int              `json:"etps"`

	Precipitation float32 `json:"precipitation"`

	// Runoff [mm/a] of the roof and the four pavement classes.
	RoofRunoff  float32    `json:"roof_runoff"`
	ClassRunoff [4]float32 `json:"class_runoff"`

	// Unsealed area: effectiveness parameter and runoff.
	Effectiveness  float32 `json:"effectiveness"`
	UnsealedRunoff float32 `json:"unsealed_runoff"`

	SealedShare int     `json:"sealed_share"` // VER [%]
	MainShare   float32 `json:"main_share"`
	RoadShare   float32 `json:"road_share"`

	SurfaceParts      [6]float32 `json:"surface_parts"`      // roof, classes 1-4, unsealed road
	InfiltrationParts [7]float32 `json:"infiltration_parts"` // roof, classes 1-4, unsealed road, unsealed
}

// Result is the outcome of computing one record.
type Result struct {
	Output       model.OutputRecord
	Emitted      bool
	Diagnostics  []model.Diagnostic
	Counters     model.Counters
	Intermediate Intermediate
}

// Calculator computes records with one immutable parameter set. It is safe
// for concurrent use.
type Calculator struct {
	params  model.Parameters
	climate *climate.Resolver
	log     *zap.Logger
}

// NewCalculator validates p and returns a Calculator.
func NewCalculator(p model.Parameters) (*Calculator, error) {
	if err := p.Validate(); err != nil {
		return nil, eris.Wrap(err, "balance: invalid parameters")
	}
	return &Calculator{
		params:  p,
		climate: climate.NewResolver(p),
		log:     zap.L().Named("balance"),
	}, nil
}

// Parameters returns the parameter set of the calculator.
func (c *Calculator) Parameters() model.Parameters {
	return c.params
}

// Compute calculates one record. Records with usage 0 and, under the skip
// policy, records with an unknown usage produce no output. An unknown usage
// under the fail policy returns an error matching usage.ErrUnknownUsage.
func (c *Calculator) Compute(rec model.InputRecord) (Result, error) {
	var res Result

	if rec.Usage == 0 {
		res.Counters.NoUsageGiven++
		return res, nil
	}

	cls, err := usage.Classify(rec.Usage, rec.Type, rec.Code)
	if err != nil {
		if c.params.UnknownUsage == model.UnknownUsageSkip {
			res.addDiagnostic(model.Diagnostic{
				Code:    rec.Code,
				Kind:    model.DiagnosticUnknownUsage,
				Message: fmt.Sprintf("usage %d not defined for element %s, record skipped", rec.Usage, rec.Code),
			})
			res.Counters.UnknownUsageSkipped++
			return res, nil
		}
		return res, err
	}
	if cls.Diagnostic != nil {
		res.addDiagnostic(*cls.Diagnostic)
	}

	im := &res.Intermediate
	im.Tuple = cls.Tuple
	if c.params.IrrigationToZero && im.Tuple.Irrigation != 0 {
		im.Tuple.Irrigation = 0
		res.Counters.IrrigationForcedToZero++
	}

	waterbody := im.Tuple.Usage == model.UsageWaterbody
	if !waterbody {
		im.Soil = soil.Derive(rec, im.Tuple)
	}

	cl := c.climate.Resolve(rec.District, im.Tuple.Usage, rec.Code)
	for _, d := range cl.Diagnostics {
		res.addDiagnostic(d)
	}
	im.ETP, im.ETPS = cl.ETP, cl.ETPS

	c.runoff(rec, im)

	res.Output = c.aggregate(rec, im, &res)
	res.Emitted = true
	res.Counters.RecordsWritten++

	if ce := c.log.Check(zapcore.DebugLevel, "record computed"); ce != nil {
		ce.Write(
			zap.String("code", rec.Code),
			zap.String("usage", im.Tuple.Usage.String()),
			zap.Float32("effectiveness", im.Effectiveness),
			zap.Float32("unsealed_runoff", im.UnsealedRunoff),
			zap.Float32("runoff", res.Output.Runoff),
		)
	}

	return res, nil
}

// runoff computes the runoff heights of the sealed surfaces and of the
// unsealed area.
func (c *Calculator) runoff(rec model.InputRecord, im *Intermediate) {
	ep := float32(im.ETP)
	p := float32(rec.PrecipitationYear) * c.params.PrecipitationCorrection
	x := p / ep
	im.Precipitation = p

	eff := c.params.Effectiveness
	im.RoofRunoff = p - bagrov.YRatio(eff.Roof, x)*ep
	for i, n := range eff.Classes {
		im.ClassRunoff[i] = p - bagrov.YRatio(n, x)*ep
	}

	if im.Tuple.Usage == model.UsageWaterbody {
		im.UnsealedRunoff = p - ep
		return
	}

	kr := im.Soil.RiseRate
	ber := im.Tuple.Irrigation
	im.Effectiveness = effectiveness.Estimate(effectiveness.Input{
		Usage:               im.Tuple.Usage,
		Yield:               im.Tuple.Yield,
		Irrigation:          ber,
		FieldCapacity:       im.Soil.FieldCapacity,
		PrecipitationSummer: rec.PrecipitationSummer,
		ETPS:                im.ETPS,
		CapillaryRise:       kr,
	})

	x = (p + float32(kr) + float32(ber)) / ep
	y := bagrov.YRatio(im.Effectiveness, x)

	var etr float32
	if tas := im.Soil.CapillaryRise; tas < 0 {
		etr = (ep-y*ep)*f32.Exp(rec.DepthToWaterTable/tas) + y*ep
	} else {
		etr = y * ep
	}
	im.UnsealedRunoff = p - etr
}

// aggregate splits the runoff heights by surface shares into surface runoff
// and infiltration and derives volumes and evaporation.
func (c *Calculator) aggregate(rec model.InputRecord, im *Intermediate, res *Result) model.OutputRecord {
	vgd := rec.RoofSealed / 100
	vgb := rec.OtherSealed / 100
	vgs := rec.RoadSealed / 100
	kd := rec.RoofSewer / 100
	kb := rec.OtherSewer / 100
	ks := rec.RoadSewer / 100
	im.SealedShare = int(f32.Round(vgd*100 + vgb*100))

	var bl, bls [4]float32
	for i := range bl {
		bl[i] = rec.Pavement[i] / 100
		bls[i] = rec.RoadPavement[i] / 100
	}

	fb, fs := rec.MainArea, rec.RoadArea
	if float64(fb+fs) < minArea {
		fb = defaultArea
		res.Counters.NoAreaGiven++
		res.addDiagnostic(model.Diagnostic{
			Code:    rec.Code,
			Kind:    model.DiagnosticNoArea,
			Message: fmt.Sprintf("area of element %s is 0 and was set to 100", rec.Code),
		})
	}
	fbant := fb / (fb + fs)
	fsant := fs / (fb + fs)
	im.MainShare, im.RoadShare = fbant, fsant

	inf := c.params.Infiltration
	rdv := im.RoofRunoff
	rv := im.ClassRunoff

	rowd := (1 - inf.Roof) * vgd * kd * fbant * rdv
	rid := (1 - kd) * vgd * fbant * rdv

	var rowc, ric [4]float32
	for i := range rowc {
		rowc[i] = (1 - inf.Classes[i]) * (bl[i]*kb*vgb*fbant + bls[i]*ks*vgs*fsant) * rv[i]
		ric[i] = (bl[i]*vgb*fbant+bls[i]*vgs*fsant)*rv[i] - rowc[i]
	}

	// Unsealed road area infiltrates like pavement class 4.
	var rowuvs float32
	riuvs := (1 - vgs) * fsant * rv[3]

	riuv := (100 - float32(im.SealedShare)) / 100 * im.UnsealedRunoff

	im.SurfaceParts = [6]float32{rowd, rowc[0], rowc[1], rowc[2], rowc[3], rowuvs}
	im.InfiltrationParts = [7]float32{rid, ric[0], ric[1], ric[2], ric[3], riuvs, riuv}

	row := rowc[0] + rowc[1] + rowc[2] + rowc[3] + rowd + rowuvs
	ri := ric[0] + ric[1] + ric[2] + ric[3] + rid + riuvs + riuv
	r := row + ri

	rowvol := row * volumeFactor * (fb + fs) / 100000
	rivol := ri * volumeFactor * (fb + fs) / 100000

	return model.OutputRecord{
		Code:               rec.Code,
		Runoff:             r,
		SurfaceRunoff:      row,
		Infiltration:       ri,
		RunoffVolume:       rowvol + rivol,
		SurfaceVolume:      rowvol,
		InfiltrationVolume: rivol,
		Area:               fb + fs,
		Evaporation:        float32(rec.PrecipitationYear)*c.params.PrecipitationCorrection - r,
	}
}

func (r *Result) addDiagnostic(d model.Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)
	r.Counters.Diagnostics++
}
