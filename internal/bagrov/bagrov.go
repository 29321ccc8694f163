// Package bagrov solves the Bagrov relation between the ratio of real to
// potential evapotranspiration (y = ETR/ETP) and the ratio of precipitation to
// potential evapotranspiration (x = P/ETP) for an effectiveness parameter n.
//
// The relation has no closed form. YRatio uses a closed-form approximation for
// moderate n, a fixed-point iteration for large n and a polynomial refinement
// with an optional numerical integration for small n.
package bagrov

import (
	"math"

	"github.com/urbanhydro/abimo/internal/f32"
)

// Regime identifies which approximation produced a result.
type Regime int

const (
	RegimeDry Regime = iota
	RegimeClosedForm
	RegimeFixedPoint
	RegimePolynomial
	RegimeIntegration
)

func (r Regime) String() string {
	switch r {
	case RegimeDry:
		return "dry"
	case RegimeClosedForm:
		return "closed_form"
	case RegimeFixedPoint:
		return "fixed_point"
	case RegimePolynomial:
		return "polynomial"
	case RegimeIntegration:
		return "integration"
	default:
		return "unknown"
	}
}

const (
	minX        float32 = 0.0005
	maxX        float32 = 15
	maxN        float32 = 20
	almostOne   float32 = 0.99999
	almostZero  float32 = 1.0e-7
	eynSwitch   float32 = 0.7
	closedLower float32 = 0.7
	closedUpper float32 = 3.8

	maxFixedPointSteps = 15
	maxPolynomialSteps = 100
)

// coefficients of the series used in the polynomial refinement (n < 0.7).
var coefficients = [16]float32{
	0.9946811499,
	1.213648255,
	-1.350801214,
	11.80883489,
	-21.53832235,
	19.3775197,
	0.862954876,
	9.184851852,
	-147.2049991,
	1291.164889,
	-6357.554955,
	19022.42165,
	-35235.40521,
	39509.02815,
	-24573.23867,
	6515.556685,
}

// Trace exposes the intermediate values of one solve for debug logging.
type Trace struct {
	N          float32 `json:"n"`
	X          float32 `json:"x"`
	A0         float32 `json:"a0"`
	A1         float32 `json:"a1"`
	A2         float32 `json:"a2"`
	A          float32 `json:"a"`
	B          float32 `json:"b"`
	C          float32 `json:"c"`
	Y0         float32 `json:"y0"`
	Regime     Regime  `json:"regime"`
	Iterations int     `json:"iterations"`
	Passes     int     `json:"passes"`
	Y          float32 `json:"y"`
}

// YRatio returns y = ETR/ETP for effectiveness n and x = P/ETP.
func YRatio(n, x float32) float32 {
	var tr Trace
	return solve(n, x, &tr)
}

// YRatioTrace is YRatio plus the intermediates of the computation.
func YRatioTrace(n, x float32) (float32, Trace) {
	var tr Trace
	y := solve(n, x, &tr)
	return y, tr
}

func solve(n, x float32, tr *Trace) float32 {
	tr.N, tr.X = n, x

	if x < minX {
		tr.Regime = RegimeDry
		return 0
	}

	// Without effectiveness nothing evaporates; the series below has no
	// positive root there.
	if n <= 0 {
		tr.Regime = RegimeDry
		return 0
	}

	x = f32.Min(x, maxX)
	bag := f32.Min(n, maxN)

	bagPlusOne := bag + 1
	reciprocal := float32(1.0 / float64(bagPlusOne))

	h13 := float32(math.Exp(-float64(bagPlusOne) * 1.09861))
	h23 := float32(math.Exp(-float64(bagPlusOne) * 0.405465))

	a2 := -13.5 * reciprocal * (1 + 3*(h13-h23))
	a1 := 9*reciprocal*(h13+h13-h23) - 2.0/3.0*a2
	a0 := 1 / (1 - reciprocal - 0.5*a1 - 1.0/3.0*a2)

	a1 *= a0
	a2 *= a0

	var b float32
	if bag >= 0.49999 {
		b = -float32(math.Sqrt(0.25*float64(a1)*float64(a1)-float64(a2))) + 0.5*a1
	} else {
		b = -f32.Sqrt(0.5*a1*a1 - a2)
	}

	c := a1 - b
	a := a0 / (b - c)

	epa := f32.Exp(x / a)
	y0 := f32.Min((epa-1)/(b-c*epa), almostOne)

	tr.A0, tr.A1, tr.A2 = a0, a1, a2
	tr.A, tr.B, tr.C = a, b, c
	tr.Y0 = y0

	if bag >= closedLower && bag <= closedUpper {
		tr.Regime = RegimeClosedForm
		tr.Y = y0
		return y0
	}

	if bag >= closedUpper {
		tr.Regime = RegimeFixedPoint
		tr.Y = fixedPoint(bag, x, y0, tr)
		return tr.Y
	}

	tr.Regime = RegimePolynomial
	tr.Y = polynomial(bag, x, y0, tr)
	return tr.Y
}

// fixedPoint refines y0 for n > 3.8.
func fixedPoint(bag, x, y0 float32, tr *Trace) float32 {
	h := float32(1)
	i := 0
	for float64(f32.Abs(h)) > 0.001 && i < maxFixedPointSteps {
		y0 = f32.Min(y0, 0.999)
		epa := f32.Pow(y0, bag)
		h = f32.Min(f32.Max(1-epa, almostZero), almostOne)
		h *= y0 + epa*y0/(h-bag*epa/f32.Log(h)) - x
		y0 -= h
		i++
	}
	tr.Iterations = i
	return f32.Min(y0, 1)
}

// polynomial refines y0 for n < 0.7 and falls back to the numerical
// integration when the series approximation breaks down near y = 1.
func polynomial(bag, x, y0 float32, tr *Trace) float32 {
	for step := 0; step < maxPolynomialSteps; step++ {
		tr.Iterations = step + 1

		eyn := f32.Pow(y0, bag)
		if eyn > 0.9 || (eyn >= eynSwitch && bag > 4) {
			return f32.Min(y0, 1)
		}

		ia, ie := 2, 6
		if eyn > eynSwitch {
			ia, ie = 8, 16
		}

		var sum1, sum2 float32
		h := float32(1)
		for i := ia; i <= ie; i++ {
			h *= eyn
			w := coefficients[i-1] * h
			j := i - ia + 1
			sum2 += w / (float32(j)*bag + 1)
			sum1 += w
		}

		h = coefficients[ia-2]
		h = (x - y0*sum2 - y0*h) / (h + sum1)
		y0 += h

		if f32.Abs(h)/y0 < 0.007 {
			break
		}
	}

	// Also catches NaN from a diverged refinement.
	if !(y0 > 0) {
		return 0
	}

	if float64(y0) > 0.9 {
		tr.Regime = RegimeIntegration
		y0 = integrate(bag, x, tr)
	}

	return f32.Min(y0, 1)
}
