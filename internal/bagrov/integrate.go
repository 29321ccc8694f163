package bagrov

import "github.com/urbanhydro/abimo/internal/f32"

const (
	maxIntegrationPasses = 10
	maxIntervalDoublings = 20
)

// integrate solves the Bagrov relation for y by integrating dx/dy = 1/(1-y^n)
// numerically and correcting y until the integral matches x0.
func integrate(bag, x0 float32, tr *Trace) float32 {
	if x0 == 0 {
		return 0
	}

	if x0 > area(bag, 0.99) {
		return 1
	}

	y := float32(0.5)
	for pass := 1; pass <= maxIntegrationPasses; pass++ {
		tr.Passes = pass

		x := area(bag, y)
		delta := (x0 - x) * (1 - f32.Pow(y, bag))
		y += delta

		switch {
		case float64(y) >= 1:
			y = 0.99
		case float64(y) <= 0:
			y = 0.01
		case f32.Abs(delta) < 0.01:
			return y
		}
	}

	return y
}

// area integrates 1/(1-u^n) over [0, y] with Simpson's rule, doubling the
// number of intervals until two estimates agree within 0.1 %.
func area(bag, y float32) float32 {
	j := 1
	du := 2 * y
	h := 1 + 1/(1-f32.Pow(y, bag))
	si := h * du / 4

	var sg, su float32
	for k := 0; k < maxIntervalDoublings; k++ {
		s := si
		j *= 2
		du /= 2
		u := du / 2
		sg += su
		su = 0

		for i := 1; i <= j; i += 2 {
			su += 1 / (1 - f32.Pow(u, bag))
			u += du
		}

		si = (2*sg + 4*su + h) * du / 6

		if !(f32.Abs(s-si) > 0.001*s) {
			break
		}
	}

	return si
}
