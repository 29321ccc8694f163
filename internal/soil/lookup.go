package soil

// Index returns the first i with v <= breakpoints[i]+eps, or the last index
// when v exceeds every breakpoint. Values are not interpolated.
func Index(v float32, breakpoints []float32, eps float32) int {
	for i, bp := range breakpoints {
		if v <= bp+eps {
			return i
		}
	}
	return len(breakpoints) - 1
}

// Interpolate looks up v in the ascending breakpoints xs. Values outside the
// table return the first or last y; inside, the mean of the two neighbouring
// ys of the first breakpoint >= v is returned.
func Interpolate(v float32, xs, ys []float32) float32 {
	n := len(xs)
	if n == 0 || len(ys) != n {
		return 0
	}
	if v <= xs[0] {
		return ys[0]
	}
	if v >= xs[n-1] {
		return ys[n-1]
	}
	for i := 1; i < n; i++ {
		if v <= xs[i] {
			return (ys[i-1] + ys[i]) / 2
		}
	}
	return 0
}
