// Package f32 holds single-precision math helpers used by the water balance
// model. Every result is rounded to float32 after being evaluated in float64,
// which reproduces the single-precision libm calls of the reference runs.
package f32

import "math"

// Exp returns e**x rounded to float32.
func Exp(x float32) float32 {
	return float32(math.Exp(float64(x)))
}

// Log returns the natural logarithm of x rounded to float32.
func Log(x float32) float32 {
	return float32(math.Log(float64(x)))
}

// Sqrt returns the square root of x rounded to float32.
func Sqrt(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

// Pow returns y**n as float32 where n is evaluated with a float32 logarithm,
// i.e. exp(n * log(y)).
func Pow(y, n float32) float32 {
	return Exp(n * Log(y))
}

// Round rounds half away from zero.
func Round(x float32) float32 {
	return float32(math.Round(float64(x)))
}

// Min returns the smaller of a and b. If a is NaN, b is returned.
func Min(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b. If a is NaN, b is returned.
func Max(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// Abs returns |x|.
func Abs(x float32) float32 {
	return float32(math.Abs(float64(x)))
}
