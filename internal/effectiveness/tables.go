package effectiveness

// eka holds the coefficients of the effectiveness parameter of unsealed,
// non-forested areas, five per yield band. The estimator addresses it as a
// flat array.
var eka = [65]float32{
	0.04176, -0.647, 0.218, 0.01472, 0.0002089,
	0.04594, -0.314, 0.417, 0.02463, 0.0001143,
	0.05177, -0.010, 0.596, 0.02656, 0.0002786,
	0.05693, 0.033, 0.676, 0.0279, 0.00035,
	0.06162, 0.176, 0.773, 0.02809, 0.0004695,
	0.06962, 0.24, 0.904, 0.02562, 0.0007149,
	0.0796, 0.31, 1.039, 0.0288, 0.0008696,
	0.07998, 0.7603, 1.2, 0.0471, 0.000293,
	0.08762, 1.019, 1.373, 0.04099, 0.0014141,
	0.11833, 1.1334, 1.95, 0.0525, 0.00125,
	0.155, 1.5, 2.64999, 0.0725, 0.001249,
	0.20041, 2.0918, 3.69999, 0.08, 0.001999,
	0.33895, 3.721, 6.69999, -0.07, 0.013,
}

// g02 is the plant-available water G02 [mm] by rounded field capacity.
var g02 = [31]float32{
	0.0, 0.0, 0.0, 0.0, 0.3, 0.8, 1.4, 2.4, 3.7, 5.0,
	6.3, 7.7, 9.3, 11.0, 12.4, 14.7, 17.4, 21.0, 26.0, 32.0,
	39.4, 44.7, 48.0, 50.7, 52.7, 54.0, 55.0, 55.0, 55.0, 55.0, 55.0,
}

// Wet correction of the summer half-year: ratio of summer water supply to
// summer potential evaporation, and the factor applied to n.
var (
	wetRatios = []float32{
		0.45, 0.50, 0.55, 0.60, 0.65, 0.70, 0.75,
		0.80, 0.85, 0.90, 0.95, 1.00, 1.05, 1.10,
	}
	wetFactors = []float32{
		0.65, 0.75, 0.82, 0.90, 1.00, 1.06, 1.15,
		1.22, 1.30, 1.38, 1.47, 1.55, 1.63, 1.70,
	}
)
