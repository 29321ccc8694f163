package soil

// Potential rates of ascent TAS [m], the column labels of riseRates.
var ascentRates = []float32{
	0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8,
	0.9, 1.0, 1.2, 1.4, 1.7, 2.0, 2.3,
}

// Usable field capacities nFK, the row labels of riseRates. The soil type is
// not part of the input; the table for sands is used.
var fieldCapacities = []float32{
	8.0, 9.0, 14.0, 14.5, 15.5, 17.0, 20.5,
}

// riseRates is the mean potential capillary rise rate kr [mm/d] of a summer
// half-year by field capacity (row) and potential rate of ascent (column).
var riseRates = [][]float32{
	{7.0, 6.0, 5.0, 1.5, 0.5, 0.2, 0.1, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0},
	{7.0, 7.0, 6.0, 5.0, 3.0, 1.2, 0.5, 0.2, 0.1, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0},
	{7.0, 7.0, 6.0, 6.0, 5.0, 3.0, 1.5, 0.7, 0.3, 0.15, 0.1, 0.0, 0.0, 0.0, 0.0},
	{7.0, 7.0, 6.0, 6.0, 5.0, 3.0, 2.0, 1.0, 0.7, 0.4, 0.15, 0.1, 0.0, 0.0, 0.0},
	{7.0, 7.0, 6.0, 6.0, 5.0, 4.5, 2.5, 1.5, 0.7, 0.4, 0.15, 0.1, 0.0, 0.0, 0.0},
	{7.0, 7.0, 6.0, 6.0, 5.0, 5.0, 3.5, 2.0, 1.5, 0.8, 0.3, 0.1, 0.05, 0.0, 0.0},
	{7.0, 7.0, 6.0, 6.0, 6.0, 5.0, 5.0, 5.0, 3.0, 2.0, 1.0, 0.5, 0.15, 0.0, 0.0},
}
