package shared

import "math"

// kpiEpsilon matches values sitting on the domain boundary.
const kpiEpsilon = 1e-6

// DecreasingKPI maps value on [min, max] to [0, 1] with a decreasing linear
// function: f(min) = 1, f(max) = 0. A degenerate domain (min == max) yields 1;
// an out-of-range value yields the sentinel -1.
func DecreasingKPI(value, min, max float64) float64 {
	if max == min {
		return 1
	}
	if value > max || value < min {
		return -1
	}
	if math.Abs(value-min) < kpiEpsilon {
		return 1
	}
	if math.Abs(value-max) < kpiEpsilon {
		return 0
	}
	return 1 - (value-min)/(max-min)
}

// IncreasingKPI maps value on [min, max] to [0, 1] with an increasing linear
// function: f(min) = 0, f(max) = 1. Degenerate and out-of-range handling match
// DecreasingKPI.
func IncreasingKPI(value, min, max float64) float64 {
	if max == min {
		return 1
	}
	if value > max || value < min {
		return -1
	}
	if math.Abs(value-min) < kpiEpsilon {
		return 0
	}
	if math.Abs(value-max) < kpiEpsilon {
		return 1
	}
	return (value - min) / (max - min)
}
