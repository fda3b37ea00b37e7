// Package numeric holds the small arithmetic helpers behind the price slider.
package numeric

import "math"

// Range returns the inclusive [min, max] of values.
// The fold is seeded with [+Inf, 0], so an all-negative input still reports 0 as
// its upper bound. An empty input yields [0, 0].
func Range(values []float64) [2]float64 {
	if len(values) == 0 {
		return [2]float64{0, 0}
	}

	r := [2]float64{math.Inf(1), 0}
	for _, v := range values {
		r[0] = math.Min(r[0], v)
		r[1] = math.Max(r[1], v)
	}
	return r
}

// GCD returns the greatest common divisor of a and b using iterative Euclidean
// reduction. When either operand is zero the other one is returned, so
// GCD(0, 0) == 0.
func GCD(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}

	for a != 0 && b != 0 {
		if a > b {
			a %= b
		} else {
			b %= a
		}
	}
	return a + b
}

// Step picks a slider granularity that evenly divides both bounds of r.
// Bounds are rounded to whole price units first. A zero result means the
// slider has no stepping constraint.
func Step(r [2]float64) float64 {
	lo := int64(math.Round(r[0]))
	hi := int64(math.Round(r[1]))
	return float64(GCD(lo, hi))
}
