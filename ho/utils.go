package ho

import (
	"math"
	"math/big"

	"golang.org/x/exp/constraints"
)

//////
// Helper functions.
//////

// Helper function used by PI, EI and the Parzen estimators to compute the
// cumulative distribution function of the standard normal distribution.
//
// Returns:
// - Probability that a standard normal random variable is less than x.
func normalCDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}

// Helper function used by EI and the Parzen estimators to compute the
// probability density function of the standard normal distribution.
//
// Returns:
// - Value of the standard normal PDF at x.
func normalPDF(x float64) float64 {
	return math.Exp(-x*x/2.0) / math.Sqrt(2.0*math.Pi)
}

// clamp limits v to [lo, hi].
func clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}

// Mean returns the arithmetic mean of values, or NaN when values is empty.
// The sum and the division are exact; the result is rounded once, so the mean
// of n equal values is that value.
//
// Usage example:
//
//	Mean([]float64{0.7, 0.8, 0.9}) // 0.8
//	Mean([]int{1, 2})              // 1.5
func Mean[T constraints.Integer | constraints.Float](values []T) float64 {
	if len(values) == 0 {
		return math.NaN()
	}

	sum := new(big.Rat)
	term := new(big.Rat)

	for _, v := range values {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return naiveMean(values)
		}

		sum.Add(sum, term.SetFloat64(f))
	}

	mean, _ := sum.Quo(sum, term.SetInt64(int64(len(values)))).Float64()

	return mean
}

// naiveMean propagates NaN and infinities the way float arithmetic does.
func naiveMean[T constraints.Integer | constraints.Float](values []T) float64 {
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}

	return sum / float64(len(values))
}

// roundHalfEven rounds like Python's round(): ties go to the even neighbour.
func roundHalfEven(x float64) float64 {
	return math.RoundToEven(x)
}
