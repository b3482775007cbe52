package ho

import "math"

//////
// Available acquisition functions for the GP algorithm.
// Each function helps decide which points to evaluate next by balancing
// exploration (trying new areas) and exploitation (focusing on known good areas).
// All of them return lower values for more promising points.
//////

// minVariance keeps PI and EI away from a division by zero.
const minVariance = 1e-12

// UCB implements the (lower) Confidence Bound acquisition function.
//
// How it works:
// - Combines the predicted loss with the uncertainty (variance)
// - Lower values are better (we're minimizing loss)
// - The Beta parameter controls the trade-off between exploration and exploitation
//
// Example:
//
//	params := AcquisitionParams{
//	    Beta: 2.0,  // Balance between exploration and exploitation
//	}
//	value := UCB(0.5, 0.2, params)  // Evaluate a point with mean=0.5, variance=0.2
func UCB(mean, variance float64, params AcquisitionParams) float64 {
	return mean - params.Beta*math.Sqrt(math.Max(variance, 0))
}

// ProbabilityOfImprovement (PI) returns the negated probability that a point
// improves upon the current best loss by at least Xi.
//
// When to use:
// - When you want to be conservative in exploring new points
// - When you're fine with small improvements
//
// Example:
//
//	params := AcquisitionParams{
//	    BestSoFar: -0.8,  // Current best loss
//	    Xi: 0.01,         // Look for at least 0.01 improvement
//	}
//	prob := ProbabilityOfImprovement(-0.82, 0.2, params)
func ProbabilityOfImprovement(mean, variance float64, params AcquisitionParams) float64 {
	sigma := math.Sqrt(math.Max(variance, minVariance))

	z := (params.BestSoFar - mean - params.Xi) / sigma

	return -normalCDF(z)
}

// ExpectedImprovement (EI) returns the negated expected improvement over the
// current best loss.
//
// How it works:
// - Combines the probability of improvement with the magnitude of improvement
// - Often provides better exploration than PI
//
// Example:
//
//	params := AcquisitionParams{
//	    BestSoFar: -0.8,
//	    Xi: 0.01,
//	}
//	expected := ExpectedImprovement(-0.82, 0.2, params)
func ExpectedImprovement(mean, variance float64, params AcquisitionParams) float64 {
	sigma := math.Sqrt(math.Max(variance, minVariance))

	improvement := params.BestSoFar - mean - params.Xi
	z := improvement / sigma

	return -(improvement*normalCDF(z) + sigma*normalPDF(z))
}

// ThompsonSampling draws one value from the posterior at this point.
//
// Warning:
// - params.RandomState must be set. Minimize fills it with the run's
// generator when left nil.
func ThompsonSampling(mean, variance float64, params AcquisitionParams) float64 {
	return mean + math.Sqrt(math.Max(variance, 0))*params.RandomState.NormFloat64()
}
