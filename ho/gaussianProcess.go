package ho

import (
	"math"
	"sync"
)

//////
// Const, vars, types.
//////

// gaussianProcess implements a thread-safe kernel regression model with
// multidimensional inputs. The GP algorithm uses it to predict the loss of
// untested hyperparameter combinations from previously observed results.
//
// Fields:
// - mu: RWMutex for thread-safe access to all fields
// - X: Observed input points, in unit-cube coordinates
// - Y: Observed losses at each input point
// - sigma: Kernel width parameter controlling the smoothness of interpolation
//
// Memory usage:
// - O(n) memory where n is number of observations.
type gaussianProcess struct {
	// mu protects access to all fields
	mu sync.RWMutex

	// X stores the input points (hyperparameter combinations)
	// Length of inner slices must be consistent
	X [][]float64

	// Y stores the observed losses at each point in X
	// Must have same length as X
	Y []float64

	// sigma is the kernel width parameter
	// Larger values = smoother interpolation
	// Smaller values = more local influence
	sigma float64
}

//////
// Methods.
//////

// RBFKernel implements the Radial Basis Function (also known as Gaussian) kernel.
//
// Mathematical formula:
//
//	k(x1, x2) = exp(-sum((x1 - x2)^2) / (2 * sigma^2))
//
// Important notes:
// - Panics if input vectors have different lengths
// - Returns 1.0 for identical points
// - Returns values close to 0.0 for distant points
func (gp *gaussianProcess) RBFKernel(x1, x2 []float64) float64 {
	if len(x1) != len(x2) {
		panic("input vectors must have the same length")
	}

	gp.mu.RLock()
	sigma := gp.sigma
	gp.mu.RUnlock()

	return rbf(x1, x2, sigma)
}

// Predict estimates the expected loss and uncertainty at a given point
// based on previously observed data points.
//
// Mathematical details:
// - Mean is the kernel-weighted average of observed losses
// - Variance is 1 - max(k)^2: zero on an observed point, one far from all of them
// - Returns (0, 1) if no observations exist
// - Falls back to the plain average of Y when x is far from every observation
func (gp *gaussianProcess) Predict(x []float64) (mean, variance float64) {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	if len(gp.X) == 0 {
		return 0, 1
	}

	var weighted, total, nearest float64

	for i := range gp.X {
		k := rbf(x, gp.X[i], gp.sigma)

		weighted += k * gp.Y[i]
		total += k

		nearest = math.Max(nearest, k)
	}

	if total < 1e-12 {
		mean = Mean(gp.Y)
	} else {
		mean = weighted / total
	}

	return mean, 1 - nearest*nearest
}

// Update adds a new observation point to the model.
//
// Important notes:
// - Creates a deep copy of input slice x to prevent external modifications
// - Memory usage grows with each update
func (gp *gaussianProcess) Update(x []float64, y float64) {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	newX := make([]float64, len(x))
	copy(newX, x)

	gp.X = append(gp.X, newX)
	gp.Y = append(gp.Y, y)
}

// Len returns the number of observations.
func (gp *gaussianProcess) Len() int {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	return len(gp.X)
}

// SetSigma updates the kernel width parameter (sigma).
//
// Important notes:
// - Affects all subsequent predictions
// - No validation of sigma value (caller's responsibility)
func (gp *gaussianProcess) SetSigma(sigma float64) {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	gp.sigma = sigma
}

// GetSigma returns the current kernel width parameter (sigma).
func (gp *gaussianProcess) GetSigma() float64 {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	return gp.sigma
}

func rbf(x1, x2 []float64, sigma float64) float64 {
	var sum float64

	for i := range x1 {
		diff := x1[i] - x2[i]

		sum += diff * diff
	}

	return math.Exp(-sum / (2 * sigma * sigma))
}

//////
// Factory.
//////

// newGaussianProcess creates a model with sigma = 1.0. Callers working on the
// unit cube usually want a narrower kernel, see SetSigma.
func newGaussianProcess() *gaussianProcess {
	return &gaussianProcess{
		sigma: 1.0, // Default kernel width
	}
}
