package ho

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGaussianProcessPredict(t *testing.T) {
	gp := newGaussianProcess()
	gp.SetSigma(0.2)

	mean, variance := gp.Predict([]float64{0.5, 0.5})
	assert.Equal(t, 0.0, mean)
	assert.Equal(t, 1.0, variance)

	gp.Update([]float64{0.1, 0.1}, -0.7)
	gp.Update([]float64{0.9, 0.9}, -0.9)

	// On an observed point the model is certain.
	_, variance = gp.Predict([]float64{0.9, 0.9})
	assert.InDelta(t, 0.0, variance, 1e-12)

	// Close to the better point the prediction leans to its loss.
	mean, _ = gp.Predict([]float64{0.85, 0.85})
	assert.Less(t, mean, -0.85)

	assert.Equal(t, 2, gp.Len())
	assert.Equal(t, 0.2, gp.GetSigma())
}

func TestGaussianProcessUpdateCopiesInput(t *testing.T) {
	gp := newGaussianProcess()

	x := []float64{0.3}
	gp.Update(x, 1)
	x[0] = 0.9

	assert.Equal(t, 0.3, gp.X[0][0])
}

func TestRBFKernelPanicsOnLengthMismatch(t *testing.T) {
	gp := newGaussianProcess()

	assert.Equal(t, 1.0, gp.RBFKernel([]float64{1, 2}, []float64{1, 2}))
	assert.Panics(t, func() { gp.RBFKernel([]float64{1}, []float64{1, 2}) })
}

func TestAcquisitionFunctionsPreferLowerMean(t *testing.T) {
	params := AcquisitionParams{
		Beta:        2.0,
		Xi:          0.01,
		BestSoFar:   -0.8,
		RandomState: rand.New(rand.NewSource(1)),
	}

	for name, acq := range map[string]AcquisitionFunc{
		"ucb": UCB,
		"pi":  ProbabilityOfImprovement,
		"ei":  ExpectedImprovement,
	} {
		good := acq(-0.9, 0.01, params)
		bad := acq(-0.5, 0.01, params)

		assert.Less(t, good, bad, name)
	}

	// Zero variance must not divide by zero.
	assert.NotPanics(t, func() {
		ProbabilityOfImprovement(-0.9, 0, params)
		ExpectedImprovement(-0.9, 0, params)
	})

	assert.Equal(t, -0.5, ThompsonSampling(-0.5, 0, params))
}
