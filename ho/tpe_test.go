package ho

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTPESplit(t *testing.T) {
	s := &tpeSampler{gamma: 0.25}

	history := make([]Trial, 16)
	for i := range history {
		history[i] = Trial{Number: i, Loss: float64(16 - i)}
	}

	// ceil(0.25 * sqrt(16)) = 1: only the last (lowest) trial is below.
	below, above := s.split(history)
	require.Len(t, below, 1)
	assert.Equal(t, 15, below[0].Number)
	assert.Len(t, above, 15)
	assert.Equal(t, 0, above[0].Number)
}

func TestParzenIsNormalized(t *testing.T) {
	p := newParzen([]float64{0.2, 0.25, 0.8}, 0, 1, 1)

	assert.InDelta(t, 1.0, p.weights[0]+p.weights[1]+p.weights[2]+p.weights[3], 1e-12)

	// Riemann sum of the truncated density over [0, 1].
	var integral float64

	const steps = 10000
	for i := 0; i < steps; i++ {
		x := (float64(i) + 0.5) / steps
		integral += math.Exp(p.logDensity(x, 0)) / steps
	}

	assert.InDelta(t, 1.0, integral, 1e-3)
}

func TestParzenQuantizedMass(t *testing.T) {
	p := newParzen([]float64{20}, 10, 31, 1)

	var total float64
	for _, v := range []float64{10, 20, 30} {
		total += math.Exp(p.logDensity(v, 10))
	}

	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestParzenSampleInBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	p := newParzen([]float64{0.01, 0.99}, 0, 1, 1)

	for i := 0; i < 500; i++ {
		x := p.sample(rng)
		assert.GreaterOrEqual(t, x, 0.0)
		assert.LessOrEqual(t, x, 1.0)
	}
}

func TestForgettingWeights(t *testing.T) {
	assert.Equal(t, []float64{1, 1, 1}, forgettingWeights(3))

	w := forgettingWeights(30)
	require.Len(t, w, 30)
	assert.InDelta(t, 1.0/30, w[0], 1e-12)
	assert.InDelta(t, 1.0, w[4], 1e-12)
	assert.Equal(t, 1.0, w[29])
}

func TestTPEFavoursGoodRegion(t *testing.T) {
	space := Space{{Name: "x", Distribution: Uniform{Low: 0, High: 1}}}

	// Good trials near 0.1, bad ones spread above 0.5.
	var history []Trial
	for i := 0; i < 30; i++ {
		x := 0.5 + 0.5*float64(i)/30
		history = append(history, Trial{Number: i, Sample: Sample{"x": x}, Loss: x})
	}

	for i := 0; i < 4; i++ {
		x := 0.08 + 0.01*float64(i)
		history = append(history, Trial{Number: 30 + i, Sample: Sample{"x": x}, Loss: x})
	}

	s := &tpeSampler{startup: 20, gamma: 0.25, candidates: 24, priorWeight: 1}
	rng := rand.New(rand.NewSource(3))

	var near int
	for i := 0; i < 20; i++ {
		sample, phase := s.suggest(space, history, rng)
		assert.Equal(t, PhaseOptimization, phase)

		if sample["x"] < 0.5 {
			near++
		}
	}

	assert.GreaterOrEqual(t, near, 15)
}
