package ho

import (
	"math"
	"math/rand"
)

// Phase names reported in ProgressUpdate.
const (
	PhaseInitialSampling = "InitialSampling"
	PhaseOptimization    = "Optimization"
)

// sampler proposes the next sample given the completed trials so far.
// Implementations may keep state across calls of a single run; they must
// draw randomness only from rng so runs are reproducible.
type sampler interface {
	suggest(space Space, history []Trial, rng *rand.Rand) (sample Sample, phase string)
}

func newSampler(config OptimizationConfig) sampler {
	switch config.Algorithm {
	case GP:
		gp := newGaussianProcess()
		gp.SetSigma(config.KernelWidth)

		return &gpSampler{
			gp:             gp,
			initialSamples: config.InitialSamples,
			numCandidates:  config.NumCandidates,
			acquisition:    config.AcquisitionFunc,
			params:         config.AcqParams,
		}
	case Random:
		return randomSampler{}
	default:
		return &tpeSampler{
			startup:     config.StartupTrials,
			gamma:       config.Gamma,
			candidates:  config.EICandidates,
			priorWeight: config.PriorWeight,
		}
	}
}

//////
// Random.
//////

type randomSampler struct{}

func (randomSampler) suggest(space Space, _ []Trial, rng *rand.Rand) (Sample, string) {
	return space.samplePrior(rng), PhaseInitialSampling
}

//////
// Gaussian Process.
//////

// gpSampler follows the two phases of Bayesian optimization:
//  1. InitialSamples random samples build the initial model
//  2. Then, per proposal, NumCandidates random candidates are ranked by the
//     acquisition function on the model's prediction and the best one wins
type gpSampler struct {
	gp             *gaussianProcess
	initialSamples int
	numCandidates  int
	acquisition    AcquisitionFunc
	params         AcquisitionParams
}

func (s *gpSampler) suggest(space Space, history []Trial, rng *rand.Rand) (Sample, string) {
	// Feed the trials the model has not seen yet.
	for i := s.gp.Len(); i < len(history); i++ {
		s.gp.Update(space.toUnit(history[i].Sample), history[i].Loss)
	}

	if len(history) < s.initialSamples || len(history) == 0 {
		return space.samplePrior(rng), PhaseInitialSampling
	}

	s.params.BestSoFar = math.MaxFloat64
	for _, t := range history {
		s.params.BestSoFar = math.Min(s.params.BestSoFar, t.Loss)
	}

	var next Sample

	bestAcquisition := math.Inf(1)

	for j := 0; j < s.numCandidates; j++ {
		candidate := space.samplePrior(rng)

		mean, variance := s.gp.Predict(space.toUnit(candidate))

		acquisition := s.acquisition(mean, variance, s.params)
		if next == nil || acquisition < bestAcquisition {
			bestAcquisition = acquisition
			next = candidate
		}
	}

	return next, PhaseOptimization
}
