package ho

import (
	"math"
	"math/rand"
	"sort"
)

// linearForgetting is the number of most recent observations that keep full
// weight in a Parzen estimator. Older ones are ramped down linearly.
const linearForgetting = 25

// tpeSampler implements the Tree-structured Parzen Estimator.
//
// How it works:
//  1. The first StartupTrials proposals come from the prior
//  2. Afterwards the history is split into the ceil(Gamma*sqrt(n)) best trials
//     ("below") and the rest ("above")
//  3. For every parameter, one truncated Gaussian mixture l(x) is fit on the
//     below values and another g(x) on the above values, each with an extra
//     prior component
//  4. EICandidates values are drawn from l(x) and the one maximizing
//     l(x)/g(x) is proposed
//
// Parameters are modelled independently, in their internal coordinate (log
// scale for LogUniform).
type tpeSampler struct {
	startup     int
	gamma       float64
	candidates  int
	priorWeight float64
}

func (s *tpeSampler) suggest(space Space, history []Trial, rng *rand.Rand) (Sample, string) {
	if len(history) < s.startup || len(history) < 2 {
		return space.samplePrior(rng), PhaseInitialSampling
	}

	below, above := s.split(history)

	sample := make(Sample, len(space))

	for _, p := range space {
		dist := p.Distribution
		low, high := dist.bounds()

		l := newParzen(internalValues(dist, p.Name, below), low, high, s.priorWeight)
		g := newParzen(internalValues(dist, p.Name, above), low, high, s.priorWeight)

		q := dist.step()

		bestValue := math.NaN()
		bestScore := math.Inf(-1)

		for i := 0; i < s.candidates; i++ {
			v := dist.fromInternal(l.sample(rng))
			x := dist.toInternal(v)

			score := l.logDensity(x, q) - g.logDensity(x, q)
			if math.IsNaN(bestValue) || score > bestScore {
				bestScore = score
				bestValue = v
			}
		}

		sample[p.Name] = bestValue
	}

	return sample, PhaseOptimization
}

// split partitions history into the best and the remaining trials. Both
// halves keep trial order.
func (s *tpeSampler) split(history []Trial) (below, above []Trial) {
	order := make([]int, len(history))
	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return history[order[a]].Loss < history[order[b]].Loss
	})

	nBelow := int(math.Ceil(s.gamma * math.Sqrt(float64(len(history)))))
	nBelow = clamp(nBelow, 1, len(history)-1)

	isBelow := make([]bool, len(history))
	for _, idx := range order[:nBelow] {
		isBelow[idx] = true
	}

	for i, t := range history {
		if isBelow[i] {
			below = append(below, t)
		} else {
			above = append(above, t)
		}
	}

	return below, above
}

func internalValues(dist Distribution, name string, trials []Trial) []float64 {
	xs := make([]float64, len(trials))
	for i, t := range trials {
		xs[i] = dist.toInternal(t.Sample[name])
	}

	return xs
}

//////
// Parzen estimator.
//////

// parzen is a mixture of Gaussians truncated to [low, high].
type parzen struct {
	mus     []float64
	sigmas  []float64
	weights []float64
	low     float64
	high    float64
}

// newParzen builds the adaptive Parzen estimator over obs (in trial order).
// Each observation becomes a component whose width is the larger distance to
// its sorted neighbours, clipped to [prior/min(100, n+2), prior]. The prior
// component sits at the centre with the full range as width.
func newParzen(obs []float64, low, high, priorWeight float64) parzen {
	priorMu := (low + high) / 2
	priorSigma := high - low

	type component struct {
		mu     float64
		weight float64
		prior  bool
	}

	obsWeights := forgettingWeights(len(obs))

	comps := make([]component, 0, len(obs)+1)
	for i, x := range obs {
		comps = append(comps, component{mu: x, weight: obsWeights[i]})
	}

	comps = append(comps, component{mu: priorMu, weight: priorWeight, prior: true})

	sort.SliceStable(comps, func(a, b int) bool { return comps[a].mu < comps[b].mu })

	minSigma := priorSigma / math.Min(100, 1+float64(len(comps)))

	pz := parzen{
		mus:     make([]float64, len(comps)),
		sigmas:  make([]float64, len(comps)),
		weights: make([]float64, len(comps)),
		low:     low,
		high:    high,
	}

	var total float64

	for i, c := range comps {
		sigma := priorSigma

		if !c.prior && len(comps) > 1 {
			var left, right float64
			if i > 0 {
				left = c.mu - comps[i-1].mu
			}

			if i < len(comps)-1 {
				right = comps[i+1].mu - c.mu
			}

			sigma = clamp(math.Max(left, right), minSigma, priorSigma)
		}

		pz.mus[i] = c.mu
		pz.sigmas[i] = sigma
		pz.weights[i] = c.weight

		total += c.weight
	}

	for i := range pz.weights {
		pz.weights[i] /= total
	}

	return pz
}

// sample draws one value, rejecting draws outside [low, high].
func (p parzen) sample(rng *rand.Rand) float64 {
	r := rng.Float64()

	k := len(p.weights) - 1

	var acc float64
	for i, w := range p.weights {
		acc += w
		if r < acc {
			k = i
			break
		}
	}

	for attempt := 0; attempt < 100; attempt++ {
		x := p.mus[k] + p.sigmas[k]*rng.NormFloat64()
		if x >= p.low && x <= p.high {
			return x
		}
	}

	return clamp(p.mus[k], p.low, p.high)
}

// logDensity returns the log density at x, or, when q > 0, the log of the
// probability mass of the quantization bucket around x.
func (p parzen) logDensity(x, q float64) float64 {
	var total float64

	for i, mu := range p.mus {
		sigma := p.sigmas[i]

		norm := normalCDF((p.high-mu)/sigma) - normalCDF((p.low-mu)/sigma)
		norm = math.Max(norm, 1e-12)

		var v float64

		if q > 0 {
			lb := math.Max(x-q/2, p.low)
			ub := math.Min(x+q/2, p.high)
			v = normalCDF((ub-mu)/sigma) - normalCDF((lb-mu)/sigma)
		} else {
			v = normalPDF((x-mu)/sigma) / sigma
		}

		total += p.weights[i] * v / norm
	}

	return math.Log(math.Max(total, 1e-300))
}

// forgettingWeights returns n weights: the last linearForgetting are 1, the
// earlier ones ramp linearly from 1/n up to 1.
func forgettingWeights(n int) []float64 {
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1
	}

	if n <= linearForgetting {
		return weights
	}

	ramp := n - linearForgetting
	for i := 0; i < ramp; i++ {
		if ramp == 1 {
			weights[i] = 1 / float64(n)
			continue
		}

		weights[i] = 1/float64(n) + float64(i)*(1-1/float64(n))/float64(ramp-1)
	}

	return weights
}
