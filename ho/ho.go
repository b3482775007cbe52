package ho

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

//////
// Exported functionalities.
//////

// DefaultConfig returns a default configuration: TPE with the usual
// hyperopt settings, 50 evaluations and a time based seed.
func DefaultConfig() OptimizationConfig {
	return OptimizationConfig{
		Algorithm:       TPE,
		MaxEvals:        50,
		Seed:            time.Now().UnixNano(),
		StartupTrials:   20,
		Gamma:           0.25,
		EICandidates:    24,
		PriorWeight:     1.0,
		InitialSamples:  10,
		NumCandidates:   50,
		KernelWidth:     0.2,
		AcquisitionFunc: UCB,
		AcqParams: AcquisitionParams{
			BestSoFar: math.MaxFloat64,
			Beta:      2.0,
			Xi:        0.01,
		},
		ProgressChan: nil, // Default to no progress updates.
	}
}

// Minimize searches space for the sample with the lowest objective value.
//
// Parameters:
// - ctx: Checked before every evaluation and handed to the objective
// - config: OptimizationConfig controlling the optimization process
// - objective: The function to minimize
// - space: The search space
//
// Returns:
// - Sample: The best sample found (the one of the lowest-loss trial)
// - *Trials: Every evaluated trial, also on error
// - error: Validation errors, ctx errors, or the first objective error
//
// Usage example:
//
//	space := Space{
//	    {Name: "lr", Distribution: LogUniform{Low: 1e-4, High: 1e-2}},
//	    {Name: "lr_decay", Distribution: Uniform{Low: 0.5, High: 1}},
//	}
//
//	config := DefaultConfig()
//	config.MaxEvals = 50
//
//	best, trials, err := Minimize(ctx, config, func(ctx context.Context, s Sample) (float64, error) {
//	    acc, err := train(ctx, s["lr"], s["lr_decay"])
//	    return -acc, err
//	}, space)
//
// How it works:
//  1. The configured sampler proposes one sample from the space using the
//     history of all prior (sample, loss) pairs
//  2. The objective is evaluated and the trial is recorded
//  3. Steps 1 and 2 repeat MaxEvals times; any objective error stops the run
//
// Important notes:
// - Runs are sequential; the objective is never called concurrently
// - Equal Seed and a deterministic objective give equal trials
func Minimize(
	ctx context.Context,
	config OptimizationConfig,
	objective ObjectiveFunc,
	space Space,
) (Sample, *Trials, error) {
	trials := &Trials{}

	if err := config.Validate(); err != nil {
		return nil, trials, err
	}

	if err := space.Validate(); err != nil {
		return nil, trials, err
	}

	rng := rand.New(rand.NewSource(config.Seed))

	if config.AcqParams.RandomState == nil {
		config.AcqParams.RandomState = rng
	}

	s := newSampler(config)

	bestLoss := math.MaxFloat64
	var bestSample Sample

	for i := 0; i < config.MaxEvals; i++ {
		if err := ctx.Err(); err != nil {
			return nil, trials, err
		}

		sample, phase := s.suggest(space, trials.completed(), rng)

		trial := Trial{
			Number: i,
			Sample: sample,
			Status: StatusOK,
			Start:  time.Now(),
		}

		loss, err := objective(ctx, sample.Clone())
		trial.End = time.Now()

		if err == nil && math.IsNaN(loss) {
			err = ErrInvalidLoss
		}

		if err != nil {
			trial.Status = StatusFailed
			trial.Err = err
			trials.add(trial)

			return nil, trials, fmt.Errorf("trial %d: %w", i, err)
		}

		trial.Loss = loss
		trials.add(trial)

		if loss < bestLoss {
			bestLoss = loss
			bestSample = sample.Clone()
		}

		sendProgress(config.ProgressChan, ProgressUpdate{
			Phase:            phase,
			CurrentIteration: i + 1,
			TotalIterations:  config.MaxEvals,
			CurrentSample:    sample.Clone(),
			CurrentLoss:      loss,
			BestSample:       bestSample.Clone(),
			BestLoss:         bestLoss,
		})
	}

	best, err := trials.Best()
	if err != nil {
		return nil, trials, err
	}

	return best.Sample, trials, nil
}

// sendProgress delivers update without blocking the run.
func sendProgress(ch chan<- ProgressUpdate, update ProgressUpdate) {
	if ch == nil {
		return
	}

	select {
	case ch <- update:
	default:
		// Skip update if channel is full.
	}
}
