package ho

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"
)

//////
// Errors.
//////

var (
	// ErrInvalidSpace is returned when a search space fails validation.
	ErrInvalidSpace = errors.New("invalid search space")

	// ErrInvalidConfig is returned when an OptimizationConfig fails validation.
	ErrInvalidConfig = errors.New("invalid optimization config")

	// ErrInvalidLoss is returned when the objective reports a NaN loss.
	ErrInvalidLoss = errors.New("objective returned an invalid loss")

	// ErrNoTrials is returned when asking for the best trial of an empty history.
	ErrNoTrials = errors.New("no completed trials")
)

//////
// Const, vars, types.
//////

// Algorithm names the strategy used to propose the next sample.
type Algorithm string

const (
	// TPE is the Tree-structured Parzen Estimator. It is the default.
	TPE Algorithm = "tpe"

	// GP uses the Gaussian Process surrogate together with an AcquisitionFunc.
	GP Algorithm = "gp"

	// Random draws every sample from the prior.
	Random Algorithm = "random"
)

// ParseAlgorithm converts a user supplied name into an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(name))); a {
	case TPE, GP, Random:
		return a, nil
	default:
		return "", fmt.Errorf("%w: unknown algorithm %q (want tpe, gp or random)", ErrInvalidConfig, name)
	}
}

// Status is the outcome of a single trial.
type Status string

const (
	// StatusOK marks a trial whose objective returned a loss.
	StatusOK Status = "ok"

	// StatusFailed marks a trial whose objective returned an error.
	StatusFailed Status = "fail"
)

// ProgressUpdate represents the current state of the optimization process.
type ProgressUpdate struct {
	// Phase indicates whether we're in initial sampling or optimization phase
	Phase string

	// CurrentIteration is the current iteration number (1-based)
	CurrentIteration int

	// TotalIterations is the evaluation budget
	TotalIterations int

	// CurrentSample holds the parameter values just evaluated
	CurrentSample Sample

	// CurrentLoss holds the loss of the last evaluation
	CurrentLoss float64

	// BestSample holds the best parameters found so far
	BestSample Sample

	// BestLoss holds the lowest loss found so far
	BestLoss float64
}

// Sample is one point of the search space: parameter name to value.
// Integer parameters hold integral values.
type Sample map[string]float64

// Clone returns an independent copy of the sample.
func (s Sample) Clone() Sample {
	out := make(Sample, len(s))
	for k, v := range s {
		out[k] = v
	}

	return out
}

// Int returns the named value rounded to the nearest integer.
func (s Sample) Int(name string) int {
	return int(roundHalfEven(s[name]))
}

// String renders the sample with keys sorted, e.g. "lr=0.001 step_size=20".
func (s Sample) String() string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strconv.FormatFloat(s[k], 'g', -1, 64))
	}

	return strings.Join(parts, " ")
}

// Trial is one evaluated sample and the loss it produced.
type Trial struct {
	// Number is the 0-based position of the trial in the run
	Number int

	// Sample holds the evaluated parameter values
	Sample Sample

	// Loss is the value returned by the objective (lower is better)
	Loss float64

	// Status tells whether the objective succeeded
	Status Status

	// Err holds the objective error for failed trials
	Err error

	// Start and End delimit the objective call
	Start time.Time
	End   time.Time
}

// Duration returns how long the objective took.
func (t Trial) Duration() time.Duration {
	return t.End.Sub(t.Start)
}

// ObjectiveFunc defines the signature for functions that will be minimized.
//
// Parameters:
// - ctx: Cancelled when the caller aborts the run
// - sample: The proposed parameter values (safe to keep, it's a copy)
//
// Returns:
// - float64: The loss for this sample (lower is better)
// - error: Return nil if the evaluation succeeded. A non-nil error aborts the
// whole run.
//
// Usage example:
//
//	objective := ObjectiveFunc(func(ctx context.Context, s Sample) (float64, error) {
//	    acc, err := trainModel(ctx, s["lr"], s.Int("step_size"))
//	    if err != nil {
//	        return 0, fmt.Errorf("training failed: %w", err)
//	    }
//
//	    return -acc, nil
//	})
type ObjectiveFunc func(ctx context.Context, sample Sample) (float64, error)

// AcquisitionFunc defines the signature for acquisition functions used by the
// GP algorithm. These functions help decide which points in the parameter
// space should be evaluated next.
//
// Parameters:
// - mean: The predicted loss at a point (lower is better)
// - variance: The predicted variance/uncertainty at that point
// - params: Additional parameters needed by specific acquisition functions
//
// Returns:
// - float64: Acquisition value (lower values indicate more promising points)
//
// Built-in acquisition functions:
// - UCB: Upper Confidence Bound
// - ProbabilityOfImprovement: Probability of finding better value
// - ExpectedImprovement: Expected magnitude of improvement
// - ThompsonSampling: Random sampling from posterior
type AcquisitionFunc func(mean, variance float64, params AcquisitionParams) float64

// AcquisitionParams holds parameters used by different acquisition functions.
type AcquisitionParams struct {
	// Beta controls the exploration-exploitation trade-off in UCB.
	// Typical values range from 0.1 to 5.0, with 2.0 being a good default.
	Beta float64

	// Xi is the minimum improvement wanted by PI and EI.
	// Typical values range from 0.01 to 0.1.
	Xi float64

	// BestSoFar keeps track of the lowest loss seen so far. It is updated by
	// the optimizer before every proposal.
	BestSoFar float64

	// RandomState is the random number generator used by Thompson Sampling.
	// When nil, Minimize uses the run's own seeded generator.
	RandomState *rand.Rand
}

// OptimizationConfig holds all configuration parameters for a Minimize call.
//
// Usage example:
//
//	config := DefaultConfig()
//	config.MaxEvals = 50
//	config.Seed = 111
//
// Note:
// - Create separate configs for parallel optimizations.
type OptimizationConfig struct {
	// Algorithm selects the proposal strategy (TPE, GP or Random).
	Algorithm Algorithm

	// MaxEvals is the number of objective evaluations to perform.
	MaxEvals int

	// Seed seeds the run's random generator. Equal seeds with a deterministic
	// objective yield equal trials.
	Seed int64

	// StartupTrials is how many prior samples TPE draws before modelling.
	StartupTrials int

	// Gamma is the fraction (scaled by sqrt(n)) of trials TPE treats as "good".
	Gamma float64

	// EICandidates is how many candidates TPE scores per proposal.
	EICandidates int

	// PriorWeight is the weight of the prior component in each Parzen mixture.
	PriorWeight float64

	// InitialSamples is how many prior samples GP draws before modelling.
	InitialSamples int

	// NumCandidates is how many candidates GP scores per proposal.
	NumCandidates int

	// KernelWidth is the RBF width used by the GP, in unit-cube coordinates.
	KernelWidth float64

	// AcquisitionFunc determines how GP ranks candidates.
	AcquisitionFunc AcquisitionFunc

	// AcqParams holds the parameters for the acquisition function.
	AcqParams AcquisitionParams

	// ProgressChan is used to send progress updates during optimization.
	// If nil, no updates will be sent. Sends never block.
	ProgressChan chan<- ProgressUpdate
}

// Validate reports whether the configuration can drive a run.
func (c OptimizationConfig) Validate() error {
	if _, err := ParseAlgorithm(string(c.Algorithm)); err != nil {
		return err
	}

	switch {
	case c.MaxEvals <= 0:
		return fmt.Errorf("%w: MaxEvals must be positive, got %d", ErrInvalidConfig, c.MaxEvals)
	case c.Algorithm == TPE && (c.Gamma <= 0 || c.Gamma > 1):
		return fmt.Errorf("%w: Gamma must be in (0, 1], got %v", ErrInvalidConfig, c.Gamma)
	case c.Algorithm == TPE && c.EICandidates <= 0:
		return fmt.Errorf("%w: EICandidates must be positive", ErrInvalidConfig)
	case c.Algorithm == TPE && c.PriorWeight <= 0:
		return fmt.Errorf("%w: PriorWeight must be positive", ErrInvalidConfig)
	case c.Algorithm == GP && c.NumCandidates <= 0:
		return fmt.Errorf("%w: NumCandidates must be positive", ErrInvalidConfig)
	case c.Algorithm == GP && c.KernelWidth <= 0:
		return fmt.Errorf("%w: KernelWidth must be positive", ErrInvalidConfig)
	case c.Algorithm == GP && c.AcquisitionFunc == nil:
		return fmt.Errorf("%w: AcquisitionFunc is required for GP", ErrInvalidConfig)
	}

	return nil
}
