package ho

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
)

//////
// Distributions.
//////

// Distribution describes how a single hyperparameter is sampled.
//
// Every distribution maps values to an internal coordinate in which the prior
// is uniform over [low, high]. Samplers work in that coordinate and convert
// back with fromInternal.
//
// Built-in distributions:
// - LogUniform: exp(uniform(log(Low), log(High)))
// - Uniform: uniform(Low, High)
// - QUniform: round(uniform(Low, High) / Q) * Q
type Distribution interface {
	// Validate reports whether the distribution parameters are usable.
	Validate() error

	// String describes the distribution, e.g. "loguniform(0.0001, 0.01)".
	String() string

	bounds() (low, high float64)
	toInternal(v float64) float64
	fromInternal(x float64) float64
	step() float64
}

// LogUniform draws values whose logarithm is uniformly distributed.
type LogUniform struct {
	Low  float64
	High float64
}

// Validate implements Distribution.
func (d LogUniform) Validate() error {
	if d.Low <= 0 {
		return fmt.Errorf("loguniform low must be positive, got %v", d.Low)
	}

	if d.Low >= d.High {
		return fmt.Errorf("loguniform low (%v) must be below high (%v)", d.Low, d.High)
	}

	return nil
}

func (d LogUniform) String() string {
	return "loguniform(" + formatFloat(d.Low) + ", " + formatFloat(d.High) + ")"
}

func (d LogUniform) bounds() (float64, float64)   { return math.Log(d.Low), math.Log(d.High) }
func (d LogUniform) toInternal(v float64) float64 { return math.Log(v) }
func (d LogUniform) step() float64                { return 0 }

func (d LogUniform) fromInternal(x float64) float64 {
	return clamp(math.Exp(x), d.Low, d.High)
}

// Uniform draws values uniformly between Low and High.
type Uniform struct {
	Low  float64
	High float64
}

// Validate implements Distribution.
func (d Uniform) Validate() error {
	if d.Low >= d.High {
		return fmt.Errorf("uniform low (%v) must be below high (%v)", d.Low, d.High)
	}

	return nil
}

func (d Uniform) String() string {
	return "uniform(" + formatFloat(d.Low) + ", " + formatFloat(d.High) + ")"
}

func (d Uniform) bounds() (float64, float64)     { return d.Low, d.High }
func (d Uniform) toInternal(v float64) float64   { return v }
func (d Uniform) fromInternal(x float64) float64 { return clamp(x, d.Low, d.High) }
func (d Uniform) step() float64                  { return 0 }

// QUniform draws uniform(Low, High) and rounds it to the nearest multiple of Q.
// Results are kept within [Low, High] by stepping one Q inwards when rounding
// overshoots. Integer marks the parameter as integer valued.
//
// Example: QUniform{Low: 10, High: 31, Q: 10, Integer: true} yields 10, 20 or 30.
type QUniform struct {
	Low     float64
	High    float64
	Q       float64
	Integer bool
}

// Validate implements Distribution.
func (d QUniform) Validate() error {
	if d.Q <= 0 {
		return fmt.Errorf("quniform q must be positive, got %v", d.Q)
	}

	if d.Low >= d.High {
		return fmt.Errorf("quniform low (%v) must be below high (%v)", d.Low, d.High)
	}

	if math.Floor(d.High/d.Q) < math.Ceil(d.Low/d.Q) {
		return fmt.Errorf("quniform [%v, %v] holds no multiple of %v", d.Low, d.High, d.Q)
	}

	return nil
}

func (d QUniform) String() string {
	s := "quniform(" + formatFloat(d.Low) + ", " + formatFloat(d.High) + ", " + formatFloat(d.Q) + ")"
	if d.Integer {
		s = "int(" + s + ")"
	}

	return s
}

func (d QUniform) bounds() (float64, float64)   { return d.Low, d.High }
func (d QUniform) toInternal(v float64) float64 { return v }
func (d QUniform) step() float64                { return d.Q }

func (d QUniform) fromInternal(x float64) float64 {
	v := roundHalfEven(x/d.Q) * d.Q

	for v > d.High {
		v -= d.Q
	}

	for v < d.Low {
		v += d.Q
	}

	if d.Integer {
		v = roundHalfEven(v)
	}

	return v
}

//////
// Search space.
//////

// Param is one named hyperparameter of a Space.
type Param struct {
	Name         string
	Distribution Distribution
}

// Space is the ordered set of hyperparameters explored by the optimizer.
// It must not be modified while a run is in progress.
//
// Usage example:
//
//	space := Space{
//	    {Name: "lr", Distribution: LogUniform{Low: 1e-4, High: 1e-2}},
//	    {Name: "step_size", Distribution: QUniform{Low: 10, High: 31, Q: 10, Integer: true}},
//	    {Name: "lr_decay", Distribution: Uniform{Low: 0.5, High: 1}},
//	}
type Space []Param

// Validate checks names and distributions.
func (s Space) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: no parameters", ErrInvalidSpace)
	}

	seen := make(map[string]struct{}, len(s))

	for _, p := range s {
		if p.Name == "" {
			return fmt.Errorf("%w: parameter with empty name", ErrInvalidSpace)
		}

		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("%w: duplicate parameter %q", ErrInvalidSpace, p.Name)
		}

		seen[p.Name] = struct{}{}

		if p.Distribution == nil {
			return fmt.Errorf("%w: parameter %q has no distribution", ErrInvalidSpace, p.Name)
		}

		if err := p.Distribution.Validate(); err != nil {
			return fmt.Errorf("%w: parameter %q: %v", ErrInvalidSpace, p.Name, err)
		}
	}

	return nil
}

// Names returns the parameter names in declaration order.
func (s Space) Names() []string {
	names := make([]string, len(s))
	for i, p := range s {
		names[i] = p.Name
	}

	return names
}

// Contains reports whether every parameter of the space is present in sample
// and lies within its distribution's bounds.
func (s Space) Contains(sample Sample) bool {
	for _, p := range s {
		v, ok := sample[p.Name]
		if !ok {
			return false
		}

		low, high := p.Distribution.bounds()

		x := p.Distribution.toInternal(v)
		if math.IsNaN(x) || x < low-1e-9 || x > high+1e-9 {
			return false
		}
	}

	return true
}

// samplePrior draws one sample uniformly in every parameter's internal coordinate.
func (s Space) samplePrior(rng *rand.Rand) Sample {
	sample := make(Sample, len(s))

	for _, p := range s {
		low, high := p.Distribution.bounds()
		sample[p.Name] = p.Distribution.fromInternal(low + rng.Float64()*(high-low))
	}

	return sample
}

// toUnit maps a sample onto the unit hypercube, in declaration order.
func (s Space) toUnit(sample Sample) []float64 {
	unit := make([]float64, len(s))

	for i, p := range s {
		low, high := p.Distribution.bounds()
		unit[i] = (p.Distribution.toInternal(sample[p.Name]) - low) / (high - low)
	}

	return unit
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
