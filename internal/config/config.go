/*
Package config holds the immutable configuration of a search run and the
search space it explores.
*/
package config

import (
	"errors"
	"fmt"

	"github.com/thalesfsp/gnnsearch/ho"
	"github.com/thalesfsp/gnnsearch/internal/dataset"
	"github.com/thalesfsp/gnnsearch/internal/trainer"
)

// ErrInvalidRun is returned when a Run fails validation.
var ErrInvalidRun = errors.New("invalid run configuration")

// Defaults for the optional CLI flags.
const (
	DefaultMaxEpochs  = 80
	DefaultRuns       = 10
	DefaultIterations = 50
	DefaultDevice     = "cuda"
	DefaultOutRoot    = "./Hyperparameters"
	DefaultTrainer    = "python train_fold.py"
)

// Run is the fixed, non-searched configuration of one search. Build it with
// NewRun and treat it as read-only afterwards.
type Run struct {
	Fold      int
	Model     string
	Dataset   dataset.Preset
	MaxEpochs int

	// Runs is how many train/validate calls are averaged per trial.
	Runs int

	// Iterations is the number of trials.
	Iterations int

	Device string

	// OptRun tags the output file name.
	OptRun int

	// Seed seeds the optimizer; 0 picks a time based seed.
	Seed int64

	Algorithm ho.Algorithm

	// OutRoot is the directory receiving the CSV summaries.
	OutRoot string
}

// NewRun resolves folder, fills Device, Algorithm and OutRoot when empty and
// validates the result.
func NewRun(r Run, folder string) (Run, error) {
	preset, err := dataset.Parse(folder)
	if err != nil {
		return Run{}, err
	}

	r.Dataset = preset

	if r.Device == "" {
		r.Device = DefaultDevice
	}

	if r.Algorithm == "" {
		r.Algorithm = ho.TPE
	}

	if r.OutRoot == "" {
		r.OutRoot = DefaultOutRoot
	}

	return r, r.Validate()
}

// Validate checks every field.
func (r Run) Validate() error {
	switch {
	case r.Fold < 0:
		return fmt.Errorf("%w: fold must not be negative, got %d", ErrInvalidRun, r.Fold)
	case r.Model == "":
		return fmt.Errorf("%w: model is required", ErrInvalidRun)
	case r.MaxEpochs < 1:
		return fmt.Errorf("%w: max_epochs must be at least 1, got %d", ErrInvalidRun, r.MaxEpochs)
	case r.Runs < 1:
		return fmt.Errorf("%w: runs must be at least 1, got %d", ErrInvalidRun, r.Runs)
	case r.Iterations < 1:
		return fmt.Errorf("%w: iterations must be at least 1, got %d", ErrInvalidRun, r.Iterations)
	case r.Device == "":
		return fmt.Errorf("%w: device is required", ErrInvalidRun)
	case r.OutRoot == "":
		return fmt.Errorf("%w: output root is required", ErrInvalidRun)
	}

	if _, err := dataset.Lookup(r.Dataset.ID); err != nil {
		return err
	}

	if _, err := ho.ParseAlgorithm(string(r.Algorithm)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRun, err)
	}

	return nil
}

// Fixed returns the trainer parameters shared by every trial.
func (r Run) Fixed() trainer.Fixed {
	return trainer.Fixed{
		Hidden:           r.Dataset.Hidden,
		NumLayers:        r.Dataset.NumLayers,
		NumEpochs:        r.MaxEpochs,
		Fold:             r.Fold,
		Model:            r.Model,
		Optimizing:       true,
		Folder:           r.Dataset.Folder,
		Augment:          false,
		BatchSize:        trainer.DefaultBatchSize,
		NumInputFeatures: r.Dataset.InFeatures,
		Device:           r.Device,
	}
}

// DefaultSpace returns the stock search space:
//
//	weight_decay ~ loguniform(1e-4, 1e-2)
//	lr           ~ loguniform(1e-4, 1e-2)
//	step_size    ~ int(quniform(10, 31, 10))
//	lr_decay     ~ uniform(0.5, 1)
func DefaultSpace() ho.Space {
	return ho.Space{
		{Name: trainer.ParamWeightDecay, Distribution: ho.LogUniform{Low: 1e-4, High: 1e-2}},
		{Name: trainer.ParamLR, Distribution: ho.LogUniform{Low: 1e-4, High: 1e-2}},
		{Name: trainer.ParamStepSize, Distribution: ho.QUniform{Low: 10, High: 31, Q: 10, Integer: true}},
		{Name: trainer.ParamLRDecay, Distribution: ho.Uniform{Low: 0.5, High: 1}},
	}
}

// ValidateSpace checks the space and that it declares exactly the searched
// trainer parameters.
func ValidateSpace(space ho.Space) error {
	if err := space.Validate(); err != nil {
		return err
	}

	declared := make(map[string]bool, len(space))
	for _, p := range space {
		declared[p.Name] = true
	}

	for _, name := range trainer.SearchedParams {
		if !declared[name] {
			return fmt.Errorf("%w: missing parameter %q", ho.ErrInvalidSpace, name)
		}
	}

	if len(space) != len(trainer.SearchedParams) {
		return fmt.Errorf("%w: only %v can be searched", ho.ErrInvalidSpace, trainer.SearchedParams)
	}

	for _, p := range space {
		if err := validateRange(p); err != nil {
			return fmt.Errorf("%w: %s %s: %v", ho.ErrInvalidSpace, p.Name, p.Distribution, err)
		}
	}

	return nil
}

// validateRange checks that every value p can produce is accepted by
// trainer.Searched.Validate.
func validateRange(p ho.Param) error {
	var low, high float64

	switch d := p.Distribution.(type) {
	case ho.LogUniform:
		low, high = d.Low, d.High
	case ho.Uniform:
		low, high = d.Low, d.High
	case ho.QUniform:
		low, high = d.Low, d.High
	default:
		return fmt.Errorf("unsupported distribution %T", p.Distribution)
	}

	switch p.Name {
	case trainer.ParamLR:
		if !(low > 0) {
			return errors.New("lr must be positive")
		}
	case trainer.ParamWeightDecay:
		if low < 0 {
			return errors.New("weight_decay must not be negative")
		}
	case trainer.ParamLRDecay:
		if !(low > 0) || high > 1 {
			return errors.New("lr_decay must be in (0, 1]")
		}
	case trainer.ParamStepSize:
		q, ok := p.Distribution.(ho.QUniform)
		if !ok || !q.Integer {
			return errors.New("step_size must be an integer quniform")
		}

		if low < 1 {
			return errors.New("step_size must be at least 1")
		}
	}

	return nil
}
