/*
Package trainer defines the contract of the external train/validate routine
and provides implementations for it.

The search never trains anything itself: every trial hands one Request per run
to a Trainer and only looks at the per-epoch validation accuracies that come
back.
*/
package trainer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/thalesfsp/gnnsearch/ho"
)

// Names of the searched hyperparameters, as used in the search space.
const (
	ParamLR          = "lr"
	ParamWeightDecay = "weight_decay"
	ParamStepSize    = "step_size"
	ParamLRDecay     = "lr_decay"
)

// SearchedParams lists every searched hyperparameter name.
var SearchedParams = []string{ParamWeightDecay, ParamLR, ParamStepSize, ParamLRDecay}

// DefaultBatchSize is the batch size used for every search run.
const DefaultBatchSize = 64

var (
	// ErrEmptyResult is returned when a run produced no per-epoch results.
	ErrEmptyResult = errors.New("trainer returned no per-epoch results")

	// ErrInvalidRequest is returned when a Request fails validation.
	ErrInvalidRequest = errors.New("invalid trainer request")
)

// Fixed holds the parameters that stay the same for every trial of a run.
type Fixed struct {
	Hidden           int    `json:"hidden"`
	NumLayers        int    `json:"num_layers"`
	NumEpochs        int    `json:"num_epochs"`
	Fold             int    `json:"fold"`
	Model            string `json:"m"`
	Optimizing       bool   `json:"opt"`
	Folder           string `json:"folder"`
	Augment          bool   `json:"augment"`
	BatchSize        int    `json:"batch_size"`
	NumInputFeatures int    `json:"num_input_features"`
	Device           string `json:"device"`
}

// Validate checks the fixed parameters.
func (f Fixed) Validate() error {
	switch {
	case f.Hidden <= 0:
		return fmt.Errorf("%w: hidden must be positive", ErrInvalidRequest)
	case f.NumLayers <= 0:
		return fmt.Errorf("%w: num_layers must be positive", ErrInvalidRequest)
	case f.NumEpochs <= 0:
		return fmt.Errorf("%w: num_epochs must be positive", ErrInvalidRequest)
	case f.Fold < 0:
		return fmt.Errorf("%w: fold must not be negative", ErrInvalidRequest)
	case f.Model == "":
		return fmt.Errorf("%w: model is required", ErrInvalidRequest)
	case f.Folder == "":
		return fmt.Errorf("%w: folder is required", ErrInvalidRequest)
	case f.BatchSize <= 0:
		return fmt.Errorf("%w: batch_size must be positive", ErrInvalidRequest)
	case f.NumInputFeatures <= 0:
		return fmt.Errorf("%w: num_input_features must be positive", ErrInvalidRequest)
	case f.Device == "":
		return fmt.Errorf("%w: device is required", ErrInvalidRequest)
	}

	return nil
}

// Searched holds the hyperparameters proposed by the optimizer.
type Searched struct {
	LR          float64 `json:"lr"`
	WeightDecay float64 `json:"weight_decay"`
	StepSize    int     `json:"step_size"`
	LRDecay     float64 `json:"lr_decay"`
}

// SearchedFromSample converts an optimizer sample into Searched. Every
// searched name must be present.
func SearchedFromSample(s ho.Sample) (Searched, error) {
	for _, name := range SearchedParams {
		if _, ok := s[name]; !ok {
			return Searched{}, fmt.Errorf("%w: sample is missing %q", ErrInvalidRequest, name)
		}
	}

	searched := Searched{
		LR:          s[ParamLR],
		WeightDecay: s[ParamWeightDecay],
		StepSize:    s.Int(ParamStepSize),
		LRDecay:     s[ParamLRDecay],
	}

	return searched, searched.Validate()
}

// Validate checks the searched parameters.
func (s Searched) Validate() error {
	switch {
	case !(s.LR > 0) || math.IsInf(s.LR, 0):
		return fmt.Errorf("%w: lr must be positive, got %v", ErrInvalidRequest, s.LR)
	case s.WeightDecay < 0 || math.IsNaN(s.WeightDecay):
		return fmt.Errorf("%w: weight_decay must not be negative, got %v", ErrInvalidRequest, s.WeightDecay)
	case s.StepSize <= 0:
		return fmt.Errorf("%w: step_size must be positive, got %d", ErrInvalidRequest, s.StepSize)
	case !(s.LRDecay > 0) || s.LRDecay > 1:
		return fmt.Errorf("%w: lr_decay must be in (0, 1], got %v", ErrInvalidRequest, s.LRDecay)
	}

	return nil
}

// Request is everything one train/validate call needs. It marshals to a flat
// JSON object.
type Request struct {
	Searched
	Fixed
}

// Validate checks both halves of the request.
func (r Request) Validate() error {
	if err := r.Searched.Validate(); err != nil {
		return err
	}

	return r.Fixed.Validate()
}

// Result is what one train/validate call returns.
type Result struct {
	// PerEpoch holds the validation accuracy of every epoch.
	PerEpoch []float64 `json:"per_epoch"`

	// Extras carries the trainer's additional return values untouched.
	Extras []json.RawMessage `json:"extras,omitempty"`
}

// Mean returns the average per-epoch accuracy.
func (r Result) Mean() (float64, error) {
	if len(r.PerEpoch) == 0 {
		return 0, ErrEmptyResult
	}

	return ho.Mean(r.PerEpoch), nil
}

// Trainer trains and validates the model on one fold.
type Trainer interface {
	TrainAndValidateOneFold(ctx context.Context, req Request) (Result, error)
}

// Func adapts a plain function to the Trainer interface.
type Func func(ctx context.Context, req Request) (Result, error)

// TrainAndValidateOneFold implements Trainer.
func (f Func) TrainAndValidateOneFold(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// Constant returns a Trainer reporting acc for every epoch. Useful for dry
// runs and tests.
func Constant(acc float64) Trainer {
	return Func(func(_ context.Context, req Request) (Result, error) {
		perEpoch := make([]float64, req.NumEpochs)
		for i := range perEpoch {
			perEpoch[i] = acc
		}

		return Result{PerEpoch: perEpoch}, nil
	})
}
