/*
Package search drives a hyperparameter search for one model on one fold.

Every trial proposed by the optimizer is scored by training and validating the
model Runs times with the proposed hyperparameters. The per-epoch validation
accuracies of a run are averaged, the run averages are averaged again, and the
negated result is the trial's loss. After the last trial the best
hyperparameters are written as a one row CSV summary.
*/
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/thalesfsp/gnnsearch/ho"
	"github.com/thalesfsp/gnnsearch/internal/config"
	"github.com/thalesfsp/gnnsearch/internal/ctxlog"
	"github.com/thalesfsp/gnnsearch/internal/history"
	"github.com/thalesfsp/gnnsearch/internal/report"
	"github.com/thalesfsp/gnnsearch/internal/trainer"
)

// Recorder receives the study and every trial as the search goes.
// *history.Store implements it.
type Recorder interface {
	CreateStudy(ctx context.Context, study history.Study) error
	RecordTrial(ctx context.Context, trial history.Trial) error
	FinishStudy(ctx context.Context, id string, finishedAt time.Time, bestLoss float64) error
	FailStudy(ctx context.Context, id string, finishedAt time.Time, cause string) error
}

// Option configures a Driver.
type Option func(*Driver)

// WithRecorder records the study in r.
func WithRecorder(r Recorder) Option {
	return func(d *Driver) {
		d.recorder = r
	}
}

// WithProgress forwards the optimizer's progress updates to ch. Updates are
// dropped when ch is full.
func WithProgress(ch chan<- ho.ProgressUpdate) Option {
	return func(d *Driver) {
		d.progress = ch
	}
}

// Driver runs searches for a fixed configuration.
type Driver struct {
	run      config.Run
	trainer  trainer.Trainer
	recorder Recorder
	progress chan<- ho.ProgressUpdate
}

// Result is the outcome of a completed search.
type Result struct {
	// StudyID identifies the search in the history store.
	StudyID string

	// Seed is the optimizer seed actually used.
	Seed int64

	BestLoss   float64
	BestSample ho.Sample

	// Trials holds every evaluated trial in order.
	Trials []ho.Trial

	// Row is what was written to OutputPath.
	Row        report.Row
	OutputPath string

	Elapsed time.Duration
}

// New returns a Driver for run using t for every train/validate call.
func New(run config.Run, t trainer.Trainer, opts ...Option) (*Driver, error) {
	if err := run.Validate(); err != nil {
		return nil, err
	}

	if t == nil {
		return nil, errors.New("trainer is required")
	}

	d := &Driver{run: run, trainer: t}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Run searches space and writes the summary of the best trial.
//
// A trainer failure aborts the search; the trials evaluated so far are still
// returned in Result.Trials, but nothing is written. The recorded study is
// then marked failed.
func (d *Driver) Run(ctx context.Context, space ho.Space) (Result, error) {
	logger := ctxlog.FromContext(ctx)

	if err := config.ValidateSpace(space); err != nil {
		return Result{}, err
	}

	start := time.Now()

	seed := d.run.Seed
	if seed == 0 {
		seed = start.UnixNano()
	}

	result := Result{StudyID: uuid.NewString(), Seed: seed}

	logger = logger.With("study", result.StudyID, "model", d.run.Model, "fold", d.run.Fold)
	ctx = ctxlog.WithLogger(ctx, logger)

	if d.recorder != nil {
		if err := d.recorder.CreateStudy(ctx, history.Study{
			ID:         result.StudyID,
			Model:      d.run.Model,
			Dataset:    d.run.Dataset.ID.String(),
			Fold:       d.run.Fold,
			Algorithm:  string(d.run.Algorithm),
			Seed:       seed,
			Runs:       d.run.Runs,
			Iterations: d.run.Iterations,
			StartedAt:  start,
		}); err != nil {
			return result, err
		}
	}

	if err := d.search(ctx, space, &result); err != nil {
		d.failStudy(ctx, result.StudyID, err)

		return result, err
	}

	result.Elapsed = time.Since(start)

	if d.recorder != nil {
		if err := d.recorder.FinishStudy(ctx, result.StudyID, time.Now(), result.BestLoss); err != nil {
			return result, err
		}
	}

	logger.Info("search finished",
		"best_loss", result.BestLoss,
		"best", result.BestSample.String(),
		"elapsed", result.Elapsed,
		"output", result.OutputPath,
	)

	return result, nil
}

// search runs the optimizer and writes the summary into result.
func (d *Driver) search(ctx context.Context, space ho.Space, result *Result) error {
	logger := ctxlog.FromContext(ctx)

	cfg := ho.DefaultConfig()
	cfg.Algorithm = d.run.Algorithm
	cfg.MaxEvals = d.run.Iterations
	cfg.Seed = result.Seed
	cfg.ProgressChan = d.progress

	logger.Info("search started",
		"dataset", d.run.Dataset.ID.String(),
		"algorithm", cfg.Algorithm,
		"iterations", d.run.Iterations,
		"runs", d.run.Runs,
		"seed", result.Seed,
	)

	best, trials, err := ho.Minimize(ctx, cfg, d.objective(result.StudyID), space)
	result.Trials = trials.All()

	if err != nil {
		return fmt.Errorf("search aborted: %w", err)
	}

	result.BestSample = best
	result.BestLoss = minLoss(trials.Losses())

	searched, err := trainer.SearchedFromSample(best)
	if err != nil {
		return err
	}

	result.Row = d.row(searched, result.BestLoss)
	result.OutputPath = report.Path(d.run.OutRoot, d.run.Dataset.OutputSubdir, d.run.Model, d.run.Fold, d.run.OptRun)

	return report.Write(result.OutputPath, result.Row)
}

// failStudy marks the study failed. It still runs after ctx is canceled.
func (d *Driver) failStudy(ctx context.Context, studyID string, cause error) {
	if d.recorder == nil {
		return
	}

	if err := d.recorder.FailStudy(context.WithoutCancel(ctx), studyID, time.Now(), cause.Error()); err != nil {
		ctxlog.FromContext(ctx).Warn("failed to mark study as failed", "error", err)
	}
}

// objective scores one sample: the negated mean of Runs run averages.
func (d *Driver) objective(studyID string) ho.ObjectiveFunc {
	fixed := d.run.Fixed()
	number := 0

	return func(ctx context.Context, sample ho.Sample) (float64, error) {
		logger := ctxlog.FromContext(ctx).With("trial", number)

		trial := history.Trial{
			StudyID:   studyID,
			Number:    number,
			Params:    sample,
			StartedAt: time.Now(),
			Status:    ho.StatusOK,
		}

		number++

		runMeans, err := d.evaluate(ctx, logger, sample, fixed)
		trial.RunAccuracies = runMeans
		trial.FinishedAt = time.Now()

		if err != nil {
			trial.Status = ho.StatusFailed
			trial.Error = err.Error()
			d.recordFailedTrial(ctx, trial)

			return 0, err
		}

		trial.Loss = -ho.Mean(runMeans)

		logger.Info("trial finished", "params", sample.String(), "loss", trial.Loss)

		if d.recorder != nil {
			if err := d.recorder.RecordTrial(ctx, trial); err != nil {
				return 0, err
			}
		}

		return trial.Loss, nil
	}
}

// evaluate trains Runs times and returns the mean accuracy of every run.
func (d *Driver) evaluate(ctx context.Context, logger *slog.Logger, sample ho.Sample, fixed trainer.Fixed) ([]float64, error) {
	searched, err := trainer.SearchedFromSample(sample)
	if err != nil {
		return nil, err
	}

	req := trainer.Request{Searched: searched, Fixed: fixed}
	runMeans := make([]float64, 0, d.run.Runs)

	for run := 0; run < d.run.Runs; run++ {
		res, err := d.trainer.TrainAndValidateOneFold(ctx, req)
		if err != nil {
			return runMeans, fmt.Errorf("run %d: %w", run, err)
		}

		mean, err := res.Mean()
		if err != nil {
			return runMeans, fmt.Errorf("run %d: %w", run, err)
		}

		logger.Debug("run finished", "run", run, "accuracy", mean)

		runMeans = append(runMeans, mean)
	}

	return runMeans, nil
}

// recordFailedTrial stores trial; errors are logged since the trial error
// is what the caller reports.
func (d *Driver) recordFailedTrial(ctx context.Context, trial history.Trial) {
	if d.recorder == nil {
		return
	}

	if err := d.recorder.RecordTrial(context.WithoutCancel(ctx), trial); err != nil {
		ctxlog.FromContext(ctx).Warn("failed to record failed trial", "trial", trial.Number, "error", err)
	}
}

func (d *Driver) row(s trainer.Searched, bestLoss float64) report.Row {
	return report.Row{
		Dataset:        d.run.Dataset.Folder,
		Model:          d.run.Model,
		Fold:           d.run.Fold,
		NumEvals:       d.run.Iterations,
		NumRunsPerEval: d.run.Runs,
		Hidden:         d.run.Dataset.Hidden,
		LR:             s.LR,
		LRDecay:        s.LRDecay,
		NumEpochs:      d.run.MaxEpochs,
		NumLayers:      d.run.Dataset.NumLayers,
		StepSize:       s.StepSize,
		WeightDecay:    s.WeightDecay,
		ValAcc:         -bestLoss,
	}
}

func minLoss(losses []float64) float64 {
	best := math.Inf(1)
	for _, l := range losses {
		best = math.Min(best, l)
	}

	return best
}
