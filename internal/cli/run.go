// Package cli implements the gnnsearch commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thalesfsp/gnnsearch/ho"
	"github.com/thalesfsp/gnnsearch/internal/config"
	"github.com/thalesfsp/gnnsearch/internal/ctxlog"
	"github.com/thalesfsp/gnnsearch/internal/history"
	"github.com/thalesfsp/gnnsearch/internal/report"
	"github.com/thalesfsp/gnnsearch/internal/search"
	"github.com/thalesfsp/gnnsearch/internal/trainer"
)

// runOptions holds the flags of the 'run' command.
type runOptions struct {
	run       config.Run
	folder    string
	algorithm string
	trainer   string
	history   string
	space     string
	logLevel  string
	logFormat string
}

// NewRunCmd creates the 'run' command that searches the hyperparameters of
// one model on one fold.
func NewRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Search the training hyperparameters of a model on one fold",
		Long: `Search lr, weight_decay, step_size and lr_decay for one model on one
cross-validation fold.

Every trial trains and validates the model --runs times through the trainer
command and scores the proposed hyperparameters by their mean validation
accuracy. The best hyperparameters are written as a one row CSV to
{out}/{base|paper}/{model}/{model}-fold{fold}-r10-it50-undirected{opt_run}.csv.`,
		Example: `  gnnsearch run --fold 0 -m GraphSAGE --folder pT1_dataset/graphs/base-dataset/ --opt_run 1
  gnnsearch run --fold 2 -m GCN --folder pT1_dataset/graphs/base-dataset/ --opt_run 1 --runs 3 --iterations 20 --device cpu
  gnnsearch run --fold 0 -m GIN --folder pT1_dataset/graphs/base-dataset/ --opt_run 1 --space space.hcl --history runs.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctxlog.New(cmd.ErrOrStderr(), opts.logFormat, opts.logLevel)
			if err != nil {
				return err
			}

			tr, err := trainer.NewCommand(opts.trainer)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runSearch(ctxlog.WithLogger(ctx, logger), opts, tr, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.run.Fold, "fold", 0, "Cross-validation fold to optimize")
	f.StringVarP(&opts.run.Model, "model", "m", "", "GNN model name handed to the trainer")
	f.StringVar(&opts.folder, "folder", "", "Dataset folder (base or paper graphs)")
	f.IntVar(&opts.run.MaxEpochs, "max_epochs", config.DefaultMaxEpochs, "Training epochs per run")
	f.IntVar(&opts.run.Runs, "runs", config.DefaultRuns, "Train/validate runs averaged per trial")
	f.IntVar(&opts.run.Iterations, "iterations", config.DefaultIterations, "Number of trials")
	f.StringVar(&opts.run.Device, "device", config.DefaultDevice, "Training device")
	f.IntVar(&opts.run.OptRun, "opt_run", 0, "Tag appended to the output file name")
	f.Int64Var(&opts.run.Seed, "seed", 0, "Optimizer seed (0 picks one from the clock)")
	f.StringVar(&opts.algorithm, "algorithm", string(ho.TPE), "Search algorithm: tpe, gp or random")
	f.StringVar(&opts.trainer, "trainer", config.DefaultTrainer, "Trainer command line")
	f.StringVar(&opts.run.OutRoot, "out", config.DefaultOutRoot, "Root directory of the CSV summaries")
	f.StringVar(&opts.history, "history", "", "SQLite file recording every trial (empty disables)")
	f.StringVar(&opts.space, "space", "", "HCL search space file (default: built-in space)")
	f.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	f.StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")

	for _, name := range []string{"fold", "model", "folder", "opt_run"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

// runSearch runs one search with tr and prints the summary to out.
func runSearch(ctx context.Context, opts *runOptions, tr trainer.Trainer, out io.Writer) error {
	logger := ctxlog.FromContext(ctx)

	algorithm, err := ho.ParseAlgorithm(opts.algorithm)
	if err != nil {
		return err
	}

	r := opts.run
	r.Algorithm = algorithm

	run, err := config.NewRun(r, opts.folder)
	if err != nil {
		return err
	}

	space, err := loadSpace(opts.space)
	if err != nil {
		return err
	}

	progress := make(chan ho.ProgressUpdate, 1)
	driverOpts := []search.Option{search.WithProgress(progress)}

	if opts.history != "" {
		store, err := history.Open(opts.history)
		if err != nil {
			return err
		}
		defer store.Close()

		driverOpts = append(driverOpts, search.WithRecorder(store))
	}

	driver, err := search.New(run, tr, driverOpts...)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		logProgress(logger, progress)
	}()

	result, err := driver.Run(ctx, space)

	close(progress)
	wg.Wait()

	if err != nil {
		return err
	}

	report.PrintSummary(out, report.Summary{
		Model:      run.Model,
		Fold:       run.Fold,
		Folder:     run.Dataset.Folder,
		BestScore:  -result.BestLoss,
		BestParams: result.BestSample.String(),
		Elapsed:    result.Elapsed,
		Evaluated:  len(result.Trials),
		OutputPath: result.OutputPath,
	})

	return nil
}

// logProgress logs every update until ch is closed.
func logProgress(logger *slog.Logger, ch <-chan ho.ProgressUpdate) {
	for update := range ch {
		logger.Info("progress",
			"phase", update.Phase,
			"iteration", fmt.Sprintf("%d/%d", update.CurrentIteration, update.TotalIterations),
			"best_score", -update.BestLoss,
		)
	}
}

// loadSpace reads path, or returns the built-in space when path is empty.
func loadSpace(path string) (ho.Space, error) {
	if path == "" {
		return config.DefaultSpace(), nil
	}

	return config.LoadSpace(path)
}
