/*
Package main is the entry point for the gnnsearch CLI.

gnnsearch tunes the training hyperparameters of a graph neural network on one
cross-validation fold. The model itself is trained by an external trainer
command; gnnsearch proposes hyperparameters, averages the validation accuracy
of repeated runs and writes the best combination to a CSV summary.

Usage:
  gnnsearch [command]

Available Commands:
  run         Search the training hyperparameters of a model on one fold
  history     List recorded searches and their trials
  space       Print the effective search space
  help        Help about any command

Examples:
  # Search fold 0 of the base dataset with GraphSAGE
  gnnsearch run --fold 0 -m GraphSAGE --folder pT1_dataset/graphs/base-dataset/ --opt_run 1

  # Show the recorded searches
  gnnsearch history --db runs.db
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"github.com/thalesfsp/gnnsearch/internal/cli"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gnnsearch",
		Short: "Hyperparameter search for GNN training on one cross-validation fold",
		Long: `gnnsearch searches lr, weight_decay, step_size and lr_decay of a GNN model
with a Tree-structured Parzen Estimator (or a Gaussian Process, or plain random
search).

Each trial trains and validates the model several times through an external
trainer command and is scored by the mean validation accuracy of those runs.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(cli.NewRunCmd())
	rootCmd.AddCommand(cli.NewHistoryCmd())
	rootCmd.AddCommand(cli.NewSpaceCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
