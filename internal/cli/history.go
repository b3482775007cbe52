package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/thalesfsp/gnnsearch/ho"
	"github.com/thalesfsp/gnnsearch/internal/history"
)

// NewHistoryCmd creates the 'history' command that lists recorded studies.
func NewHistoryCmd() *cobra.Command {
	var dbPath string
	var studyID string

	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"hist"},
		Short:   "List recorded searches and their trials",
		Long: `Display the studies recorded with 'gnnsearch run --history', or the
trials of a single study when --study is given.`,
		Example: `  gnnsearch history --db runs.db
  gnnsearch history --db runs.db --study 3f2a9c1e-...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if studyID != "" {
				return printTrials(cmd.Context(), cmd.OutOrStdout(), store, studyID)
			}

			return printStudies(cmd.Context(), cmd.OutOrStdout(), store)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite history file")
	cmd.Flags().StringVar(&studyID, "study", "", "Show the trials of this study")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

// printStudies writes one line per study.
func printStudies(ctx context.Context, w io.Writer, store *history.Store) error {
	studies, err := store.ListStudies(ctx)
	if err != nil {
		return err
	}

	if len(studies) == 0 {
		fmt.Fprintln(w, "No studies recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMODEL\tDATASET\tFOLD\tALGORITHM\tSEED\tRUNS\tITERATIONS\tSTARTED\tSTATUS\tBEST SCORE")

	for _, s := range studies {
		score := "-"
		if s.BestLoss != nil {
			score = strconv.FormatFloat(-*s.BestLoss, 'g', 6, 64)
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
			s.ID, s.Model, s.Dataset, s.Fold, s.Algorithm, s.Seed, s.Runs, s.Iterations,
			s.StartedAt.Local().Format(time.DateTime), s.Status, score,
		)
	}

	return tw.Flush()
}

// printTrials writes one line per trial of studyID.
func printTrials(ctx context.Context, w io.Writer, store *history.Store, studyID string) error {
	trials, err := store.ListTrials(ctx, studyID)
	if err != nil {
		return err
	}

	if len(trials) == 0 {
		fmt.Fprintln(w, "No trials recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TRIAL\tSTATUS\tSCORE\tDURATION\tPARAMS\tERROR")

	for _, t := range trials {
		score := "-"
		if t.Status != ho.StatusFailed {
			score = strconv.FormatFloat(-t.Loss, 'g', 6, 64)
		}

		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			t.Number,
			t.Status,
			score,
			t.FinishedAt.Sub(t.StartedAt).Round(time.Millisecond),
			t.Params.String(),
			t.Error,
		)
	}

	return tw.Flush()
}
