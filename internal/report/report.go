// Package report persists and prints the outcome of a search.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Header is the column order of the summary file.
var Header = []string{
	"dataset", "model", "fold", "num_evals", "num_runs_per_eval", "hidden", "lr", "lr_decay",
	"num_epochs", "num_layers", "step_size", "weight_decay", "val_acc",
}

// Row is the single data row of a summary file.
type Row struct {
	Dataset        string
	Model          string
	Fold           int
	NumEvals       int
	NumRunsPerEval int
	Hidden         int
	LR             float64
	LRDecay        float64
	NumEpochs      int
	NumLayers      int
	StepSize       int
	WeightDecay    float64
	ValAcc         float64
}

// Record returns the row's fields in Header order.
func (r Row) Record() []string {
	return []string{
		r.Dataset,
		r.Model,
		strconv.Itoa(r.Fold),
		strconv.Itoa(r.NumEvals),
		strconv.Itoa(r.NumRunsPerEval),
		strconv.Itoa(r.Hidden),
		formatFloat(r.LR),
		formatFloat(r.LRDecay),
		strconv.Itoa(r.NumEpochs),
		strconv.Itoa(r.NumLayers),
		strconv.Itoa(r.StepSize),
		formatFloat(r.WeightDecay),
		formatFloat(r.ValAcc),
	}
}

// Path returns where the summary of a run is written:
// {root}/{subdir}/{model}/{model}-fold{fold}-r10-it50-undirected{optRun}.csv
//
// The "r10-it50" part is a fixed tag and does not follow the actual run and
// iteration counts; those are recorded in the file itself.
func Path(root, subdir, model string, fold, optRun int) string {
	name := fmt.Sprintf("%s-fold%d-r10-it50-undirected%d.csv", model, fold, optRun)

	return filepath.Join(root, subdir, model, name)
}

// Write creates path (and its parent directories) holding the header and row.
func Write(path string, row Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create result directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create result file: %w", err)
	}

	if err := Encode(f, row); err != nil {
		f.Close()

		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close result file: %w", err)
	}

	return nil
}

// Encode writes the header and row as CSV to w.
func Encode(w io.Writer, row Row) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	if err := cw.Write(row.Record()); err != nil {
		return fmt.Errorf("failed to write CSV row: %w", err)
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}

	return nil
}

// Summary is what PrintSummary shows at the end of a run.
type Summary struct {
	Model      string
	Fold       int
	Folder     string
	BestScore  float64
	BestParams string
	Elapsed    time.Duration
	Evaluated  int
	OutputPath string
}

// PrintSummary writes the human readable result banner.
func PrintSummary(w io.Writer, s Summary) {
	rule := strings.Repeat("#", 44)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "##### Results %s  fold: %d  folder: %s\n", s.Model, s.Fold, s.Folder)
	fmt.Fprintf(w, "Score best parameters:  %s\n", formatFloat(s.BestScore))
	fmt.Fprintf(w, "Best parameters:        %s\n", s.BestParams)
	fmt.Fprintf(w, "Time elapsed:           %s\n", s.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "Combinations evaluated: %d\n", s.Evaluated)

	if s.OutputPath != "" {
		fmt.Fprintf(w, "Written to:             %s\n", s.OutputPath)
	}

	fmt.Fprintln(w, rule)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
