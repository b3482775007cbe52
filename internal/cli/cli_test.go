package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalesfsp/gnnsearch/ho"
	"github.com/thalesfsp/gnnsearch/internal/config"
	"github.com/thalesfsp/gnnsearch/internal/dataset"
	"github.com/thalesfsp/gnnsearch/internal/history"
	"github.com/thalesfsp/gnnsearch/internal/trainer"
)

const baseFolder = "pT1_dataset/graphs/base-dataset/"

func execute(t *testing.T, cmdArgs []string) (string, error) {
	t.Helper()

	var cmd = NewRunCmd()
	switch cmdArgs[0] {
	case "history":
		cmd = NewHistoryCmd()
	case "space":
		cmd = NewSpaceCmd()
	}

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(cmdArgs[1:])

	err := cmd.Execute()

	return buf.String(), err
}

func TestNewRunCmd(t *testing.T) {
	cmd := NewRunCmd()

	assert.Equal(t, "run", cmd.Use)

	for _, name := range []string{
		"fold", "model", "folder", "max_epochs", "runs", "iterations", "device", "opt_run",
		"seed", "algorithm", "trainer", "out", "history", "space", "log-level", "log-format",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}

	assert.Equal(t, "m", cmd.Flags().Lookup("model").Shorthand)
	assert.Equal(t, "80", cmd.Flags().Lookup("max_epochs").DefValue)
	assert.Equal(t, "10", cmd.Flags().Lookup("runs").DefValue)
	assert.Equal(t, "50", cmd.Flags().Lookup("iterations").DefValue)
	assert.Equal(t, "cuda", cmd.Flags().Lookup("device").DefValue)
}

func TestRunCmdMissingFlags(t *testing.T) {
	_, err := execute(t, []string{"run", "--fold", "0", "-m", "GCN"})
	assert.ErrorContains(t, err, "required flag")
}

func TestRunCmdUnknownFolder(t *testing.T) {
	out := t.TempDir()

	_, err := execute(t, []string{
		"run", "--fold", "0", "-m", "GCN", "--folder", "graphs/", "--opt_run", "1", "--out", out,
	})
	assert.ErrorIs(t, err, dataset.ErrUnknownDataset)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunCmdInvalidLogLevel(t *testing.T) {
	_, err := execute(t, []string{
		"run", "--fold", "0", "-m", "GCN", "--folder", baseFolder, "--opt_run", "1", "--log-level", "loud",
	})
	assert.ErrorContains(t, err, "invalid log level")
}

func TestRunCmdInvalidAlgorithm(t *testing.T) {
	_, err := execute(t, []string{
		"run", "--fold", "0", "-m", "GCN", "--folder", baseFolder, "--opt_run", "1", "--algorithm", "anneal",
	})
	assert.Error(t, err)
}

func searchOptions(t *testing.T) *runOptions {
	t.Helper()

	return &runOptions{
		run: config.Run{
			Fold:       1,
			Model:      "GCN",
			MaxEpochs:  3,
			Runs:       2,
			Iterations: 4,
			Device:     "cpu",
			OptRun:     5,
			Seed:       9,
			OutRoot:    t.TempDir(),
		},
		folder:    baseFolder,
		algorithm: "random",
	}
}

func TestRunSearch(t *testing.T) {
	opts := searchOptions(t)
	opts.history = filepath.Join(t.TempDir(), "history.db")

	var out bytes.Buffer
	require.NoError(t, runSearch(context.Background(), opts, trainer.Constant(0.75), &out))

	path := filepath.Join(opts.run.OutRoot, "base", "GCN", "GCN-fold1-r10-it50-undirected5.csv")
	assert.FileExists(t, path)

	summary := out.String()
	assert.Contains(t, summary, "Score best parameters:  0.75")
	assert.Contains(t, summary, "Combinations evaluated: 4")
	assert.Contains(t, summary, path)

	store, err := history.Open(opts.history)
	require.NoError(t, err)
	defer store.Close()

	studies, err := store.ListStudies(context.Background())
	require.NoError(t, err)
	require.Len(t, studies, 1)
	assert.Equal(t, "random", studies[0].Algorithm)
	assert.Equal(t, int64(9), studies[0].Seed)
}

func TestRunSearchCustomSpace(t *testing.T) {
	spacePath := filepath.Join(t.TempDir(), "space.hcl")
	require.NoError(t, os.WriteFile(spacePath, []byte(`
param "weight_decay" {
  distribution = "uniform"
  low          = 0
  high         = 0.001
}

param "lr" {
  distribution = "loguniform"
  low          = 0.001
  high         = 0.002
}

param "step_size" {
  distribution = "quniform"
  low          = 5
  high         = 6
  q            = 5
  integer      = true
}

param "lr_decay" {
  distribution = "uniform"
  low          = 0.9
  high         = 1
}
`), 0o644))

	opts := searchOptions(t)
	opts.space = spacePath

	var seen []trainer.Request
	tr := trainer.Func(func(_ context.Context, req trainer.Request) (trainer.Result, error) {
		seen = append(seen, req)
		return trainer.Result{PerEpoch: []float64{0.5}}, nil
	})

	require.NoError(t, runSearch(context.Background(), opts, tr, new(bytes.Buffer)))

	require.Len(t, seen, opts.run.Runs*opts.run.Iterations)
	for _, req := range seen {
		assert.Equal(t, 5, req.StepSize)
		assert.GreaterOrEqual(t, req.LR, 0.001)
		assert.LessOrEqual(t, req.LR, 0.002)
	}
}

func TestRunSearchBadSpaceFile(t *testing.T) {
	opts := searchOptions(t)
	opts.space = filepath.Join(t.TempDir(), "missing.hcl")

	err := runSearch(context.Background(), opts, trainer.Constant(0.5), new(bytes.Buffer))
	assert.Error(t, err)
}

func TestSpaceCmd(t *testing.T) {
	out, err := execute(t, []string{"space"})
	require.NoError(t, err)

	assert.Contains(t, out, "weight_decay")
	assert.Contains(t, out, "int(quniform(10, 31, 10))")
	assert.Contains(t, out, "uniform(0.5, 1)")
}

func TestHistoryCmd(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "history.db")

	store, err := history.Open(dbPath)
	require.NoError(t, err)

	study := history.Study{
		ID:         "study-1",
		Model:      "GraphSAGE",
		Dataset:    "paper",
		Fold:       4,
		Algorithm:  string(ho.TPE),
		Seed:       1,
		Runs:       10,
		Iterations: 50,
		StartedAt:  time.Now(),
	}
	require.NoError(t, store.CreateStudy(ctx, study))
	require.NoError(t, store.RecordTrial(ctx, history.Trial{
		StudyID:       study.ID,
		Number:        0,
		Params:        ho.Sample{"lr": 0.001},
		Loss:          -0.9,
		RunAccuracies: []float64{0.9},
		StartedAt:     time.Now(),
		FinishedAt:    time.Now(),
	}))
	require.NoError(t, store.Close())

	out, err := execute(t, []string{"history", "--db", dbPath})
	require.NoError(t, err)
	assert.Contains(t, out, "study-1")
	assert.Contains(t, out, "GraphSAGE")
	assert.Contains(t, out, "running")

	out, err = execute(t, []string{"history", "--db", dbPath, "--study", "study-1"})
	require.NoError(t, err)
	assert.Contains(t, out, "lr=0.001")
	assert.Contains(t, out, "0.9")

	_, err = execute(t, []string{"history", "--db", dbPath, "--study", "nope"})
	assert.ErrorIs(t, err, history.ErrStudyNotFound)
}

func TestHistoryCmdEmpty(t *testing.T) {
	out, err := execute(t, []string{"history", "--db", filepath.Join(t.TempDir(), "history.db")})
	require.NoError(t, err)
	assert.Contains(t, out, "No studies recorded.")
}
