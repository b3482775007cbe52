package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalesfsp/gnnsearch/ho"
	"github.com/thalesfsp/gnnsearch/internal/dataset"
)

const baseFolder = "pT1_dataset/graphs/base-dataset/"

func validRun() Run {
	return Run{
		Fold:       1,
		Model:      "GraphSAGE",
		MaxEpochs:  DefaultMaxEpochs,
		Runs:       DefaultRuns,
		Iterations: DefaultIterations,
		OptRun:     2,
	}
}

func TestNewRun(t *testing.T) {
	run, err := NewRun(validRun(), baseFolder)
	require.NoError(t, err)

	assert.Equal(t, dataset.Base, run.Dataset.ID)
	assert.Equal(t, DefaultDevice, run.Device)
	assert.Equal(t, ho.TPE, run.Algorithm)
	assert.Equal(t, DefaultOutRoot, run.OutRoot)

	fixed := run.Fixed()
	assert.Equal(t, 64, fixed.Hidden)
	assert.Equal(t, 3, fixed.NumLayers)
	assert.Equal(t, 33, fixed.NumInputFeatures)
	assert.Equal(t, 80, fixed.NumEpochs)
	assert.Equal(t, 64, fixed.BatchSize)
	assert.True(t, fixed.Optimizing)
	assert.False(t, fixed.Augment)
	assert.NoError(t, fixed.Validate())
}

func TestNewRunUnknownFolder(t *testing.T) {
	_, err := NewRun(validRun(), "graphs/")
	assert.ErrorIs(t, err, dataset.ErrUnknownDataset)
}

func TestNewRunInvalid(t *testing.T) {
	cases := map[string]func(*Run){
		"negative fold": func(r *Run) { r.Fold = -1 },
		"no model":      func(r *Run) { r.Model = "" },
		"zero runs":     func(r *Run) { r.Runs = 0 },
		"zero iters":    func(r *Run) { r.Iterations = 0 },
		"zero epochs":   func(r *Run) { r.MaxEpochs = 0 },
		"algorithm":     func(r *Run) { r.Algorithm = "anneal" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			r := validRun()
			mutate(&r)

			_, err := NewRun(r, baseFolder)
			assert.ErrorIs(t, err, ErrInvalidRun)
		})
	}
}

func TestDefaultSpace(t *testing.T) {
	space := DefaultSpace()

	require.NoError(t, ValidateSpace(space))
	assert.Equal(t, []string{"weight_decay", "lr", "step_size", "lr_decay"}, space.Names())
}

const spaceHCL = `
param "weight_decay" {
  distribution = "loguniform"
  low          = 0.00001
  high         = 0.001
}

param "lr" {
  distribution = "loguniform"
  low          = 0.0001
  high         = 0.01
}

param "step_size" {
  distribution = "quniform"
  low          = 10
  high         = 51
  q            = 10
  integer      = true
}

param "lr_decay" {
  distribution = "uniform"
  low          = 0.6
  high         = 1
}
`

func TestLoadSpace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "space.hcl")
	require.NoError(t, os.WriteFile(path, []byte(spaceHCL), 0o644))

	space, err := LoadSpace(path)
	require.NoError(t, err)

	require.Len(t, space, 4)
	assert.Equal(t, ho.LogUniform{Low: 0.00001, High: 0.001}, space[0].Distribution)
	assert.Equal(t, ho.QUniform{Low: 10, High: 51, Q: 10, Integer: true}, space[2].Distribution)
	assert.Equal(t, ho.Uniform{Low: 0.6, High: 1}, space[3].Distribution)
}

func TestLoadSpaceMissingFile(t *testing.T) {
	_, err := LoadSpace(filepath.Join(t.TempDir(), "nope.hcl"))
	assert.Error(t, err)
}

// block renders one param block.
func block(name string, attrs ...string) string {
	out := "param \"" + name + "\" {\n"
	for _, a := range attrs {
		out += "  " + a + "\n"
	}

	return out + "}\n"
}

// spaceWith renders a valid space with the block of name replaced.
func spaceWith(name string, attrs ...string) string {
	blocks := map[string]string{
		"weight_decay": block("weight_decay", `distribution = "loguniform"`, "low = 0.00001", "high = 0.001"),
		"lr":           block("lr", `distribution = "loguniform"`, "low = 0.0001", "high = 0.01"),
		"step_size":    block("step_size", `distribution = "quniform"`, "low = 10", "high = 31", "q = 10", "integer = true"),
		"lr_decay":     block("lr_decay", `distribution = "uniform"`, "low = 0.5", "high = 1"),
	}
	blocks[name] = block(name, attrs...)

	return blocks["weight_decay"] + blocks["lr"] + blocks["step_size"] + blocks["lr_decay"]
}

func TestParseSpaceValueRanges(t *testing.T) {
	_, err := ParseSpace([]byte(spaceWith("lr_decay", `distribution = "uniform"`, "low = 0.5", "high = 1")), "space.hcl")
	require.NoError(t, err)

	cases := map[string]string{
		"lr_decay above one":   spaceWith("lr_decay", `distribution = "uniform"`, "low = 0.5", "high = 1.5"),
		"lr_decay zero":        spaceWith("lr_decay", `distribution = "uniform"`, "low = 0", "high = 1"),
		"lr zero":              spaceWith("lr", `distribution = "uniform"`, "low = 0", "high = 0.01"),
		"negative decay":       spaceWith("weight_decay", `distribution = "uniform"`, "low = -0.001", "high = 0.001"),
		"step_size continuous": spaceWith("step_size", `distribution = "uniform"`, "low = 10", "high = 30"),
		"step_size float":      spaceWith("step_size", `distribution = "quniform"`, "low = 10", "high = 30", "q = 10"),
		"step_size zero":       spaceWith("step_size", `distribution = "quniform"`, "low = 0", "high = 30", "q = 10", "integer = true"),
	}

	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSpace([]byte(src), "space.hcl")
			assert.ErrorIs(t, err, ho.ErrInvalidSpace)
		})
	}
}

func TestValidateSpaceRanges(t *testing.T) {
	space := DefaultSpace()
	space[3] = ho.Param{Name: "lr_decay", Distribution: ho.Uniform{Low: 0.5, High: 1.5}}

	assert.ErrorIs(t, ValidateSpace(space), ho.ErrInvalidSpace)
}

func TestParseSpaceErrors(t *testing.T) {
	cases := map[string]string{
		"syntax":        `param "lr" {`,
		"unknown dist":  block("lr", `distribution = "normal"`, "low = 0", "high = 1"),
		"missing q":     block("lr", `distribution = "quniform"`, "low = 0", "high = 1"),
		"stray q":       block("lr", `distribution = "uniform"`, "low = 0", "high = 1", "q = 1"),
		"missing high":  block("lr", `distribution = "uniform"`, "low = 0"),
		"partial":       block("lr", `distribution = "uniform"`, "low = 0.001", "high = 1"),
		"bad bounds":    strings.Replace(spaceHCL, "high         = 0.01", "high         = 0.00001", 1),
		"unknown param": spaceHCL + block("momentum", `distribution = "uniform"`, "low = 0", "high = 1"),
	}

	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSpace([]byte(src), "space.hcl")
			assert.Error(t, err)
		})
	}
}
