package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRow() Row {
	return Row{
		Dataset:        "pT1_dataset/graphs/base-dataset/",
		Model:          "GraphSAGE",
		Fold:           2,
		NumEvals:       50,
		NumRunsPerEval: 10,
		Hidden:         64,
		LR:             0.0012,
		LRDecay:        0.85,
		NumEpochs:      80,
		NumLayers:      3,
		StepSize:       20,
		WeightDecay:    0.0003,
		ValAcc:         0.8125,
	}
}

func TestPath(t *testing.T) {
	got := Path("./Hyperparameters", "base", "GraphSAGE", 2, 7)

	assert.Equal(t, filepath.Join("Hyperparameters", "base", "GraphSAGE", "GraphSAGE-fold2-r10-it50-undirected7.csv"), got)
}

func TestWrite(t *testing.T) {
	path := Path(t.TempDir(), "paper", "GCN", 0, 1)

	require.NoError(t, Write(path, sampleRow()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, Header, records[0])
	assert.Equal(t, []string{
		"pT1_dataset/graphs/base-dataset/", "GraphSAGE", "2", "50", "10", "64",
		"0.0012", "0.85", "80", "3", "20", "0.0003", "0.8125",
	}, records[1])
}

func TestWriteOverwrites(t *testing.T) {
	path := Path(t.TempDir(), "base", "GCN", 0, 1)

	require.NoError(t, Write(path, sampleRow()))

	row := sampleRow()
	row.ValAcc = 0.5
	require.NoError(t, Write(path, row))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 2, bytes.Count(data, []byte("\n")))
	assert.Contains(t, string(data), ",0.5\n")
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer

	PrintSummary(&buf, Summary{
		Model:      "GCN",
		Fold:       1,
		Folder:     "pT1_dataset/graphs/base-dataset/",
		BestScore:  0.8,
		BestParams: "lr=0.001",
		Elapsed:    1500 * time.Millisecond,
		Evaluated:  50,
		OutputPath: "out.csv",
	})

	out := buf.String()
	assert.Contains(t, out, "##### Results GCN  fold: 1")
	assert.Contains(t, out, "Score best parameters:  0.8")
	assert.Contains(t, out, "Best parameters:        lr=0.001")
	assert.Contains(t, out, "Time elapsed:           1.5s")
	assert.Contains(t, out, "Combinations evaluated: 50")
	assert.Contains(t, out, "out.csv")
}
