package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	base, err := Parse("pT1_dataset/graphs/base-dataset/")
	require.NoError(t, err)
	assert.Equal(t, Base, base.ID)
	assert.Equal(t, 33, base.InFeatures)
	assert.Equal(t, 64, base.Hidden)
	assert.Equal(t, 3, base.NumLayers)
	assert.Equal(t, "base", base.OutputSubdir)

	paper, err := Parse("pT1_dataset/graphs/paper-graphs/distance-based_10_13_14_35/")
	require.NoError(t, err)
	assert.Equal(t, Paper, paper.ID)
	assert.Equal(t, 4, paper.InFeatures)
	assert.Equal(t, "paper", paper.OutputSubdir)
}

func TestParseUnknown(t *testing.T) {
	for _, folder := range []string{"", "pT1_dataset/graphs/base-dataset", "somewhere/else/"} {
		_, err := Parse(folder)
		assert.ErrorIs(t, err, ErrUnknownDataset, folder)
	}
}

func TestLookup(t *testing.T) {
	p, err := Lookup(Paper)
	require.NoError(t, err)
	assert.Equal(t, "paper", p.ID.String())

	_, err = Lookup(ID(9))
	assert.ErrorIs(t, err, ErrUnknownDataset)

	assert.Len(t, All(), 2)
}
