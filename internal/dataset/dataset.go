// Package dataset enumerates the graph datasets the search can run on and the
// architecture presets that come with each of them.
package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownDataset is returned for a folder that matches no known dataset.
var ErrUnknownDataset = errors.New("unrecognized dataset folder")

// ID identifies a dataset.
type ID int

const (
	// Base is the base graph dataset.
	Base ID = iota + 1

	// Paper is the distance-based graph dataset from the paper.
	Paper
)

// Preset holds the per-dataset settings.
type Preset struct {
	ID ID

	// Folder is the path handed to the trainer.
	Folder string

	InFeatures int
	Hidden     int
	NumLayers  int

	// OutputSubdir is the directory, under the output root, that receives
	// the result files of this dataset.
	OutputSubdir string
}

var presets = []Preset{
	{
		ID:           Base,
		Folder:       "pT1_dataset/graphs/base-dataset/",
		InFeatures:   33,
		Hidden:       64,
		NumLayers:    3,
		OutputSubdir: "base",
	},
	{
		ID:           Paper,
		Folder:       "pT1_dataset/graphs/paper-graphs/distance-based_10_13_14_35/",
		InFeatures:   4,
		Hidden:       64,
		NumLayers:    3,
		OutputSubdir: "paper",
	},
}

// All returns every known preset.
func All() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)

	return out
}

// Parse resolves a folder argument into its preset. The folder must match a
// known dataset path exactly.
func Parse(folder string) (Preset, error) {
	for _, p := range presets {
		if p.Folder == folder {
			return p, nil
		}
	}

	known := make([]string, len(presets))
	for i, p := range presets {
		known[i] = p.Folder
	}

	return Preset{}, fmt.Errorf("%w %q (known: %s)", ErrUnknownDataset, folder, strings.Join(known, ", "))
}

// Lookup returns the preset of id.
func Lookup(id ID) (Preset, error) {
	for _, p := range presets {
		if p.ID == id {
			return p, nil
		}
	}

	return Preset{}, fmt.Errorf("%w: id %d", ErrUnknownDataset, id)
}

func (id ID) String() string {
	switch id {
	case Base:
		return "base"
	case Paper:
		return "paper"
	default:
		return fmt.Sprintf("dataset(%d)", int(id))
	}
}
