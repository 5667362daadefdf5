// Package testutil provides shared test infrastructure for the classifier.
// It holds the golden classification dataset types and assertion helpers
// used across sim/ test packages. It must not import sim.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/golden_classifications.json.
type GoldenDataset struct {
	Cases []GoldenCase `json:"cases"`
}

// GoldenTrack is the track of a golden case.
type GoldenTrack struct {
	Kind string     `json:"kind"` // "point" or "track"
	Pos  [3]float64 `json:"pos"`
	Dir  [3]float64 `json:"dir"`
}

// GoldenCase is one hand-computed classification.
type GoldenCase struct {
	Name              string       `json:"name"`
	Sensors           [][3]float64 `json:"sensors"`
	Track             GoldenTrack  `json:"track"`
	DistanceCuts      []float64    `json:"distance_cuts"`
	DOMLimits         []float64    `json:"dom_limits"`
	OversizeFactors   []float64    `json:"oversize_factors"`
	RelevanceDistance *float64     `json:"relevance_distance"`
	Selection         string       `json:"selection"`

	// Expected results
	Flags           []bool  `json:"flags"`
	NearestDistance float64 `json:"nearest_distance"`
	CloseCounts     []int   `json:"close_counts"`
	RelevantCount   int     `json:"relevant_count"`
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	// Navigate from sim/internal/testutil/ to repo root testdata/
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "golden_classifications.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}
	if len(dataset.Cases) == 0 {
		t.Fatal("Golden dataset has no cases")
	}

	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
