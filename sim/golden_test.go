package sim

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simtrays/oversize-sim/sim/internal/testutil"
)

func TestClassifier_GoldenDataset(t *testing.T) {
	dataset := testutil.LoadGoldenDataset(t)

	for _, tc := range dataset.Cases {
		t.Run(tc.Name, func(t *testing.T) {
			// GIVEN the golden sensors, stream lists and track
			positions := make([]r3.Vector, len(tc.Sensors))
			for i, p := range tc.Sensors {
				positions[i] = r3.Vector{X: p[0], Y: p[1], Z: p[2]}
			}
			cfg := &RunConfig{Streams: StreamsConfig{
				DistanceCuts:      tc.DistanceCuts,
				DOMLimits:         tc.DOMLimits,
				OversizeFactors:   tc.OversizeFactors,
				RelevanceDistance: tc.RelevanceDistance,
				Selection:         tc.Selection,
			}}
			clf, err := NewClassifierFromConfig(cfg, positions)
			require.NoError(t, err)

			pos := r3.Vector{X: tc.Track.Pos[0], Y: tc.Track.Pos[1], Z: tc.Track.Pos[2]}
			tr := NewPointTrack(pos, 0)
			if tc.Track.Kind == "track" {
				tr = NewDirectedTrack(pos, r3.Vector{X: tc.Track.Dir[0], Y: tc.Track.Dir[1], Z: tc.Track.Dir[2]}, 0)
			}

			// WHEN classified
			res, err := clf.Classify(tr)
			require.NoError(t, err)

			// THEN the decision matches the golden values
			assert.Equal(t, tc.Flags, res.Flags)
			assert.Equal(t, tc.CloseCounts, res.CloseCounts)
			assert.Equal(t, tc.RelevantCount, res.RelevantCount)
			testutil.AssertFloat64Equal(t, "nearest_distance", tc.NearestDistance, res.NearestDistance, 1e-9)
		})
	}
}
