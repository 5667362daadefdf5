package report

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simtrays/oversize-sim/sim"
)

func testTable(t *testing.T) *sim.StreamTable {
	t.Helper()
	table, err := sim.BuildStreamTable([]float64{20, -1}, []sim.Limit{sim.Count(3)}, []float64{1, 16})
	require.NoError(t, err)
	return table
}

func res(sel int, nearest float64, refs ...int) sim.ClassificationResult {
	return sim.ClassificationResult{Selected: sel, NearestDistance: nearest, ReferenceCounts: refs}
}

func TestCollector_Summary(t *testing.T) {
	// GIVEN three events, one without a finite nearest distance or stream
	c := NewCollector(testTable(t), []float64{10, 50})
	require.NoError(t, c.Observe(sim.Event{}, res(0, 2, 1, 4)))
	require.NoError(t, c.Observe(sim.Event{}, res(1, 6, 0, 2)))
	require.NoError(t, c.Observe(sim.Event{}, res(sim.NoStream, math.Inf(1), 0, 0)))

	// WHEN summarized
	s := c.Summary()

	// THEN infinite distances are excluded and reference counts averaged
	assert.Equal(t, 3, s.Events)
	assert.Equal(t, 1, s.Discarded)
	assert.InDelta(t, 4.0, s.NearestMean, 1e-12)
	assert.InDelta(t, 2.0, s.NearestMedian, 1e-12)
	assert.InDeltaSlice(t, []float64{1.0 / 3, 2}, s.MeanReferenceCounts, 1e-12)
}

func TestCollector_EmptySummaryIsNaN(t *testing.T) {
	s := NewCollector(testTable(t), nil).Summary()
	assert.True(t, math.IsNaN(s.NearestMean))
	assert.Zero(t, s.Events)
}

func TestCollector_WritePlots(t *testing.T) {
	c := NewCollector(testTable(t), []float64{10, 50})
	for i := 0; i < 50; i++ {
		require.NoError(t, c.Observe(sim.Event{}, res(i%2, float64(i), i%3, i%7)))
	}

	dir := filepath.Join(t.TempDir(), "plots")
	paths, err := c.WritePlots(dir)
	require.NoError(t, err)

	require.Len(t, paths, 3)
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestCollector_WritePlots_NoFiniteDistances(t *testing.T) {
	c := NewCollector(testTable(t), nil)
	require.NoError(t, c.Observe(sim.Event{}, res(1, math.Inf(1))))

	paths, err := c.WritePlots(t.TempDir())
	require.NoError(t, err)
	assert.Len(t, paths, 1)
}
