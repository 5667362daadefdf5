package sim

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func float64Ptr(v float64) *float64 { return &v }

func crossSensors(t *testing.T) *SensorArray {
	t.Helper()
	sa, err := NewSensorArray([]r3.Vector{
		{X: 100}, {X: -100}, {Y: 100}, {Y: -100},
	}, 0)
	require.NoError(t, err)
	return sa
}

func cubeSensors(t *testing.T, half float64) *SensorArray {
	t.Helper()
	var pts []r3.Vector
	for _, x := range []float64{-half, half} {
		for _, y := range []float64{-half, half} {
			for _, z := range []float64{-half, half} {
				pts = append(pts, r3.Vector{X: x, Y: y, Z: z})
			}
		}
	}
	sa, err := NewSensorArray(pts, 0)
	require.NoError(t, err)
	return sa
}

func TestClassify_PointAtCenterOfCross_SelectsFirstStream(t *testing.T) {
	// GIVEN four coplanar sensors 100 away from a vertex at the origin
	sa := crossSensors(t)
	table, err := BuildStreamTable([]float64{150, -1}, []Limit{Count(2), Count(0)}, []float64{1, 16})
	require.NoError(t, err)

	// WHEN the vertex is classified
	profile := BuildDistanceProfile(sa, NewPointTrack(r3.Vector{}, 0))
	res := Classify(profile, table, nil, nil)

	// THEN all four sensors are close and stream 0 is chosen over the default
	assert.Equal(t, []bool{true, false}, res.Flags)
	assert.Equal(t, 0, res.Selected)
	assert.Equal(t, 4, res.CloseCounts[0])
	assert.Equal(t, 100.0, res.NearestDistance)
}

func TestClassify_NothingQualifies_FallsBackToDefault(t *testing.T) {
	sa := crossSensors(t)
	table, err := BuildStreamTable([]float64{50, -1}, []Limit{Count(2)}, []float64{1, 16})
	require.NoError(t, err)

	res := Classify(BuildDistanceProfile(sa, NewPointTrack(r3.Vector{}, 0)), table, nil, nil)

	assert.Equal(t, []bool{false, true}, res.Flags)
	assert.Equal(t, 1, res.Selected)
}

func TestClassify_NoDefault_AllFlagsFalse(t *testing.T) {
	sa := crossSensors(t)
	table, err := BuildStreamTable([]float64{50}, []Limit{Count(2)}, []float64{1})
	require.NoError(t, err)

	res := Classify(BuildDistanceProfile(sa, NewPointTrack(r3.Vector{}, 0)), table, nil, nil)

	assert.Equal(t, []bool{false}, res.Flags)
	assert.False(t, res.HasSelection())
}

func TestClassify_LimitIsInclusive(t *testing.T) {
	// GIVEN exactly four close sensors and a limit of four
	sa := crossSensors(t)
	table, err := BuildStreamTable([]float64{150}, []Limit{Count(4)}, []float64{1})
	require.NoError(t, err)

	res := Classify(BuildDistanceProfile(sa, NewPointTrack(r3.Vector{}, 0)), table, nil, nil)

	// THEN the stream qualifies
	assert.True(t, res.Flags[0])
}

func TestClassify_CutIsStrict(t *testing.T) {
	// GIVEN sensors exactly at the cut distance
	sa := crossSensors(t)
	table, err := BuildStreamTable([]float64{100}, []Limit{Count(1)}, []float64{1})
	require.NoError(t, err)

	res := Classify(BuildDistanceProfile(sa, NewPointTrack(r3.Vector{}, 0)), table, nil, nil)

	// THEN none of them counts as close
	assert.Equal(t, 0, res.CloseCounts[0])
	assert.False(t, res.Flags[0])
}

func TestClassify_MinOversizeVersusFirstMatch(t *testing.T) {
	// GIVEN two qualifying streams where the wider cut has the smaller factor
	sa := crossSensors(t)
	table, err := BuildStreamTable([]float64{150, 120, -1}, []Limit{Count(1)}, []float64{2, 5, 16})
	require.NoError(t, err)
	profile := BuildDistanceProfile(sa, NewPointTrack(r3.Vector{}, 0))

	// WHEN classified with each policy
	minRes := classifyWith(NewSelectionPolicy("min-oversize"), profile, table, nil, nil)
	firstRes := classifyWith(NewSelectionPolicy("first-match"), profile, table, nil, nil)

	// THEN min-oversize picks the factor-2 stream, first-match the narrowest cut
	assert.Equal(t, []bool{false, true, false}, minRes.Flags)
	assert.Equal(t, []bool{true, false, false}, firstRes.Flags)
}

func TestClassify_EqualFactors_LowestIDWins(t *testing.T) {
	sa := crossSensors(t)
	table, err := BuildStreamTable([]float64{150, 120}, []Limit{Count(1)}, []float64{3})
	require.NoError(t, err)

	res := Classify(BuildDistanceProfile(sa, NewPointTrack(r3.Vector{}, 0)), table, nil, nil)

	assert.Equal(t, 0, res.Selected)
	assert.Equal(t, 0, table.At(res.Selected).StreamID())
}

func TestClassify_FractionalLimit_UsesRelevantCount(t *testing.T) {
	// GIVEN four sensors at 100 and one far sensor at 300
	sa, err := NewSensorArray([]r3.Vector{{X: 100}, {X: -100}, {Y: 100}, {Y: -100}, {Z: 300}}, 0)
	require.NoError(t, err)
	table, err := BuildStreamTable([]float64{150}, []Limit{Fraction(0.75)}, []float64{1})
	require.NoError(t, err)
	profile := BuildDistanceProfile(sa, NewPointTrack(r3.Vector{}, 0))

	// WHEN the relevance distance covers only the near sensors
	res := Classify(profile, table, float64Ptr(200), nil)

	// THEN four are relevant and four >= 0.75*4 close sensors qualify
	assert.Equal(t, 4, res.RelevantCount)
	assert.True(t, res.Flags[0])

	// AND a relevance distance covering all five raises the bar to 3.75, still met
	res = Classify(profile, table, float64Ptr(400), nil)
	assert.Equal(t, 5, res.RelevantCount)
	assert.True(t, res.Flags[0])
}

func TestClassify_FractionalLimitWithoutRelevance_Panics(t *testing.T) {
	sa := crossSensors(t)
	table, err := BuildStreamTable([]float64{150}, []Limit{Fraction(0.5)}, []float64{1})
	require.NoError(t, err)
	profile := BuildDistanceProfile(sa, NewPointTrack(r3.Vector{}, 0))

	assert.Panics(t, func() { Classify(profile, table, nil, nil) })
}

func TestClassify_ReferenceCounts(t *testing.T) {
	sa := crossSensors(t)
	table, err := BuildStreamTable([]float64{-1}, []Limit{Count(0)}, []float64{1})
	require.NoError(t, err)

	res := Classify(BuildDistanceProfile(sa, NewPointTrack(r3.Vector{X: 40}, 0)), table, nil, []float64{70, 120, 200})

	// distances: 60, 140, ~107.7, ~107.7
	assert.Equal(t, []int{1, 3, 4}, res.ReferenceCounts)
	assert.Equal(t, []bool{true}, res.Flags)
}

func TestClassify_RandomizedExactlyOneOrZero(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	randVec := func(scale float64) r3.Vector {
		return r3.Vector{X: (rng.Float64()*2 - 1) * scale, Y: (rng.Float64()*2 - 1) * scale, Z: (rng.Float64()*2 - 1) * scale}
	}
	for iter := 0; iter < 200; iter++ {
		// GIVEN a random sensor array, stream table and track
		n := 1 + rng.IntN(40)
		pts := make([]r3.Vector, n)
		for i := range pts {
			pts[i] = randVec(500)
		}
		sa, err := NewSensorArray(pts, 0)
		require.NoError(t, err)

		k := 1 + rng.IntN(5)
		cuts := make([]float64, k)
		limits := make([]Limit, k)
		factors := make([]float64, k)
		for i := range cuts {
			cuts[i] = rng.Float64() * 400
			limits[i] = Count(uint32(rng.IntN(10)))
			factors[i] = 1 + float64(rng.IntN(4))
		}
		withDefault := rng.IntN(2) == 0
		if withDefault {
			cuts = append(cuts, DefaultDistanceCut)
			limits = append(limits, Count(0))
			factors = append(factors, 16)
		}
		table, err := BuildStreamTable(cuts, limits, factors)
		require.NoError(t, err)

		var tr Track
		if rng.IntN(2) == 0 {
			tr = NewPointTrack(randVec(600), 0)
		} else {
			tr = NewDirectedTrack(randVec(600), randVec(1).Add(r3.Vector{Z: 2}), 0)
		}

		// WHEN classified with either policy
		for _, policy := range []SelectionPolicy{MinOversizeFactor{}, FirstMatch{}} {
			res := classifyWith(policy, BuildDistanceProfile(sa, tr), table, nil, nil)

			// THEN at most one flag is set, exactly one when a default exists
			set := 0
			for _, f := range res.Flags {
				if f {
					set++
				}
			}
			if withDefault {
				assert.Equal(t, 1, set, "iteration %d", iter)
			} else {
				assert.LessOrEqual(t, set, 1, "iteration %d", iter)
			}
			// AND close counts never decrease with the cut
			for i := 1; i < table.Len(); i++ {
				if !table.At(i).IsDefault() {
					assert.GreaterOrEqual(t, res.CloseCounts[i], res.CloseCounts[i-1])
				}
			}
		}
	}
}

func TestBuildDistanceProfile_DirectedTrack(t *testing.T) {
	sa, err := NewSensorArray([]r3.Vector{{X: 3, Y: 4}, {Z: 10}, {X: -5, Z: -20}}, 0)
	require.NoError(t, err)

	// GIVEN a track along +z through the origin
	profile := BuildDistanceProfile(sa, NewDirectedTrack(r3.Vector{}, r3.Vector{Z: 2}, 0))

	// THEN distances are perpendicular to the line
	assert.InDeltaSlice(t, []float64{5, 0, 5}, profile.Distances, 1e-12)
	assert.Equal(t, 0.0, profile.Nearest())
}

func TestBuildDistanceProfile_TruncatedTrack(t *testing.T) {
	sa, err := NewSensorArray([]r3.Vector{{X: 3, Z: 1}, {X: 3, Z: -4}, {Z: 10}}, 0)
	require.NoError(t, err)

	// GIVEN a track along +z starting at the origin and stopping at z=5
	tr := NewDirectedTrack(r3.Vector{}, r3.Vector{Z: 1}, 0).Truncated(0, 5/SpeedOfLight)
	profile := BuildDistanceProfile(sa, tr)

	// THEN sensors outside the span measure to the nearest end point
	assert.InDeltaSlice(t, []float64{3, 5, 5}, profile.Distances, 1e-9)
}

func TestBuildDistanceProfile_InfiniteExtentBehavesLikeLine(t *testing.T) {
	sa, err := NewSensorArray([]r3.Vector{{X: 3, Z: -40}}, 0)
	require.NoError(t, err)

	tr := NewDirectedTrack(r3.Vector{}, r3.Vector{Z: 1}, 0).Truncated(math.Inf(-1), math.Inf(1))
	profile := BuildDistanceProfile(sa, tr)

	assert.InDelta(t, 3.0, profile.Distances[0], 1e-12)
}

func TestDistanceProfile_EmptyNearestIsInf(t *testing.T) {
	assert.True(t, math.IsInf(DistanceProfile{}.Nearest(), 1))
}

func TestTrack_Validate(t *testing.T) {
	tests := []struct {
		name string
		tr   Track
		ok   bool
	}{
		{"point", NewPointTrack(r3.Vector{X: 1}, 0), true},
		{"directed", NewDirectedTrack(r3.Vector{}, r3.Vector{X: 1}, 0), true},
		{"zero direction", NewDirectedTrack(r3.Vector{}, r3.Vector{}, 0), false},
		{"nan position", NewPointTrack(r3.Vector{X: math.NaN()}, 0), false},
		{"reversed extent", NewDirectedTrack(r3.Vector{}, r3.Vector{X: 1}, 0).Truncated(5, 1), false},
		{"zero speed", Track{Kind: Directed, Direction: r3.Vector{X: 1}, Extent: &Extent{Start: 0, Stop: 1}}, false},
		{"unknown kind", Track{Kind: TrackKind(9)}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.tr.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNewSensorArray_PaddingMovesOutward(t *testing.T) {
	// GIVEN a cube of side 20 padded by 10
	var pts []r3.Vector
	for _, x := range []float64{-10, 10} {
		for _, y := range []float64{-10, 10} {
			for _, z := range []float64{-10, 10} {
				pts = append(pts, r3.Vector{X: x, Y: y, Z: z})
			}
		}
	}
	sa, err := NewSensorArray(pts, 10)
	require.NoError(t, err)
	require.NotNil(t, sa.Hull())

	// THEN the hull is enlarged but sensor positions are unchanged
	assert.Equal(t, pts[0], sa.Position(0))
	assert.True(t, sa.Hull().ContainsPoint(r3.Vector{X: 14}))
	assert.False(t, sa.Hull().ContainsPoint(r3.Vector{X: 30}))
}

func TestNewSensorArray_Errors(t *testing.T) {
	_, err := NewSensorArray(nil, 0)
	assert.Error(t, err)
	_, err = NewSensorArray([]r3.Vector{{X: math.Inf(1)}}, 0)
	assert.Error(t, err)
}

func TestNewSensorArray_CoplanarHasNoHull(t *testing.T) {
	sa := crossSensors(t)
	assert.Nil(t, sa.Hull())
	assert.Equal(t, 4, sa.Len())
}

func TestClassifier_Containment(t *testing.T) {
	sa := cubeSensors(t, 50)
	table, err := BuildStreamTable([]float64{-1}, []Limit{Count(0)}, []float64{1})
	require.NoError(t, err)
	c, err := NewClassifier(sa, table, ClassifierConfig{CheckContainment: true})
	require.NoError(t, err)

	tests := []struct {
		name string
		tr   Track
		want Containment
	}{
		{"vertex inside", NewPointTrack(r3.Vector{X: 10}, 0), Contained},
		{"vertex outside", NewPointTrack(r3.Vector{X: 80}, 0), NotContained},
		{"track through", NewDirectedTrack(r3.Vector{X: -200, Y: 1, Z: 2}, r3.Vector{X: 1}, 0), Contained},
		{"track past", NewDirectedTrack(r3.Vector{X: -200, Y: 90}, r3.Vector{X: 1}, 0), NotContained},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := c.Classify(tc.tr)
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Containment)
		})
	}
}

func TestClassifier_ContainmentWithoutHullIsUnknown(t *testing.T) {
	table, err := BuildStreamTable([]float64{-1}, []Limit{Count(0)}, []float64{1})
	require.NoError(t, err)
	c, err := NewClassifier(crossSensors(t), table, ClassifierConfig{CheckContainment: true})
	require.NoError(t, err)

	res, err := c.Classify(NewPointTrack(r3.Vector{}, 0))
	require.NoError(t, err)
	assert.Equal(t, ContainmentUnknown, res.Containment)
}

func TestClassifier_Outline(t *testing.T) {
	table, err := BuildStreamTable([]float64{-1}, []Limit{Count(0)}, []float64{1})
	require.NoError(t, err)
	outline := &Outline{
		Polygon:        []r2.Point{{X: -100, Y: -100}, {X: 100, Y: -100}, {X: 100, Y: 100}, {X: -100, Y: 100}},
		ZMin:           -50,
		ZMax:           50,
		ExtendBoundary: 10,
	}
	c, err := NewClassifier(cubeSensors(t, 50), table, ClassifierConfig{Outline: outline})
	require.NoError(t, err)

	res, err := c.Classify(NewPointTrack(r3.Vector{X: 105}, 0))
	require.NoError(t, err)
	require.NotNil(t, res.BoundaryDistance)
	assert.InDelta(t, 5.0, *res.BoundaryDistance, 1e-12)
	assert.True(t, res.InBounds)

	res, err = c.Classify(NewPointTrack(r3.Vector{X: 120}, 0))
	require.NoError(t, err)
	assert.False(t, res.InBounds)
	assert.Equal(t, ContainmentUnchecked, res.Containment)
}

func TestNewClassifier_ConfigErrors(t *testing.T) {
	sa := cubeSensors(t, 50)
	frac, err := BuildStreamTable([]float64{20}, []Limit{Fraction(0.5)}, []float64{1})
	require.NoError(t, err)

	tests := []struct {
		name  string
		cfg   ClassifierConfig
		want  error
		field string
	}{
		{"missing relevance", ClassifierConfig{}, ErrMissingRelevanceDistance, "relevance_distance"},
		{"unknown selection", ClassifierConfig{RelevanceDistance: float64Ptr(200), Selection: "random"}, ErrUnknownSelectionPolicy, "selection"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewClassifier(sa, frac, tc.cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want))
			var ce *ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tc.field, ce.Field)
		})
	}

	_, err = NewClassifier(sa, frac, ClassifierConfig{RelevanceDistance: float64Ptr(-3)})
	assert.Error(t, err)
	_, err = NewClassifier(sa, frac, ClassifierConfig{RelevanceDistance: float64Ptr(200), Outline: &Outline{ZMin: 1, ZMax: 0}})
	assert.Error(t, err)
}

func TestClassifier_InvalidTrack(t *testing.T) {
	table, err := BuildStreamTable([]float64{-1}, []Limit{Count(0)}, []float64{1})
	require.NoError(t, err)
	c, err := NewClassifier(cubeSensors(t, 50), table, ClassifierConfig{})
	require.NoError(t, err)

	_, err = c.Classify(NewDirectedTrack(r3.Vector{}, r3.Vector{}, 0))
	assert.Error(t, err)
	assert.Len(t, c.ReferenceDistances(), len(DefaultReferenceDistances))
}

func TestNewSelectionPolicy_UnknownPanics(t *testing.T) {
	assert.Panics(t, func() { NewSelectionPolicy("random") })
	assert.IsType(t, MinOversizeFactor{}, NewSelectionPolicy(""))
}
