package sim

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/floats"
)

// DistanceProfile holds one distance per sensor, in SensorArray order,
// computed from a single track.
type DistanceProfile struct {
	Distances []float64
}

// Len returns the number of sensors covered by the profile.
func (p DistanceProfile) Len() int { return len(p.Distances) }

// Nearest returns the smallest sensor distance, or +Inf for an empty profile.
func (p DistanceProfile) Nearest() float64 {
	if len(p.Distances) == 0 {
		return math.Inf(1)
	}
	return floats.Min(p.Distances)
}

// CountBelow returns the number of sensors strictly closer than d.
func (p DistanceProfile) CountBelow(d float64) int {
	n := 0
	for _, v := range p.Distances {
		if v < d {
			n++
		}
	}
	return n
}

// BuildDistanceProfile computes the distance of every sensor to tr.
//
// PointLike tracks use the Euclidean distance to the vertex. Directed tracks
// use the perpendicular distance to the infinite line through Position along
// Direction. When the track has an Extent, a sensor behind the start point
// takes its distance to the start point and a sensor beyond the stop point its
// distance to the stop point, since the track cannot light sensors outside
// the span it actually travels.
func BuildDistanceProfile(sa *SensorArray, tr Track) DistanceProfile {
	out := make([]float64, sa.Len())
	if tr.Kind == PointLike {
		for i, s := range sa.positions {
			out[i] = s.Distance(tr.Position)
		}
		return DistanceProfile{Distances: out}
	}

	dir := tr.Direction
	norm := dir.Norm()
	var start, stop *r3.Vector
	if tr.Extent != nil {
		if !math.IsInf(tr.Extent.Start, -1) {
			p := tr.PositionAt(tr.Extent.Start)
			start = &p
		}
		if !math.IsInf(tr.Extent.Stop, 1) {
			p := tr.PositionAt(tr.Extent.Stop)
			stop = &p
		}
	}
	for i, s := range sa.positions {
		switch {
		case start != nil && s.Sub(*start).Dot(dir) < 0:
			out[i] = s.Distance(*start)
		case stop != nil && s.Sub(*stop).Dot(dir) > 0:
			out[i] = s.Distance(*stop)
		default:
			out[i] = dir.Cross(tr.Position.Sub(s)).Norm() / norm
		}
	}
	return DistanceProfile{Distances: out}
}
