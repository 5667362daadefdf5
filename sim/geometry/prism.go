package geometry

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// DistancePointToSegment returns the point of segment [a, b] closest to p and
// its distance to p. a must differ from b; a zero-length segment yields NaN.
func DistancePointToSegment(a, b, p r3.Vector) (r3.Vector, float64) {
	edge := b.Sub(a)
	s := p.Sub(a).Dot(edge) / edge.Norm2()
	s = math.Min(1, math.Max(0, s))
	closest := a.Add(edge.Mul(s))
	return closest, closest.Distance(p)
}

// SignedDistanceToPrism returns the distance from pos to the boundary of the
// vertical prism whose cross-section is polygon (x-y plane, vertices in
// order) and whose z extent is [zMin, zMax].
//
// The result is negative when pos is inside both the polygon and the slab
// (minus the distance to the nearest wall, floor or ceiling) and positive
// otherwise. Outside on both axes the planar and vertical distances are
// combined in quadrature.
func SignedDistanceToPrism(pos r3.Vector, polygon []r2.Point, zMin, zMax float64) float64 {
	xyDist, insideXY := polygonDistance(r2.Point{X: pos.X, Y: pos.Y}, polygon)

	var zDist float64
	insideZ := false
	switch {
	case pos.Z < zMin:
		zDist = zMin - pos.Z
	case pos.Z > zMax:
		zDist = pos.Z - zMax
	default:
		insideZ = true
		zDist = math.Min(pos.Z-zMin, zMax-pos.Z)
	}

	switch {
	case insideXY && insideZ:
		return -math.Min(xyDist, zDist)
	case insideZ:
		return xyDist
	case insideXY:
		return zDist
	default:
		return math.Hypot(xyDist, zDist)
	}
}

// polygonDistance returns the distance from p to the nearest polygon edge and
// whether p lies inside the polygon. Containment uses crossing parity of the
// ray from p towards +x; points on an edge count as inside.
func polygonDistance(p r2.Point, polygon []r2.Point) (float64, bool) {
	dist := math.Inf(1)
	crossings := 0
	onEdge := false
	n := len(polygon)
	for i := range polygon {
		a, b := polygon[i], polygon[(i+1)%n]
		if a == b {
			continue
		}
		_, d := DistancePointToSegment(r3.Vector{X: a.X, Y: a.Y}, r3.Vector{X: b.X, Y: b.Y}, r3.Vector{X: p.X, Y: p.Y})
		dist = math.Min(dist, d)

		if (a.Y > p.Y) == (b.Y > p.Y) {
			continue
		}
		x := a.X + (p.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
		switch {
		case x == p.X:
			onEdge = true
		case x > p.X:
			crossings++
		}
	}
	return dist, onEdge || dist == 0 || crossings%2 == 1
}
