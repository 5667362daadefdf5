package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	quickhull "github.com/markus-wa/quickhull-go/v2"
)

// ErrDegenerateHull is returned when a point set does not span a volume
// (fewer than four points, or all points collinear or coplanar).
var ErrDegenerateHull = errors.New("point set does not span a volume")

// degeneracyTolerance is relative to the bounding-box diagonal.
const degeneracyTolerance = 1e-9

// DefaultProbeDirection is the probe used by ContainsPoint.
var DefaultProbeDirection = r3.Vector{X: 0, Y: 0, Z: 1}

// ConvexHull is an immutable triangulated convex hull.
// Points are the input points the hull was built over; Facets enclose them.
type ConvexHull struct {
	Points []r3.Vector
	Facets []Triangle
}

// NewConvexHull builds the convex hull of points using quickhull.
// The input slice is copied.
func NewConvexHull(points []r3.Vector) (*ConvexHull, error) {
	if err := checkSpansVolume(points); err != nil {
		return nil, err
	}
	pts := make([]r3.Vector, len(points))
	copy(pts, points)

	hull := new(quickhull.QuickHull).ConvexHull(pts, true, false, 0)
	tris := hull.Triangles()
	if len(tris) < 4 {
		return nil, fmt.Errorf("%w: quickhull produced %d facets", ErrDegenerateHull, len(tris))
	}
	facets := make([]Triangle, len(tris))
	for i, tri := range tris {
		facets[i] = Triangle(tri)
	}
	return &ConvexHull{Points: pts, Facets: facets}, nil
}

// checkSpansVolume picks an extreme tetrahedron (farthest point, farthest
// from the line, farthest from the plane) and fails if any step collapses.
func checkSpansVolume(points []r3.Vector) error {
	if len(points) < 4 {
		return fmt.Errorf("%w: need at least 4 points, got %d", ErrDegenerateHull, len(points))
	}
	lo, hi := boundingBox(points)
	scale := hi.Sub(lo).Norm()
	if scale == 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return fmt.Errorf("%w: zero or non-finite extent", ErrDegenerateHull)
	}
	tol := degeneracyTolerance * scale

	p0 := points[0]
	p1, d1 := farthest(points, func(p r3.Vector) float64 { return p.Distance(p0) })
	if d1 <= tol {
		return fmt.Errorf("%w: all points coincide", ErrDegenerateHull)
	}
	axis := p1.Sub(p0).Normalize()
	p2, d2 := farthest(points, func(p r3.Vector) float64 { return p.Sub(p0).Cross(axis).Norm() })
	if d2 <= tol {
		return fmt.Errorf("%w: points are collinear", ErrDegenerateHull)
	}
	normal := p1.Sub(p0).Cross(p2.Sub(p0)).Normalize()
	_, d3 := farthest(points, func(p r3.Vector) float64 { return math.Abs(p.Sub(p0).Dot(normal)) })
	if d3 <= tol {
		return fmt.Errorf("%w: points are coplanar", ErrDegenerateHull)
	}
	return nil
}

func farthest(points []r3.Vector, dist func(r3.Vector) float64) (r3.Vector, float64) {
	best, bestD := points[0], -1.0
	for _, p := range points {
		if d := dist(p); d > bestD {
			best, bestD = p, d
		}
	}
	return best, bestD
}

func boundingBox(points []r3.Vector) (lo, hi r3.Vector) {
	lo, hi = points[0], points[0]
	for _, p := range points[1:] {
		lo = r3.Vector{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = r3.Vector{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	return lo, hi
}

// Bounds returns the axis-aligned bounding box of the hull's points.
func (h *ConvexHull) Bounds() (lo, hi r3.Vector) {
	return boundingBox(h.Points)
}

// Centroid returns the arithmetic mean of points. Panics on an empty slice.
func Centroid(points []r3.Vector) r3.Vector {
	if len(points) == 0 {
		panic("geometry.Centroid: empty point set")
	}
	var sum r3.Vector
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Mul(1 / float64(len(points)))
}

// Intersections returns the parameters t at which the infinite line
// pos + t*dir crosses the hull surface. Negative t lie behind pos.
//
// Facets are first tested along dir. When that does not give exactly two
// distinct points the line is also tested along -dir. Intersection points
// closer than eps to an already kept point are dropped, so a line through a
// shared facet edge is reported once. A negative eps disables deduplication.
//
// The result is unordered. Two values are expected for a line piercing the
// hull; callers must tolerate any other count.
func (h *ConvexHull) Intersections(pos, dir r3.Vector, eps float64) []float64 {
	ts := dedupe(pos, dir, h.hits(pos, dir, 1, nil), eps)
	if len(ts) != 2 {
		ts = dedupe(pos, dir, h.hits(pos, dir.Mul(-1), -1, ts), eps)
	}
	return ts
}

// hits appends sign*t for every facet the ray pos + t*dir hits.
func (h *ConvexHull) hits(pos, dir r3.Vector, sign float64, ts []float64) []float64 {
	for _, f := range h.Facets {
		if t, ok := RayTriangleIntersect(pos, dir, f, DefaultRayEpsilon); ok {
			ts = append(ts, sign*t)
		}
	}
	return ts
}

func dedupe(pos, dir r3.Vector, ts []float64, eps float64) []float64 {
	if eps < 0 {
		return ts
	}
	kept := ts[:0:0]
	points := make([]r3.Vector, 0, len(ts))
	for _, t := range ts {
		p := pos.Add(dir.Mul(t))
		duplicate := false
		for _, q := range points {
			if p.Distance(q) < eps {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, t)
			points = append(points, p)
		}
	}
	return kept
}

// Contains reports whether pos lies inside the hull, probing along probe.
// pos is inside when the probe line has exactly two intersections, one at
// t >= 0 and one at t <= 0. A point on the surface counts as inside.
// Any other intersection count is reported as not contained.
func (h *ConvexHull) Contains(pos, probe r3.Vector, eps float64) bool {
	ts := h.Intersections(pos, probe, eps)
	if len(ts) != 2 {
		return false
	}
	ahead := ts[0] >= 0 || ts[1] >= 0
	behind := ts[0] <= 0 || ts[1] <= 0
	return ahead && behind
}

// ContainsPoint is Contains with DefaultProbeDirection and DefaultDedupEpsilon.
func (h *ConvexHull) ContainsPoint(pos r3.Vector) bool {
	return h.Contains(pos, DefaultProbeDirection, DefaultDedupEpsilon)
}
