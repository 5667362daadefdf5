package geometry

import (
	"math"

	"github.com/golang/geo/r3"
)

const (
	// DefaultRayEpsilon is the parallelism and self-intersection tolerance
	// used by RayTriangleIntersect.
	DefaultRayEpsilon = 1e-6
	// DefaultDedupEpsilon is the minimum distance between two intersection
	// points for them to count as distinct.
	DefaultDedupEpsilon = 1e-4
)

// Triangle is a hull facet given by its three vertices.
type Triangle [3]r3.Vector

// RayTriangleIntersect returns the ray parameter t of the intersection of the
// ray origin + t*dir with tri (Möller-Trumbore). dir need not be normalized;
// t scales dir. ok is false when the ray is parallel to the triangle plane
// (|det| < eps), misses the triangle, or hits it at t < eps.
func RayTriangleIntersect(origin, dir r3.Vector, tri Triangle, eps float64) (t float64, ok bool) {
	edge1 := tri[1].Sub(tri[0])
	edge2 := tri[2].Sub(tri[0])
	pvec := dir.Cross(edge2)
	det := edge1.Dot(pvec)
	if math.Abs(det) < eps {
		return 0, false
	}
	invDet := 1 / det

	tvec := origin.Sub(tri[0])
	u := tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return 0, false
	}
	qvec := tvec.Cross(edge1)
	v := dir.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t = edge2.Dot(qvec) * invDet
	if t < eps {
		return 0, false
	}
	return t, true
}
