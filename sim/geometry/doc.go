// Package geometry holds the computational-geometry kernel used by the
// oversize-stream classifier: ray-triangle intersection, line/convex-hull
// intersection enumeration, probe-based hull containment, point-to-segment
// distance and the signed distance to an axis-aligned prism.
//
// All functions are pure and safe for concurrent use. Degenerate inputs
// (rays parallel to a facet, lines grazing a hull edge) never panic; they
// surface as a missing intersection or an unexpected intersection count
// that callers must treat conservatively.
package geometry
