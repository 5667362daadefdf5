package sim

import (
	"errors"
	"fmt"
	"slices"

	"github.com/golang/geo/r3"
	"github.com/sirupsen/logrus"

	"github.com/simtrays/oversize-sim/sim/geometry"
)

// SensorArray holds the sensor (DOM) positions of one detector geometry and
// the convex hull around them. It is immutable and safe for concurrent reads.
type SensorArray struct {
	positions []r3.Vector
	padding   float64
	hull      *geometry.ConvexHull // nil when the positions do not span a volume
}

// NewSensorArray copies positions and builds the containment hull. With
// padDistance > 0 every position is first moved outward from the centroid by
// padDistance, enlarging the hull. A position set that cannot enclose a
// volume gives an array without a hull; containment is then unknown.
func NewSensorArray(positions []r3.Vector, padDistance float64) (*SensorArray, error) {
	if len(positions) == 0 {
		return nil, errors.New("sensor array needs at least one position")
	}
	for i, p := range positions {
		if !finite(p) {
			return nil, fmt.Errorf("sensor %d: position %v is not finite", i, p)
		}
	}
	sa := &SensorArray{positions: slices.Clone(positions), padding: max(padDistance, 0)}

	hullPoints := sa.positions
	if sa.padding > 0 {
		hullPoints = padOutward(sa.positions, sa.padding)
	}
	hull, err := geometry.NewConvexHull(hullPoints)
	switch {
	case errors.Is(err, geometry.ErrDegenerateHull):
		logrus.Warnf("sensor array: no containment hull (%v); containment checks will report unknown", err)
	case err != nil:
		return nil, fmt.Errorf("building sensor hull: %w", err)
	default:
		sa.hull = hull
		logrus.Debugf("sensor array: %d sensors, hull with %d facets (padding %g)", len(positions), len(hull.Facets), sa.padding)
	}
	return sa, nil
}

// padOutward moves each point d further away from the centroid. A point at
// the centroid has no outward direction and is left in place.
func padOutward(points []r3.Vector, d float64) []r3.Vector {
	center := geometry.Centroid(points)
	out := make([]r3.Vector, len(points))
	for i, p := range points {
		out[i] = p
		if v := p.Sub(center); v.Norm2() > 0 {
			out[i] = p.Add(v.Normalize().Mul(d))
		}
	}
	return out
}

// Len returns the number of sensors.
func (sa *SensorArray) Len() int { return len(sa.positions) }

// Position returns the position of sensor i.
func (sa *SensorArray) Position(i int) r3.Vector { return sa.positions[i] }

// Positions returns a copy of all sensor positions in array order.
func (sa *SensorArray) Positions() []r3.Vector { return slices.Clone(sa.positions) }

// Padding returns the hull padding distance.
func (sa *SensorArray) Padding() float64 { return sa.padding }

// Hull returns the containment hull, or nil if none could be built.
func (sa *SensorArray) Hull() *geometry.ConvexHull { return sa.hull }
