package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// SpeedOfLight in m/ns, the default speed of directed tracks.
const SpeedOfLight = 0.299792458

// TrackKind tags the Track union.
type TrackKind int

const (
	// PointLike is a cascade or hadronic vertex with no direction.
	PointLike TrackKind = iota
	// Directed is a muon-like track along an infinite or truncated line.
	Directed
)

func (k TrackKind) String() string {
	switch k {
	case PointLike:
		return "point"
	case Directed:
		return "track"
	default:
		return fmt.Sprintf("TrackKind(%d)", int(k))
	}
}

// Extent restricts a directed track to the times [Start, Stop].
// Use math.Inf(-1) / math.Inf(1) for an unbounded side.
type Extent struct {
	Start float64
	Stop  float64
}

// Track is the per-event geometric summary handed to the classifier.
// For PointLike tracks only Position and Time are meaningful.
type Track struct {
	Kind      TrackKind
	Position  r3.Vector
	Direction r3.Vector
	Time      float64
	Speed     float64
	Extent    *Extent
}

// NewPointTrack returns a PointLike track at pos.
func NewPointTrack(pos r3.Vector, t float64) Track {
	return Track{Kind: PointLike, Position: pos, Time: t}
}

// NewDirectedTrack returns an untruncated Directed track travelling at the
// speed of light.
func NewDirectedTrack(pos, dir r3.Vector, t float64) Track {
	return Track{Kind: Directed, Position: pos, Direction: dir, Time: t, Speed: SpeedOfLight}
}

// Truncated returns a copy of tr restricted to [start, stop].
func (tr Track) Truncated(start, stop float64) Track {
	tr.Extent = &Extent{Start: start, Stop: stop}
	return tr
}

// Validate checks the track is usable for distance computation.
func (tr Track) Validate() error {
	if !finite(tr.Position) {
		return errors.New("track position must be finite")
	}
	switch tr.Kind {
	case PointLike:
		return nil
	case Directed:
	default:
		return fmt.Errorf("unknown track kind %d", int(tr.Kind))
	}
	if !finite(tr.Direction) || tr.Direction.Norm2() == 0 {
		return errors.New("track direction must be finite and non-zero")
	}
	if tr.Extent != nil {
		if math.IsNaN(tr.Extent.Start) || math.IsNaN(tr.Extent.Stop) || tr.Extent.Start > tr.Extent.Stop {
			return fmt.Errorf("track extent [%v, %v] is not an interval", tr.Extent.Start, tr.Extent.Stop)
		}
		if !(tr.Speed > 0) || math.IsInf(tr.Speed, 0) {
			return fmt.Errorf("truncated track needs a positive finite speed, got %v", tr.Speed)
		}
	}
	return nil
}

// PositionAt returns the point the track passes at time t.
func (tr Track) PositionAt(t float64) r3.Vector {
	return tr.Position.Add(tr.Direction.Normalize().Mul(tr.Speed * (t - tr.Time)))
}

func finite(v r3.Vector) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
