package sim

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/sirupsen/logrus"

	"github.com/simtrays/oversize-sim/sim/geometry"
)

// DefaultReferenceDistances are the monitoring radii for
// ClassificationResult.ReferenceCounts.
var DefaultReferenceDistances = []float64{2, 4, 6, 8, 10, 15, 20, 25, 30, 35, 40, 45, 50, 55, 60}

// Containment is the outcome of the optional hull containment check.
type Containment int

const (
	// ContainmentUnchecked means the check was not requested.
	ContainmentUnchecked Containment = iota
	// ContainmentUnknown means no hull was available or the geometry was degenerate.
	ContainmentUnknown
	// Contained means the track crosses (or the vertex lies in) the padded hull.
	Contained
	// NotContained means the track misses the padded hull.
	NotContained
)

func (c Containment) String() string {
	switch c {
	case ContainmentUnchecked:
		return "unchecked"
	case ContainmentUnknown:
		return "unknown"
	case Contained:
		return "contained"
	case NotContained:
		return "not-contained"
	default:
		return fmt.Sprintf("Containment(%d)", int(c))
	}
}

// ClassificationResult is the per-event routing decision.
// Flags is aligned with the StreamTable and holds at most one true entry.
type ClassificationResult struct {
	Flags    []bool
	Selected int // table index of the chosen stream, or NoStream

	// Monitoring diagnostics; not used for the routing decision.
	NearestDistance float64
	RelevantCount   int   // sensors closer than the relevance distance (0 if unset)
	CloseCounts     []int // per stream: sensors closer than its distance cut
	ReferenceCounts []int // per reference distance: sensors closer than it

	Containment      Containment
	BoundaryDistance *float64 // signed distance to the detector outline, if configured
	InBounds         bool
}

// HasSelection reports whether any stream was selected.
func (r ClassificationResult) HasSelection() bool { return r.Selected != NoStream }

// Classify routes profile to one stream of table using the min-oversize
// selection policy. relevanceDistance must be set when the table has a
// fractional limit; referenceDistances only feed ReferenceCounts.
func Classify(profile DistanceProfile, table *StreamTable, relevanceDistance *float64, referenceDistances []float64) ClassificationResult {
	return classifyWith(MinOversizeFactor{}, profile, table, relevanceDistance, referenceDistances)
}

func classifyWith(policy SelectionPolicy, profile DistanceProfile, table *StreamTable, relevanceDistance *float64, referenceDistances []float64) ClassificationResult {
	res := ClassificationResult{
		Flags:           make([]bool, table.Len()),
		Selected:        NoStream,
		NearestDistance: profile.Nearest(),
		CloseCounts:     make([]int, table.Len()),
		ReferenceCounts: make([]int, len(referenceDistances)),
	}
	if relevanceDistance != nil {
		res.RelevantCount = profile.CountBelow(*relevanceDistance)
	}

	qualifying := make([]bool, table.Len())
	for i, def := range table.defs {
		if def.IsDefault() {
			continue
		}
		if def.domLimit.IsFraction() && relevanceDistance == nil {
			panic(fmt.Sprintf("Classify: %s has a fractional dom limit but no relevance distance", def.Name()))
		}
		closeCount := profile.CountBelow(def.distanceCut)
		res.CloseCounts[i] = closeCount
		qualifying[i] = float64(closeCount) >= def.domLimit.Effective(res.RelevantCount)
	}

	selected := policy.Select(table, qualifying)
	if selected == NoStream && table.hasDefault {
		selected = table.Len() - 1
	}
	if selected != NoStream {
		res.Selected = selected
		id := table.defs[selected].streamID
		for i, def := range table.defs {
			res.Flags[i] = def.streamID == id
		}
	}

	for i, d := range referenceDistances {
		res.ReferenceCounts[i] = profile.CountBelow(d)
	}
	return res
}

// Outline is a vertical prism approximating the instrumented volume:
// a counter-clockwise x-y polygon extruded over [ZMin, ZMax].
type Outline struct {
	Polygon        []r2.Point
	ZMin, ZMax     float64
	ExtendBoundary float64 // events within this distance outside still count as in bounds
}

// Validate checks the outline describes a non-empty prism.
func (o *Outline) Validate() error {
	if len(o.Polygon) < 3 {
		return &ConfigError{Field: "outline.polygon", Err: fmt.Errorf("need at least 3 vertices, got %d", len(o.Polygon))}
	}
	if !(o.ZMin < o.ZMax) {
		return &ConfigError{Field: "outline.z_min", Err: fmt.Errorf("z_min (%v) must be below z_max (%v)", o.ZMin, o.ZMax)}
	}
	if math.IsNaN(o.ExtendBoundary) || o.ExtendBoundary < 0 {
		return &ConfigError{Field: "outline.extend_boundary", Err: fmt.Errorf("must be non-negative, got %v", o.ExtendBoundary)}
	}
	return nil
}

// ClassifierConfig groups the per-run classification parameters.
type ClassifierConfig struct {
	RelevanceDistance  *float64  // required when any dom limit is fractional
	ReferenceDistances []float64 // nil uses DefaultReferenceDistances
	Selection          string    // "min-oversize" (default) or "first-match"
	CheckContainment   bool
	Outline            *Outline // optional detector outline for BoundaryDistance
}

// Classifier binds a sensor array, a stream table and a selection policy.
// It is immutable after NewClassifier and safe for concurrent use.
type Classifier struct {
	sensors     *SensorArray
	table       *StreamTable
	policy      SelectionPolicy
	relevance   *float64
	references  []float64
	containment bool
	outline     *Outline
}

// NewClassifier validates cfg against table and returns a ready Classifier.
// All returned errors are *ConfigError.
func NewClassifier(sensors *SensorArray, table *StreamTable, cfg ClassifierConfig) (*Classifier, error) {
	if table.HasFractionalLimit() && cfg.RelevanceDistance == nil {
		return nil, &ConfigError{Field: "relevance_distance", Err: ErrMissingRelevanceDistance}
	}
	if r := cfg.RelevanceDistance; r != nil && (math.IsNaN(*r) || *r <= 0) {
		return nil, &ConfigError{Field: "relevance_distance", Err: fmt.Errorf("must be positive, got %v", *r)}
	}
	if !IsValidSelectionPolicy(cfg.Selection) {
		return nil, configErrorf("selection", ErrUnknownSelectionPolicy, "%q; valid: min-oversize, first-match", cfg.Selection)
	}
	refs := cfg.ReferenceDistances
	if refs == nil {
		refs = DefaultReferenceDistances
	}
	for i, d := range refs {
		if math.IsNaN(d) || d < 0 {
			return nil, &ConfigError{Field: fmt.Sprintf("reference_distances[%d]", i), Err: fmt.Errorf("must be non-negative, got %v", d)}
		}
	}
	if cfg.Outline != nil {
		if err := cfg.Outline.Validate(); err != nil {
			return nil, err
		}
	}
	if cfg.CheckContainment && sensors.Hull() == nil {
		logrus.Warn("containment check requested but the sensor array has no hull; containment will be reported as unknown")
	}
	return &Classifier{
		sensors:     sensors,
		table:       table,
		policy:      NewSelectionPolicy(cfg.Selection),
		relevance:   cfg.RelevanceDistance,
		references:  append([]float64(nil), refs...),
		containment: cfg.CheckContainment,
		outline:     cfg.Outline,
	}, nil
}

// Table returns the classifier's stream table.
func (c *Classifier) Table() *StreamTable { return c.table }

// Sensors returns the classifier's sensor array.
func (c *Classifier) Sensors() *SensorArray { return c.sensors }

// ReferenceDistances returns the monitoring radii in use.
func (c *Classifier) ReferenceDistances() []float64 {
	return append([]float64(nil), c.references...)
}

// Classify computes the distance profile of tr and routes it.
// The only error is an invalid track.
func (c *Classifier) Classify(tr Track) (ClassificationResult, error) {
	if err := tr.Validate(); err != nil {
		return ClassificationResult{}, err
	}
	profile := BuildDistanceProfile(c.sensors, tr)
	res := classifyWith(c.policy, profile, c.table, c.relevance, c.references)

	if c.containment {
		res.Containment = c.contains(tr)
	}
	if c.outline != nil {
		d := geometry.SignedDistanceToPrism(tr.Position, c.outline.Polygon, c.outline.ZMin, c.outline.ZMax)
		res.BoundaryDistance = &d
		res.InBounds = d-c.outline.ExtendBoundary <= 0
	}
	return res, nil
}

func (c *Classifier) contains(tr Track) Containment {
	hull := c.sensors.Hull()
	if hull == nil {
		return ContainmentUnknown
	}
	if tr.Kind == PointLike {
		if hull.ContainsPoint(tr.Position) {
			return Contained
		}
		return NotContained
	}
	if len(hull.Intersections(tr.Position, tr.Direction, geometry.DefaultDedupEpsilon)) > 0 {
		return Contained
	}
	return NotContained
}
