// Package trace provides decision-trace recording for classification analysis.
// This package has no dependencies on sim/: it stores pure data types.
package trace

// DecisionRecord captures a single classification decision.
type DecisionRecord struct {
	EventIndex      int64
	EventID         string
	Kind            string // "point" or "track"
	Stream          string // chosen stream name; empty when no stream was selected
	OversizeFactor  float64
	NearestDistance float64
	RelevantCount   int
	CloseCounts     []int  // per stream, in table order
	Containment     string // "" when unchecked
	InBounds        *bool  // nil when no outline is configured
	Reason          string // "selected", "default" or "none"
}

// Discarded reports whether no stream was selected for the event.
func (r DecisionRecord) Discarded() bool { return r.Stream == "" }
