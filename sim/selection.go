package sim

import "fmt"

// SelectionPolicy picks one stream among the qualifying non-default streams.
// qualifying is aligned with the table; entries for the default stream are
// always false. Select returns a table index, or NoStream when nothing
// qualifies. Falling back to the default stream is the classifier's job.
type SelectionPolicy interface {
	Select(table *StreamTable, qualifying []bool) int
}

// MinOversizeFactor selects the qualifying stream with the lowest oversize
// factor. Ties are broken by the lowest stream id (first in table order).
type MinOversizeFactor struct{}

// Select implements SelectionPolicy for MinOversizeFactor.
func (MinOversizeFactor) Select(table *StreamTable, qualifying []bool) int {
	best := NoStream
	for i, ok := range qualifying {
		if !ok {
			continue
		}
		if best == NoStream || table.defs[i].oversizeFactor < table.defs[best].oversizeFactor {
			best = i
		}
	}
	return best
}

// FirstMatch selects the qualifying stream with the smallest distance cut.
// This is the selection rule of the earliest splitter versions.
type FirstMatch struct{}

// Select implements SelectionPolicy for FirstMatch.
func (FirstMatch) Select(_ *StreamTable, qualifying []bool) int {
	for i, ok := range qualifying {
		if ok {
			return i
		}
	}
	return NoStream
}

// validSelectionPolicies is the set of recognized selection policy names.
var validSelectionPolicies = map[string]bool{"": true, "min-oversize": true, "first-match": true}

// IsValidSelectionPolicy reports whether name is a recognized selection policy.
// Empty string selects the default (min-oversize).
func IsValidSelectionPolicy(name string) bool {
	return validSelectionPolicies[name]
}

// NewSelectionPolicy creates a selection policy by name.
// Empty string defaults to min-oversize. Panics on unrecognized names.
func NewSelectionPolicy(name string) SelectionPolicy {
	if !IsValidSelectionPolicy(name) {
		panic(fmt.Sprintf("unknown selection policy %q", name))
	}
	switch name {
	case "", "min-oversize":
		return MinOversizeFactor{}
	case "first-match":
		return FirstMatch{}
	default:
		panic(fmt.Sprintf("unhandled selection policy %q", name))
	}
}
