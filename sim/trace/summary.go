package trace

import "math"

// TraceSummary aggregates statistics from a ClassificationTrace.
type TraceSummary struct {
	TotalDecisions      int
	DiscardedCount      int
	DefaultCount        int
	UniqueStreams       int
	StreamDistribution  map[string]int // stream name → count of events routed
	ContainmentCounts   map[string]int // containment outcome → count; empty when unchecked
	OutOfBoundsCount    int
	MeanNearestDistance float64 // over finite nearest distances
	MaxNearestDistance  float64
	MeanRelevantCount   float64
}

// Summarize computes aggregate statistics from a ClassificationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(ct *ClassificationTrace) *TraceSummary {
	summary := &TraceSummary{
		StreamDistribution: make(map[string]int),
		ContainmentCounts:  make(map[string]int),
	}
	if ct == nil {
		return summary
	}

	summary.TotalDecisions = len(ct.Decisions)
	totalNearest, finiteNearest, totalRelevant := 0.0, 0, 0
	for _, d := range ct.Decisions {
		if d.Discarded() {
			summary.DiscardedCount++
		} else {
			summary.StreamDistribution[d.Stream]++
		}
		if d.Reason == "default" {
			summary.DefaultCount++
		}
		if d.Containment != "" {
			summary.ContainmentCounts[d.Containment]++
		}
		if d.InBounds != nil && !*d.InBounds {
			summary.OutOfBoundsCount++
		}
		if !math.IsInf(d.NearestDistance, 0) && !math.IsNaN(d.NearestDistance) {
			totalNearest += d.NearestDistance
			finiteNearest++
			if d.NearestDistance > summary.MaxNearestDistance {
				summary.MaxNearestDistance = d.NearestDistance
			}
		}
		totalRelevant += d.RelevantCount
	}
	if finiteNearest > 0 {
		summary.MeanNearestDistance = totalNearest / float64(finiteNearest)
	}
	if summary.TotalDecisions > 0 {
		summary.MeanRelevantCount = float64(totalRelevant) / float64(summary.TotalDecisions)
	}

	summary.UniqueStreams = len(summary.StreamDistribution)

	return summary
}
