package trace

import (
	"math"
	"testing"
)

func boolPtr(v bool) *bool { return &v }

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	ct := NewClassificationTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN summarized
	summary := Summarize(ct)

	// THEN all counts are zero
	if summary.TotalDecisions != 0 {
		t.Errorf("expected 0 total decisions, got %d", summary.TotalDecisions)
	}
	if summary.DiscardedCount != 0 || summary.DefaultCount != 0 {
		t.Error("expected 0 discarded and default")
	}
	if summary.UniqueStreams != 0 {
		t.Errorf("expected 0 unique streams, got %d", summary.UniqueStreams)
	}
	if summary.MeanNearestDistance != 0 || summary.MaxNearestDistance != 0 {
		t.Error("expected 0 nearest distance statistics")
	}
	if len(summary.StreamDistribution) != 0 {
		t.Error("expected empty stream distribution")
	}
}

func TestSummarize_NilTrace(t *testing.T) {
	if s := Summarize(nil); s.TotalDecisions != 0 || s.StreamDistribution == nil {
		t.Errorf("expected zero summary with initialized maps, got %+v", s)
	}
}

func TestSummarize_PopulatedTrace_CorrectCounts(t *testing.T) {
	// GIVEN a trace with selected, default and discarded decisions
	ct := NewClassificationTrace(TraceConfig{Level: TraceLevelDecisions})
	ct.RecordDecision(DecisionRecord{EventIndex: 0, Stream: "OversizeStream0", Reason: "selected", NearestDistance: 2, Containment: "contained"})
	ct.RecordDecision(DecisionRecord{EventIndex: 1, Stream: "OversizeStream0", Reason: "selected", NearestDistance: 4, Containment: "contained"})
	ct.RecordDecision(DecisionRecord{EventIndex: 2, Stream: "OversizeStreamDefault", Reason: "default", NearestDistance: 90, Containment: "not-contained", InBounds: boolPtr(false)})
	ct.RecordDecision(DecisionRecord{EventIndex: 3, Reason: "none", NearestDistance: math.Inf(1), InBounds: boolPtr(true)})

	// WHEN summarized
	summary := Summarize(ct)

	// THEN counts match
	if summary.TotalDecisions != 4 {
		t.Errorf("expected 4 total decisions, got %d", summary.TotalDecisions)
	}
	if summary.DiscardedCount != 1 {
		t.Errorf("expected 1 discarded, got %d", summary.DiscardedCount)
	}
	if summary.DefaultCount != 1 {
		t.Errorf("expected 1 default, got %d", summary.DefaultCount)
	}
	if summary.UniqueStreams != 2 {
		t.Errorf("expected 2 unique streams, got %d", summary.UniqueStreams)
	}
	if summary.StreamDistribution["OversizeStream0"] != 2 {
		t.Errorf("expected OversizeStream0 count 2, got %d", summary.StreamDistribution["OversizeStream0"])
	}
	if summary.ContainmentCounts["contained"] != 2 || summary.ContainmentCounts["not-contained"] != 1 {
		t.Errorf("unexpected containment counts %v", summary.ContainmentCounts)
	}
	if summary.OutOfBoundsCount != 1 {
		t.Errorf("expected 1 out of bounds, got %d", summary.OutOfBoundsCount)
	}
}

func TestSummarize_NearestDistanceStatistics_IgnoreInfinite(t *testing.T) {
	// GIVEN decisions with known nearest distances, one infinite
	ct := NewClassificationTrace(TraceConfig{Level: TraceLevelDecisions})
	ct.RecordDecision(DecisionRecord{NearestDistance: 10})
	ct.RecordDecision(DecisionRecord{NearestDistance: 30})
	ct.RecordDecision(DecisionRecord{NearestDistance: math.Inf(1)})

	// WHEN summarized
	summary := Summarize(ct)

	// THEN mean = (10 + 30) / 2 and max = 30
	if summary.MeanNearestDistance != 20 {
		t.Errorf("expected mean nearest distance 20, got %.4f", summary.MeanNearestDistance)
	}
	if summary.MaxNearestDistance != 30 {
		t.Errorf("expected max nearest distance 30, got %.4f", summary.MaxNearestDistance)
	}
}
