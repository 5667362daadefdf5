package pipeline

import (
	"slices"

	"github.com/simtrays/oversize-sim/sim"
	"github.com/simtrays/oversize-sim/sim/trace"
)

// TraceObserver converts routed events into trace.DecisionRecords.
type TraceObserver struct {
	Table *sim.StreamTable
	Trace *trace.ClassificationTrace
}

// Observe implements Observer.
func (o *TraceObserver) Observe(ev sim.Event, res sim.ClassificationResult) error {
	o.Trace.RecordDecision(DecisionRecord(o.Table, ev, res))
	return nil
}

// DecisionRecord builds the trace record of one classification.
func DecisionRecord(table *sim.StreamTable, ev sim.Event, res sim.ClassificationResult) trace.DecisionRecord {
	rec := trace.DecisionRecord{
		EventIndex:      ev.Index,
		EventID:         ev.ID,
		Kind:            ev.Track.Kind.String(),
		NearestDistance: res.NearestDistance,
		RelevantCount:   res.RelevantCount,
		CloseCounts:     slices.Clone(res.CloseCounts),
		Reason:          "none",
	}
	if res.HasSelection() {
		def := table.At(res.Selected)
		rec.Stream = def.Name()
		rec.OversizeFactor = def.OversizeFactor()
		rec.Reason = "selected"
		if def.IsDefault() {
			rec.Reason = "default"
		}
	}
	if res.Containment != sim.ContainmentUnchecked {
		rec.Containment = res.Containment.String()
	}
	if res.BoundaryDistance != nil {
		inBounds := res.InBounds
		rec.InBounds = &inBounds
	}
	return rec
}
