package cmd

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/simtrays/oversize-sim/sim"
	"github.com/simtrays/oversize-sim/sim/ledger"
	"github.com/simtrays/oversize-sim/sim/pipeline"
	"github.com/simtrays/oversize-sim/sim/trace"
)

func printStreamTable(w io.Writer, table *sim.StreamTable, paths []string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tCUT\tLIMIT\tFACTOR\tOUTPUT")
	for i, def := range table.Definitions() {
		cut := fmt.Sprintf("%g", def.DistanceCut())
		limit := def.DOMLimit().String()
		if def.IsDefault() {
			cut, limit = "-", "-"
		}
		path := ""
		if i < len(paths) {
			path = paths[i]
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%g\t%s\n", def.StreamID(), def.Name(), cut, limit, def.OversizeFactor(), path)
	}
	_ = tw.Flush()
}

func printRunSummary(w io.Writer, table *sim.StreamTable, paths []string, stats pipeline.Stats) {
	_, _ = fmt.Fprintf(w, "=== Classification Summary ===\n")
	_, _ = fmt.Fprintf(w, "Events: %d\n", stats.Events)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STREAM\tFACTOR\tEVENTS\tOUTPUT")
	for i := 0; i < table.Len(); i++ {
		def := table.At(i)
		_, _ = fmt.Fprintf(tw, "%s\t%g\t%d\t%s\n", def.Name(), def.OversizeFactor(), stats.PerStream[i], paths[i])
	}
	_ = tw.Flush()
	_, _ = fmt.Fprintf(w, "Discarded (no stream): %d\n", stats.Discarded)
}

func printTraceSummary(w io.Writer, s *trace.TraceSummary) {
	_, _ = fmt.Fprintf(w, "=== Trace Summary ===\n")
	_, _ = fmt.Fprintf(w, "Total Decisions: %d\n", s.TotalDecisions)
	_, _ = fmt.Fprintf(w, "  Default: %d\n", s.DefaultCount)
	_, _ = fmt.Fprintf(w, "  Discarded: %d\n", s.DiscardedCount)
	_, _ = fmt.Fprintf(w, "Unique Streams: %d\n", s.UniqueStreams)
	_, _ = fmt.Fprintf(w, "Mean Nearest Distance: %.4f\n", s.MeanNearestDistance)
	_, _ = fmt.Fprintf(w, "Max Nearest Distance: %.4f\n", s.MaxNearestDistance)
	if len(s.ContainmentCounts) > 0 {
		_, _ = fmt.Fprintf(w, "Containment:\n")
		keys := make([]string, 0, len(s.ContainmentCounts))
		for k := range s.ContainmentCounts {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			_, _ = fmt.Fprintf(w, "  %s: %d\n", k, s.ContainmentCounts[k])
		}
	}
	if s.OutOfBoundsCount > 0 {
		_, _ = fmt.Fprintf(w, "Out of Bounds: %d\n", s.OutOfBoundsCount)
	}
}

func runStatus(r ledger.RunSummary) string {
	switch {
	case r.Error != "":
		return "failed: " + r.Error
	case r.Finished:
		return "finished"
	default:
		return "running"
	}
}

func printLedgerRuns(w io.Writer, runs []ledger.RunSummary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUN\tSTARTED\tSENSORS\tSELECTION\tEVENTS\tDISCARDED\tSTATUS")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%d\t%s\n", r.ID, r.StartedAt, r.SensorCount, r.Selection, r.EventsTotal, r.Discarded, runStatus(r))
	}
	_ = tw.Flush()
}

func printLedgerStreams(w io.Writer, runID string, counts []ledger.StreamCount) {
	_, _ = fmt.Fprintf(w, "Run %s\n", runID)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STREAM\tCUT\tLIMIT\tFACTOR\tEVENTS\tMEAN NEAREST")
	for _, c := range counts {
		_, _ = fmt.Fprintf(tw, "%s\t%g\t%s\t%g\t%d\t%.2f\n", c.Name, c.DistanceCut, c.DOMLimit, c.OversizeFactor, c.Events, c.MeanNearestDist)
	}
	_ = tw.Flush()
}
