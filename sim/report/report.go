// Package report aggregates classification diagnostics and renders them as
// PNG plots.
package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/simtrays/oversize-sim/sim"
)

// DefaultBins is the number of nearest-distance histogram bins.
const DefaultBins = 40

// Collector accumulates per-event diagnostics. It satisfies the pipeline
// observer interface and is not safe for concurrent use.
type Collector struct {
	table      *sim.StreamTable
	references []float64

	events        int
	discarded     int
	nearest       []float64 // finite nearest distances only
	streamCounts  []float64
	referenceSums []float64
}

// NewCollector returns a Collector for results of table computed with the
// given reference distances.
func NewCollector(table *sim.StreamTable, referenceDistances []float64) *Collector {
	return &Collector{
		table:         table,
		references:    slices.Clone(referenceDistances),
		streamCounts:  make([]float64, table.Len()),
		referenceSums: make([]float64, len(referenceDistances)),
	}
}

// Observe records one classification result.
func (c *Collector) Observe(_ sim.Event, res sim.ClassificationResult) error {
	c.events++
	if res.HasSelection() {
		c.streamCounts[res.Selected]++
	} else {
		c.discarded++
	}
	if !math.IsInf(res.NearestDistance, 0) && !math.IsNaN(res.NearestDistance) {
		c.nearest = append(c.nearest, res.NearestDistance)
	}
	for i, n := range res.ReferenceCounts {
		if i < len(c.referenceSums) {
			c.referenceSums[i] += float64(n)
		}
	}
	return nil
}

// Summary holds scalar statistics over the observed events.
type Summary struct {
	Events        int
	Discarded     int
	NearestMean   float64
	NearestMedian float64
	NearestStdDev float64
	// MeanReferenceCounts is the mean close-sensor count per reference distance.
	MeanReferenceCounts []float64
}

// Summary computes the statistics. Nearest-distance fields are NaN when no
// event had a finite nearest distance.
func (c *Collector) Summary() Summary {
	s := Summary{
		Events:              c.events,
		Discarded:           c.discarded,
		NearestMean:         math.NaN(),
		NearestMedian:       math.NaN(),
		NearestStdDev:       math.NaN(),
		MeanReferenceCounts: make([]float64, len(c.referenceSums)),
	}
	if len(c.nearest) > 0 {
		sorted := slices.Clone(c.nearest)
		slices.Sort(sorted)
		s.NearestMean, s.NearestStdDev = stat.MeanStdDev(sorted, nil)
		s.NearestMedian = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	}
	if c.events > 0 {
		for i, sum := range c.referenceSums {
			s.MeanReferenceCounts[i] = sum / float64(c.events)
		}
	}
	return s
}

// WritePlots renders the collected diagnostics into dir and returns the
// written file paths. The nearest-distance histogram is skipped when no
// finite distance was observed.
func (c *Collector) WritePlots(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating plot directory: %w", err)
	}
	var written []string

	if len(c.nearest) > 0 {
		p := plot.New()
		p.Title.Text = "Nearest sensor distance"
		p.X.Label.Text = "distance"
		p.Y.Label.Text = "events"
		h, err := plotter.NewHist(plotter.Values(c.nearest), DefaultBins)
		if err != nil {
			return written, fmt.Errorf("building nearest-distance histogram: %w", err)
		}
		p.Add(h)
		path := filepath.Join(dir, "nearest_distance.png")
		if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
			return written, fmt.Errorf("saving %s: %w", path, err)
		}
		written = append(written, path)
	}

	names := make([]string, c.table.Len())
	for i := range names {
		names[i] = c.table.At(i).Name()
	}
	path, err := saveBars(dir, "stream_counts.png", "Events per stream", "events", c.streamCounts, names)
	if err != nil {
		return written, err
	}
	written = append(written, path)

	if len(c.references) > 0 {
		labels := make([]string, len(c.references))
		for i, d := range c.references {
			labels[i] = fmt.Sprintf("%g", d)
		}
		path, err := saveBars(dir, "reference_counts.png", "Mean close sensors per reference distance", "sensors", c.Summary().MeanReferenceCounts, labels)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}

	logrus.Infof("report: wrote %d plots to %s", len(written), dir)
	return written, nil
}

func saveBars(dir, name, title, ylabel string, values []float64, labels []string) (string, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = ylabel
	bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(20))
	if err != nil {
		return "", fmt.Errorf("building %s: %w", name, err)
	}
	p.Add(bars)
	p.NominalX(labels...)
	path := filepath.Join(dir, name)
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return "", fmt.Errorf("saving %s: %w", path, err)
	}
	return path, nil
}
