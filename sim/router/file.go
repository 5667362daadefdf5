// Package router provides sim.Router implementations that persist classified
// events.
package router

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/simtrays/oversize-sim/sim"
)

// DiscardSuffix names the optional file for events without a stream.
const DiscardSuffix = "Discarded"

// Options configures a FileRouter.
type Options struct {
	Path      string // canonical output path
	Extension string // canonical extension replaced by "_<suffix><ext>"
	Discard   bool   // write unselected events to the discard file instead of dropping them
	Annotate  bool   // wrap each record with its stream and diagnostics
}

// annotated is the envelope written when Options.Annotate is set.
type annotated struct {
	Stream          string          `json:"stream"`
	OversizeFactor  float64         `json:"oversize_factor"`
	NearestDistance float64         `json:"nearest_distance"`
	CloseCount      int             `json:"close_count"`
	RelevantCount   int             `json:"relevant_count"`
	Containment     string          `json:"containment,omitempty"`
	Record          json.RawMessage `json:"record"`
}

type output struct {
	path string
	file *os.File
	w    *bufio.Writer
	n    int64
}

func openOutput(path string) (*output, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating output file: %w", err)
	}
	return &output{path: path, file: f, w: bufio.NewWriter(f)}, nil
}

func (o *output) writeLine(b []byte) error {
	if _, err := o.w.Write(b); err != nil {
		return fmt.Errorf("writing %s: %w", o.path, err)
	}
	if err := o.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("writing %s: %w", o.path, err)
	}
	o.n++
	return nil
}

func (o *output) close() error {
	if err := o.w.Flush(); err != nil {
		_ = o.file.Close()
		return fmt.Errorf("flushing %s: %w", o.path, err)
	}
	return o.file.Close()
}

// FileRouter writes every event to the JSON Lines file of its selected
// stream. One file per stream is created up front, so streams that receive
// no event still produce an (empty) output.
type FileRouter struct {
	table     *sim.StreamTable
	opts      Options
	outputs   []*output
	discard   *output
	discarded int64
}

// NewFileRouter creates the per-stream output files for table.
func NewFileRouter(table *sim.StreamTable, opts Options) (*FileRouter, error) {
	if opts.Path == "" {
		return nil, errors.New("file router: output path is empty")
	}
	r := &FileRouter{table: table, opts: opts}
	for _, path := range sim.StreamPaths(table, opts.Path, opts.Extension) {
		o, err := openOutput(path)
		if err != nil {
			_ = r.Close()
			return nil, err
		}
		r.outputs = append(r.outputs, o)
	}
	if opts.Discard {
		o, err := openOutput(sim.TransformPath(opts.Path, DiscardSuffix, opts.Extension))
		if err != nil {
			_ = r.Close()
			return nil, err
		}
		r.discard = o
	}
	logrus.Debugf("file router: %d stream outputs under %s", len(r.outputs), opts.Path)
	return r, nil
}

// Route implements sim.Router.
func (r *FileRouter) Route(ev sim.Event, res sim.ClassificationResult) error {
	if !res.HasSelection() {
		r.discarded++
		if r.discard == nil {
			return nil
		}
		return r.discard.writeLine(ev.Record)
	}
	for i, selected := range res.Flags {
		if !selected {
			continue
		}
		line := ev.Record
		if r.opts.Annotate {
			var err error
			if line, err = r.annotate(i, ev, res); err != nil {
				return err
			}
		}
		if err := r.outputs[i].writeLine(line); err != nil {
			return err
		}
	}
	return nil
}

func (r *FileRouter) annotate(i int, ev sim.Event, res sim.ClassificationResult) ([]byte, error) {
	def := r.table.At(i)
	a := annotated{
		Stream:          def.Name(),
		OversizeFactor:  def.OversizeFactor(),
		NearestDistance: res.NearestDistance,
		CloseCount:      res.CloseCounts[i],
		RelevantCount:   res.RelevantCount,
		Record:          ev.Record,
	}
	if res.Containment != sim.ContainmentUnchecked {
		a.Containment = res.Containment.String()
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("annotating event %d: %w", ev.Index, err)
	}
	return b, nil
}

// Counts returns the number of events written per stream, in table order.
func (r *FileRouter) Counts() []int64 {
	counts := make([]int64, len(r.outputs))
	for i, o := range r.outputs {
		counts[i] = o.n
	}
	return counts
}

// Discarded returns the number of events no stream selected.
func (r *FileRouter) Discarded() int64 { return r.discarded }

// Paths returns the stream output paths, in table order.
func (r *FileRouter) Paths() []string {
	paths := make([]string, len(r.outputs))
	for i, o := range r.outputs {
		paths[i] = o.path
	}
	return paths
}

// Close implements sim.Router. It flushes and closes every output.
func (r *FileRouter) Close() error {
	var errs []error
	for _, o := range r.outputs {
		errs = append(errs, o.close())
	}
	if r.discard != nil {
		errs = append(errs, r.discard.close())
	}
	return errors.Join(errs...)
}
