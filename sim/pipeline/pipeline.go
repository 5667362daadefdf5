// Package pipeline drives events through a classifier and a router.
//
// Events are read in batches, classified concurrently on a bounded worker
// pool and then routed strictly in input order, so output files do not
// depend on scheduling.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/simtrays/oversize-sim/sim"
)

// DefaultBatchSize is the number of events classified per batch and worker.
const DefaultBatchSize = 256

// Source yields events in input order and io.EOF at the end.
type Source interface {
	Next() (sim.Event, error)
}

// Observer receives every routed event after the router accepted it, in
// input order. Trace recorders, the ledger and report histograms observe.
type Observer interface {
	Observe(ev sim.Event, res sim.ClassificationResult) error
}

// Config bounds the worker pool.
type Config struct {
	Workers   int // <= 0 uses GOMAXPROCS
	BatchSize int // events per worker per batch; <= 0 uses DefaultBatchSize
}

// Stats summarizes one run.
type Stats struct {
	Events    int64
	PerStream []int64 // routed events per stream, in table order
	Discarded int64   // events with no selected stream
}

// Run classifies every event of src with clf and routes it with router.
// The first classification, routing or observer error stops the run; on
// cancellation the events of the current batch are not routed. Run does not
// close the router.
func Run(ctx context.Context, clf *sim.Classifier, src Source, router sim.Router, cfg Config, observers ...Observer) (Stats, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	batchSize *= workers

	stats := Stats{PerStream: make([]int64, clf.Table().Len())}
	batch := make([]sim.Event, 0, batchSize)
	results := make([]sim.ClassificationResult, batchSize)
	for {
		batch = batch[:0]
		eof := false
		for len(batch) < batchSize {
			ev, err := src.Next()
			if errors.Is(err, io.EOF) {
				eof = true
				break
			}
			if err != nil {
				return stats, fmt.Errorf("reading events: %w", err)
			}
			batch = append(batch, ev)
		}

		if err := classifyBatch(ctx, clf, batch, results, workers); err != nil {
			return stats, err
		}

		for i, ev := range batch {
			res := results[i]
			if err := router.Route(ev, res); err != nil {
				return stats, fmt.Errorf("routing event %d: %w", ev.Index, err)
			}
			for _, o := range observers {
				if err := o.Observe(ev, res); err != nil {
					return stats, fmt.Errorf("observing event %d: %w", ev.Index, err)
				}
			}
			stats.Events++
			if res.HasSelection() {
				stats.PerStream[res.Selected]++
			} else {
				stats.Discarded++
			}
		}
		logrus.Debugf("pipeline: %d events routed", stats.Events)

		if eof {
			return stats, nil
		}
	}
}

func classifyBatch(ctx context.Context, clf *sim.Classifier, batch []sim.Event, results []sim.ClassificationResult, workers int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range batch {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := clf.Classify(batch[i].Track)
			if err != nil {
				return fmt.Errorf("classifying event %d: %w", batch[i].Index, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// SliceSource is a Source over an in-memory event slice.
type SliceSource struct {
	events []sim.Event
	next   int
}

// NewSliceSource returns a Source yielding events in order.
func NewSliceSource(events []sim.Event) *SliceSource {
	return &SliceSource{events: events}
}

// Next implements Source.
func (s *SliceSource) Next() (sim.Event, error) {
	if s.next >= len(s.events) {
		return sim.Event{}, io.EOF
	}
	ev := s.events[s.next]
	s.next++
	return ev, nil
}
