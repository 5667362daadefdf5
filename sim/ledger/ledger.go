// Package ledger stores classification runs and their per-event decisions
// in a SQLite database.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/simtrays/oversize-sim/sim"
)

// flushEvery is the number of decisions buffered before a write transaction.
const flushEvery = 500

// Ledger is a handle to the classification database.
type Ledger struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger at path and migrates it to the
// latest schema.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Ledger{db: db}, nil
}

// Close closes the database.
func (l *Ledger) Close() error { return l.db.Close() }

// SchemaVersion returns the applied migration version.
func (l *Ledger) SchemaVersion() (uint, error) {
	v, dirty, err := schemaVersion(l.db)
	if err != nil {
		return 0, err
	}
	if dirty {
		return v, fmt.Errorf("ledger schema version %d is dirty", v)
	}
	return v, nil
}

// RunInfo describes a run at start.
type RunInfo struct {
	ConfigPath  string
	SensorCount int
	Selection   string
	Table       *sim.StreamTable
	OutputPaths []string // per stream, in table order; may be nil
}

// Run records the decisions of one classification run. It satisfies the
// pipeline observer interface. Not safe for concurrent use.
type Run struct {
	ID string

	ctx       context.Context
	ledger    *Ledger
	pending   []decision
	events    int64
	discarded int64
}

type decision struct {
	index       int64
	id          string
	kind        string
	tableIndex  sql.NullInt64
	nearest     sql.NullFloat64
	relevant    int
	containment sql.NullString
	inBounds    sql.NullBool
}

// StartRun registers a new run with a fresh id and its stream table.
func (l *Ledger) StartRun(ctx context.Context, info RunInfo) (*Run, error) {
	id := uuid.New().String()
	selection := info.Selection
	if selection == "" {
		selection = "min-oversize"
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting run: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, config_path, sensor_count, selection) VALUES (?, ?, ?, ?)`,
		id, info.ConfigPath, info.SensorCount, selection); err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}
	for i := 0; i < info.Table.Len(); i++ {
		def := info.Table.At(i)
		var path sql.NullString
		if i < len(info.OutputPaths) {
			path = sql.NullString{String: info.OutputPaths[i], Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO streams (run_id, table_index, stream_id, name, distance_cut, dom_limit, oversize_factor, output_path)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, def.StreamID(), def.Name(), def.DistanceCut(), def.DOMLimit().String(), def.OversizeFactor(), path); err != nil {
			return nil, fmt.Errorf("inserting stream %s: %w", def.Name(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing run: %w", err)
	}
	logrus.Infof("ledger: started run %s", id)
	return &Run{ID: id, ctx: ctx, ledger: l}, nil
}

// Observe buffers the decision for ev and flushes periodically.
func (r *Run) Observe(ev sim.Event, res sim.ClassificationResult) error {
	d := decision{
		index:    ev.Index,
		id:       ev.ID,
		kind:     ev.Track.Kind.String(),
		relevant: res.RelevantCount,
	}
	if res.HasSelection() {
		d.tableIndex = sql.NullInt64{Int64: int64(res.Selected), Valid: true}
	} else {
		r.discarded++
	}
	if !math.IsInf(res.NearestDistance, 0) && !math.IsNaN(res.NearestDistance) {
		d.nearest = sql.NullFloat64{Float64: res.NearestDistance, Valid: true}
	}
	if res.Containment != sim.ContainmentUnchecked {
		d.containment = sql.NullString{String: res.Containment.String(), Valid: true}
	}
	if res.BoundaryDistance != nil {
		d.inBounds = sql.NullBool{Bool: res.InBounds, Valid: true}
	}
	r.pending = append(r.pending, d)
	r.events++
	if len(r.pending) >= flushEvery {
		return r.flush()
	}
	return nil
}

func (r *Run) flush() error {
	if len(r.pending) == 0 {
		return nil
	}
	tx, err := r.ledger.db.BeginTx(r.ctx, nil)
	if err != nil {
		return fmt.Errorf("flushing decisions: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(r.ctx,
		`INSERT INTO decisions (run_id, event_index, event_id, kind, table_index, nearest_distance, relevant_count, containment, in_bounds)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing decision insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, d := range r.pending {
		if _, err := stmt.ExecContext(r.ctx, r.ID, d.index, d.id, d.kind, d.tableIndex, d.nearest, d.relevant, d.containment, d.inBounds); err != nil {
			return fmt.Errorf("inserting decision %d: %w", d.index, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing decisions: %w", err)
	}
	r.pending = r.pending[:0]
	return nil
}

// Finish writes any buffered decisions and the run totals.
func (r *Run) Finish() error {
	return r.finish(r.ctx, nil)
}

// Fail writes the decisions observed so far and marks the run as failed
// with cause. It still writes when the run's context was cancelled.
func (r *Run) Fail(cause error) error {
	return r.finish(context.WithoutCancel(r.ctx), cause)
}

func (r *Run) finish(ctx context.Context, cause error) error {
	r.ctx = ctx
	if err := r.flush(); err != nil {
		return err
	}
	var msg sql.NullString
	if cause != nil {
		msg = sql.NullString{String: cause.Error(), Valid: true}
	}
	if _, err := r.ledger.db.ExecContext(ctx,
		`UPDATE runs SET events_total = ?, discarded = ?, finished_at = CURRENT_TIMESTAMP, error = ? WHERE run_id = ?`,
		r.events, r.discarded, msg, r.ID); err != nil {
		return fmt.Errorf("finishing run %s: %w", r.ID, err)
	}
	if cause != nil {
		logrus.Warnf("ledger: run %s failed after %d events: %v", r.ID, r.events, cause)
		return nil
	}
	logrus.Infof("ledger: run %s finished with %d events (%d discarded)", r.ID, r.events, r.discarded)
	return nil
}
