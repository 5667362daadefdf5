package ledger

import (
	"context"
	"database/sql"
	"fmt"
)

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID          string
	ConfigPath  string
	SensorCount int
	Selection   string
	EventsTotal int64
	Discarded   int64
	StartedAt   string
	Finished    bool
	Error       string // non-empty when the run failed
}

// StreamCount is the number of events a run routed to one stream.
type StreamCount struct {
	TableIndex      int
	StreamID        int
	Name            string
	DistanceCut     float64
	DOMLimit        string
	OversizeFactor  float64
	OutputPath      string
	Events          int64
	MeanNearestDist float64 // 0 when no event has a finite nearest distance
}

// Runs lists every run, most recent first.
func (l *Ledger) Runs(ctx context.Context) ([]RunSummary, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT run_id, COALESCE(config_path, ''), sensor_count, selection, events_total, discarded,
		       COALESCE(CAST(started_at AS TEXT), ''), finished_at IS NOT NULL, COALESCE(error, '')
		FROM runs
		ORDER BY started_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.ConfigPath, &r.SensorCount, &r.Selection, &r.EventsTotal, &r.Discarded, &r.StartedAt, &r.Finished, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// StreamCounts returns the per-stream event counts of a run, in table order.
func (l *Ledger) StreamCounts(ctx context.Context, runID string) ([]StreamCount, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT s.table_index, s.stream_id, s.name, s.distance_cut, s.dom_limit, s.oversize_factor,
		       COALESCE(s.output_path, ''), COUNT(d.event_index), AVG(d.nearest_distance)
		FROM streams s
		LEFT JOIN decisions d ON d.run_id = s.run_id AND d.table_index = s.table_index
		WHERE s.run_id = ?
		GROUP BY s.table_index
		ORDER BY s.table_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("counting streams of run %s: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []StreamCount
	for rows.Next() {
		var c StreamCount
		var mean sql.NullFloat64
		if err := rows.Scan(&c.TableIndex, &c.StreamID, &c.Name, &c.DistanceCut, &c.DOMLimit, &c.OversizeFactor, &c.OutputPath, &c.Events, &mean); err != nil {
			return nil, fmt.Errorf("scanning stream count: %w", err)
		}
		c.MeanNearestDist = mean.Float64
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	return out, nil
}

// LatestRunID returns the id of the most recently started run.
func (l *Ledger) LatestRunID(ctx context.Context) (string, error) {
	var id string
	err := l.db.QueryRowContext(ctx, `SELECT run_id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("ledger has no runs")
	}
	if err != nil {
		return "", fmt.Errorf("finding latest run: %w", err)
	}
	return id, nil
}
