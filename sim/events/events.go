// Package events reads simulated events from JSON Lines input.
//
// Each non-blank line is one JSON object:
//
//	{"id": "evt-1", "kind": "track", "pos": [0, 0, 0], "dir": [0, 0, 1],
//	 "time": 0, "speed": 0.3, "start": -50, "stop": 120, "record": {...}}
//
// "kind" is "point" (default) or "track". "dir" is required for tracks.
// "start"/"stop" truncate a track; a missing side is unbounded. "record" is
// carried through to the output untouched; without it the whole line is the
// record. Lines starting with '#' are comments.
package events

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/golang/geo/r3"

	"github.com/simtrays/oversize-sim/sim"
)

// maxLineBytes bounds a single event line.
const maxLineBytes = 16 << 20

type rawEvent struct {
	ID     string          `json:"id"`
	Kind   string          `json:"kind"`
	Pos    *[3]float64     `json:"pos"`
	Dir    *[3]float64     `json:"dir"`
	Time   float64         `json:"time"`
	Speed  *float64        `json:"speed"`
	Start  *float64        `json:"start"`
	Stop   *float64        `json:"stop"`
	Record json.RawMessage `json:"record"`
}

// Reader yields events from a JSON Lines stream in input order.
type Reader struct {
	sc    *bufio.Scanner
	line  int
	index int64
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Reader{sc: sc}
}

// Next returns the next event, or io.EOF when the input is exhausted.
// Parse errors carry the 1-based line number.
func (r *Reader) Next() (sim.Event, error) {
	for r.sc.Scan() {
		r.line++
		line := bytes.TrimSpace(r.sc.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		ev, err := ParseEvent(line)
		if err != nil {
			return sim.Event{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		ev.Index = r.index
		r.index++
		return ev, nil
	}
	if err := r.sc.Err(); err != nil {
		return sim.Event{}, fmt.Errorf("line %d: %w", r.line+1, err)
	}
	return sim.Event{}, io.EOF
}

// ReadAll reads every event of r.
func ReadAll(r io.Reader) ([]sim.Event, error) {
	rd := NewReader(r)
	var out []sim.Event
	for {
		ev, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
}

// ParseEvent decodes one event line. The returned event has Index 0.
func ParseEvent(line []byte) (sim.Event, error) {
	var raw rawEvent
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return sim.Event{}, fmt.Errorf("decoding event: %w", err)
	}
	if raw.Pos == nil {
		return sim.Event{}, errors.New("event has no pos")
	}
	pos := vec(*raw.Pos)

	var tr sim.Track
	switch raw.Kind {
	case "", "point":
		tr = sim.NewPointTrack(pos, raw.Time)
	case "track":
		if raw.Dir == nil {
			return sim.Event{}, errors.New("track event has no dir")
		}
		tr = sim.NewDirectedTrack(pos, vec(*raw.Dir), raw.Time)
		if raw.Speed != nil {
			tr.Speed = *raw.Speed
		}
		if raw.Start != nil || raw.Stop != nil {
			start, stop := math.Inf(-1), math.Inf(1)
			if raw.Start != nil {
				start = *raw.Start
			}
			if raw.Stop != nil {
				stop = *raw.Stop
			}
			tr = tr.Truncated(start, stop)
		}
	default:
		return sim.Event{}, fmt.Errorf("unknown event kind %q (want point or track)", raw.Kind)
	}
	if err := tr.Validate(); err != nil {
		return sim.Event{}, err
	}

	record := []byte(raw.Record)
	if len(record) == 0 {
		record = line
	}
	return sim.Event{ID: raw.ID, Track: tr, Record: bytes.Clone(record)}, nil
}

func vec(v [3]float64) r3.Vector { return r3.Vector{X: v[0], Y: v[1], Z: v[2]} }
