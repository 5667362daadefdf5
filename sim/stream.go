package sim

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
)

const (
	// DefaultDistanceCut marks the catch-all stream.
	DefaultDistanceCut = -1.0
	// DefaultStreamID is the stream id of the catch-all stream.
	DefaultStreamID = -1
	// NoStream is ClassificationResult.Selected when no stream was chosen.
	NoStream = -1

	streamNamePrefix   = "OversizeStream"
	defaultStreamLabel = "Default"
)

// LimitKind distinguishes absolute and fractional DOM limits.
type LimitKind int

const (
	// LimitCount is an absolute number of close sensors.
	LimitCount LimitKind = iota
	// LimitFraction is a fraction of the sensors within the relevance distance.
	LimitFraction
)

// Limit is the minimum number of close sensors a stream requires.
type Limit struct {
	kind     LimitKind
	count    uint32
	fraction float64
}

// Count returns an absolute limit of n sensors.
func Count(n uint32) Limit { return Limit{kind: LimitCount, count: n} }

// Fraction returns a limit of f times the number of relevant sensors.
func Fraction(f float64) Limit { return Limit{kind: LimitFraction, fraction: f} }

// ParseLimit interprets a configured dom limit: values below 1 are fractions
// of the relevant sensors, zero and whole numbers from 1 upwards are counts.
func ParseLimit(v float64) (Limit, error) {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0) || v < 0:
		return Limit{}, fmt.Errorf("%w, got %v", ErrInvalidDOMLimit, v)
	case v == 0:
		return Count(0), nil
	case v < 1:
		return Fraction(v), nil
	case v != math.Trunc(v) || v > math.MaxUint32:
		return Limit{}, fmt.Errorf("%w, got %v", ErrInvalidDOMLimit, v)
	}
	return Count(uint32(v)), nil
}

// Kind reports whether the limit is a count or a fraction.
func (l Limit) Kind() LimitKind { return l.kind }

// IsFraction reports whether the limit scales with the relevant sensor count.
func (l Limit) IsFraction() bool { return l.kind == LimitFraction }

// Effective returns the sensor count threshold given the number of relevant sensors.
func (l Limit) Effective(relevant int) float64 {
	if l.kind == LimitFraction {
		return l.fraction * float64(relevant)
	}
	return float64(l.count)
}

func (l Limit) valid() bool {
	if l.kind == LimitFraction {
		return !math.IsNaN(l.fraction) && l.fraction > 0 && l.fraction <= 1
	}
	return true
}

func (l Limit) String() string {
	if l.kind == LimitFraction {
		return strconv.FormatFloat(l.fraction, 'g', -1, 64) + " of relevant"
	}
	return strconv.FormatUint(uint64(l.count), 10)
}

// StreamDefinition is one fully resolved output stream.
type StreamDefinition struct {
	distanceCut    float64
	domLimit       Limit
	oversizeFactor float64
	streamID       int
}

// DistanceCut is the sensor distance threshold, or DefaultDistanceCut.
func (d StreamDefinition) DistanceCut() float64 { return d.distanceCut }

// DOMLimit is the close-sensor threshold.
func (d StreamDefinition) DOMLimit() Limit { return d.domLimit }

// OversizeFactor is handed to photon propagation for events of this stream.
func (d StreamDefinition) OversizeFactor() float64 { return d.oversizeFactor }

// StreamID is the rank among non-default streams, or DefaultStreamID.
func (d StreamDefinition) StreamID() int { return d.streamID }

// IsDefault reports whether this is the catch-all stream.
func (d StreamDefinition) IsDefault() bool { return d.streamID == DefaultStreamID }

// Name is the stream's record key, e.g. "OversizeStream0" or "OversizeStreamDefault".
func (d StreamDefinition) Name() string {
	if d.IsDefault() {
		return streamNamePrefix + defaultStreamLabel
	}
	return streamNamePrefix + strconv.Itoa(d.streamID)
}

// FileSuffix is the output path suffix for the stream; identical to Name.
func (d StreamDefinition) FileSuffix() string { return d.Name() }

func (d StreamDefinition) String() string {
	if d.IsDefault() {
		return fmt.Sprintf("%s(default, factor=%g)", d.Name(), d.oversizeFactor)
	}
	return fmt.Sprintf("%s(cut=%g, limit=%s, factor=%g)", d.Name(), d.distanceCut, d.domLimit, d.oversizeFactor)
}

// StreamTable is the immutable, validated list of streams: non-default
// streams ascending by distance cut, then the default stream if any.
type StreamTable struct {
	defs       []StreamDefinition
	hasDefault bool
}

type streamEntry struct {
	cut    float64
	limit  Limit
	factor float64
}

func (e streamEntry) isDefault() bool { return e.cut == DefaultDistanceCut }

// BuildStreamTable validates the parallel stream lists and resolves them into
// a StreamTable. A single dom limit or oversize factor is broadcast to every
// cut. The default stream (cut -1) always sorts last and gets id -1; the other
// streams are numbered by ascending cut, ties kept in input order.
func BuildStreamTable(cuts []float64, limits []Limit, factors []float64) (*StreamTable, error) {
	if len(cuts) == 0 {
		return nil, &ConfigError{Field: "distance_cuts", Err: ErrNoStreams}
	}
	limits, err := broadcast("dom_limits", limits, len(cuts))
	if err != nil {
		return nil, err
	}
	factors, err = broadcast("oversize_factors", factors, len(cuts))
	if err != nil {
		return nil, err
	}

	entries := make([]streamEntry, len(cuts))
	defaults := 0
	for i, cut := range cuts {
		if cut == DefaultDistanceCut {
			defaults++
			if defaults > 1 {
				return nil, configErrorf(fmt.Sprintf("distance_cuts[%d]", i), ErrDuplicateDefault, "second default at index %d", i)
			}
		} else if math.IsNaN(cut) || math.IsInf(cut, 0) || cut < 0 {
			return nil, configErrorf(fmt.Sprintf("distance_cuts[%d]", i), ErrInvalidDistanceCut, "got %v", cut)
		}
		if !limits[i].valid() {
			return nil, configErrorf(fmt.Sprintf("dom_limits[%d]", i), ErrInvalidDOMLimit, "got %s", limits[i])
		}
		if f := factors[i]; math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
			return nil, configErrorf(fmt.Sprintf("oversize_factors[%d]", i), ErrNonPositiveOversizeFactor, "got %v", f)
		}
		entries[i] = streamEntry{cut: cut, limit: limits[i], factor: factors[i]}
	}

	slices.SortStableFunc(entries, func(a, b streamEntry) int {
		switch {
		case a.isDefault() && b.isDefault():
			return 0
		case a.isDefault():
			return 1
		case b.isDefault():
			return -1
		}
		return cmp.Compare(a.cut, b.cut)
	})

	table := &StreamTable{defs: make([]StreamDefinition, len(entries))}
	nextID := 0
	for i, e := range entries {
		id := DefaultStreamID
		if e.isDefault() {
			table.hasDefault = true
		} else {
			id = nextID
			nextID++
		}
		table.defs[i] = StreamDefinition{distanceCut: e.cut, domLimit: e.limit, oversizeFactor: e.factor, streamID: id}
	}
	return table, nil
}

func broadcast[T any](field string, values []T, n int) ([]T, error) {
	if len(values) == 1 && n > 1 {
		out := make([]T, n)
		for i := range out {
			out[i] = values[0]
		}
		return out, nil
	}
	if len(values) != n {
		return nil, configErrorf(field, ErrLengthMismatch, "expected 1 or %d entries, got %d", n, len(values))
	}
	return values, nil
}

// Len returns the number of streams, default included.
func (t *StreamTable) Len() int { return len(t.defs) }

// At returns the i-th stream in table order.
func (t *StreamTable) At(i int) StreamDefinition { return t.defs[i] }

// Definitions returns a copy of the streams in table order.
func (t *StreamTable) Definitions() []StreamDefinition {
	return slices.Clone(t.defs)
}

// Default returns the catch-all stream, if configured.
func (t *StreamTable) Default() (StreamDefinition, bool) {
	if !t.hasDefault {
		return StreamDefinition{}, false
	}
	return t.defs[len(t.defs)-1], true
}

// HasFractionalLimit reports whether any non-default stream uses a Fraction limit.
func (t *StreamTable) HasFractionalLimit() bool {
	for _, d := range t.defs {
		if !d.IsDefault() && d.domLimit.IsFraction() {
			return true
		}
	}
	return false
}

// IndexOf returns the table index of the stream with the given id, or -1.
func (t *StreamTable) IndexOf(streamID int) int {
	for i, d := range t.defs {
		if d.streamID == streamID {
			return i
		}
	}
	return -1
}
