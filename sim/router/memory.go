package router

import "github.com/simtrays/oversize-sim/sim"

// Routed is one event delivered to a Memory router.
type Routed struct {
	Event  sim.Event
	Result sim.ClassificationResult
}

// Memory is a sim.Router that keeps every routed event in memory, in
// delivery order. Used by tests and dry runs.
type Memory struct {
	Events []Routed
	Closed bool
}

// Route implements sim.Router.
func (m *Memory) Route(ev sim.Event, res sim.ClassificationResult) error {
	m.Events = append(m.Events, Routed{Event: ev, Result: res})
	return nil
}

// Close implements sim.Router.
func (m *Memory) Close() error {
	m.Closed = true
	return nil
}

// Indices returns the input indices of the routed events, in delivery order.
func (m *Memory) Indices() []int64 {
	out := make([]int64, len(m.Events))
	for i, r := range m.Events {
		out[i] = r.Event.Index
	}
	return out
}
