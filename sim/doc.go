// Package sim classifies simulated events into oversize photon-propagation
// streams.
//
// # Reading Guide
//
// Start with these files to understand the classification path:
//   - sensors.go: SensorArray, the immutable sensor positions and their hull
//   - profile.go: DistanceProfile, one sensor distance per sensor for a Track
//   - stream.go: StreamTable, the validated and ordered list of streams
//   - classify.go: Classify and Classifier, the per-event routing decision
//
// # Architecture
//
// The sim package defines the core types; supporting code lives in
// sub-packages:
//   - sim/geometry/: ray/triangle intersection, convex hulls, prism distances
//   - sim/events/: JSON Lines event input
//   - sim/router/: per-stream output writers
//   - sim/pipeline/: bounded worker pool routing results in input order
//   - sim/trace/: decision trace recording
//   - sim/ledger/: SQLite run ledger
//   - sim/report/: diagnostic histograms
//
// # Key Interfaces
//
//   - SelectionPolicy: pick one stream among the qualifying ones
//   - Router: persist each event according to its classification
//
// Everything reachable from a Classifier is read-only after construction,
// so one Classifier serves any number of goroutines.
package sim
