package sim

// Event is one simulated event as seen by the classifier.
// Record is the event's opaque serialized form; routers persist it unchanged.
type Event struct {
	Index  int64  // position in the input stream
	ID     string // producer-assigned identifier, may be empty
	Track  Track
	Record []byte
}
