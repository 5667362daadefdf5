package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every classification decision.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// Enabled reports whether decisions should be recorded.
func (c TraceConfig) Enabled() bool { return c.Level == TraceLevelDecisions }

// ClassificationTrace collects decision records during a classification run.
type ClassificationTrace struct {
	Config    TraceConfig
	Decisions []DecisionRecord
}

// NewClassificationTrace creates a ClassificationTrace ready for recording.
func NewClassificationTrace(config TraceConfig) *ClassificationTrace {
	return &ClassificationTrace{
		Config:    config,
		Decisions: make([]DecisionRecord, 0),
	}
}

// RecordDecision appends a classification decision record.
// No-op when tracing is disabled.
func (ct *ClassificationTrace) RecordDecision(record DecisionRecord) {
	if !ct.Config.Enabled() {
		return
	}
	ct.Decisions = append(ct.Decisions, record)
}
