package sim

import (
	"errors"
	"fmt"
)

// Configuration error kinds. All are fatal and reported before any event is
// classified; match them with errors.Is.
var (
	ErrDuplicateDefault          = errors.New("more than one default stream (distance cut -1)")
	ErrLengthMismatch            = errors.New("parallel stream lists have mismatched lengths")
	ErrMissingRelevanceDistance  = errors.New("fractional dom limit requires relevance_distance")
	ErrNonPositiveOversizeFactor = errors.New("oversize factor must be positive")
	ErrInvalidDistanceCut        = errors.New("distance cut must be -1 or a finite non-negative number")
	ErrInvalidDOMLimit           = errors.New("dom limit must be a fraction in (0,1) or a non-negative integer count")
	ErrNoStreams                 = errors.New("no streams configured")
	ErrUnknownSelectionPolicy    = errors.New("unknown selection policy")
)

// ConfigError names the configuration field that failed validation.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErrorf(field string, kind error, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Err: fmt.Errorf("%w: "+format, append([]any{kind}, args...)...)}
}
