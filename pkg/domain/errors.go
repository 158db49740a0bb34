package domain

import (
	"errors"
	"fmt"
)

// ErrUnknownLookup is returned when a named lookup table has not been registered.
var ErrUnknownLookup = errors.New("unknown lookup table")

// ErrAmbiguousKey is returned by upserting sinks when the key columns match more than one row.
var ErrAmbiguousKey = errors.New("key columns are not unique")

// ErrCapabilityMismatch is returned when a source declares a capability it does not implement.
var ErrCapabilityMismatch = errors.New("source does not implement its declared capability")

// ValueError reports a value that a transformation could not interpret.
type ValueError struct {
	Op    string // Operation that failed (e.g. "parse_int")
	Value any    // The offending value
	Err   error  // Underlying cause, may be nil
}

func (e *ValueError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: cannot interpret %#v: %v", e.Op, e.Value, e.Err)
	}
	return fmt.Sprintf("%s: cannot interpret %#v", e.Op, e.Value)
}

func (e *ValueError) Unwrap() error { return e.Err }

// NewValueError is a shorthand used by transformations.
func NewValueError(op string, value any, err error) *ValueError {
	return &ValueError{Op: op, Value: value, Err: err}
}

// StructureError reports an access pattern that conflicts with a nested value's kind.
type StructureError struct {
	Path   string
	Reason string
}

func (e *StructureError) Error() string {
	if e.Path == "" {
		return "structure: " + e.Reason
	}
	return fmt.Sprintf("structure at %s: %s", e.Path, e.Reason)
}

// SourceError wraps a failure while reading from a source.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// SinkError wraps a failure while appending to a sink.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s: %v", e.Sink, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// RecordError annotates a failure with the position of the source record that caused it.
type RecordError struct {
	Index any
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %v: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }
