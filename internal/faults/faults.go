// Package faults defines the error taxonomy shared across the updater:
// connection, schema, parse and precondition failures. Callers match with
// errors.As to decide between retry, degrade and abort.
package faults

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoSnapshot reports that no snapshot file exists at the requested path.
// It is an expected condition (first run, failed baseline download), not a fault.
var ErrNoSnapshot = errors.New("snapshot file absent")

// ConnectionError means a data source or publish target could not be reached.
// Retryable for publish, fatal-for-this-run for the source side.
type ConnectionError struct {
	Target string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot reach %s: %v", e.Target, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// SchemaError means an expected column is missing from a snapshot file.
type SchemaError struct {
	Want []string
	Have []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("none of columns [%s] present, have [%s]",
		strings.Join(e.Want, ", "), strings.Join(e.Have, ", "))
}

// ParseError means a timestamp or numeric field could not be parsed.
// Any ParseError fails the whole read or merge; there are no partial merges.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %s value %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// PreconditionError means a required input is missing: no descriptor, no local
// data after a failed baseline fetch, unknown instrument. Never retried.
type PreconditionError struct {
	Msg string
}

func (e *PreconditionError) Error() string { return e.Msg }

// Preconditionf builds a PreconditionError with a formatted message.
func Preconditionf(format string, args ...interface{}) *PreconditionError {
	return &PreconditionError{Msg: fmt.Sprintf(format, args...)}
}

// IsFatalData reports whether err indicates corrupt or structurally unusable
// data (schema or parse failure), which always aborts the run.
func IsFatalData(err error) bool {
	var se *SchemaError
	var pe *ParseError
	return errors.As(err, &se) || errors.As(err, &pe)
}
