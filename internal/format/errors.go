package format

import (
	"errors"
	"fmt"
)

// Sentinel errors for the parsing taxonomy. Concrete error types wrap
// these so callers can classify failures with errors.Is.
var (
	// ErrUnrecognizedFormat reports a file whose extension and content
	// both fail to match any known dialect.
	ErrUnrecognizedFormat = errors.New("unrecognized format")

	// ErrMalformedLine reports a data line whose field count or content
	// violates the expected shape for its detected dialect.
	ErrMalformedLine = errors.New("malformed line")

	// ErrDuplicateID reports a GFF3 ID collision. Two independent
	// features must not share identity.
	ErrDuplicateID = errors.New("duplicate identifier")
)

// UnrecognizedError carries the path and reason for a failed taste.
type UnrecognizedError struct {
	Path   string
	Reason string
}

func (e *UnrecognizedError) Error() string {
	return fmt.Sprintf("unrecognized format for %s: %s", e.Path, e.Reason)
}

func (e *UnrecognizedError) Unwrap() error {
	return ErrUnrecognizedFormat
}

// LineError reports a fatal decoding failure with the offending line
// number and raw text.
type LineError struct {
	Line    int
	Raw     string
	Message string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("malformed line %d: %s: %q", e.Line, e.Message, e.Raw)
}

func (e *LineError) Unwrap() error {
	return ErrMalformedLine
}

// Malformed builds a LineError for line number n.
func Malformed(n int, raw, format string, args ...interface{}) *LineError {
	return &LineError{Line: n, Raw: raw, Message: fmt.Sprintf(format, args...)}
}
