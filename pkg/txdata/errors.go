// Package txdata error types.
//
// Only two kinds of failure escape the verification API as errors: bytes
// that do not decode as a transaction, and transaction data whose shape does
// not line up with the input being checked. Everything else a spend can get
// wrong is reported as an empty result, not an error.
package txdata

import "fmt"

// DecodeError is returned when raw bytes are not a well-formed transaction.
type DecodeError struct {
	Message string // Human-readable error message
	Cause   error  // Underlying decode error (if any)
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("decode error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("decode error: %s", e.Message)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// ShapeError is returned when the spending transaction, the input index and
// the supplied previous outputs are structurally inconsistent.
//
// Common causes: input index out of range, prevout count not matching the
// input count, a missing witness for a segwit spend, too few multisig stack
// items, a taproot spend without every prevout.
type ShapeError struct {
	InputIndex int    // Index of the input under test
	Message    string // Human-readable error message
	Cause      error  // Underlying error (if any)
}

func (e *ShapeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("shape error at input %d: %s: %v", e.InputIndex, e.Message, e.Cause)
	}
	return fmt.Sprintf("shape error at input %d: %s", e.InputIndex, e.Message)
}

func (e *ShapeError) Unwrap() error {
	return e.Cause
}

// ShapeErrorf builds a ShapeError for input idx with a formatted message.
func ShapeErrorf(idx int, format string, args ...any) *ShapeError {
	return &ShapeError{InputIndex: idx, Message: fmt.Sprintf(format, args...)}
}
