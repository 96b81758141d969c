package protocol

import (
	"errors"
	"fmt"
)

// Domain-specific errors for the wire protocol.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrValidation is returned when a command argument fails validation.
	// The command is never serialized or written.
	ErrValidation = errors.New("protocol: invalid command argument")

	// ErrMissingField is the decode failure cause for a record missing a
	// required field.
	ErrMissingField = errors.New("protocol: missing required field")

	// ErrUnknownAction is the decode failure cause for an envelope whose
	// action type is not part of the protocol.
	ErrUnknownAction = errors.New("protocol: unknown action type")
)

// DecodeError reports a stdout record that could not be decoded.
//
// It carries the raw record so the failure is diagnosable from the error
// event alone. DecodeError is recoverable by design: the pipeline reports it
// and continues with the next record.
type DecodeError struct {
	// Raw is the offending record, verbatim.
	Raw string

	// Err is the underlying cause (JSON syntax error, ErrMissingField, ...).
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("protocol: decoding record %q: %v", e.Raw, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
