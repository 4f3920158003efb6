package negotiation

import (
	"errors"
	"fmt"
)

var (
	// ErrCapability means the peer connection rejected an operation.
	ErrCapability = errors.New("peer connection rejected operation")
	// ErrInvalidState means an event arrived that the session cannot accept
	// in its current state.
	ErrInvalidState = errors.New("invalid session state")
	// ErrClosed is returned once the engine has been torn down.
	ErrClosed = errors.New("engine closed")
)

// Error describes a failed transition. The event that caused it has been
// dropped and is not retried.
type Error struct {
	Op      string
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

func capabilityError(op string, err error) *Error {
	return &Error{Op: op, Err: fmt.Errorf("%w: %w", ErrCapability, err)}
}

func stateError(op string, details string) *Error {
	return &Error{Op: op, Err: ErrInvalidState, Details: details}
}
