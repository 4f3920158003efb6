package signaling

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownType = errors.New("unknown message type")
	ErrMalformed   = errors.New("malformed message")
	ErrSend        = errors.New("send failed")
	ErrClosed      = errors.New("channel closed")
)

// DecodeErrorKind classifies a decoding failure.
type DecodeErrorKind int

const (
	// UnknownType means the type or signalType discriminator is missing or
	// not one this codec knows.
	UnknownType DecodeErrorKind = iota + 1
	// Malformed means the text is not a structurally valid envelope.
	Malformed
)

func (k DecodeErrorKind) String() string {
	switch k {
	case UnknownType:
		return "unknown type"
	case Malformed:
		return "malformed"
	}
	return fmt.Sprintf("DecodeErrorKind(%d)", int(k))
}

// DecodeError is returned by Decode. It matches ErrUnknownType or
// ErrMalformed with errors.Is, depending on Kind.
type DecodeError struct {
	Kind DecodeErrorKind
	// Type is the discriminator that was being decoded, if any was read.
	Type string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("decode %s: %s: %v", e.Type, e.Kind, e.Err)
	}
	return fmt.Sprintf("decode: %s: %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	switch target {
	case ErrUnknownType:
		return e.Kind == UnknownType
	case ErrMalformed:
		return e.Kind == Malformed
	}
	return false
}

func unknownType(typ string) *DecodeError {
	return &DecodeError{Kind: UnknownType, Type: typ, Err: fmt.Errorf("%q", typ)}
}

func malformed(typ string, err error) *DecodeError {
	return &DecodeError{Kind: Malformed, Type: typ, Err: err}
}
