package chat

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Frame types carried over the data channel.
const (
	FrameText = "text"
)

// Frame is the envelope of every data channel message.
type Frame struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// TextPayload is one chat message.
type TextPayload struct {
	Content string `msgpack:"content"`
	// SentAt is the sender's clock in Unix milliseconds.
	SentAt int64 `msgpack:"sentAt"`
}

// DecodePayload decodes the frame payload into v
func (f Frame) DecodePayload(v any) error {
	return msgpack.Unmarshal(f.Payload, v)
}

// NewFrame creates a new Frame with the given type and payload
func NewFrame(t string, payload any) (Frame, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: t, Payload: b}, nil
}

// EncodeFrame marshals a frame of type t around payload.
func EncodeFrame(t string, payload any) ([]byte, error) {
	f, err := NewFrame(t, payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", t, err)
	}
	return msgpack.Marshal(f)
}

// DecodeFrame unmarshals one data channel message.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if f.Type == "" {
		return Frame{}, fmt.Errorf("decode frame: missing type")
	}
	return f, nil
}
