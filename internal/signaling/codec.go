package signaling

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Field names of the two tagged unions on the wire.
const (
	envelopeTag     = "type"
	envelopePayload = "content"
	signalTag       = "signalType"
	signalPayload   = "message"
)

var (
	envelopeTypes = map[string]bool{
		TypeNewUser:          true,
		TypeJoinedRoom:       true,
		TypeSignalFromClient: true,
		TypeSignalToClient:   true,
	}
	signalTypes = map[string]bool{
		SignalTypeUserHere:     true,
		SignalTypeICECandidate: true,
		SignalTypeSDP:          true,
	}
)

type wireEnvelope struct {
	Type    string `json:"type"`
	Content any    `json:"content"`
}

type wireSignal struct {
	SignalType string `json:"signalType"`
	Message    any    `json:"message"`
}

type wireRoom struct {
	Room string `json:"room"`
}

// Encode renders env as one JSON text message.
func Encode(env Envelope) ([]byte, error) {
	var content any
	switch e := env.(type) {
	case nil:
		return nil, errors.New("encode: nil envelope")
	case NewUser:
		content = e.Participants
	case JoinedRoom:
		content = wireRoom{Room: e.Room}
	case SignalFromClient:
		sig, err := encodeSignal(e.Signal)
		if err != nil {
			return nil, err
		}
		content = sig
	case SignalToClient:
		sig, err := encodeSignal(e.Signal)
		if err != nil {
			return nil, err
		}
		content = sig
	default:
		return nil, fmt.Errorf("encode: unsupported envelope %T", env)
	}
	return marshal(wireEnvelope{Type: env.EnvelopeType(), Content: content})
}

// marshal is json.Marshal without HTML escaping, so SDP text carrying <, >
// or & is written as received.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func encodeSignal(sig Signal) (wireSignal, error) {
	switch s := sig.(type) {
	case nil:
		return wireSignal{}, errors.New("encode: nil signal")
	case UserHere:
		return wireSignal{SignalType: SignalTypeUserHere, Message: s.ChannelID}, nil
	case IceCandidate:
		return wireSignal{SignalType: SignalTypeICECandidate, Message: s}, nil
	case SessionDescription:
		if !s.Type.Valid() {
			return wireSignal{}, fmt.Errorf("encode: invalid sdp type %q", s.Type)
		}
		return wireSignal{SignalType: SignalTypeSDP, Message: s}, nil
	default:
		return wireSignal{}, fmt.Errorf("encode: unsupported signal %T", sig)
	}
}

// Decode parses one text message. Failures are *DecodeError values:
// UnknownType when a discriminator is missing or unrecognised, Malformed
// for everything else.
func Decode(data []byte) (Envelope, error) {
	typ, content, derr := splitTagged(data, envelopeTag, envelopePayload, envelopeTypes)
	if derr != nil {
		return nil, derr
	}

	switch typ {
	case TypeNewUser:
		var c struct {
			UserFrom *string `json:"userFrom"`
			UserTo   *string `json:"userTo"`
		}
		if err := decodeStrict(content, &c); err != nil {
			return nil, malformed(typ, err)
		}
		if c.UserFrom == nil || c.UserTo == nil {
			return nil, malformed(typ, errors.New("userFrom and userTo are required"))
		}
		return NewUser{Participants: Participants{UserFrom: *c.UserFrom, UserTo: *c.UserTo}}, nil

	case TypeJoinedRoom:
		var c struct {
			Room *string `json:"room"`
		}
		if err := decodeStrict(content, &c); err != nil {
			return nil, malformed(typ, err)
		}
		if c.Room == nil {
			return nil, malformed(typ, errors.New("room is required"))
		}
		return JoinedRoom{Room: *c.Room}, nil

	case TypeSignalFromClient:
		sig, err := decodeSignal(content)
		if err != nil {
			return nil, err
		}
		return SignalFromClient{Signal: sig}, nil

	case TypeSignalToClient:
		sig, err := decodeSignal(content)
		if err != nil {
			return nil, err
		}
		return SignalToClient{Signal: sig}, nil
	}

	return nil, unknownType(typ)
}

func decodeSignal(data []byte) (Signal, error) {
	typ, message, derr := splitTagged(data, signalTag, signalPayload, signalTypes)
	if derr != nil {
		return nil, derr
	}

	switch typ {
	case SignalTypeUserHere:
		var id uint16
		if err := decodeStrict(message, &id); err != nil {
			return nil, malformed(typ, fmt.Errorf("channel id: %w", err))
		}
		return UserHere{ChannelID: id}, nil

	case SignalTypeICECandidate:
		var c struct {
			Candidate     *string `json:"candidate"`
			SDPMid        string  `json:"sdpMid"`
			SDPMLineIndex uint16  `json:"sdpMLineIndex"`
		}
		if err := decodeStrict(message, &c); err != nil {
			return nil, malformed(typ, err)
		}
		if c.Candidate == nil {
			return nil, malformed(typ, errors.New("candidate is required"))
		}
		return IceCandidate{Candidate: *c.Candidate, SDPMid: c.SDPMid, SDPMLineIndex: c.SDPMLineIndex}, nil

	case SignalTypeSDP:
		var d struct {
			Type *SDPType `json:"type"`
			SDP  string   `json:"sdp"`
		}
		if err := decodeStrict(message, &d); err != nil {
			return nil, malformed(typ, err)
		}
		if d.Type == nil || !d.Type.Valid() {
			return nil, malformed(typ, errors.New("sdp type must be offer, answer, pranswer or rollback"))
		}
		return SessionDescription{Type: *d.Type, SDP: d.SDP}, nil
	}

	return nil, unknownType(typ)
}

// splitTagged reads a JSON object of the form {tag: string, payload: any}
// whose tag is one of known. Any other key makes the object malformed.
func splitTagged(data []byte, tag, payload string, known map[string]bool) (string, json.RawMessage, *DecodeError) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", nil, malformed("", err)
	}
	if fields == nil {
		return "", nil, malformed("", errors.New("expected an object"))
	}

	rawTag, ok := fields[tag]
	if !ok {
		return "", nil, unknownType("")
	}
	var typ string
	if err := json.Unmarshal(rawTag, &typ); err != nil {
		return "", nil, unknownType(string(rawTag))
	}
	if !known[typ] {
		return "", nil, unknownType(typ)
	}

	for key := range fields {
		if key != tag && key != payload {
			return typ, nil, malformed(typ, fmt.Errorf("unexpected field %q", key))
		}
	}

	body, ok := fields[payload]
	if !ok || bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return typ, nil, malformed(typ, fmt.Errorf("missing %q", payload))
	}
	return typ, body, nil
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
