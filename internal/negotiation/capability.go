package negotiation

import (
	"github.com/thomastoledo/prust/internal/signaling"
	"github.com/thomastoledo/prust/internal/transport"
)

// SignalingState mirrors the offer/answer state of the peer connection.
type SignalingState int

const (
	SignalingStateStable SignalingState = iota + 1
	SignalingStateHaveLocalOffer
	SignalingStateHaveRemoteOffer
	SignalingStateHaveLocalPranswer
	SignalingStateHaveRemotePranswer
	SignalingStateClosed
)

func (s SignalingState) String() string {
	switch s {
	case SignalingStateStable:
		return "stable"
	case SignalingStateHaveLocalOffer:
		return "have-local-offer"
	case SignalingStateHaveRemoteOffer:
		return "have-remote-offer"
	case SignalingStateHaveLocalPranswer:
		return "have-local-pranswer"
	case SignalingStateHaveRemotePranswer:
		return "have-remote-pranswer"
	case SignalingStateClosed:
		return "closed"
	}
	return "unknown"
}

// PeerConnection is the peer connection primitive the engine drives. The
// callbacks may fire on any goroutine.
type PeerConnection interface {
	CreateOffer() (signaling.SessionDescription, error)
	CreateAnswer() (signaling.SessionDescription, error)
	SetLocalDescription(d signaling.SessionDescription) error
	SetRemoteDescription(d signaling.SessionDescription) error
	AddICECandidate(c signaling.IceCandidate) error

	// CreateDataChannel opens a pre-negotiated channel with a fixed id.
	CreateDataChannel(label string, id uint16) (DataChannel, error)

	SignalingState() SignalingState

	OnICECandidate(fn func(signaling.IceCandidate))
	OnSignalingStateChange(fn func(SignalingState))
	OnNegotiationNeeded(fn func())

	Close() error
}

// DataChannel is a handle to the application data channel.
type DataChannel interface {
	transport.Channel

	OnOpen(fn func())
	OnClose(fn func())
	OnMessage(fn func(data []byte))
	Close() error
}

// Relay sends envelopes to the signaling relay and reports inbound ones.
type Relay interface {
	Send(env signaling.Envelope) error
	OnMessage(fn func(signaling.Envelope))
}

var _ Relay = (*signaling.RelayClient)(nil)
