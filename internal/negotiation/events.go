package negotiation

import "github.com/thomastoledo/prust/internal/signaling"

// event is anything the dispatch loop reacts to.
type event interface {
	name() string
}

type (
	connectEvent struct {
		participants signaling.Participants
	}
	closeEvent struct{}

	relayEvent struct {
		env signaling.Envelope
	}

	negotiationNeededEvent struct{}
	signalingStateEvent    struct{ state SignalingState }
	localCandidateEvent    struct{ candidate signaling.IceCandidate }
	channelOpenEvent       struct{}
	channelCloseEvent      struct{}
	channelMessageEvent    struct{ data []byte }
)

func (connectEvent) name() string           { return "connect" }
func (closeEvent) name() string             { return "close" }
func (relayEvent) name() string             { return "relay-message" }
func (negotiationNeededEvent) name() string { return "negotiation-needed" }
func (signalingStateEvent) name() string    { return "signaling-state" }
func (localCandidateEvent) name() string    { return "local-candidate" }
func (channelOpenEvent) name() string       { return "channel-open" }
func (channelCloseEvent) name() string      { return "channel-close" }
func (channelMessageEvent) name() string    { return "channel-message" }
