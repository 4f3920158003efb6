package negotiation

import "github.com/thomastoledo/prust/internal/signaling"

// State is the position of a session in the negotiation lifecycle.
type State int

const (
	StateIdle State = iota
	StateAwaitingRoom
	StateReady
	StateNegotiating
	StateStable
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingRoom:
		return "awaiting-room"
	case StateReady:
		return "ready"
	case StateNegotiating:
		return "negotiating"
	case StateStable:
		return "stable"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Role decides which peer yields when both offer at once.
type Role int

const (
	RoleUnknown Role = iota
	// RoleInitiator sends the first offer and ignores colliding offers.
	RoleInitiator
	// RolePolite waits for the first offer and rolls back on collision.
	RolePolite
)

func (r Role) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RolePolite:
		return "polite"
	}
	return "unknown"
}

// RoleFor returns the role of p.UserFrom. The lower id initiates.
func RoleFor(p signaling.Participants) Role {
	if p.UserFrom < p.UserTo {
		return RoleInitiator
	}
	return RolePolite
}

// Session is the state of one negotiation attempt. It is owned by the
// engine's dispatch loop and never shared.
type Session struct {
	State        State
	Participants signaling.Participants
	Role         Role

	RoomID string

	// Negotiating is the glare guard. It is set when an offer/answer cycle
	// starts and cleared once the peer connection is stable again.
	Negotiating bool

	SignalingChannelOpened bool
	PeerChannel            DataChannel
	ChannelID              uint16
	ChannelOpen            bool

	RemoteDescriptionSet bool
	ignoreOffer          bool
}

// BindRoom records the room assigned by the relay. It succeeds once.
func (s *Session) BindRoom(room string) bool {
	if s.RoomID != "" {
		return false
	}
	s.RoomID = room
	return true
}

// BindChannel records the pre-negotiated data channel. It succeeds once.
func (s *Session) BindChannel(id uint16, ch DataChannel) bool {
	if s.SignalingChannelOpened {
		return false
	}
	s.PeerChannel = ch
	s.ChannelID = id
	s.SignalingChannelOpened = true
	return true
}

// Snapshot is a read-only copy of a Session.
type Snapshot struct {
	State                  State
	Participants           signaling.Participants
	Role                   Role
	RoomID                 string
	Negotiating            bool
	SignalingChannelOpened bool
	ChannelID              uint16
	ChannelOpen            bool
	RemoteDescriptionSet   bool
	BufferedCandidates     int
}

func (s *Session) snapshot(buffered int) Snapshot {
	return Snapshot{
		State:                  s.State,
		Participants:           s.Participants,
		Role:                   s.Role,
		RoomID:                 s.RoomID,
		Negotiating:            s.Negotiating,
		SignalingChannelOpened: s.SignalingChannelOpened,
		ChannelID:              s.ChannelID,
		ChannelOpen:            s.ChannelOpen,
		RemoteDescriptionSet:   s.RemoteDescriptionSet,
		BufferedCandidates:     buffered,
	}
}
