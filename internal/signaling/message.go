package signaling

// Envelope type discriminators carried in the "type" field.
const (
	TypeNewUser          = "newUser"
	TypeJoinedRoom       = "joined_room"
	TypeSignalFromClient = "signal_message_from_client"
	TypeSignalToClient   = "signal_message_to_client"
)

// Signal type discriminators carried in the "signalType" field.
const (
	SignalTypeUserHere     = "userHere"
	SignalTypeICECandidate = "ice_candidate"
	SignalTypeSDP          = "SDP"
)

// Envelope is one message exchanged with the relay. The concrete types are
// NewUser, JoinedRoom, SignalFromClient and SignalToClient.
type Envelope interface {
	EnvelopeType() string
}

// Signal is the payload of SignalFromClient and SignalToClient. The concrete
// types are UserHere, IceCandidate and SessionDescription.
type Signal interface {
	SignalType() string
}

// Participants identifies both ends of a session. It is fixed at join time.
type Participants struct {
	UserFrom string `json:"userFrom"`
	UserTo   string `json:"userTo"`
}

// Reverse returns the pair as seen from the other participant.
func (p Participants) Reverse() Participants {
	return Participants{UserFrom: p.UserTo, UserTo: p.UserFrom}
}

// NewUser asks the relay to place the sender in a room with its peer.
type NewUser struct {
	Participants Participants
}

// JoinedRoom is the relay's acknowledgement carrying the assigned room id.
type JoinedRoom struct {
	Room string
}

// SignalFromClient carries a signal from this client to the relay.
type SignalFromClient struct {
	Signal Signal
}

// SignalToClient carries a peer's signal re-broadcast by the relay.
type SignalToClient struct {
	Signal Signal
}

func (NewUser) EnvelopeType() string          { return TypeNewUser }
func (JoinedRoom) EnvelopeType() string       { return TypeJoinedRoom }
func (SignalFromClient) EnvelopeType() string { return TypeSignalFromClient }
func (SignalToClient) EnvelopeType() string   { return TypeSignalToClient }

// UserHere announces that the peer is present, with the id of the
// pre-negotiated data channel both sides must open.
type UserHere struct {
	ChannelID uint16
}

// IceCandidate is one network path the sending peer may be reachable on.
type IceCandidate struct {
	Candidate     string `json:"candidate"`
	SDPMid        string `json:"sdpMid"`
	SDPMLineIndex uint16 `json:"sdpMLineIndex"`
}

// SDPType is the kind of a session description.
type SDPType string

const (
	SDPTypeOffer    SDPType = "offer"
	SDPTypeAnswer   SDPType = "answer"
	SDPTypePranswer SDPType = "pranswer"
	SDPTypeRollback SDPType = "rollback"
)

// Valid reports whether t is one of the four known description kinds.
func (t SDPType) Valid() bool {
	switch t {
	case SDPTypeOffer, SDPTypeAnswer, SDPTypePranswer, SDPTypeRollback:
		return true
	}
	return false
}

// SessionDescription is an offer, answer, provisional answer or rollback.
type SessionDescription struct {
	Type SDPType `json:"type"`
	SDP  string  `json:"sdp"`
}

func (UserHere) SignalType() string           { return SignalTypeUserHere }
func (IceCandidate) SignalType() string       { return SignalTypeICECandidate }
func (SessionDescription) SignalType() string { return SignalTypeSDP }
