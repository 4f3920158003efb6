package negotiation

import (
	"errors"
	"fmt"
	"sync"

	"github.com/thomastoledo/prust/internal/signaling"
)

// fakePeerConnection records every call and follows the offer/answer state
// machine closely enough for the engine to be driven through it.
type fakePeerConnection struct {
	calls []string
	state SignalingState

	createOfferErr  error
	createAnswerErr error
	setRemoteErr    error
	addCandidateErr error

	onCandidate func(signaling.IceCandidate)
	onState     func(SignalingState)
	onNeeded    func()

	channels []*fakeDataChannel
	closed   bool
	offers   int
}

func newFakePeerConnection() *fakePeerConnection {
	return &fakePeerConnection{state: SignalingStateStable}
}

var _ PeerConnection = (*fakePeerConnection)(nil)

func (pc *fakePeerConnection) CreateOffer() (signaling.SessionDescription, error) {
	pc.calls = append(pc.calls, "create-offer")
	if pc.createOfferErr != nil {
		return signaling.SessionDescription{}, pc.createOfferErr
	}
	pc.offers++
	return signaling.SessionDescription{Type: signaling.SDPTypeOffer, SDP: fmt.Sprintf("offer-%d", pc.offers)}, nil
}

func (pc *fakePeerConnection) CreateAnswer() (signaling.SessionDescription, error) {
	pc.calls = append(pc.calls, "create-answer")
	if pc.createAnswerErr != nil {
		return signaling.SessionDescription{}, pc.createAnswerErr
	}
	return signaling.SessionDescription{Type: signaling.SDPTypeAnswer, SDP: "answer"}, nil
}

func (pc *fakePeerConnection) SetLocalDescription(d signaling.SessionDescription) error {
	pc.calls = append(pc.calls, "set-local:"+string(d.Type))
	switch d.Type {
	case signaling.SDPTypeOffer:
		pc.state = SignalingStateHaveLocalOffer
	case signaling.SDPTypeAnswer, signaling.SDPTypeRollback:
		pc.state = SignalingStateStable
	}
	return nil
}

func (pc *fakePeerConnection) SetRemoteDescription(d signaling.SessionDescription) error {
	pc.calls = append(pc.calls, "set-remote:"+string(d.Type))
	if pc.setRemoteErr != nil {
		return pc.setRemoteErr
	}
	switch d.Type {
	case signaling.SDPTypeOffer:
		if pc.state != SignalingStateStable {
			return errors.New("offer in wrong state")
		}
		pc.state = SignalingStateHaveRemoteOffer
	case signaling.SDPTypeAnswer:
		if pc.state != SignalingStateHaveLocalOffer {
			return errors.New("answer in wrong state")
		}
		pc.state = SignalingStateStable
	case signaling.SDPTypeRollback:
		pc.state = SignalingStateStable
	}
	return nil
}

func (pc *fakePeerConnection) AddICECandidate(c signaling.IceCandidate) error {
	pc.calls = append(pc.calls, "add-candidate:"+c.Candidate)
	return pc.addCandidateErr
}

func (pc *fakePeerConnection) CreateDataChannel(label string, id uint16) (DataChannel, error) {
	pc.calls = append(pc.calls, fmt.Sprintf("create-channel:%s:%d", label, id))
	dc := &fakeDataChannel{label: label, id: id, open: true}
	pc.channels = append(pc.channels, dc)
	return dc, nil
}

func (pc *fakePeerConnection) SignalingState() SignalingState { return pc.state }

func (pc *fakePeerConnection) OnICECandidate(fn func(signaling.IceCandidate)) { pc.onCandidate = fn }
func (pc *fakePeerConnection) OnSignalingStateChange(fn func(SignalingState)) { pc.onState = fn }
func (pc *fakePeerConnection) OnNegotiationNeeded(fn func())                  { pc.onNeeded = fn }

func (pc *fakePeerConnection) Close() error {
	pc.closed = true
	pc.state = SignalingStateClosed
	return nil
}

// count returns how many recorded calls equal name.
func (pc *fakePeerConnection) count(name string) int {
	n := 0
	for _, c := range pc.calls {
		if c == name {
			n++
		}
	}
	return n
}

type fakeDataChannel struct {
	label string
	id    uint16
	open  bool

	sent    [][]byte
	closed  bool
	onOpen  func()
	onClose func()
	onMsg   func([]byte)
}

func (dc *fakeDataChannel) Send(data []byte) error {
	dc.sent = append(dc.sent, data)
	return nil
}

func (dc *fakeDataChannel) IsOpen() bool              { return dc.open && !dc.closed }
func (dc *fakeDataChannel) OnOpen(fn func())          { dc.onOpen = fn }
func (dc *fakeDataChannel) OnClose(fn func())         { dc.onClose = fn }
func (dc *fakeDataChannel) OnMessage(fn func([]byte)) { dc.onMsg = fn }

func (dc *fakeDataChannel) Close() error {
	dc.closed = true
	return nil
}

type fakeRelay struct {
	mu       sync.Mutex
	sent     []signaling.Envelope
	handlers []func(signaling.Envelope)
	sendErr  error
}

var _ Relay = (*fakeRelay)(nil)

func (r *fakeRelay) Send(env signaling.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sendErr != nil {
		return r.sendErr
	}
	r.sent = append(r.sent, env)
	return nil
}

func (r *fakeRelay) OnMessage(fn func(signaling.Envelope)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, fn)
}

func (r *fakeRelay) deliver(env signaling.Envelope) {
	r.mu.Lock()
	handlers := append([]func(signaling.Envelope){}, r.handlers...)
	r.mu.Unlock()
	for _, fn := range handlers {
		fn(env)
	}
}

func (r *fakeRelay) signal(sig signaling.Signal) {
	r.deliver(signaling.SignalToClient{Signal: sig})
}

// sentDescriptions returns the session descriptions sent so far.
func (r *fakeRelay) sentDescriptions() []signaling.SessionDescription {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []signaling.SessionDescription
	for _, env := range r.sent {
		if from, ok := env.(signaling.SignalFromClient); ok {
			if d, ok := from.Signal.(signaling.SessionDescription); ok {
				out = append(out, d)
			}
		}
	}
	return out
}

func (r *fakeRelay) offersSent() int {
	n := 0
	for _, d := range r.sentDescriptions() {
		if d.Type == signaling.SDPTypeOffer {
			n++
		}
	}
	return n
}
