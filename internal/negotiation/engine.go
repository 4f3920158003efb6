// Package negotiation drives a peer connection through offer/answer
// negotiation with a remote peer over a signaling relay.
//
// Every input (relay messages, peer connection callbacks, data channel
// callbacks and API calls) is posted to one event queue and handled by a
// single consumer, so session state is never touched concurrently.
package negotiation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/thomastoledo/prust/internal/signaling"
	"github.com/thomastoledo/prust/internal/transport"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithErrorHandler receives every error reported while handling an event.
// The default logs at warn level.
func WithErrorHandler(fn func(error)) Option {
	return func(e *Engine) {
		if fn != nil {
			e.onError = fn
		}
	}
}

// WithObserver is called from the dispatch loop whenever the session
// snapshot changes. It must not block.
func WithObserver(fn func(Snapshot)) Option {
	return func(e *Engine) {
		e.observer = fn
	}
}

// WithTransport binds the data channel to t instead of a new Transport.
func WithTransport(t *transport.Transport) Option {
	return func(e *Engine) {
		if t != nil {
			e.transport = t
		}
	}
}

// Engine negotiates one session between two participants.
type Engine struct {
	pc        PeerConnection
	relay     Relay
	transport *transport.Transport
	logger    *slog.Logger
	onError   func(error)
	observer  func(Snapshot)

	queue *eventQueue

	// Owned by the dispatch loop.
	session Session
	buffer  CandidateBuffer
	wired   bool

	snapshot atomic.Pointer[Snapshot]
	closing  atomic.Bool
	done     chan struct{}
	doneOnce sync.Once
}

// New returns an idle engine. Call Run to start processing and Connect to
// join the relay.
func New(pc PeerConnection, relay Relay, opts ...Option) *Engine {
	e := &Engine{
		pc:        pc,
		relay:     relay,
		transport: transport.New(),
		logger:    slog.Default(),
		queue:     newEventQueue(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.onError == nil {
		e.onError = func(err error) {
			e.logger.Warn("negotiation error", "err", err)
		}
	}
	e.publish()
	return e
}

// Connect asks the relay to pair p.UserFrom with p.UserTo.
func (e *Engine) Connect(p signaling.Participants) error {
	if p.UserFrom == "" || p.UserTo == "" {
		return errors.New("connect: userFrom and userTo are required")
	}
	if p.UserFrom == p.UserTo {
		return errors.New("connect: userFrom and userTo must differ")
	}
	return e.post(connectEvent{participants: p})
}

// Close tears the session down. Pending events are discarded.
func (e *Engine) Close() error {
	if e.closing.Swap(true) {
		return nil
	}
	e.queue.push(closeEvent{})
	return nil
}

// Done is closed once the session has been torn down.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Transport returns the application side of the data channel.
func (e *Engine) Transport() *transport.Transport {
	return e.transport
}

// Snapshot returns the session as of the last handled event.
func (e *Engine) Snapshot() Snapshot {
	return *e.snapshot.Load()
}

// Run handles queued events until Close is processed or ctx is done. It
// must be called from exactly one goroutine.
func (e *Engine) Run(ctx context.Context) error {
	for {
		e.drain()
		if e.session.State == StateClosed {
			return nil
		}

		select {
		case <-ctx.Done():
			e.teardown()
			e.publish()
			return ctx.Err()
		case <-e.queue.ready():
		}
	}
}

func (e *Engine) post(ev event) error {
	if e.closing.Load() {
		return ErrClosed
	}
	e.queue.push(ev)
	return nil
}

// drain handles every queued event in order.
func (e *Engine) drain() {
	for {
		ev, ok := e.queue.pop()
		if !ok {
			return
		}
		e.handle(ev)
		e.publish()
	}
}

func (e *Engine) handle(ev event) {
	if e.session.State == StateClosed {
		e.logger.Debug("dropping event after close", "event", ev.name())
		return
	}
	if _, ok := ev.(closeEvent); !ok && e.closing.Load() {
		e.logger.Debug("dropping event queued before close", "event", ev.name())
		return
	}

	switch ev := ev.(type) {
	case connectEvent:
		e.handleConnect(ev.participants)
	case closeEvent:
		e.teardown()
	case relayEvent:
		e.handleRelay(ev.env)
	case negotiationNeededEvent:
		e.startNegotiation("local")
	case signalingStateEvent:
		e.handleSignalingState(ev.state)
	case localCandidateEvent:
		e.handleLocalCandidate(ev.candidate)
	case channelOpenEvent:
		e.session.ChannelOpen = true
		e.logger.Info("data channel open", "room", e.session.RoomID, "channel", e.session.ChannelID)
	case channelCloseEvent:
		e.session.ChannelOpen = false
		e.logger.Info("data channel closed", "room", e.session.RoomID)
	case channelMessageEvent:
		e.transport.Deliver(ev.data)
	}
}

func (e *Engine) handleConnect(p signaling.Participants) {
	if e.session.State != StateIdle {
		e.report(stateError("connect", "already connected as "+e.session.Participants.UserFrom))
		return
	}

	if !e.wired {
		e.wire()
	}

	if err := e.relay.Send(signaling.NewUser{Participants: p}); err != nil {
		e.report(wrapError("connect", err))
		return
	}

	e.session.Participants = p
	e.session.Role = RoleFor(p)
	e.session.State = StateAwaitingRoom
	e.logger = e.logger.With("user", p.UserFrom, "peer", p.UserTo)
	e.logger.Debug("joining relay", "role", e.session.Role)
}

// wire routes every callback into the event queue.
func (e *Engine) wire() {
	e.wired = true

	e.relay.OnMessage(func(env signaling.Envelope) {
		e.post(relayEvent{env: env})
	})
	e.pc.OnNegotiationNeeded(func() {
		e.post(negotiationNeededEvent{})
	})
	e.pc.OnSignalingStateChange(func(s SignalingState) {
		e.post(signalingStateEvent{state: s})
	})
	e.pc.OnICECandidate(func(c signaling.IceCandidate) {
		e.post(localCandidateEvent{candidate: c})
	})
}

func (e *Engine) handleRelay(env signaling.Envelope) {
	switch env := env.(type) {
	case signaling.JoinedRoom:
		if e.session.State != StateAwaitingRoom || !e.session.BindRoom(env.Room) {
			e.logger.Warn("unexpected joined_room", "room", env.Room, "state", e.session.State)
			return
		}
		e.session.State = StateReady
		e.logger.Info("joined room", "room", env.Room)

	case signaling.SignalToClient:
		switch sig := env.Signal.(type) {
		case signaling.UserHere:
			e.handleUserHere(sig.ChannelID)
		case signaling.IceCandidate:
			e.handleRemoteCandidate(sig)
		case signaling.SessionDescription:
			e.handleRemoteDescription(sig)
		}

	default:
		e.logger.Debug("ignoring relay message", "type", env.EnvelopeType())
	}
}

func (e *Engine) handleUserHere(id uint16) {
	if e.session.RoomID == "" {
		e.report(stateError("user here", "no room assigned"))
		return
	}

	if !e.session.SignalingChannelOpened {
		dc, err := e.pc.CreateDataChannel(e.session.RoomID, id)
		if err != nil {
			e.report(capabilityError("create data channel", err))
			return
		}
		dc.OnOpen(func() { e.post(channelOpenEvent{}) })
		dc.OnClose(func() { e.post(channelCloseEvent{}) })
		dc.OnMessage(func(data []byte) { e.post(channelMessageEvent{data: data}) })

		e.session.BindChannel(id, dc)
		e.transport.Bind(dc)
		e.logger.Debug("data channel created", "room", e.session.RoomID, "channel", id)
	} else if id != e.session.ChannelID {
		e.logger.Debug("ignoring channel id, channel already created", "channel", id, "current", e.session.ChannelID)
	}

	e.startNegotiation("remote")
}

// startNegotiation sends an offer unless a cycle is already running.
func (e *Engine) startNegotiation(trigger string) {
	if e.session.Negotiating {
		e.logger.Debug("negotiation already in progress", "trigger", trigger)
		return
	}
	if e.session.Role == RolePolite && !e.session.RemoteDescriptionSet {
		e.logger.Debug("waiting for initiator offer", "trigger", trigger)
		return
	}
	if e.session.State != StateReady && e.session.State != StateStable {
		e.logger.Debug("not ready to negotiate", "trigger", trigger, "state", e.session.State)
		return
	}

	prev := e.session.State
	e.session.Negotiating = true
	e.session.State = StateNegotiating

	offer, err := e.pc.CreateOffer()
	if err != nil {
		e.failNegotiation(prev, capabilityError("create offer", err))
		return
	}
	if err := e.pc.SetLocalDescription(offer); err != nil {
		e.failNegotiation(prev, capabilityError("set local offer", err))
		return
	}
	if err := e.relay.Send(signaling.SignalFromClient{Signal: offer}); err != nil {
		e.failNegotiation(prev, wrapError("send offer", err))
		return
	}
	e.logger.Debug("offer sent", "trigger", trigger)
}

func (e *Engine) handleRemoteDescription(d signaling.SessionDescription) {
	switch d.Type {
	case signaling.SDPTypeOffer:
		e.acceptRemoteOffer(d)

	case signaling.SDPTypeAnswer, signaling.SDPTypePranswer:
		if err := e.pc.SetRemoteDescription(d); err != nil {
			e.failNegotiation(e.stateAfterFailure(), capabilityError("set remote "+string(d.Type), err))
			return
		}
		e.remoteAccepted()
		e.logger.Debug("remote description accepted", "type", d.Type)

	case signaling.SDPTypeRollback:
		if err := e.pc.SetRemoteDescription(d); err != nil {
			e.report(capabilityError("set remote rollback", err))
		}
	}
}

func (e *Engine) acceptRemoteOffer(offer signaling.SessionDescription) {
	switch e.session.State {
	case StateReady, StateNegotiating, StateStable:
	default:
		e.report(stateError("remote offer", "received in state "+e.session.State.String()))
		return
	}

	collision := e.session.Negotiating || e.pc.SignalingState() != SignalingStateStable

	e.session.ignoreOffer = collision && e.session.Role == RoleInitiator
	if e.session.ignoreOffer {
		e.logger.Info("ignoring colliding offer")
		return
	}

	prev := e.stateAfterFailure()
	if collision {
		e.logger.Debug("rolling back local offer")
		if err := e.pc.SetLocalDescription(signaling.SessionDescription{Type: signaling.SDPTypeRollback}); err != nil {
			e.failNegotiation(prev, capabilityError("rollback", err))
			return
		}
	}

	e.session.Negotiating = true
	e.session.State = StateNegotiating

	if err := e.pc.SetRemoteDescription(offer); err != nil {
		e.failNegotiation(prev, capabilityError("set remote offer", err))
		return
	}
	e.remoteAccepted()

	answer, err := e.pc.CreateAnswer()
	if err != nil {
		e.failNegotiation(prev, capabilityError("create answer", err))
		return
	}
	if err := e.pc.SetLocalDescription(answer); err != nil {
		e.failNegotiation(prev, capabilityError("set local answer", err))
		return
	}
	if err := e.relay.Send(signaling.SignalFromClient{Signal: answer}); err != nil {
		e.failNegotiation(prev, wrapError("send answer", err))
		return
	}
	e.logger.Debug("answer sent")
}

// remoteAccepted flushes candidates that were waiting for a remote
// description.
func (e *Engine) remoteAccepted() {
	e.session.RemoteDescriptionSet = true
	if e.buffer.Len() == 0 {
		return
	}
	n := e.buffer.Len()
	if err := e.buffer.DrainInto(e.pc); err != nil {
		e.report(capabilityError("apply buffered candidates", err))
	}
	e.logger.Debug("applied buffered candidates", "count", n)
}

func (e *Engine) handleRemoteCandidate(c signaling.IceCandidate) {
	if !e.session.RemoteDescriptionSet {
		e.buffer.Push(c)
		e.logger.Debug("buffered remote candidate", "pending", e.buffer.Len())
		return
	}
	if err := e.pc.AddICECandidate(c); err != nil {
		if e.session.ignoreOffer {
			e.logger.Debug("candidate for ignored offer rejected", "err", err)
			return
		}
		e.report(capabilityError("add candidate", err))
	}
}

func (e *Engine) handleSignalingState(s SignalingState) {
	e.logger.Debug("signaling state changed", "state", s)
	if s != SignalingStateStable {
		return
	}
	// State events are queued, so this one may predate a later offer.
	if e.pc.SignalingState() != SignalingStateStable {
		return
	}

	e.session.Negotiating = false
	e.session.ignoreOffer = false
	if e.session.State == StateNegotiating {
		e.session.State = StateStable
	}
}

func (e *Engine) handleLocalCandidate(c signaling.IceCandidate) {
	if e.session.State == StateIdle {
		return
	}
	if err := e.relay.Send(signaling.SignalFromClient{Signal: c}); err != nil {
		e.report(wrapError("send candidate", err))
	}
}

// stateAfterFailure is where a failed cycle returns to.
func (e *Engine) stateAfterFailure() State {
	if e.session.State == StateNegotiating {
		if e.session.RemoteDescriptionSet {
			return StateStable
		}
		return StateReady
	}
	return e.session.State
}

func (e *Engine) failNegotiation(prev State, err error) {
	e.session.Negotiating = false
	e.session.State = prev
	e.report(err)
}

func (e *Engine) teardown() {
	if e.session.State == StateClosed {
		return
	}
	e.closing.Store(true)

	e.session.State = StateClosed
	e.session.Negotiating = false
	e.session.ignoreOffer = false
	e.session.ChannelOpen = false
	e.buffer.Reset()

	e.transport.Unbind()
	if e.session.PeerChannel != nil {
		if err := e.session.PeerChannel.Close(); err != nil {
			e.logger.Debug("closing data channel", "err", err)
		}
	}
	if err := e.pc.Close(); err != nil {
		e.logger.Debug("closing peer connection", "err", err)
	}

	e.logger.Debug("session closed")
	e.publish()
	e.doneOnce.Do(func() { close(e.done) })
}

func (e *Engine) report(err error) {
	e.onError(err)
}

func (e *Engine) publish() {
	snap := e.session.snapshot(e.buffer.Len())
	old := e.snapshot.Swap(&snap)
	if e.observer != nil && old != nil && *old != snap {
		e.observer(snap)
	}
}
