// Package webrtc adapts pion peer connections to the negotiation engine.
package webrtc

import (
	"fmt"
	"log/slog"

	"github.com/pion/transport/v3"
	pion "github.com/pion/webrtc/v4"

	"github.com/thomastoledo/prust/internal/config"
	"github.com/thomastoledo/prust/internal/negotiation"
	"github.com/thomastoledo/prust/internal/signaling"
)

// Option tunes how the peer connection is built.
type Option func(*options)

type options struct {
	net          transport.Net
	detectTunnel func() bool
}

// WithNet runs ICE over n instead of the host network.
func WithNet(n transport.Net) Option {
	return func(o *options) { o.net = n }
}

// PeerConnection adapts *pion.PeerConnection to negotiation.PeerConnection.
type PeerConnection struct {
	pc     *pion.PeerConnection
	logger *slog.Logger
}

var _ negotiation.PeerConnection = (*PeerConnection)(nil)

// NewPeerConnection builds a peer connection using the ICE servers in cfg.
// pion's own logs go to logger.
func NewPeerConnection(cfg *config.Config, logger *slog.Logger, opts ...Option) (*PeerConnection, error) {
	if logger == nil {
		logger = slog.Default()
	}
	o := options{detectTunnel: behindTunnel}
	for _, opt := range opts {
		opt(&o)
	}

	se := pion.SettingEngine{LoggerFactory: &LoggerFactory{Logger: logger}}
	if o.net != nil {
		se.SetNet(o.net)
	}
	api := pion.NewAPI(pion.WithSettingEngine(se))

	pc, err := api.NewPeerConnection(pion.Configuration{
		ICEServers:         ICEServers(cfg),
		ICETransportPolicy: transportPolicy(cfg, o.detectTunnel),
	})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}
	return &PeerConnection{pc: pc, logger: logger}, nil
}

// ICEServers lists the STUN and TURN servers configured in cfg.
func ICEServers(cfg *config.Config) []pion.ICEServer {
	var servers []pion.ICEServer
	if stun := cfg.GetSTUNServers(); stun != nil {
		servers = append(servers, pion.ICEServer{URLs: stun})
	}
	if turn := cfg.GetTURNServers(); turn != nil {
		username, password := cfg.GetTURNCredentials()
		servers = append(servers, pion.ICEServer{
			URLs:       turn,
			Username:   username,
			Credential: password,
		})
	}
	return servers
}

func transportPolicy(cfg *config.Config, detectTunnel func() bool) pion.ICETransportPolicy {
	if cfg.TURNServer == "" {
		return pion.ICETransportPolicyAll
	}
	if cfg.ForceRelay || (detectTunnel != nil && detectTunnel()) {
		return pion.ICETransportPolicyRelay
	}
	return pion.ICETransportPolicyAll
}

func (p *PeerConnection) CreateOffer() (signaling.SessionDescription, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return signaling.SessionDescription{}, err
	}
	return fromPionDescription(offer), nil
}

func (p *PeerConnection) CreateAnswer() (signaling.SessionDescription, error) {
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return signaling.SessionDescription{}, err
	}
	return fromPionDescription(answer), nil
}

// SetLocalDescription applies d. A rollback without a body rolls back the
// pending local offer.
func (p *PeerConnection) SetLocalDescription(d signaling.SessionDescription) error {
	desc, err := toPionDescription(d)
	if err != nil {
		return err
	}
	if desc.Type == pion.SDPTypeRollback && desc.SDP == "" {
		if pending := p.pc.PendingLocalDescription(); pending != nil {
			desc.SDP = pending.SDP
		}
	}
	return p.pc.SetLocalDescription(desc)
}

func (p *PeerConnection) SetRemoteDescription(d signaling.SessionDescription) error {
	desc, err := toPionDescription(d)
	if err != nil {
		return err
	}
	if desc.Type == pion.SDPTypeRollback && desc.SDP == "" {
		if pending := p.pc.PendingRemoteDescription(); pending != nil {
			desc.SDP = pending.SDP
		}
	}
	return p.pc.SetRemoteDescription(desc)
}

func (p *PeerConnection) AddICECandidate(c signaling.IceCandidate) error {
	return p.pc.AddICECandidate(toPionCandidate(c))
}

// CreateDataChannel opens an ordered, pre-negotiated channel. Both peers
// must use the same id.
func (p *PeerConnection) CreateDataChannel(label string, id uint16) (negotiation.DataChannel, error) {
	negotiated := true
	ordered := true
	dc, err := p.pc.CreateDataChannel(label, &pion.DataChannelInit{
		Ordered:    &ordered,
		Negotiated: &negotiated,
		ID:         &id,
	})
	if err != nil {
		return nil, err
	}
	return &DataChannel{dc: dc}, nil
}

func (p *PeerConnection) SignalingState() negotiation.SignalingState {
	return fromPionSignalingState(p.pc.SignalingState())
}

func (p *PeerConnection) OnICECandidate(fn func(signaling.IceCandidate)) {
	p.pc.OnICECandidate(func(c *pion.ICECandidate) {
		// nil marks the end of gathering.
		if c == nil {
			return
		}
		fn(fromPionCandidate(c.ToJSON()))
	})
}

func (p *PeerConnection) OnSignalingStateChange(fn func(negotiation.SignalingState)) {
	p.pc.OnSignalingStateChange(func(s pion.SignalingState) {
		fn(fromPionSignalingState(s))
	})
}

func (p *PeerConnection) OnNegotiationNeeded(fn func()) {
	p.pc.OnNegotiationNeeded(fn)
}

// OnFailed calls fn when ICE or DTLS gives up on the connection.
func (p *PeerConnection) OnFailed(fn func()) {
	p.pc.OnConnectionStateChange(func(s pion.PeerConnectionState) {
		p.logger.Debug("peer connection state changed", "state", s.String())
		if s == pion.PeerConnectionStateFailed {
			fn()
		}
	})
}

func (p *PeerConnection) Close() error {
	return p.pc.Close()
}

func fromPionDescription(d pion.SessionDescription) signaling.SessionDescription {
	var typ signaling.SDPType
	switch d.Type {
	case pion.SDPTypeOffer:
		typ = signaling.SDPTypeOffer
	case pion.SDPTypeAnswer:
		typ = signaling.SDPTypeAnswer
	case pion.SDPTypePranswer:
		typ = signaling.SDPTypePranswer
	case pion.SDPTypeRollback:
		typ = signaling.SDPTypeRollback
	}
	return signaling.SessionDescription{Type: typ, SDP: d.SDP}
}

func toPionDescription(d signaling.SessionDescription) (pion.SessionDescription, error) {
	var typ pion.SDPType
	switch d.Type {
	case signaling.SDPTypeOffer:
		typ = pion.SDPTypeOffer
	case signaling.SDPTypeAnswer:
		typ = pion.SDPTypeAnswer
	case signaling.SDPTypePranswer:
		typ = pion.SDPTypePranswer
	case signaling.SDPTypeRollback:
		typ = pion.SDPTypeRollback
	default:
		return pion.SessionDescription{}, fmt.Errorf("unsupported sdp type %q", d.Type)
	}
	return pion.SessionDescription{Type: typ, SDP: d.SDP}, nil
}

func fromPionCandidate(c pion.ICECandidateInit) signaling.IceCandidate {
	out := signaling.IceCandidate{Candidate: c.Candidate}
	if c.SDPMid != nil {
		out.SDPMid = *c.SDPMid
	}
	if c.SDPMLineIndex != nil {
		out.SDPMLineIndex = *c.SDPMLineIndex
	}
	return out
}

func toPionCandidate(c signaling.IceCandidate) pion.ICECandidateInit {
	index := c.SDPMLineIndex
	init := pion.ICECandidateInit{
		Candidate:     c.Candidate,
		SDPMLineIndex: &index,
	}
	if c.SDPMid != "" {
		mid := c.SDPMid
		init.SDPMid = &mid
	}
	return init
}

func fromPionSignalingState(s pion.SignalingState) negotiation.SignalingState {
	switch s {
	case pion.SignalingStateStable:
		return negotiation.SignalingStateStable
	case pion.SignalingStateHaveLocalOffer:
		return negotiation.SignalingStateHaveLocalOffer
	case pion.SignalingStateHaveRemoteOffer:
		return negotiation.SignalingStateHaveRemoteOffer
	case pion.SignalingStateHaveLocalPranswer:
		return negotiation.SignalingStateHaveLocalPranswer
	case pion.SignalingStateHaveRemotePranswer:
		return negotiation.SignalingStateHaveRemotePranswer
	case pion.SignalingStateClosed:
		return negotiation.SignalingStateClosed
	}
	return 0
}
