package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/thomastoledo/prust/internal/chat"
	"github.com/thomastoledo/prust/internal/config"
	"github.com/thomastoledo/prust/internal/negotiation"
	"github.com/thomastoledo/prust/internal/signaling"
	"github.com/thomastoledo/prust/internal/webrtc"
)

const closeWait = 2 * time.Second

// Connection bundles everything one chat session needs: the relay link,
// the peer connection, the negotiation engine and the chat on top.
type Connection struct {
	Config  *config.Config
	Channel signaling.MessageChannel
	Relay   *signaling.RelayClient
	Peer    *webrtc.PeerConnection
	Engine  *negotiation.Engine
	Chat    *chat.Chat

	logger *slog.Logger

	mu       sync.Mutex
	onChange func()

	opened     chan struct{}
	openedOnce sync.Once

	relayErr error
}

func LoadConfig(opts config.Options) (*config.Config, error) {
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// NewConnection dials the relay and builds the session on top of it.
func NewConnection(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...webrtc.Option) (*Connection, error) {
	ch, err := signaling.Dial(ctx, cfg.RelayURL, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to relay: %w", err)
	}
	return newConnection(ch, cfg, logger, opts...)
}

func newConnection(ch signaling.MessageChannel, cfg *config.Config, logger *slog.Logger, opts ...webrtc.Option) (*Connection, error) {
	peer, err := webrtc.NewPeerConnection(cfg, logger, opts...)
	if err != nil {
		ch.Close()
		return nil, err
	}

	c := &Connection{
		Config:  cfg,
		Channel: ch,
		Relay:   signaling.NewRelayClient(ch, logger),
		Peer:    peer,
		logger:  logger,
		opened:  make(chan struct{}),
	}
	c.Engine = negotiation.New(peer, c.Relay,
		negotiation.WithLogger(logger),
		negotiation.WithObserver(c.observe),
	)
	c.Chat = chat.New(c.Engine.Transport(), logger)
	c.Chat.OnMessage(func(chat.Entry) { c.changed() })

	peer.OnFailed(func() {
		logger.Warn("peer connection failed")
		c.Engine.Close()
	})
	return c, nil
}

// OnChange registers fn for every session or conversation change.
func (c *Connection) OnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// Opened is closed the first time the data channel opens.
func (c *Connection) Opened() <-chan struct{} {
	return c.opened
}

func (c *Connection) observe(s negotiation.Snapshot) {
	if s.ChannelOpen {
		c.openedOnce.Do(func() { close(c.opened) })
	}
	c.changed()
}

func (c *Connection) changed() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// relayLost ends the session if the relay goes away before the data
// channel is up. An open channel carries on without it.
func (c *Connection) relayLost(err error) {
	c.mu.Lock()
	c.relayErr = err
	c.mu.Unlock()

	select {
	case <-c.opened:
	default:
		c.Engine.Close()
	}
	c.changed()
}

// RelayErr returns why the relay link ended, or nil while it is up.
func (c *Connection) RelayErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.relayErr
}

// Start runs the relay link and the engine until ctx is done, then asks
// the relay to pair p.
func (c *Connection) Start(ctx context.Context, p signaling.Participants) error {
	go func() {
		err := c.Relay.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("relay link ended", "err", err)
		c.relayLost(err)
	}()
	go func() {
		if err := c.Engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Warn("engine stopped", "err", err)
		}
	}()
	return c.Engine.Connect(p)
}

func (c *Connection) Close() {
	c.Engine.Close()
	select {
	case <-c.Engine.Done():
	case <-time.After(closeWait):
		c.logger.Warn("engine did not stop in time")
	}
	c.Relay.Close()
}
