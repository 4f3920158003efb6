package signaling

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// RelayClient sends and receives envelopes over a MessageChannel. It holds
// no session state: inbound envelopes are handed to the registered callbacks
// in arrival order.
type RelayClient struct {
	channel MessageChannel
	logger  *slog.Logger

	mu       sync.Mutex
	handlers []func(Envelope)
}

// NewRelayClient wraps channel. Call Run to start delivering messages.
func NewRelayClient(channel MessageChannel, logger *slog.Logger) *RelayClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &RelayClient{
		channel: channel,
		logger:  logger,
	}
}

// Send encodes env and writes it to the channel. Failures are returned to
// the caller and never retried.
func (c *RelayClient) Send(env Envelope) error {
	data, err := Encode(env)
	if err != nil {
		return err
	}
	if err := c.channel.Send(data); err != nil {
		return fmt.Errorf("send %s: %w", env.EnvelopeType(), err)
	}
	c.logger.Debug("relay message sent", "type", env.EnvelopeType())
	return nil
}

// OnMessage registers fn for every decoded inbound envelope.
func (c *RelayClient) OnMessage(fn func(Envelope)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, fn)
}

// Run reads the channel until it closes or ctx is done. Messages that fail
// to decode are logged and dropped.
func (c *RelayClient) Run(ctx context.Context) error {
	incoming := c.channel.Incoming()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case data, ok := <-incoming:
			if !ok {
				return ErrClosed
			}

			env, err := Decode(data)
			if err != nil {
				c.logger.Warn("dropping relay message", "err", err)
				continue
			}
			c.logger.Debug("relay message received", "type", env.EnvelopeType())

			c.mu.Lock()
			handlers := slices.Clone(c.handlers)
			c.mu.Unlock()

			for _, fn := range handlers {
				fn(env)
			}
		}
	}
}

// Close closes the underlying channel.
func (c *RelayClient) Close() error {
	return c.channel.Close()
}
