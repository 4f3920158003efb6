// Package chat is the text chat carried over a negotiated data channel.
package chat

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
)

var ErrEmptyMessage = errors.New("message is empty")

// Transport is the data channel side the chat writes to and reads from.
type Transport interface {
	Send(data []byte) error
	OnReceive(fn func(data []byte))
}

// Stats summarises a session.
type Stats struct {
	Sent     int
	Received int
	Started  time.Time
}

// Chat sends and receives text frames and records them in a Conversation.
type Chat struct {
	transport Transport
	logger    *slog.Logger
	now       func() time.Time

	conversation Conversation

	mu        sync.Mutex
	stats     Stats
	onMessage func(Entry)
}

// New attaches a chat to t.
func New(t Transport, logger *slog.Logger) *Chat {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Chat{
		transport: t,
		logger:    logger,
		now:       time.Now,
	}
	c.stats.Started = c.now()
	t.OnReceive(c.receive)
	return c
}

// OnMessage registers fn for every message from the peer.
func (c *Chat) OnMessage(fn func(Entry)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = fn
}

// Send writes text to the peer. Nothing is queued: if the channel is not
// open the error is returned and the message is not recorded.
func (c *Chat) Send(text string) (Entry, error) {
	if strings.TrimSpace(text) == "" {
		return Entry{}, ErrEmptyMessage
	}

	at := c.now()
	data, err := EncodeFrame(FrameText, TextPayload{Content: text, SentAt: at.UnixMilli()})
	if err != nil {
		return Entry{}, err
	}
	if err := c.transport.Send(data); err != nil {
		return Entry{}, err
	}

	e := Entry{From: Me, Content: text, At: at}
	c.conversation.Add(e)

	c.mu.Lock()
	c.stats.Sent++
	c.mu.Unlock()
	return e, nil
}

func (c *Chat) receive(data []byte) {
	f, err := DecodeFrame(data)
	if err != nil {
		c.logger.Warn("dropping data channel message", "err", err)
		return
	}

	switch f.Type {
	case FrameText:
		var p TextPayload
		if err := f.DecodePayload(&p); err != nil {
			c.logger.Warn("dropping text frame", "err", err)
			return
		}
		e := Entry{From: Peer, Content: p.Content, At: time.UnixMilli(p.SentAt)}
		c.conversation.Add(e)

		c.mu.Lock()
		c.stats.Received++
		fn := c.onMessage
		c.mu.Unlock()

		if fn != nil {
			fn(e)
		}

	default:
		c.logger.Debug("ignoring frame", "type", f.Type)
	}
}

// Conversation returns the session history.
func (c *Chat) Conversation() *Conversation {
	return &c.conversation
}

func (c *Chat) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
