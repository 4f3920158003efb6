// Package transport sends and receives application payloads over the
// session's data channel once negotiation has opened it.
package transport

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	// ErrChannelNotReady is returned by Send before a channel is bound and open.
	ErrChannelNotReady = errors.New("data channel not ready")
	// ErrSendFailed wraps a failure reported by the bound channel.
	ErrSendFailed = errors.New("data channel send failed")
)

// Channel is the part of a data channel handle Transport needs.
type Channel interface {
	Send(data []byte) error
	IsOpen() bool
}

// Transport is the application facing side of a session. It is safe for
// concurrent use.
type Transport struct {
	mu        sync.RWMutex
	channel   Channel
	receivers []func([]byte)
}

// New returns a Transport with no channel bound.
func New() *Transport {
	return &Transport{}
}

// Send writes data to the bound channel. It fails fast with
// ErrChannelNotReady when no open channel is bound.
func (t *Transport) Send(data []byte) error {
	t.mu.RLock()
	ch := t.channel
	t.mu.RUnlock()

	if ch == nil || !ch.IsOpen() {
		return ErrChannelNotReady
	}
	if err := ch.Send(data); err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return nil
}

// OnReceive registers fn for every inbound payload.
func (t *Transport) OnReceive(fn func(data []byte)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.receivers = append(t.receivers, fn)
}

// Ready reports whether Send can currently succeed.
func (t *Transport) Ready() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.channel != nil && t.channel.IsOpen()
}

// Bind attaches ch. A previously bound channel is replaced.
func (t *Transport) Bind(ch Channel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channel = ch
}

// Unbind detaches the current channel.
func (t *Transport) Unbind() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channel = nil
}

// Deliver hands an inbound payload to every receiver in registration order.
func (t *Transport) Deliver(data []byte) {
	t.mu.RLock()
	receivers := slices.Clone(t.receivers)
	t.mu.RUnlock()

	for _, fn := range receivers {
		fn(data)
	}
}
