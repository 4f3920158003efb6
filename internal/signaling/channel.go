package signaling

import (
	"fmt"
	"sync"
)

// MessageChannel is a bidirectional text message channel to the relay.
// Incoming is closed when the channel ends.
type MessageChannel interface {
	Send(data []byte) error
	Incoming() <-chan []byte
	Close() error
}

// Compile-time interface checks.
var (
	_ MessageChannel = (*MemoryChannel)(nil)
	_ MessageChannel = (*WebSocketChannel)(nil)
)

const memoryChannelBuffer = 64

// MemoryChannel is one end of an in-process MessageChannel pair. Closing
// either end closes both.
type MemoryChannel struct {
	peer     *MemoryChannel
	incoming chan []byte

	mu     sync.Mutex
	closed bool
}

// Pipe returns two connected MemoryChannel ends.
func Pipe() (*MemoryChannel, *MemoryChannel) {
	a := &MemoryChannel{incoming: make(chan []byte, memoryChannelBuffer)}
	b := &MemoryChannel{incoming: make(chan []byte, memoryChannelBuffer)}
	a.peer, b.peer = b, a
	return a, b
}

func (c *MemoryChannel) Send(data []byte) error {
	if c.isClosed() {
		return ErrClosed
	}

	msg := append([]byte(nil), data...)

	c.peer.mu.Lock()
	defer c.peer.mu.Unlock()
	if c.peer.closed {
		return ErrClosed
	}
	select {
	case c.peer.incoming <- msg:
		return nil
	default:
		return fmt.Errorf("%w: peer queue full", ErrSend)
	}
}

func (c *MemoryChannel) Incoming() <-chan []byte {
	return c.incoming
}

func (c *MemoryChannel) Close() error {
	c.closeEnd()
	c.peer.closeEnd()
	return nil
}

func (c *MemoryChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *MemoryChannel) closeEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.incoming)
}
