package signaling

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/thomastoledo/prust/internal/dns"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	outgoingBuffer = 64
)

// WebSocketChannel is a MessageChannel over a websocket connection to the
// relay. One goroutine reads and one writes; Send only enqueues.
type WebSocketChannel struct {
	conn     *websocket.Conn
	logger   *slog.Logger
	incoming chan []byte
	outgoing chan []byte
	done     chan struct{}

	mu     sync.Mutex
	closed bool
}

// Dial connects to the relay at serverURL (ws or wss).
func Dial(ctx context.Context, serverURL string, logger *slog.Logger) (*WebSocketChannel, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid relay URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("invalid relay URL scheme %q", u.Scheme)
	}

	dialer := *websocket.DefaultDialer
	dialer.NetDialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}

		resolvedIP, err := dns.Lookup(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("dns lookup failed: %w", err)
		}

		var d net.Dialer
		return d.DialContext(ctx, network, net.JoinHostPort(resolvedIP, port))
	}

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return NewWebSocketChannel(conn, logger), nil
}

// NewWebSocketChannel takes ownership of conn and starts its pumps.
func NewWebSocketChannel(conn *websocket.Conn, logger *slog.Logger) *WebSocketChannel {
	if logger == nil {
		logger = slog.Default()
	}
	c := &WebSocketChannel{
		conn:     conn,
		logger:   logger,
		incoming: make(chan []byte, 1),
		outgoing: make(chan []byte, outgoingBuffer),
		done:     make(chan struct{}),
	}

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.readPump()
	go c.writePump()
	return c
}

// readPump reads messages from the websocket connection.
func (c *WebSocketChannel) readPump() {
	defer func() {
		c.markClosed()
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("relay connection read failed", "err", err)
			}
			return
		}

		select {
		case c.incoming <- data:
		case <-c.done:
			return
		}
	}
}

// writePump writes queued messages and sends periodic pings.
func (c *WebSocketChannel) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("relay connection write failed", "err", err)
				c.markClosed()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.markClosed()
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Send enqueues data for the write pump. It fails instead of blocking when
// the queue is full.
func (c *WebSocketChannel) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.outgoing <- data:
		return nil
	default:
		return fmt.Errorf("%w: outbound queue full", ErrSend)
	}
}

func (c *WebSocketChannel) Incoming() <-chan []byte {
	return c.incoming
}

// Close sends a close frame and tears the connection down.
func (c *WebSocketChannel) Close() error {
	c.markClosed()
	return nil
}

func (c *WebSocketChannel) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}
