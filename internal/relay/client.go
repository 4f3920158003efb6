package relay

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/thomastoledo/prust/internal/signaling"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP bodies fit comfortably.
	maxMessageSize = 64 * 1024

	sendBuffer = 256
)

// Client is one websocket connection to the relay.
type Client struct {
	ID string

	hub  *Hub
	conn *websocket.Conn
	// pumpLogger is fixed at creation; the pumps read it concurrently.
	pumpLogger *slog.Logger

	// send is closed by the hub when the client leaves.
	send chan []byte

	// Owned by the hub goroutine.
	logger *slog.Logger
	user   string
	room   *Room
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	id := uuid.NewString()
	logger := hub.logger.With("conn", id, "remote", conn.RemoteAddr().String())
	return &Client{
		ID:         id,
		hub:        hub,
		conn:       conn,
		pumpLogger: logger,
		logger:     logger,
		send:       make(chan []byte, sendBuffer),
	}
}

// readPump forwards every text message to the hub until the connection fails.
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.pumpLogger.Warn("read failed", "err", err)
			}
			return
		}
		if !c.hub.deliver(c, data) {
			return
		}
	}
}

// writePump writes queued messages and keeps the connection alive.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.pumpLogger.Debug("write failed", "err", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendEnvelope queues env without blocking the hub. Must be called from the
// hub goroutine.
func (c *Client) sendEnvelope(env signaling.Envelope) {
	data, err := signaling.Encode(env)
	if err != nil {
		c.logger.Error("encode envelope", "type", env.EnvelopeType(), "err", err)
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger.Warn("send buffer full, dropping message", "type", env.EnvelopeType())
	}
}
