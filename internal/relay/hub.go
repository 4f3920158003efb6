// Package relay is the signaling server that pairs two participants in a
// room and re-broadcasts their signals to each other.
package relay

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/thomastoledo/prust/internal/signaling"
)

const presenceTimeout = 2 * time.Second

type inbound struct {
	client *Client
	data   []byte
}

// Hub owns every room and client. All state is touched only by the Run
// goroutine; connections talk to it over channels.
type Hub struct {
	presence Presence
	logger   *slog.Logger

	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
	done       chan struct{}

	clients map[*Client]struct{}
	// rooms maps the participant pair key to its room.
	rooms   map[string]*Room
	roomIDs map[string]*Room
}

// NewHub creates a Hub. A nil presence uses an in-memory store.
func NewHub(presence Presence, logger *slog.Logger) *Hub {
	if presence == nil {
		presence = NewMemoryPresence()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		presence:   presence,
		logger:     logger,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inbound),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]*Room),
		roomIDs:    make(map[string]*Room),
	}
}

// Presence returns the store the hub records room membership in.
func (h *Hub) Presence() Presence {
	return h.presence
}

// Run processes connections until ctx is done, then closes them all.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for c := range h.clients {
			close(c.send)
			c.conn.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			c.logger.Debug("client registered")

		case c := <-h.unregister:
			h.remove(ctx, c)

		case msg := <-h.inbound:
			h.handle(ctx, msg.client, msg.data)
		}
	}
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) deliver(c *Client, data []byte) bool {
	select {
	case h.inbound <- inbound{client: c, data: data}:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) handle(ctx context.Context, c *Client, data []byte) {
	env, err := signaling.Decode(data)
	if err != nil {
		c.logger.Warn("dropping malformed message", "err", err)
		return
	}

	switch env := env.(type) {
	case signaling.NewUser:
		h.joinRoom(ctx, c, env.Participants)
	case signaling.SignalFromClient:
		h.forward(c, env.Signal)
	default:
		c.logger.Warn("dropping unexpected message", "type", env.EnvelopeType())
	}
}

func (h *Hub) joinRoom(ctx context.Context, c *Client, p signaling.Participants) {
	if c.room != nil {
		c.logger.Warn("client already in a room", "room", c.room.ID)
		return
	}
	if p.UserFrom == "" || p.UserTo == "" || p.UserFrom == p.UserTo {
		c.logger.Warn("invalid participants", "userFrom", p.UserFrom, "userTo", p.UserTo)
		return
	}

	key := pairKey(p.UserFrom, p.UserTo)
	room, ok := h.rooms[key]
	if !ok {
		room = &Room{
			ID:      generateRoomID(func(id string) bool { return h.roomIDs[id] != nil }),
			key:     key,
			members: make(map[string]*Client, 2),
		}
		h.rooms[key] = room
		h.roomIDs[room.ID] = room
		h.logger.Info("room created", "room", room.ID)
	}

	pctx, cancel := context.WithTimeout(ctx, presenceTimeout)
	defer cancel()

	if h.present(pctx, room, p.UserFrom) {
		c.logger.Warn("participant already present, closing connection", "room", room.ID, "user", p.UserFrom)
		c.conn.Close()
		if len(room.members) == 0 {
			h.deleteRoom(room)
		}
		return
	}

	room.members[p.UserFrom] = c
	c.user = p.UserFrom
	c.room = room
	c.logger = c.logger.With("user", p.UserFrom, "room", room.ID)

	if err := h.presence.Join(pctx, room.ID, p.UserFrom); err != nil {
		c.logger.Warn("presence join failed", "err", err)
	}

	c.sendEnvelope(signaling.JoinedRoom{Room: room.ID})
	c.logger.Info("participant joined")

	if len(room.members) < 2 {
		return
	}
	if !room.hasChannel {
		room.channelID = newChannelID()
		room.hasChannel = true
	}
	for _, member := range room.members {
		member.sendEnvelope(signaling.SignalToClient{Signal: signaling.UserHere{ChannelID: room.channelID}})
	}
	h.logger.Info("room complete", "room", room.ID, "channel", room.channelID)
}

func (h *Hub) forward(c *Client, sig signaling.Signal) {
	if c.room == nil {
		c.logger.Warn("signal before joining a room")
		return
	}
	peer := c.room.peerOf(c.user)
	if peer == nil {
		c.logger.Debug("peer not present, dropping signal", "signal", sig.SignalType())
		return
	}
	peer.sendEnvelope(signaling.SignalToClient{Signal: sig})
}

func (h *Hub) remove(ctx context.Context, c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)

	room := c.room
	if room == nil {
		c.logger.Debug("client unregistered")
		return
	}
	if room.members[c.user] == c {
		delete(room.members, c.user)
	}

	pctx, cancel := context.WithTimeout(ctx, presenceTimeout)
	if err := h.presence.Leave(pctx, room.ID, c.user); err != nil {
		c.logger.Warn("presence leave failed", "err", err)
	}
	cancel()

	if len(room.members) == 0 {
		h.deleteRoom(room)
		return
	}
	c.logger.Info("participant left")
}

// present reports whether user already holds a seat in room, either on
// this hub or in the shared presence store.
func (h *Hub) present(ctx context.Context, room *Room, user string) bool {
	if _, ok := room.members[user]; ok {
		return true
	}
	members, err := h.presence.Members(ctx, room.ID)
	if err != nil {
		h.logger.Warn("presence lookup failed", "room", room.ID, "err", err)
		return false
	}
	return slices.Contains(members, user)
}

func (h *Hub) deleteRoom(room *Room) {
	delete(h.rooms, room.key)
	delete(h.roomIDs, room.ID)
	h.logger.Info("room deleted", "room", room.ID)
}
