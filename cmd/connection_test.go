package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pion/transport/v3/vnet"

	"github.com/thomastoledo/prust/internal/chat"
	"github.com/thomastoledo/prust/internal/config"
	"github.com/thomastoledo/prust/internal/negotiation"
	"github.com/thomastoledo/prust/internal/relay"
	"github.com/thomastoledo/prust/internal/signaling"
	"github.com/thomastoledo/prust/internal/webrtc"
)

func newVNets(t *testing.T, logger *slog.Logger, ips ...string) []*vnet.Net {
	t.Helper()

	router, err := vnet.NewRouter(&vnet.RouterConfig{
		CIDR:          "10.0.0.0/24",
		LoggerFactory: &webrtc.LoggerFactory{Logger: logger},
	})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	t.Cleanup(func() {
		_ = router.Stop()
	})

	nets := make([]*vnet.Net, len(ips))
	for i, ip := range ips {
		n, err := vnet.NewNet(&vnet.NetConfig{StaticIPs: []string{ip}})
		if err != nil {
			t.Fatalf("new net %s: %v", ip, err)
		}
		if err := router.AddNet(n); err != nil {
			t.Fatalf("add net %s: %v", ip, err)
		}
		nets[i] = n
	}

	if err := router.Start(); err != nil {
		t.Fatalf("start router: %v", err)
	}
	return nets
}

func waitOpened(t *testing.T, ctx context.Context, name string, c *Connection) {
	t.Helper()
	select {
	case <-c.Opened():
	case <-ctx.Done():
		t.Fatalf("%s: data channel never opened, last snapshot %+v", name, c.Engine.Snapshot())
	}
}

func waitForEntries(t *testing.T, ctx context.Context, c *chat.Chat, n int) []chat.Entry {
	t.Helper()
	for {
		if entries := c.Conversation().Entries(); len(entries) >= n {
			return entries
		}
		select {
		case <-ctx.Done():
			t.Fatalf("timed out waiting for %d messages", n)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestChatOverRelayAndDataChannel(t *testing.T) {
	if testing.Short() {
		t.Skip("starts real peer connections")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	hub := relay.NewHub(nil, logger)
	go hub.Run(ctx)
	srv := httptest.NewServer(relay.NewServer(hub))
	defer srv.Close()

	cfg := &config.Config{
		RelayURL:       "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		ConnectTimeout: 10 * time.Second,
	}
	nets := newVNets(t, logger, "10.0.0.1", "10.0.0.2")

	alice, err := NewConnection(ctx, cfg, logger, webrtc.WithNet(nets[0]))
	if err != nil {
		t.Fatalf("alice: %v", err)
	}
	defer alice.Close()
	bob, err := NewConnection(ctx, cfg, logger, webrtc.WithNet(nets[1]))
	if err != nil {
		t.Fatalf("bob: %v", err)
	}
	defer bob.Close()

	pair := signaling.Participants{UserFrom: "alice", UserTo: "bob"}
	if err := alice.Start(ctx, pair); err != nil {
		t.Fatalf("alice start: %v", err)
	}
	if err := bob.Start(ctx, pair.Reverse()); err != nil {
		t.Fatalf("bob start: %v", err)
	}

	waitOpened(t, ctx, "alice", alice)
	waitOpened(t, ctx, "bob", bob)

	a, b := alice.Engine.Snapshot(), bob.Engine.Snapshot()
	if a.RoomID == "" || a.RoomID != b.RoomID {
		t.Fatalf("rooms differ: %q and %q", a.RoomID, b.RoomID)
	}
	if a.ChannelID != b.ChannelID {
		t.Fatalf("channel ids differ: %d and %d", a.ChannelID, b.ChannelID)
	}
	if a.Role != negotiation.RoleInitiator || b.Role != negotiation.RolePolite {
		t.Fatalf("roles = %s/%s", a.Role, b.Role)
	}

	if _, err := alice.Chat.Send("hello bob"); err != nil {
		t.Fatalf("alice send: %v", err)
	}
	got := waitForEntries(t, ctx, bob.Chat, 1)
	if got[0].From != chat.Peer || got[0].Content != "hello bob" {
		t.Fatalf("bob got %+v", got[0])
	}

	if _, err := bob.Chat.Send("hi alice"); err != nil {
		t.Fatalf("bob send: %v", err)
	}
	got = waitForEntries(t, ctx, alice.Chat, 2)
	if got[1].From != chat.Peer || got[1].Content != "hi alice" {
		t.Fatalf("alice got %+v", got[1])
	}
}

func TestRelayLossBeforeOpenEndsSession(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	local, remote := signaling.Pipe()

	conn, err := newConnection(local, &config.Config{ConnectTimeout: time.Minute}, logger)
	if err != nil {
		t.Fatalf("newConnection: %v", err)
	}
	defer conn.Close()

	if err := conn.Start(ctx, signaling.Participants{UserFrom: "alice", UserTo: "bob"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	remote.Close()

	select {
	case <-conn.Engine.Done():
	case <-ctx.Done():
		t.Fatalf("session still running after the relay went away: %+v", conn.Engine.Snapshot())
	}
	if err := conn.RelayErr(); !errors.Is(err, signaling.ErrClosed) {
		t.Fatalf("RelayErr = %v, want ErrClosed", err)
	}
	if got := conn.Engine.Snapshot().State; got != negotiation.StateClosed {
		t.Fatalf("state = %s, want closed", got)
	}
}
