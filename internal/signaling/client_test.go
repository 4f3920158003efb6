package signaling

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// echoServer upgrades every request and writes back each text message.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDialRejectsNonWebSocketScheme(t *testing.T) {
	if _, err := Dial(context.Background(), "http://localhost:1/ws", nil); err == nil {
		t.Fatalf("expected error for http scheme")
	}
}

func TestWebSocketChannelRoundTrip(t *testing.T) {
	srv := echoServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := Dial(ctx, wsURL(srv), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer ch.Close()

	msg := `{"type":"joined_room","content":{"room":"r1"}}`
	if err := ch.Send([]byte(msg)); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case got := <-ch.Incoming():
		if string(got) != msg {
			t.Fatalf("got %s, want %s", got, msg)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for echo")
	}
}

func TestWebSocketChannelCloseStopsSend(t *testing.T) {
	srv := echoServer(t)

	ch, err := Dial(context.Background(), wsURL(srv), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := ch.Send([]byte("x")); !errors.Is(err, ErrClosed) {
		t.Fatalf("Send after close = %v, want ErrClosed", err)
	}

	select {
	case _, ok := <-ch.Incoming():
		for ok {
			_, ok = <-ch.Incoming()
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Incoming was not closed")
	}
}
