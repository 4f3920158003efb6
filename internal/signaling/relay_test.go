package signaling

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRelayClientSendEncodes(t *testing.T) {
	local, remote := Pipe()
	defer local.Close()

	client := NewRelayClient(local, nil)
	if err := client.Send(NewUser{Participants: Participants{UserFrom: "a", UserTo: "b"}}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	got := string(<-remote.Incoming())
	want := `{"type":"newUser","content":{"userFrom":"a","userTo":"b"}}`
	if got != want {
		t.Fatalf("wire = %s, want %s", got, want)
	}
}

func TestRelayClientSendAfterClose(t *testing.T) {
	local, _ := Pipe()
	client := NewRelayClient(local, nil)
	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	err := client.Send(JoinedRoom{Room: "r"})
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("Send after close = %v, want ErrClosed", err)
	}
}

func TestRelayClientRunDispatchesAndDropsBadInput(t *testing.T) {
	local, remote := Pipe()

	client := NewRelayClient(local, nil)
	received := make(chan Envelope, 4)
	client.OnMessage(func(env Envelope) { received <- env })

	done := make(chan error, 1)
	go func() { done <- client.Run(context.Background()) }()

	for _, msg := range []string{
		`not json`,
		`{"type":"bogus","content":{}}`,
		`{"type":"joined_room","content":{"room":"r1"}}`,
		`{"type":"signal_message_to_client","content":{"signalType":"userHere","message":3}}`,
	} {
		if err := remote.Send([]byte(msg)); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	want := []Envelope{
		JoinedRoom{Room: "r1"},
		SignalToClient{Signal: UserHere{ChannelID: 3}},
	}
	for i, w := range want {
		select {
		case got := <-received:
			if got != w {
				t.Fatalf("message %d = %#v, want %#v", i, got, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}

	remote.Close()
	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("Run = %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after close")
	}
}

func TestRelayClientRunStopsOnContext(t *testing.T) {
	local, _ := Pipe()
	defer local.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := NewRelayClient(local, nil)
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
