package chat

import (
	"errors"
	"testing"
	"time"

	"github.com/thomastoledo/prust/internal/transport"
)

// loopback connects two chats directly.
type loopback struct {
	peer     *loopback
	receiver func([]byte)
}

func (l *loopback) Send(data []byte) error {
	if l.peer.receiver != nil {
		l.peer.receiver(data)
	}
	return nil
}

func (l *loopback) OnReceive(fn func([]byte)) { l.receiver = fn }

func newLoopback() (*loopback, *loopback) {
	a, b := &loopback{}, &loopback{}
	a.peer, b.peer = b, a
	return a, b
}

func TestChatExchange(t *testing.T) {
	ta, tb := newLoopback()
	alice := New(ta, nil)
	bob := New(tb, nil)

	fixed := time.UnixMilli(1_700_000_000_000)
	alice.now = func() time.Time { return fixed }

	var got []Entry
	bob.OnMessage(func(e Entry) { got = append(got, e) })

	if _, err := alice.Send("hello\nthere"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("bob received %d messages, want 1", len(got))
	}
	if got[0].From != Peer || got[0].Content != "hello\nthere" || !got[0].At.Equal(fixed) {
		t.Fatalf("bob got %+v", got[0])
	}

	mine := alice.Conversation().Entries()
	if len(mine) != 1 || mine[0].From != Me {
		t.Fatalf("alice conversation = %+v", mine)
	}
	if s := alice.Stats(); s.Sent != 1 || s.Received != 0 {
		t.Fatalf("alice stats = %+v", s)
	}
	if s := bob.Stats(); s.Sent != 0 || s.Received != 1 {
		t.Fatalf("bob stats = %+v", s)
	}
}

func TestSendBeforeChannelOpen(t *testing.T) {
	c := New(transport.New(), nil)

	_, err := c.Send("hi")
	if !errors.Is(err, transport.ErrChannelNotReady) {
		t.Fatalf("Send = %v, want ErrChannelNotReady", err)
	}
	if c.Conversation().Len() != 0 || c.Stats().Sent != 0 {
		t.Fatalf("failed send was recorded")
	}
}

func TestSendRejectsEmpty(t *testing.T) {
	ta, _ := newLoopback()
	c := New(ta, nil)
	if _, err := c.Send("  \n"); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("Send = %v, want ErrEmptyMessage", err)
	}
}

func TestReceiveDropsBadFrames(t *testing.T) {
	ta, tb := newLoopback()
	c := New(tb, nil)

	unknown, err := EncodeFrame("typing", struct{}{})
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	for _, data := range [][]byte{{0xc1}, []byte("not msgpack"), unknown} {
		ta.Send(data)
	}
	if c.Conversation().Len() != 0 {
		t.Fatalf("bad frames were recorded: %+v", c.Conversation().Entries())
	}
}

func TestFrameRoundTrip(t *testing.T) {
	data, err := EncodeFrame(FrameText, TextPayload{Content: "hi", SentAt: 42})
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	f, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	var p TextPayload
	if err := f.DecodePayload(&p); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if f.Type != FrameText || p.Content != "hi" || p.SentAt != 42 {
		t.Fatalf("got %s %+v", f.Type, p)
	}
}
