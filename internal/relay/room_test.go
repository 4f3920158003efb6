package relay

import (
	"strings"
	"testing"
)

func TestPairKeyIsSymmetric(t *testing.T) {
	if pairKey("a", "b") != pairKey("b", "a") {
		t.Fatalf("pairKey not symmetric")
	}
	if pairKey("a", "b") == pairKey("a", "c") {
		t.Fatalf("distinct pairs share a key")
	}
}

func TestGenerateRoomIDSkipsTaken(t *testing.T) {
	calls := 0
	id := generateRoomID(func(string) bool {
		calls++
		return calls < 3
	})
	if calls != 3 {
		t.Fatalf("taken called %d times, want 3", calls)
	}
	if parts := strings.Split(id, "-"); len(parts) != 3 {
		t.Fatalf("id %q is not three words", id)
	}
}

func TestNewChannelIDInRange(t *testing.T) {
	for i := 0; i < 100; i++ {
		if id := newChannelID(); id >= maxChannelID {
			t.Fatalf("channel id %d out of range", id)
		}
	}
}

func TestPeerOf(t *testing.T) {
	a, b := &Client{ID: "a"}, &Client{ID: "b"}
	r := &Room{members: map[string]*Client{"alice": a, "bob": b}}
	if r.peerOf("alice") != b || r.peerOf("bob") != a {
		t.Fatalf("peerOf returned the wrong member")
	}
	delete(r.members, "bob")
	if r.peerOf("alice") != nil {
		t.Fatalf("peerOf with one member should be nil")
	}
}
