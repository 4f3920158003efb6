package chat

import (
	"slices"
	"sync"
	"time"
)

// Sender says who wrote an entry.
type Sender int

const (
	Me Sender = iota
	Peer
)

func (s Sender) String() string {
	if s == Me {
		return "me"
	}
	return "peer"
}

// Entry is one line of the conversation.
type Entry struct {
	From    Sender
	Content string
	At      time.Time
}

// Conversation is the ordered history of one chat session. It lives in
// memory only.
type Conversation struct {
	mu      sync.Mutex
	entries []Entry
}

func (c *Conversation) Add(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
}

// Entries returns a copy of the history.
func (c *Conversation) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.entries)
}

func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
