package relay

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// maxChannelID bounds the pre-negotiated data channel ids handed out.
const maxChannelID = 1024

// Room pairs exactly two participants.
type Room struct {
	// ID is the memorable identifier sent to clients in joined_room.
	ID string

	// key identifies the unordered participant pair.
	key string

	members map[string]*Client

	channelID  uint16
	hasChannel bool
}

// peerOf returns the member that is not user, if present.
func (r *Room) peerOf(user string) *Client {
	for id, c := range r.members {
		if id != user {
			return c
		}
	}
	return nil
}

// pairKey is the same for (a, b) and (b, a).
func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "\x00" + b
}

var (
	adjectives = []string{
		"amber", "brisk", "calm", "dusky", "eager", "fuzzy", "gentle", "hazy", "icy", "jolly",
		"keen", "lucky", "mellow", "nimble", "olive", "plucky", "quiet", "rosy", "sunny", "tidy",
		"upbeat", "vivid", "witty", "young", "zesty",
	}
	animals = []string{
		"otter", "heron", "lynx", "panda", "koala", "badger", "bison", "gecko", "ibis", "jackal",
		"lemur", "marten", "newt", "ocelot", "puffin", "quokka", "raven", "stoat", "tapir", "urchin",
		"viper", "walrus", "yak", "zebra", "narwhal",
	}
	things = []string{
		"anchor", "bridge", "canyon", "delta", "ember", "fjord", "glacier", "harbor", "island", "jetty",
		"kettle", "lantern", "meadow", "nebula", "orchard", "pebble", "quarry", "ripple", "summit", "thicket",
		"valley", "willow", "yonder", "zephyr", "comet",
	}
)

// generateRoomID returns an unused id of the form adjective-animal-thing.
func generateRoomID(taken func(string) bool) string {
	for {
		id := strings.Join([]string{
			adjectives[randomIndex(len(adjectives))],
			animals[randomIndex(len(animals))],
			things[randomIndex(len(things))],
		}, "-")
		if !taken(id) {
			return id
		}
	}
}

func newChannelID() uint16 {
	return uint16(randomIndex(maxChannelID))
}

// randomIndex returns a cryptographically secure random index in [0, n).
func randomIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("relay: reading random source: " + err.Error())
	}
	return int(v.Int64())
}
