package relay

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Presence records which participants are in which room.
type Presence interface {
	Join(ctx context.Context, room, user string) error
	Leave(ctx context.Context, room, user string) error
	Members(ctx context.Context, room string) ([]string, error)
}

var (
	_ Presence = (*MemoryPresence)(nil)
	_ Presence = (*RedisPresence)(nil)
)

// MemoryPresence keeps presence in process.
type MemoryPresence struct {
	mu    sync.Mutex
	rooms map[string]map[string]struct{}
}

func NewMemoryPresence() *MemoryPresence {
	return &MemoryPresence{rooms: make(map[string]map[string]struct{})}
}

func (p *MemoryPresence) Join(_ context.Context, room, user string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	members, ok := p.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		p.rooms[room] = members
	}
	members[user] = struct{}{}
	return nil
}

func (p *MemoryPresence) Leave(_ context.Context, room, user string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	members, ok := p.rooms[room]
	if !ok {
		return nil
	}
	delete(members, user)
	if len(members) == 0 {
		delete(p.rooms, room)
	}
	return nil
}

// Members returns the room's participants in sorted order.
func (p *MemoryPresence) Members(_ context.Context, room string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.rooms[room]))
	for user := range p.rooms[room] {
		out = append(out, user)
	}
	slices.Sort(out)
	return out, nil
}

// roomTTL expires rooms left behind by a relay that died without cleaning up.
const roomTTL = 24 * time.Hour

// RedisPresence stores one Redis set per room, so several relay instances
// can share presence.
type RedisPresence struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisPresence builds a Presence backed by Redis. Prefix is optional
// (e.g. "prust").
func NewRedisPresence(rdb *redis.Client, prefix string) *RedisPresence {
	p := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if p == "" {
		p = "prust"
	}
	return &RedisPresence{rdb: rdb, prefix: p}
}

func (p *RedisPresence) key(room string) string {
	return fmt.Sprintf("%s:room:%s:members", p.prefix, room)
}

func (p *RedisPresence) Join(ctx context.Context, room, user string) error {
	pipe := p.rdb.TxPipeline()
	_ = pipe.SAdd(ctx, p.key(room), user)
	_ = pipe.Expire(ctx, p.key(room), roomTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (p *RedisPresence) Leave(ctx context.Context, room, user string) error {
	return p.rdb.SRem(ctx, p.key(room), user).Err()
}

func (p *RedisPresence) Members(ctx context.Context, room string) ([]string, error) {
	members, err := p.rdb.SMembers(ctx, p.key(room)).Result()
	if err != nil {
		return nil, err
	}
	slices.Sort(members)
	return members, nil
}
