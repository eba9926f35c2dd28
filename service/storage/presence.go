// Package storage holds the redis-backed runtime state shared between
// gateway nodes: which user is online and on which node.
package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Presence tracks online users. The value is the gateway node id, the
// TTL bounds staleness: a node that dies without cleanup stops counting
// as online once the key expires.
type Presence struct {
	rdb *redis.Client
}

func NewPresence(rdb *redis.Client) *Presence {
	return &Presence{rdb: rdb}
}

func presenceKey(user string) string { return "sl:presence:" + user }

// Online marks the user online on gatewayID and arms the TTL.
func (p *Presence) Online(ctx context.Context, user, gatewayID string, ttl time.Duration) error {
	return p.rdb.Set(ctx, presenceKey(user), gatewayID, ttl).Err()
}

// Refresh renews the TTL; called on every client ping.
func (p *Presence) Refresh(ctx context.Context, user string, ttl time.Duration) error {
	return p.rdb.Expire(ctx, presenceKey(user), ttl).Err()
}

// Offline deletes the key immediately.
func (p *Presence) Offline(ctx context.Context, user string) error {
	return p.rdb.Del(ctx, presenceKey(user)).Err()
}

// Lookup reports whether the user is online and on which gateway node.
func (p *Presence) Lookup(ctx context.Context, user string) (gatewayID string, online bool, err error) {
	val, err := p.rdb.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
