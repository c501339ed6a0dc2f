package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultInFlightTTL = 30 * time.Second

// releaseScript deletes the key only if it still holds this holder's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// InFlight is a write guard shared by every agent process on one Redis.
// Key format: inflight:<operation key>. The TTL bounds how long a crashed
// holder can block the same write.
type InFlight struct {
	client *redis.Client
	ttl    time.Duration
}

func NewInFlight(client *redis.Client, ttl time.Duration) *InFlight {
	if ttl <= 0 {
		ttl = defaultInFlightTTL
	}
	return &InFlight{client: client, ttl: ttl}
}

// Acquire reports false when another holder owns key. The returned release
// func is a no-op when acquisition failed.
func (g *InFlight) Acquire(ctx context.Context, key string) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, g.key(key), token, g.ttl).Result()
	if err != nil {
		return func() {}, false, fmt.Errorf("inflight acquire: %w", err)
	}
	if !ok {
		return func() {}, false, nil
	}
	release := func() {
		// The caller's ctx may already be done; release on a fresh one.
		rctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
		defer cancel()
		_ = releaseScript.Run(rctx, g.client, []string{g.key(key)}, token).Err()
	}
	return release, true, nil
}

func (g *InFlight) key(k string) string {
	return "inflight:" + k
}
