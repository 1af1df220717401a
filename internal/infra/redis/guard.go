package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Harshita0007/DropLater/internal/dispatch"
)

const (
	guardKeyPrefix  = "dispatch:"
	defaultGuardTTL = 45 * time.Second
)

var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

var _ dispatch.Guard = (*RedisGuard)(nil)

// RedisGuard is a distributed per-note dispatch lock backed by Redis SET NX.
// Keys expire on their own so a crashed worker cannot wedge a note; the TTL
// is sized above the delivery timeout by the caller.
type RedisGuard struct {
	client *goredis.Client
	owner  string
	script *goredis.Script
}

func NewRedisGuard(client *goredis.Client) (*RedisGuard, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	return &RedisGuard{
		client: client,
		owner:  uuid.NewString(),
		script: releaseScript,
	}, nil
}

func (g *RedisGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if g == nil || g.client == nil {
		return false, fmt.Errorf("dispatch guard is not initialized")
	}
	if strings.TrimSpace(key) == "" {
		return false, fmt.Errorf("dispatch key is required")
	}
	if ttl <= 0 {
		ttl = defaultGuardTTL
	}
	if ctx == nil {
		ctx = context.Background()
	}

	acquired, err := g.client.SetNX(ctx, guardKeyPrefix+key, g.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire dispatch guard: %w", err)
	}

	return acquired, nil
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	if g == nil || g.client == nil || g.script == nil {
		return fmt.Errorf("dispatch guard is not initialized")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("dispatch key is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if err := g.script.Run(ctx, g.client, []string{guardKeyPrefix + key}, g.owner).Err(); err != nil && err != goredis.Nil {
		return fmt.Errorf("failed to release dispatch guard: %w", err)
	}

	return nil
}
