package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// KEYS[1] window hash; ARGV[1] max; ARGV[2] window ms; ARGV[3] now ms.
// Returns {count, reset_ms}.
var redisHitScript = redis.NewScript(`
local max = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local data = redis.call("HMGET", KEYS[1], "count", "reset")
local count = tonumber(data[1])
local reset = tonumber(data[2])

if count == nil or reset == nil or now >= reset then
  count = 1
  reset = now + window
  redis.call("HSET", KEYS[1], "count", count, "reset", reset)
  redis.call("PEXPIRE", KEYS[1], window)
elseif count <= max then
  count = redis.call("HINCRBY", KEYS[1], "count", 1)
end

return {count, reset}
`)

// RedisBackend keeps windows in Redis. The Lua script runs atomically on
// the server and the key expires with its window, so no purge is needed.
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	return &RedisBackend{
		client: client,
		prefix: strings.TrimSpace(prefix),
	}
}

func (b *RedisBackend) Hit(ctx context.Context, key string, max int, window time.Duration, now time.Time) (int, time.Time, error) {
	if b == nil || b.client == nil {
		return 0, time.Time{}, errors.New("ratelimit redis: no client")
	}

	res, err := redisHitScript.Run(ctx, b.client,
		[]string{b.buildKey(key)},
		max, window.Milliseconds(), now.UnixMilli(),
	).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("ratelimit redis: %w", err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, errors.New("ratelimit redis: unexpected response shape")
	}

	return int(res[0]), time.UnixMilli(res[1]).UTC(), nil
}

// Ping lets readiness checks include Redis.
func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBackend) buildKey(key string) string {
	if b.prefix == "" {
		return "ratelimit:" + key
	}
	return b.prefix + ":ratelimit:" + key
}
