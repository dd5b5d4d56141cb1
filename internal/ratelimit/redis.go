package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// INCR and PEXPIRE run in one script so a window always gets its TTL, even
// when the client dies between the two calls.
const fixedWindowScript = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`

// RedisStore shares fixed-window counters across processes.
type RedisStore struct {
	client *redis.Client
	script *redis.Script
}

func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		return nil
	}
	return &RedisStore{
		client: client,
		script: redis.NewScript(fixedWindowScript),
	}
}

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if s == nil || s.client == nil {
		return 0, 0, errors.New("rate limit redis client not configured")
	}
	if key == "" {
		return 0, 0, errors.New("rate limit key is empty")
	}
	windowMs := window.Milliseconds()
	if windowMs <= 0 {
		return 0, 0, errors.New("rate limit window must be at least 1ms")
	}

	res, err := s.script.Run(ctx, s.client, []string{key}, windowMs).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(res) < 2 {
		return 0, 0, fmt.Errorf("invalid rate limit script response: %v", res)
	}
	return res[0], time.Duration(res[1]) * time.Millisecond, nil
}
