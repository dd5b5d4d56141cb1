package keylock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const (
	defaultLockTTL   = 10 * time.Second
	defaultRetryWait = 5 * time.Millisecond
	maxRetryWait     = 100 * time.Millisecond
)

// RedisLocker is a SET NX lease lock shared by every process using the same
// Redis. The lease expires after ttl if the holder dies.
type RedisLocker struct {
	client *redis.Client
	script *redis.Script
	ttl    time.Duration
	prefix string
	log    *zap.Logger
}

func NewRedisLocker(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisLocker {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisLocker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
		ttl:    ttl,
		prefix: "lock:",
		log:    log.Named("keylock.redis"),
	}
}

// TryLock makes a single attempt and returns the lease token on success.
func (l *RedisLocker) TryLock(ctx context.Context, key string) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errors.New("lock client not configured")
	}
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.prefix+key, token, l.ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Release drops the lease only if token still owns it.
func (l *RedisLocker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{l.prefix + key}, token).Err()
}

// Lock retries TryLock with capped backoff until ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	wait := defaultRetryWait
	for {
		token, ok, err := l.TryLock(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			return l.unlockFunc(ctx, key, token), nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		wait *= 2
		if wait > maxRetryWait {
			wait = maxRetryWait
		}
	}
}

// unlockFunc releases the lease on a detached context. A failed release
// leaves the key held until its ttl runs out.
func (l *RedisLocker) unlockFunc(ctx context.Context, key, token string) func() {
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := l.Release(releaseCtx, key, token); err != nil {
			l.log.Warn("lock release failed",
				zap.String("key", key),
				zap.Duration("lease_ttl", l.ttl),
				zap.Error(err),
			)
		}
	}
}
