package keylock

import (
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("keylock",
	fx.Provide(Provide),
)

type Params struct {
	fx.In

	Log   *zap.Logger
	Redis *redis.Client `optional:"true"`
}

// Provide returns a Redis-backed locker when Redis is configured, so several
// API processes serialize on the same keys.
func Provide(p Params) Locker {
	if p.Redis != nil {
		return NewRedisLocker(p.Redis, defaultLockTTL, p.Log)
	}
	return NewMemoryLocker()
}
