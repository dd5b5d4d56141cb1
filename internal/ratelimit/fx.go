package ratelimit

import (
	"errors"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/groupchat/internal/clock"
	"github.com/smallbiznis/groupchat/internal/config"
	"github.com/smallbiznis/groupchat/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("rate.limit",
	fx.Provide(ProvideGovernor),
)

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Clock   clock.Clock
	Redis   *redis.Client    `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
}

// ProvideGovernor picks the counter store from RATE_LIMIT_BACKEND.
func ProvideGovernor(p Params) (*Governor, error) {
	policies, err := PoliciesWithOverrides(p.Cfg.RateLimit.Overrides)
	if err != nil {
		return nil, err
	}

	var store Store
	switch p.Cfg.RateLimit.Backend {
	case "redis":
		if p.Redis == nil {
			return nil, errors.New("rate limit backend redis requires REDIS_ADDR")
		}
		store = NewRedisStore(p.Redis)
	case "", "memory":
		store = NewMemoryStore(p.Clock)
	default:
		return nil, errors.New("unsupported rate limit backend " + p.Cfg.RateLimit.Backend)
	}

	p.Log.Info("rate governor configured",
		zap.String("backend", p.Cfg.RateLimit.Backend),
		zap.Int("policies", len(policies)),
	)
	return NewGovernor(store, policies, p.Log, p.Metrics), nil
}
