package idempotency

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("idempotency",
	fx.Provide(ProvideStore),
)

type Params struct {
	fx.In
	Redis *redis.Client `optional:"true"`
}

func ProvideStore(p Params) Store {
	if p.Redis == nil {
		zap.L().Info("idempotency records kept in memory")
		return NewMemoryStore()
	}
	return NewRedisStore(p.Redis, "licenses")
}
