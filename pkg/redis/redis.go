package redis

import (
	"context"
	"time"

	"clinic-controlplane/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("redis",
	fx.Provide(New),
)

const pingAttempts = 5

type Params struct {
	fx.In
	Lifecycle fx.Lifecycle
	Config    *config.Config
}

// New returns nil when REDIS.ADDR is empty; consumers fall back to in-process
// implementations.
func New(p Params) (*redis.Client, error) {
	c := p.Config
	if c.Redis.Addr == "" {
		zap.L().Info("[Redis] REDIS.ADDR not set, redis disabled")
		return nil, nil
	}

	zapLog := zap.L().With(
		zap.String("addr", c.Redis.Addr),
		zap.Int("db", c.Redis.DB),
		zap.Int("pool_size", c.Redis.PoolSize),
		zap.Duration("pool_timeout", c.Redis.PoolTimeout),
	)

	rdb := redis.NewClient(&redis.Options{
		Addr:        c.Redis.Addr,
		Password:    c.Redis.Password,
		DB:          c.Redis.DB,
		PoolSize:    c.Redis.PoolSize,
		PoolTimeout: c.Redis.PoolTimeout,
	})

	var err error
	for i := 0; i < pingAttempts; i++ {
		if err = rdb.Ping(context.Background()).Err(); err == nil {
			break
		}

		zapLog.Warn("[Redis] Redis not ready, retrying in 3 seconds...", zap.Int("retry", i+1), zap.Error(err))
		time.Sleep(3 * time.Second)
	}

	if err != nil {
		_ = rdb.Close()
		return nil, err
	}

	zapLog.Info("[Redis] Connected to Redis")

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return rdb.Close()
		},
	})

	return rdb, nil
}
