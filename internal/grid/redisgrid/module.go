package redisgrid

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/webitel/broadcast-delivery-service/internal/config"
	"github.com/webitel/broadcast-delivery-service/internal/grid"
	"go.uber.org/fx"
)

// Module wires a Redis-backed grid.Grid into the fx graph, mirroring the
// teacher's pattern of one fx.Module per infrastructure concern.
var Module = fx.Module("grid",
	fx.Provide(
		newRedisClient,
		fx.Annotate(New, fx.As(new(grid.Grid))),
	),
)

func newRedisClient(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (redis.UniversalClient, error) {
	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    cfg.Redis.Addrs,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("redisgrid: closing redis client")
			return rdb.Close()
		},
	})

	return rdb, nil
}
