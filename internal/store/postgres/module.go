package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/webitel/broadcast-delivery-service/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("postgres",
	fx.Provide(
		newPool,
		NewBroadcastRepository,
		NewDeliveryRepository,
		NewAudienceRepository,
		NewDLTRepository,
	),
)

func newPool(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	if err := Migrate(cfg.DB.DSN); err != nil {
		return nil, err
	}

	pool, err := NewPool(context.Background(), cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			logger.Info("postgres: closing pool")
			pool.Close()
			return nil
		},
	})

	return pool, nil
}
