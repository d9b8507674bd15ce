package worker

import (
	"context"
	"log/slog"

	"github.com/webitel/broadcast-delivery-service/internal/config"
	"github.com/webitel/broadcast-delivery-service/internal/domain/registry"
	"github.com/webitel/broadcast-delivery-service/internal/grid"
	"github.com/webitel/broadcast-delivery-service/internal/store/postgres"
	"go.uber.org/fx"
)

var Module = fx.Module("worker",
	fx.Provide(newObserver),
	fx.Invoke(runObserver),
)

func newObserver(hub registry.Hubber, g grid.Grid, deliveries *postgres.DeliveryRepository, logger *slog.Logger, cfg *config.Config) *Observer {
	return NewObserver(hub, g, deliveries, logger, cfg.Pod.ID, cfg.Kafka.Retry.MaxAttempts, cfg.Kafka.Retry.BackoffDelay)
}

func runObserver(lc fx.Lifecycle, observer *Observer, logger *slog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := observer.Run(ctx); err != nil {
					logger.Error("worker: observer stopped", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
