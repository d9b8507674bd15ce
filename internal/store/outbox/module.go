package outbox

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/webitel/broadcast-delivery-service/internal/config"
	"github.com/webitel/broadcast-delivery-service/internal/transport/amqplog"
	"go.uber.org/fx"
)

var Module = fx.Module("outbox",
	fx.Provide(
		NewWriter,
		newPublisher,
		newPoller,
	),
)

func newPublisher(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (message.Publisher, error) {
	publisher, err := amqplog.NewPublisher(cfg, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return publisher.Close() }})
	return publisher, nil
}

func newPoller(pool *pgxpool.Pool, publisher message.Publisher, logger *slog.Logger) *Poller {
	return NewPoller(pool, publisher, logger)
}
