package orchestrator

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/webitel/broadcast-delivery-service/internal/config"
	"github.com/webitel/broadcast-delivery-service/internal/transport/amqplog"
	"go.uber.org/fx"
)

var Module = fx.Module("orchestrator",
	fx.Provide(
		NewConsumer,
		newSubscriber,
		NewRouter,
	),
	fx.Invoke(RegisterHandler),
)

func newSubscriber(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (message.Subscriber, error) {
	subscriber, err := amqplog.NewSubscriber(cfg, cfg.Kafka.Consumer.GroupOrchestration, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return subscriber.Close() }})
	return subscriber, nil
}
