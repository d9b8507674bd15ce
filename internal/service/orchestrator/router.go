package orchestrator

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/webitel/broadcast-delivery-service/internal/config"
	"go.uber.org/fx"
)

// NewRouter wires a watermill router with the process logger bridged in,
// adapted from the teacher's internal/handler/amqp/router.go.
func NewRouter(lc fx.Lifecycle, logger *slog.Logger) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := router.Run(context.Background()); err != nil {
					logger.Error("orchestrator: router stopped", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			return router.Close()
		},
	})

	return router, nil
}

// RegisterHandler subscribes the orchestrator consumer to the orchestration
// topic under a single shared consumer group: unlike the teacher's
// per-connection push path (where every pod deliberately gets its own fanout
// queue, since each pod owns a disjoint set of live connections), audience
// resolution and delivery-row seeding must happen exactly once per broadcast
// event, so every pod here competes for the same named queue instead.
func RegisterHandler(router *message.Router, subscriber message.Subscriber, consumer *Consumer, cfg *config.Config) {
	router.AddNoPublisherHandler(
		cfg.Kafka.Consumer.GroupOrchestration,
		cfg.Kafka.Topic.NameOrchestration,
		subscriber,
		consumer.Handler(),
	)
}
