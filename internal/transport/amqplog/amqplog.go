// Package amqplog builds the watermill-amqp publisher and subscriber used
// as the Log abstraction of spec §3/§4.3: the orchestration topic and its
// sibling dead-letter topic. The teacher's own pubsub wiring
// (internal/adapter/pubsub, infra/pubsub/factory) depends on an internal
// factory package that was not present in the retrieval pack, so this talks
// to watermill-amqp/v3 directly instead of reconstructing an unseen
// abstraction, keeping the same durable-topic-exchange shape the teacher
// configures (internal/adapter/pubsub/publisher.go: topic exchange, durable).
package amqplog

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	amqp "github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/webitel/broadcast-delivery-service/internal/config"
)

// NewPublisher opens a durable topic-exchange publisher against the
// configured broker, used by the outbox poller and the DLT redrive path.
func NewPublisher(cfg *config.Config, logger *slog.Logger) (message.Publisher, error) {
	amqpCfg := amqp.NewDurablePubSubConfig(cfg.Kafka.BrokerURL, nil)
	return amqp.NewPublisher(amqpCfg, watermill.NewSlogLogger(logger))
}

// NewSubscriber opens a durable subscriber bound to queueName: the
// orchestrator uses one shared queue name so the cluster behaves as a
// competing-consumer group, per orchestrator.RegisterHandler's doc comment.
func NewSubscriber(cfg *config.Config, queueName string, logger *slog.Logger) (message.Subscriber, error) {
	amqpCfg := amqp.NewDurablePubSubConfig(cfg.Kafka.BrokerURL, func(string) string { return queueName })
	return amqp.NewSubscriber(amqpCfg, watermill.NewSlogLogger(logger))
}
