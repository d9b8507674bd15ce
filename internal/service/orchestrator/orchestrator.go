// Package orchestrator consumes broadcast lifecycle events off the
// orchestration log topic and fans them out to the grid: one UserInbox
// entry (and a PendingEvents enqueue for users currently offline) per
// targeted recipient. The consumer shape — panic recovery, payload decode,
// domain execution, fan-out dispatch — is adapted from the teacher's
// internal/handler/amqp/bind.go, generalized from "one message already
// addressed to one connected user" to "one broadcast event that must be
// resolved into many recipients first".
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/webitel/broadcast-delivery-service/internal/apperr"
	"github.com/webitel/broadcast-delivery-service/internal/config"
	"github.com/webitel/broadcast-delivery-service/internal/domain/broadcast"
	"github.com/webitel/broadcast-delivery-service/internal/domain/event"
	"github.com/webitel/broadcast-delivery-service/internal/grid"
)

// pendingTTL bounds how long an offline user's queued event survives before
// it is considered stale; spec leaves the exact figure unspecified so it is
// tied to the SSE reconnect-replay window rather than invented from nothing.
const pendingTTL = 24 * time.Hour

// BroadcastLookup resolves a broadcast's full record (content, target spec)
// given just the ID carried on the wire event.
type BroadcastLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*broadcast.Broadcast, error)
}

// AudienceResolver resolves fan-out-on-read targets at consume time.
type AudienceResolver interface {
	Resolve(ctx context.Context, t broadcast.TargetSpec) ([]uuid.UUID, error)
}

// AudiencePager pages a precomputed fan-out-on-write audience.
type AudiencePager interface {
	Page(ctx context.Context, broadcastID uuid.UUID, after uuid.UUID, limit int) ([]uuid.UUID, error)
}

// DeliverySeeder seeds PENDING user_broadcast_messages rows for a resolved
// audience, idempotently, and supersedes them on cancel/expire.
type DeliverySeeder interface {
	CreateMany(ctx context.Context, broadcastID uuid.UUID, userIDs []uuid.UUID) ([]broadcast.SeededDelivery, error)
	PendingForBroadcast(ctx context.Context, broadcastID uuid.UUID, limit int) ([]*broadcast.UserBroadcast, error)
	Supersede(ctx context.Context, id uuid.UUID) error
}

const audiencePageSize = 1000

// DLTWriter quarantines a message the orchestrator could not process,
// mirroring the outbox poller's dlt_messages insert.
type DLTWriter interface {
	Insert(ctx context.Context, topic, key, title, stackTrace string, payload []byte) error
}

type Consumer struct {
	broadcasts   BroadcastLookup
	resolver     AudienceResolver
	pager        AudiencePager
	deliveries   DeliverySeeder
	grid         grid.Grid
	dlt          DLTWriter
	topic        string
	maxAttempts  uint64
	backoffDelay time.Duration
	logger       *slog.Logger
}

func NewConsumer(broadcasts BroadcastLookup, resolver AudienceResolver, pager AudiencePager, deliveries DeliverySeeder, g grid.Grid, dlt DLTWriter, cfg *config.Config, logger *slog.Logger) *Consumer {
	return &Consumer{
		broadcasts:   broadcasts,
		resolver:     resolver,
		pager:        pager,
		deliveries:   deliveries,
		grid:         g,
		dlt:          dlt,
		topic:        cfg.Kafka.Topic.NameOrchestration,
		maxAttempts:  uint64(cfg.Kafka.Retry.MaxAttempts),
		backoffDelay: cfg.Kafka.Retry.BackoffDelay,
		logger:       logger,
	}
}

// Handler returns a watermill NoPublishHandlerFunc: orchestration is a
// fan-out sink, it never re-publishes onto the same log. A processing
// failure is retried in-process, with backoff, up to maxAttempts times after
// the first attempt (maxAttempts+1 calls in all) before the event is
// quarantined into dlt_messages and acked, so a broadcast that can never fan
// out doesn't nack-and-redeliver forever. The bound comes from the same
// kafka.retry settings as internal/worker's push retries, which count
// maxAttempts calls in all.
func (c *Consumer) Handler() message.NoPublishHandlerFunc {
	return func(msg *message.Message) (err error) {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("orchestrator: panic recovered", "panic", r, "stack", string(debug.Stack()), "msg_id", msg.UUID)
			}
		}()

		var ev event.MessageDeliveryEvent
		if unmarshalErr := json.Unmarshal(msg.Payload, &ev); unmarshalErr != nil {
			return c.quarantine(msg.Context(), msg, "unmarshalable orchestration event", apperr.Poison("decode orchestration event", unmarshalErr))
		}

		policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(c.backoffDelay), c.maxAttempts)
		processErr := backoff.Retry(func() error {
			return c.dispatch(msg.Context(), ev)
		}, policy)
		if processErr != nil {
			return c.quarantine(msg.Context(), msg, "orchestration event failed after retry budget", apperr.Processing("process orchestration event", processErr))
		}
		return nil
	}
}

// quarantine persists msg into dlt_messages and acks it, the only way a
// poison or permanently-failing orchestration event stops being redelivered.
func (c *Consumer) quarantine(ctx context.Context, msg *message.Message, title string, cause error) error {
	c.logger.Error("orchestrator: quarantining event", "msg_id", msg.UUID, "error", cause)
	key := msg.Metadata.Get("aggregate_id")
	if key == "" {
		key = msg.UUID
	}
	if err := c.dlt.Insert(ctx, c.topic, key, title, cause.Error(), msg.Payload); err != nil {
		return fmt.Errorf("orchestrator: quarantine to dlt: %w", err)
	}
	return nil
}

func (c *Consumer) dispatch(ctx context.Context, ev event.MessageDeliveryEvent) error {
	switch ev.Kind {
	case event.KindCreated:
		return c.handleCreated(ctx, ev.BroadcastID)
	case event.KindCancelled, event.KindExpired:
		return c.handleSuperseded(ctx, ev)
	case event.KindRead:
		return c.handleRead(ctx, ev)
	default:
		return nil
	}
}

func (c *Consumer) handleCreated(ctx context.Context, broadcastID uuid.UUID) error {
	b, err := c.broadcasts.GetByID(ctx, broadcastID)
	if err != nil {
		return fmt.Errorf("orchestrator: load broadcast %s: %w", broadcastID, err)
	}

	if b.Target.Mode() == broadcast.FanOutOnWrite {
		return c.dispatchPrecomputed(ctx, b)
	}
	return c.dispatchResolved(ctx, b)
}

func (c *Consumer) dispatchResolved(ctx context.Context, b *broadcast.Broadcast) error {
	userIDs, err := c.resolver.Resolve(ctx, b.Target)
	if err != nil {
		return fmt.Errorf("orchestrator: resolve audience: %w", err)
	}
	seeded, err := c.deliveries.CreateMany(ctx, b.ID, userIDs)
	if err != nil {
		return fmt.Errorf("orchestrator: seed deliveries: %w", err)
	}
	return c.fanOut(ctx, b, seeded)
}

func (c *Consumer) dispatchPrecomputed(ctx context.Context, b *broadcast.Broadcast) error {
	var after uuid.UUID
	for {
		page, err := c.pager.Page(ctx, b.ID, after, audiencePageSize)
		if err != nil {
			return fmt.Errorf("orchestrator: page audience: %w", err)
		}
		if len(page) == 0 {
			return nil
		}
		seeded, err := c.deliveries.CreateMany(ctx, b.ID, page)
		if err != nil {
			return fmt.Errorf("orchestrator: seed precomputed deliveries: %w", err)
		}
		if err := c.fanOut(ctx, b, seeded); err != nil {
			return err
		}
		after = page[len(page)-1]
	}
}

// fanOut pushes one MessageDeliveryEvent per newly-seeded row into UserInbox,
// queuing a PendingEvents fallback for anyone not currently online anywhere
// in the cluster. Only rows CreateMany actually inserted are walked, so a
// redelivered orchestration message (at-least-once) fans out nothing the
// first pass already fanned out. It never talks to a local Hub directly:
// that is the worker's job once it observes the inbox write via
// grid.Subscribe.
func (c *Consumer) fanOut(ctx context.Context, b *broadcast.Broadcast, seeded []broadcast.SeededDelivery) error {
	for _, s := range seeded {
		ev := event.New(b.ID, s.UserID, event.KindCreated, b.Content, b.FireAndForget)
		ev.DeliveryRowID = s.ID

		online, err := c.grid.IsOnline(ctx, s.UserID)
		if err != nil {
			c.logger.Warn("orchestrator: online check failed, queuing pending as fallback", "user_id", s.UserID, "error", err)
			online = false
		}

		if err := c.grid.PushInbox(ctx, s.UserID, grid.InboxEntry{
			DeliveryRowID:  s.ID,
			BroadcastID:    b.ID,
			DeliveryStatus: "PENDING",
			ReadStatus:     "UNREAD",
			CreatedAt:      time.Now(),
		}); err != nil {
			return fmt.Errorf("orchestrator: push inbox for %s: %w", s.UserID, err)
		}

		if !online {
			payload, err := json.Marshal(ev)
			if err != nil {
				return fmt.Errorf("orchestrator: marshal pending event: %w", err)
			}
			if err := c.grid.EnqueuePending(ctx, s.UserID, payload, pendingTTL); err != nil {
				return fmt.Errorf("orchestrator: enqueue pending for %s: %w", s.UserID, err)
			}
		}
	}
	return nil
}

// handleSuperseded marks every still-PENDING delivery row for the broadcast
// as SUPERSEDED and pushes a matching inbox entry so any pod holding an open
// connection for the affected user can drop the now-stale message.
func (c *Consumer) handleSuperseded(ctx context.Context, ev event.MessageDeliveryEvent) error {
	for {
		pending, err := c.deliveries.PendingForBroadcast(ctx, ev.BroadcastID, audiencePageSize)
		if err != nil {
			return fmt.Errorf("orchestrator: list pending deliveries: %w", err)
		}
		if len(pending) == 0 {
			return nil
		}

		for _, ub := range pending {
			if err := c.deliveries.Supersede(ctx, ub.ID); err != nil {
				return fmt.Errorf("orchestrator: supersede delivery %s: %w", ub.ID, err)
			}
			if err := c.grid.PushInbox(ctx, ub.UserID, grid.InboxEntry{
				DeliveryRowID:  ub.ID,
				BroadcastID:    ev.BroadcastID,
				DeliveryStatus: "SUPERSEDED",
				ReadStatus:     "UNREAD",
				CreatedAt:      time.Now(),
			}); err != nil {
				return fmt.Errorf("orchestrator: push supersede signal for %s: %w", ub.UserID, err)
			}
		}
	}
}

// handleRead fans a read receipt out to every other pod holding a live
// connection for the user, so a message read on one device drops its unread
// badge on the rest. The row itself was already transitioned by
// DeliveryRepository.MarkReadAndEmit before this event ever reached the
// orchestration log; this handler exists purely to push the signal onto the
// grid, the same path handleCreated and handleSuperseded use.
func (c *Consumer) handleRead(ctx context.Context, ev event.MessageDeliveryEvent) error {
	if err := c.grid.PushInbox(ctx, ev.UserID, grid.InboxEntry{
		DeliveryRowID:  ev.DeliveryRowID,
		BroadcastID:    ev.BroadcastID,
		DeliveryStatus: string(broadcast.DeliveryDelivered),
		ReadStatus:     string(broadcast.ReadRead),
		CreatedAt:      time.Now(),
	}); err != nil {
		return fmt.Errorf("orchestrator: push read receipt for %s: %w", ev.UserID, err)
	}
	return nil
}
