// Package lifecycle implements the broadcast state machine of spec §4.1:
// PREPARING -> READY -> SCHEDULED -> ACTIVE -> {EXPIRED, CANCELLED, FAILED}.
// Every transition that needs to notify the rest of the cluster writes its
// MessageDeliveryEvent through the transactional outbox in the same
// database transaction as the status change, so a crash between "committed"
// and "published" is impossible by construction.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/webitel/broadcast-delivery-service/internal/config"
	"github.com/webitel/broadcast-delivery-service/internal/domain/broadcast"
	"github.com/webitel/broadcast-delivery-service/internal/domain/event"
)

// BroadcastStore is the subset of postgres.BroadcastRepository lifecycle
// depends on.
type BroadcastStore interface {
	Create(ctx context.Context, b *broadcast.Broadcast) error
	GetByID(ctx context.Context, id uuid.UUID) (*broadcast.Broadcast, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to broadcast.Status, reason string) error
}

// OutboxEmitter appends an event row within tx.
type OutboxEmitter interface {
	Emit(ctx context.Context, tx pgx.Tx, aggregateID uuid.UUID, eventType, topic string, payload any) error
}

type Service struct {
	pool    *pgxpool.Pool
	store   BroadcastStore
	emitter OutboxEmitter
	topic   string
}

func New(pool *pgxpool.Pool, store BroadcastStore, emitter OutboxEmitter, cfg *config.Config) *Service {
	return &Service{pool: pool, store: store, emitter: emitter, topic: cfg.Kafka.Topic.NameOrchestration}
}

// Create validates and inserts a new broadcast. Fan-out-on-write targets
// start PREPARING, scheduled or not, until the precompute scheduler has run;
// other targets start READY when immediate (unscheduled) and SCHEDULED
// otherwise.
func (s *Service) Create(ctx context.Context, b *broadcast.Broadcast) error {
	if err := b.ValidateForCreate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	b.ID = uuid.New()
	b.CreatedAt = now
	b.UpdatedAt = now

	switch {
	case b.Target.Mode() == broadcast.FanOutOnWrite:
		b.Status = broadcast.StatusPreparing
	case b.Immediate():
		b.Status = broadcast.StatusReady
	default:
		b.Status = broadcast.StatusScheduled
	}

	return s.store.Create(ctx, b)
}

// MarkReady transitions a PREPARING broadcast (one whose PRODUCT audience
// has finished precomputing) to READY or SCHEDULED depending on whether it
// has a future scheduled_at.
func (s *Service) MarkReady(ctx context.Context, broadcastID uuid.UUID) error {
	b, err := s.store.GetByID(ctx, broadcastID)
	if err != nil {
		return err
	}

	to := broadcast.StatusReady
	if !b.Immediate() {
		to = broadcast.StatusScheduled
	}
	return s.store.TransitionStatus(ctx, broadcastID, broadcast.StatusPreparing, to, "audience precomputed")
}

// Activate moves a READY/SCHEDULED broadcast to ACTIVE and emits a CREATED
// event for the orchestrator to fan out, atomically.
func (s *Service) Activate(ctx context.Context, broadcastID uuid.UUID) error {
	b, err := s.store.GetByID(ctx, broadcastID)
	if err != nil {
		return err
	}

	from := broadcast.StatusReady
	if !b.Immediate() {
		from = broadcast.StatusScheduled
	}

	return s.transitionWithEvent(ctx, b, from, broadcast.StatusActive, "activated", event.KindCreated)
}

// Cancel moves a non-terminal broadcast to CANCELLED and emits a CANCELLED
// event so the worker can supersede any still-pending deliveries.
func (s *Service) Cancel(ctx context.Context, broadcastID uuid.UUID, reason string) error {
	b, err := s.store.GetByID(ctx, broadcastID)
	if err != nil {
		return err
	}
	if b.Status.Terminal() {
		return fmt.Errorf("lifecycle: broadcast %s is already terminal (%s)", broadcastID, b.Status)
	}
	return s.transitionWithEvent(ctx, b, b.Status, broadcast.StatusCancelled, reason, event.KindCancelled)
}

// Expire moves an ACTIVE broadcast past its expires_at to EXPIRED.
func (s *Service) Expire(ctx context.Context, broadcastID uuid.UUID) error {
	return s.transitionByID(ctx, broadcastID, broadcast.StatusActive, broadcast.StatusExpired, "expired", event.KindExpired)
}

// Fail moves a broadcast to FAILED, used when activation or targeting
// itself cannot be completed (not a per-recipient delivery failure, which
// lives on the UserBroadcast row instead).
func (s *Service) Fail(ctx context.Context, broadcastID uuid.UUID, reason string) error {
	b, err := s.store.GetByID(ctx, broadcastID)
	if err != nil {
		return err
	}
	return s.transitionWithEvent(ctx, b, b.Status, broadcast.StatusFailed, reason, event.KindFailed)
}

func (s *Service) transitionByID(ctx context.Context, broadcastID uuid.UUID, from, to broadcast.Status, reason string, kind event.Kind) error {
	b, err := s.store.GetByID(ctx, broadcastID)
	if err != nil {
		return err
	}
	return s.transitionWithEvent(ctx, b, from, to, reason, kind)
}

func (s *Service) transitionWithEvent(ctx context.Context, b *broadcast.Broadcast, from, to broadcast.Status, reason string, kind event.Kind) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("lifecycle: begin transition: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE broadcast_messages SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3`, to, b.ID, from)
	if err != nil {
		return fmt.Errorf("lifecycle: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lifecycle: broadcast %s not in expected status %s", b.ID, from)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO broadcast_state_transitions (broadcast_id, from_status, to_status, reason, occurred_at)
		VALUES ($1,$2,$3,$4, now())`, b.ID, from, to, reason); err != nil {
		return fmt.Errorf("lifecycle: record transition: %w", err)
	}

	ev := event.New(b.ID, uuid.Nil, kind, b.Content, b.FireAndForget)
	if err := s.emitter.Emit(ctx, tx, b.ID, string(kind), s.topic, ev); err != nil {
		return fmt.Errorf("lifecycle: emit event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("lifecycle: commit transition: %w", err)
	}
	return nil
}
