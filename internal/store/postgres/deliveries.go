package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/webitel/broadcast-delivery-service/internal/apperr"
	"github.com/webitel/broadcast-delivery-service/internal/domain/broadcast"
)

// DeliveryRepository persists user_broadcast_messages and the derived
// broadcast_statistics counters.
type DeliveryRepository struct {
	pool *pgxpool.Pool
}

func NewDeliveryRepository(pool *pgxpool.Pool) *DeliveryRepository {
	return &DeliveryRepository{pool: pool}
}

// CreateMany idempotently seeds PENDING rows for a resolved audience, using
// ON CONFLICT DO NOTHING so a retried targeting pass is a no-op rather than
// a duplicate-key failure (spec's idempotency property). It reports back
// only the rows it actually inserted, so the caller can fan out exactly the
// recipients that are new this pass.
func (r *DeliveryRepository) CreateMany(ctx context.Context, broadcastID uuid.UUID, userIDs []uuid.UUID) ([]broadcast.SeededDelivery, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	rows := make([][]any, len(userIDs))
	ids := make([]uuid.UUID, len(userIDs))
	for i, uid := range userIDs {
		ids[i] = uuid.New()
		rows[i] = []any{ids[i], broadcastID, uid, broadcast.DeliveryPending, broadcast.ReadUnread}
	}

	// pgx.CopyFrom cannot express ON CONFLICT, so the batch lands in a
	// temporary staging table first and is merged with a single idempotent
	// INSERT ... SELECT, keeping the bulk-load speed CopyFrom is chosen for.
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.StoreUnavailable("begin seed deliveries", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `CREATE TEMP TABLE _staged_deliveries (
		id UUID, broadcast_id UUID, user_id UUID, delivery_status TEXT, read_status TEXT
	) ON COMMIT DROP`)
	if err != nil {
		return nil, apperr.StoreUnavailable("create staging table", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"_staged_deliveries"},
		[]string{"id", "broadcast_id", "user_id", "delivery_status", "read_status"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return nil, apperr.StoreUnavailable("copy staged deliveries", err)
	}

	insertRows, err := tx.Query(ctx, `
		INSERT INTO user_broadcast_messages (id, broadcast_id, user_id, delivery_status, read_status)
		SELECT id, broadcast_id, user_id, delivery_status, read_status FROM _staged_deliveries
		ON CONFLICT (broadcast_id, user_id) DO NOTHING
		RETURNING id, user_id`)
	if err != nil {
		return nil, apperr.StoreUnavailable("merge staged deliveries", err)
	}

	var seeded []broadcast.SeededDelivery
	for insertRows.Next() {
		var s broadcast.SeededDelivery
		if err := insertRows.Scan(&s.ID, &s.UserID); err != nil {
			insertRows.Close()
			return nil, apperr.StoreUnavailable("scan seeded delivery", err)
		}
		seeded = append(seeded, s)
	}
	insertRows.Close()
	if err := insertRows.Err(); err != nil {
		return nil, apperr.StoreUnavailable("iterate seeded deliveries", err)
	}

	if len(seeded) > 0 {
		if _, err := tx.Exec(ctx, `
			INSERT INTO broadcast_statistics (broadcast_id, total_targeted)
			VALUES ($1, $2)
			ON CONFLICT (broadcast_id) DO UPDATE SET total_targeted = broadcast_statistics.total_targeted + $2, updated_at = now()`,
			broadcastID, len(seeded)); err != nil {
			return nil, apperr.StoreUnavailable("bump targeted stat", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.StoreUnavailable("commit seed deliveries", err)
	}
	return seeded, nil
}

// MarkDelivered transitions PENDING/FAILED -> DELIVERED and bumps the
// delivered counter, used by the worker on successful push.
func (r *DeliveryRepository) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	return r.transitionDelivery(ctx, id, broadcast.DeliveryDelivered, true)
}

// MarkFailed transitions PENDING -> FAILED, used by the worker when delivery
// to a connected user still errors after retry.
func (r *DeliveryRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	return r.transitionDelivery(ctx, id, broadcast.DeliveryFailed, false)
}

// Supersede transitions a still-pending delivery row to SUPERSEDED when its
// broadcast is cancelled or expires before the row was ever delivered. It
// does not touch broadcast_statistics: a superseded send was never attempted,
// so it is neither a delivery nor a failure.
func (r *DeliveryRepository) Supersede(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE user_broadcast_messages
		SET delivery_status = 'SUPERSEDED', updated_at = now()
		WHERE id = $1 AND delivery_status = 'PENDING'`, id)
	if err != nil {
		return apperr.StoreUnavailable("supersede delivery", err)
	}
	return nil
}

// ResetToPending resets any FAILED rows of the broadcast identified by
// aggregateID back to PENDING, ahead of a DLT redrive of that broadcast's
// lifecycle event. Rows already DELIVERED or still PENDING are left alone:
// re-running audience resolution is idempotent (ON CONFLICT DO NOTHING), so
// the only rows worth resetting are the ones a prior failed attempt marked
// FAILED before the broadcast event itself ended up quarantined.
func (r *DeliveryRepository) ResetToPending(ctx context.Context, aggregateID string) error {
	broadcastID, err := uuid.Parse(aggregateID)
	if err != nil {
		return apperr.Validation("invalid_aggregate_id", "dlt redrive aggregate id is not a broadcast id")
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE user_broadcast_messages
		SET delivery_status = 'PENDING', delivered_at = NULL, updated_at = now()
		WHERE broadcast_id = $1 AND delivery_status = 'FAILED'`, broadcastID)
	if err != nil {
		return apperr.StoreUnavailable("reset failed deliveries to pending", err)
	}
	return nil
}

func (r *DeliveryRepository) transitionDelivery(ctx context.Context, id uuid.UUID, to broadcast.DeliveryStatus, bumpDelivered bool) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperr.StoreUnavailable("begin delivery transition", err)
	}
	defer tx.Rollback(ctx)

	var broadcastID uuid.UUID
	err = tx.QueryRow(ctx, `
		UPDATE user_broadcast_messages
		SET delivery_status = $1, delivered_at = CASE WHEN $1 = 'DELIVERED' THEN now() ELSE delivered_at END, updated_at = now()
		WHERE id = $2
		  AND (delivery_status = 'PENDING' OR ($1 = 'DELIVERED' AND delivery_status = 'FAILED'))
		RETURNING broadcast_id`, to, id).Scan(&broadcastID)
	if err == pgx.ErrNoRows {
		return nil
	}
	if err != nil {
		return apperr.StoreUnavailable("update delivery status", err)
	}

	column := "total_failed"
	if bumpDelivered {
		column = "total_delivered"
	}
	if _, err := tx.Exec(ctx, `
		UPDATE broadcast_statistics SET `+column+` = `+column+` + 1, updated_at = now()
		WHERE broadcast_id = $1`, broadcastID); err != nil {
		return apperr.StoreUnavailable("bump delivery stat", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.StoreUnavailable("commit delivery transition", err)
	}
	return nil
}

// MarkRead transitions UNREAD -> READ for a user's delivery row.
func (r *DeliveryRepository) MarkRead(ctx context.Context, broadcastID, userID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperr.StoreUnavailable("begin mark read", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE user_broadcast_messages
		SET read_status = 'READ', read_at = now(), updated_at = now()
		WHERE broadcast_id = $1 AND user_id = $2 AND read_status = 'UNREAD'`, broadcastID, userID)
	if err != nil {
		return apperr.StoreUnavailable("update read status", err)
	}
	if tag.RowsAffected() == 0 {
		return nil // already read, or no such delivery: idempotent no-op
	}

	if _, err := tx.Exec(ctx, `
		UPDATE broadcast_statistics SET total_read = total_read + 1, updated_at = now()
		WHERE broadcast_id = $1`, broadcastID); err != nil {
		return apperr.StoreUnavailable("bump read stat", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.StoreUnavailable("commit mark read", err)
	}
	return nil
}

// ReadEventEmitter appends an outbox row within tx; satisfied by
// outbox.Writer, kept as a narrow local interface to avoid a store->store
// package dependency.
type ReadEventEmitter interface {
	Emit(ctx context.Context, tx pgx.Tx, aggregateID uuid.UUID, eventType, topic string, payload any) error
}

// MarkReadAndEmit performs the same transition as MarkRead but, within the
// same transaction, also emits a READ event through the outbox so connected
// sessions (including the sender's own other devices) learn of the read
// receipt via the orchestration log rather than a direct local broadcast.
func (r *DeliveryRepository) MarkReadAndEmit(ctx context.Context, broadcastID, userID uuid.UUID, emitter ReadEventEmitter, topic string, payload any) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperr.StoreUnavailable("begin mark read", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE user_broadcast_messages
		SET read_status = 'READ', read_at = now(), updated_at = now()
		WHERE broadcast_id = $1 AND user_id = $2 AND read_status = 'UNREAD'`, broadcastID, userID)
	if err != nil {
		return apperr.StoreUnavailable("update read status", err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE broadcast_statistics SET total_read = total_read + 1, updated_at = now()
		WHERE broadcast_id = $1`, broadcastID); err != nil {
		return apperr.StoreUnavailable("bump read stat", err)
	}

	if err := emitter.Emit(ctx, tx, broadcastID, "READ", topic, payload); err != nil {
		return apperr.LogUnavailable("emit read event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.StoreUnavailable("commit mark read", err)
	}
	return nil
}

// PendingForBroadcast returns up to limit PENDING delivery rows of the
// broadcast, oldest first. It takes no cursor: the orchestrator's cancel and
// expire handling calls it repeatedly until no PENDING rows are left.
func (r *DeliveryRepository) PendingForBroadcast(ctx context.Context, broadcastID uuid.UUID, limit int) ([]*broadcast.UserBroadcast, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, broadcast_id, user_id, delivery_status, read_status, delivered_at, read_at, created_at, updated_at
		FROM user_broadcast_messages
		WHERE broadcast_id = $1 AND delivery_status = 'PENDING'
		ORDER BY created_at
		LIMIT $2`, broadcastID, limit)
	if err != nil {
		return nil, apperr.StoreUnavailable("query pending deliveries", err)
	}
	defer rows.Close()

	var out []*broadcast.UserBroadcast
	for rows.Next() {
		var ub broadcast.UserBroadcast
		if err := rows.Scan(&ub.ID, &ub.BroadcastID, &ub.UserID, &ub.DeliveryStatus, &ub.ReadStatus,
			&ub.DeliveredAt, &ub.ReadAt, &ub.CreatedAt, &ub.UpdatedAt); err != nil {
			return nil, apperr.StoreUnavailable("scan pending delivery", err)
		}
		out = append(out, &ub)
	}
	return out, rows.Err()
}

// ListByBroadcast returns every delivery row for a broadcast regardless of
// status, for the admin `.../deliveries` inspection endpoint.
func (r *DeliveryRepository) ListByBroadcast(ctx context.Context, broadcastID uuid.UUID, limit int) ([]*broadcast.UserBroadcast, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, broadcast_id, user_id, delivery_status, read_status, delivered_at, read_at, created_at, updated_at
		FROM user_broadcast_messages
		WHERE broadcast_id = $1
		ORDER BY created_at
		LIMIT $2`, broadcastID, limit)
	if err != nil {
		return nil, apperr.StoreUnavailable("query deliveries", err)
	}
	defer rows.Close()

	var out []*broadcast.UserBroadcast
	for rows.Next() {
		var ub broadcast.UserBroadcast
		if err := rows.Scan(&ub.ID, &ub.BroadcastID, &ub.UserID, &ub.DeliveryStatus, &ub.ReadStatus,
			&ub.DeliveredAt, &ub.ReadAt, &ub.CreatedAt, &ub.UpdatedAt); err != nil {
			return nil, apperr.StoreUnavailable("scan delivery", err)
		}
		out = append(out, &ub)
	}
	return out, rows.Err()
}

func (r *DeliveryRepository) Statistics(ctx context.Context, broadcastID uuid.UUID) (*broadcast.Statistics, error) {
	var s broadcast.Statistics
	s.BroadcastID = broadcastID
	err := r.pool.QueryRow(ctx, `
		SELECT total_targeted, total_delivered, total_read, total_failed
		FROM broadcast_statistics WHERE broadcast_id = $1`, broadcastID,
	).Scan(&s.TotalTargeted, &s.TotalDelivered, &s.TotalRead, &s.TotalFailed)
	if err != nil {
		if err == pgx.ErrNoRows {
			return &s, nil
		}
		return nil, apperr.StoreUnavailable("query statistics", err)
	}
	return &s, nil
}
