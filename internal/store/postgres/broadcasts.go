package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/webitel/broadcast-delivery-service/internal/apperr"
	"github.com/webitel/broadcast-delivery-service/internal/domain/broadcast"
)

// BroadcastRepository persists broadcast_messages and its audit trail.
type BroadcastRepository struct {
	pool *pgxpool.Pool
}

func NewBroadcastRepository(pool *pgxpool.Pool) *BroadcastRepository {
	return &BroadcastRepository{pool: pool}
}

func (r *BroadcastRepository) Create(ctx context.Context, b *broadcast.Broadcast) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO broadcast_messages
			(id, sender_id, content, priority, category, target_kind, target_role,
			 target_product, target_user_ids, scheduled_at, expires_at,
			 fire_and_forget, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		b.ID, b.SenderID, b.Content, b.Priority, b.Category,
		b.Target.Kind, b.Target.Role, b.Target.Product, b.Target.UserIDs,
		b.ScheduledAt, b.ExpiresAt, b.FireAndForget, b.Status, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return apperr.StoreUnavailable("insert broadcast", err)
	}
	return nil
}

func (r *BroadcastRepository) GetByID(ctx context.Context, id uuid.UUID) (*broadcast.Broadcast, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, sender_id, content, priority, category, target_kind, target_role,
		       target_product, target_user_ids, scheduled_at, expires_at,
		       fire_and_forget, status, created_at, updated_at
		FROM broadcast_messages WHERE id = $1`, id)
	return scanBroadcast(row)
}

// TransitionStatus performs a compare-and-swap status update and records the
// transition in the audit trail within the same transaction, so the history
// table can never disagree with the row it describes.
func (r *BroadcastRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to broadcast.Status, reason string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperr.StoreUnavailable("begin transition", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE broadcast_messages SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return apperr.StoreUnavailable("update status", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ConflictCAS("broadcast status changed concurrently", nil)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO broadcast_state_transitions (broadcast_id, from_status, to_status, reason, occurred_at)
		VALUES ($1,$2,$3,$4, now())`, id, from, to, reason)
	if err != nil {
		return apperr.StoreUnavailable("record transition", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.StoreUnavailable("commit transition", err)
	}
	return nil
}

func (r *BroadcastRepository) History(ctx context.Context, id uuid.UUID) ([]broadcast.StateTransition, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT broadcast_id, from_status, to_status, reason, occurred_at
		FROM broadcast_state_transitions WHERE broadcast_id = $1 ORDER BY occurred_at`, id)
	if err != nil {
		return nil, apperr.StoreUnavailable("query history", err)
	}
	defer rows.Close()

	var out []broadcast.StateTransition
	for rows.Next() {
		var t broadcast.StateTransition
		if err := rows.Scan(&t.BroadcastID, &t.FromStatus, &t.ToStatus, &t.Reason, &t.OccurredAt); err != nil {
			return nil, apperr.StoreUnavailable("scan history", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DueForActivation returns READY and SCHEDULED broadcasts whose scheduled_at
// is unset or has arrived, for the activation scheduler loop.
func (r *BroadcastRepository) DueForActivation(ctx context.Context, asOf time.Time, limit int) ([]*broadcast.Broadcast, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, sender_id, content, priority, category, target_kind, target_role,
		       target_product, target_user_ids, scheduled_at, expires_at,
		       fire_and_forget, status, created_at, updated_at
		FROM broadcast_messages
		WHERE status IN ('READY', 'SCHEDULED') AND (scheduled_at IS NULL OR scheduled_at <= $1)
		ORDER BY scheduled_at NULLS FIRST
		LIMIT $2`, asOf, limit)
	if err != nil {
		return nil, apperr.StoreUnavailable("query due broadcasts", err)
	}
	defer rows.Close()
	return collectBroadcasts(rows)
}

// ListPreparing returns PREPARING broadcasts awaiting PRODUCT audience
// precomputation, for the precompute scheduler loop.
func (r *BroadcastRepository) ListPreparing(ctx context.Context, limit int) ([]*broadcast.Broadcast, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, sender_id, content, priority, category, target_kind, target_role,
		       target_product, target_user_ids, scheduled_at, expires_at,
		       fire_and_forget, status, created_at, updated_at
		FROM broadcast_messages
		WHERE status = 'PREPARING'
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, apperr.StoreUnavailable("query preparing broadcasts", err)
	}
	defer rows.Close()
	return collectBroadcasts(rows)
}

// List returns broadcasts matching filter ("all", "active", "scheduled"),
// newest first, for the admin listing endpoint.
func (r *BroadcastRepository) List(ctx context.Context, filter string, limit int) ([]*broadcast.Broadcast, error) {
	query := `
		SELECT id, sender_id, content, priority, category, target_kind, target_role,
		       target_product, target_user_ids, scheduled_at, expires_at,
		       fire_and_forget, status, created_at, updated_at
		FROM broadcast_messages`
	var args []any
	switch filter {
	case "active":
		query += ` WHERE status = $1`
		args = append(args, broadcast.StatusActive)
	case "scheduled":
		query += ` WHERE status = $1`
		args = append(args, broadcast.StatusScheduled)
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.StoreUnavailable("query broadcasts", err)
	}
	defer rows.Close()
	return collectBroadcasts(rows)
}

// DueForExpiration returns ACTIVE broadcasts past their expires_at.
func (r *BroadcastRepository) DueForExpiration(ctx context.Context, asOf time.Time, limit int) ([]*broadcast.Broadcast, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, sender_id, content, priority, category, target_kind, target_role,
		       target_product, target_user_ids, scheduled_at, expires_at,
		       fire_and_forget, status, created_at, updated_at
		FROM broadcast_messages
		WHERE status = 'ACTIVE' AND expires_at IS NOT NULL AND expires_at <= $1
		LIMIT $2`, asOf, limit)
	if err != nil {
		return nil, apperr.StoreUnavailable("query expiring broadcasts", err)
	}
	defer rows.Close()
	return collectBroadcasts(rows)
}

func collectBroadcasts(rows pgx.Rows) ([]*broadcast.Broadcast, error) {
	var out []*broadcast.Broadcast
	for rows.Next() {
		b, err := scanBroadcastRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBroadcast(row rowScanner) (*broadcast.Broadcast, error) {
	b, err := scanBroadcastRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("broadcast_not_found", "broadcast not found")
		}
		return nil, apperr.StoreUnavailable("scan broadcast", err)
	}
	return b, nil
}

func scanBroadcastRow(row rowScanner) (*broadcast.Broadcast, error) {
	var b broadcast.Broadcast
	err := row.Scan(
		&b.ID, &b.SenderID, &b.Content, &b.Priority, &b.Category,
		&b.Target.Kind, &b.Target.Role, &b.Target.Product, &b.Target.UserIDs,
		&b.ScheduledAt, &b.ExpiresAt, &b.FireAndForget, &b.Status, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan broadcast row: %w", err)
	}
	return &b, nil
}
