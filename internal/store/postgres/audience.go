package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/webitel/broadcast-delivery-service/internal/apperr"
)

// AudienceRepository persists the precomputed audience for fan-out-on-write
// (PRODUCT) broadcasts, per spec §4.2.
type AudienceRepository struct {
	pool *pgxpool.Pool
}

func NewAudienceRepository(pool *pgxpool.Pool) *AudienceRepository {
	return &AudienceRepository{pool: pool}
}

// InsertBatch bulk-loads resolved userIDs via CopyFrom with ON CONFLICT DO
// NOTHING idempotency, so a re-run of a partially-failed precompute pass
// never double-counts a user.
func (r *AudienceRepository) InsertBatch(ctx context.Context, broadcastID uuid.UUID, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperr.StoreUnavailable("begin audience batch", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `CREATE TEMP TABLE _staged_audience (broadcast_id UUID, user_id UUID) ON COMMIT DROP`); err != nil {
		return apperr.StoreUnavailable("create audience staging table", err)
	}

	rows := make([][]any, len(userIDs))
	for i, uid := range userIDs {
		rows[i] = []any{broadcastID, uid}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"_staged_audience"}, []string{"broadcast_id", "user_id"}, pgx.CopyFromRows(rows)); err != nil {
		return apperr.StoreUnavailable("copy staged audience", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO broadcast_audience (broadcast_id, user_id)
		SELECT broadcast_id, user_id FROM _staged_audience
		ON CONFLICT (broadcast_id, user_id) DO NOTHING`); err != nil {
		return apperr.StoreUnavailable("merge staged audience", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.StoreUnavailable("commit audience batch", err)
	}
	return nil
}

// Page returns up to limit audience userIDs after (ordered by) offset user,
// for the orchestrator's PRODUCT dispatch cursor.
func (r *AudienceRepository) Page(ctx context.Context, broadcastID uuid.UUID, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id FROM broadcast_audience
		WHERE broadcast_id = $1 AND user_id > $2
		ORDER BY user_id
		LIMIT $3`, broadcastID, after, limit)
	if err != nil {
		return nil, apperr.StoreUnavailable("query audience page", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.StoreUnavailable("scan audience row", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
