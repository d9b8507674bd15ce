package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/webitel/broadcast-delivery-service/internal/apperr"
	"github.com/webitel/broadcast-delivery-service/internal/domain/outbox"
)

// DLTRepository backs the dead-letter manager: listing, redriving, and
// purging quarantined messages.
type DLTRepository struct {
	pool *pgxpool.Pool
}

func NewDLTRepository(pool *pgxpool.Pool) *DLTRepository {
	return &DLTRepository{pool: pool}
}

// Insert quarantines a message the orchestrator gave up on, either because
// it never deserialized or because it kept failing past the configured
// retry budget. Mirrors the outbox poller's quarantine() insert, the other
// writer into dlt_messages.
func (r *DLTRepository) Insert(ctx context.Context, topic, key, title, stackTrace string, payload []byte) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO dlt_messages (id, original_topic, message_key, failure_title, stack_trace, original_payload, failed_at)
		VALUES ($1,$2,$3,$4,$5,$6, now())`,
		uuid.NewString(), topic, key, title, stackTrace, payload)
	if err != nil {
		return apperr.StoreUnavailable("insert dlt message", err)
	}
	return nil
}

func (r *DLTRepository) ListActive(ctx context.Context, limit int) ([]outbox.DltRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, original_topic, original_partition, original_offset, message_key,
		       failure_title, stack_trace, original_payload, failed_at
		FROM dlt_messages
		WHERE redriven_at IS NULL AND purged_at IS NULL
		ORDER BY failed_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, apperr.StoreUnavailable("list dlt messages", err)
	}
	defer rows.Close()

	var out []outbox.DltRecord
	for rows.Next() {
		var rec outbox.DltRecord
		if err := rows.Scan(&rec.ID, &rec.OriginalTopic, &rec.OriginalPartition, &rec.OriginalOffset,
			&rec.Key, &rec.FailureTitle, &rec.StackTrace, &rec.OriginalPayload, &rec.FailedAt); err != nil {
			return nil, apperr.StoreUnavailable("scan dlt message", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *DLTRepository) Get(ctx context.Context, id string) (*outbox.DltRecord, error) {
	var rec outbox.DltRecord
	err := r.pool.QueryRow(ctx, `
		SELECT id, original_topic, original_partition, original_offset, message_key,
		       failure_title, stack_trace, original_payload, failed_at
		FROM dlt_messages WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.OriginalTopic, &rec.OriginalPartition, &rec.OriginalOffset,
		&rec.Key, &rec.FailureTitle, &rec.StackTrace, &rec.OriginalPayload, &rec.FailedAt)
	if err != nil {
		return nil, apperr.NotFound("dlt_message_not_found", "dlt message not found")
	}
	return &rec, nil
}

// MarkRedriven records that id was republished, in an independent
// transaction from the redrive's delivery-row reset (SPEC_FULL §2.7):
// the two are deliberately not atomic, so a crash between them leaves the
// message republished but still visible in the DLT list rather than lost.
func (r *DLTRepository) MarkRedriven(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE dlt_messages SET redriven_at = $1 WHERE id = $2`, time.Now(), id)
	if err != nil {
		return apperr.StoreUnavailable("mark dlt redriven", err)
	}
	return nil
}

func (r *DLTRepository) Purge(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE dlt_messages SET purged_at = $1 WHERE id = $2`, time.Now(), id)
	if err != nil {
		return apperr.StoreUnavailable("purge dlt message", err)
	}
	return nil
}

func (r *DLTRepository) PurgeAll(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE dlt_messages SET purged_at = $1 WHERE redriven_at IS NULL AND purged_at IS NULL`, time.Now())
	if err != nil {
		return 0, apperr.StoreUnavailable("purge all dlt messages", err)
	}
	return tag.RowsAffected(), nil
}
