package outbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sony/gobreaker"
)

const pollerBatchSize = 100

type polledRow struct {
	id          string
	aggregateID string
	eventType   string
	topic       string
	payload     []byte
}

// Poller is the single-leader loop (wrapped by internal/leaseelection at the
// call site) that turns outbox rows into published log messages.
type Poller struct {
	pool      *pgxpool.Pool
	publisher message.Publisher
	logger    *slog.Logger
	breaker   *gobreaker.CircuitBreaker
}

func NewPoller(pool *pgxpool.Pool, publisher message.Publisher, logger *slog.Logger) *Poller {
	return &Poller{
		pool:      pool,
		publisher: publisher,
		logger:    logger,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "outbox-publish",
			Timeout: 30 * time.Second,
		}),
	}
}

// RunOnce drains a single batch. internal/scheduler wraps this in a
// leaseelection.Lease so only the pod holding the outbox lease's advisory
// lock calls it on any given tick.
func (p *Poller) RunOnce(ctx context.Context) error {
	return p.drainBatch(ctx)
}

func (p *Poller) drainBatch(ctx context.Context) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, aggregate_id, event_type, topic, payload
		FROM outbox_events
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, pollerBatchSize)
	if err != nil {
		return err
	}

	var batch []polledRow
	for rows.Next() {
		var r polledRow
		if err := rows.Scan(&r.id, &r.aggregateID, &r.eventType, &r.topic, &r.payload); err != nil {
			rows.Close()
			return err
		}
		batch = append(batch, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, r := range batch {
		if err := p.publishOne(ctx, tx, r); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (p *Poller) publishOne(ctx context.Context, tx pgx.Tx, r polledRow) error {
	var probe json.RawMessage
	if err := json.Unmarshal(r.payload, &probe); err != nil {
		return p.quarantine(ctx, tx, r, "unmarshalable outbox payload", err)
	}

	msg := message.NewMessage(r.id, r.payload)
	msg.Metadata.Set("aggregate_id", r.aggregateID)
	msg.Metadata.Set("event_type", r.eventType)

	_, err := p.breaker.Execute(func() (any, error) {
		return nil, p.publisher.Publish(r.topic, msg)
	})
	if err != nil {
		p.logger.Warn("outbox poller: publish failed, leaving row for retry", "event_id", r.id, "topic", r.topic, "error", err)
		return err
	}

	_, err = tx.Exec(ctx, `DELETE FROM outbox_events WHERE id = $1`, r.id)
	return err
}

// quarantine moves a poison-pill row out of outbox_events and into
// dlt_messages, then deletes the original row in the same transaction so a
// bad payload is never retried forever (mirrors the retrieved outbox relay's
// "mark processed anyway" idiom, but preserves the payload for inspection
// instead of discarding it).
func (p *Poller) quarantine(ctx context.Context, tx pgx.Tx, r polledRow, title string, cause error) error {
	p.logger.Error("outbox poller: quarantining poison event", "event_id", r.id, "error", cause)

	_, err := tx.Exec(ctx, `
		INSERT INTO dlt_messages (id, original_topic, message_key, failure_title, stack_trace, original_payload, failed_at)
		VALUES ($1,$2,$3,$4,$5,$6, now())`,
		uuid.NewString(), r.topic, r.aggregateID, title, cause.Error(), r.payload)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `DELETE FROM outbox_events WHERE id = $1`, r.id)
	return err
}
