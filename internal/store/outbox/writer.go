// Package outbox implements the transactional outbox: Emit appends an event
// row inside the caller's own business transaction, and Poller is the
// single-leader background loop that turns those rows into published
// messages. This keeps "update broadcast state" and "notify the rest of the
// cluster" atomic without a two-phase commit, following the outbox-relay
// pattern from the retrieved identity-access-service example, adapted from
// Postgres NOTIFY/LISTEN to straightforward interval polling (the orchestrator
// already tails a log topic for low-latency delivery; the outbox only needs
// to be eventually consistent within one poll interval) and from a same-table
// processed_at column to a dedicated quarantine table for poison payloads.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Writer appends rows to outbox_events within an existing transaction.
type Writer struct{}

func NewWriter() *Writer { return &Writer{} }

// Emit marshals payload and inserts it into outbox_events using tx, so the
// insert commits or rolls back together with whatever business mutation tx
// is also carrying.
func (w *Writer) Emit(ctx context.Context, tx pgx.Tx, aggregateID uuid.UUID, eventType, topic string, payload any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("outbox: marshal payload: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO outbox_events (id, aggregate_id, event_type, topic, payload, created_at)
		VALUES ($1,$2,$3,$4,$5, now())`,
		uuid.NewString(), aggregateID.String(), eventType, topic, encoded)
	if err != nil {
		return fmt.Errorf("outbox: insert event: %w", err)
	}
	return nil
}
