// Package dlt implements the dead-letter manager of SPEC_FULL §2.7:
// listing quarantined events, redriving one or all of them back onto the
// log, and purging what operators decide is unrecoverable. Redrive resets
// the originating delivery row to PENDING in a transaction independent of
// the DLT bookkeeping update, so a crash between the two leaves a message
// republished but still visible in the DLT list rather than silently lost.
package dlt

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/webitel/broadcast-delivery-service/internal/domain/outbox"
)

// Store is the subset of postgres.DLTRepository the manager depends on.
type Store interface {
	ListActive(ctx context.Context, limit int) ([]outbox.DltRecord, error)
	Get(ctx context.Context, id string) (*outbox.DltRecord, error)
	MarkRedriven(ctx context.Context, id string) error
	Purge(ctx context.Context, id string) error
	PurgeAll(ctx context.Context) (int64, error)
}

// DeliveryResetter resets a delivery row back to PENDING ahead of a redrive,
// independent of the DLT bookkeeping transaction.
type DeliveryResetter interface {
	ResetToPending(ctx context.Context, aggregateID string) error
}

const listPageSize = 200

type Manager struct {
	store     Store
	resetter  DeliveryResetter
	publisher message.Publisher
}

func NewManager(store Store, resetter DeliveryResetter, publisher message.Publisher) *Manager {
	return &Manager{store: store, resetter: resetter, publisher: publisher}
}

func (m *Manager) List(ctx context.Context) ([]outbox.DltRecord, error) {
	return m.store.ListActive(ctx, listPageSize)
}

// RedriveOne resets the originating delivery row to PENDING, republishes the
// original payload under its original topic, then marks the DLT row
// redriven. The reset happens first and in its own transaction: if the
// process crashes before republish, the delivery row is merely PENDING
// again (harmless, the next activation/worker pass will catch it up) rather
// than lost with no trace.
func (m *Manager) RedriveOne(ctx context.Context, id string) error {
	rec, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := m.resetter.ResetToPending(ctx, rec.Key); err != nil {
		return fmt.Errorf("dlt: reset delivery for %s: %w", id, err)
	}

	msg := message.NewMessage(rec.ID, rec.OriginalPayload)
	msg.Metadata.Set("redriven_from_dlt", "true")
	if err := m.publisher.Publish(rec.OriginalTopic, msg); err != nil {
		return fmt.Errorf("dlt: republish %s: %w", id, err)
	}

	return m.store.MarkRedriven(ctx, id)
}

// RedriveAll walks every active DLT row and redrives it, continuing past
// individual failures so one bad row cannot block the rest of the batch; it
// returns the first error it saw, if any, after finishing the pass.
func (m *Manager) RedriveAll(ctx context.Context) (int, error) {
	records, err := m.store.ListActive(ctx, listPageSize)
	if err != nil {
		return 0, err
	}

	redrived := 0
	var firstErr error
	for _, rec := range records {
		if err := m.RedriveOne(ctx, rec.ID); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		redrived++
	}
	return redrived, firstErr
}

func (m *Manager) PurgeOne(ctx context.Context, id string) error {
	return m.store.Purge(ctx, id)
}

func (m *Manager) PurgeAll(ctx context.Context) (int64, error) {
	return m.store.PurgeAll(ctx)
}
