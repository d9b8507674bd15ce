package broadcast

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus is the lifecycle of one (broadcastId, userId) row.
type DeliveryStatus string

const (
	DeliveryPending    DeliveryStatus = "PENDING"
	DeliveryDelivered  DeliveryStatus = "DELIVERED"
	DeliveryFailed     DeliveryStatus = "FAILED"
	DeliverySuperseded DeliveryStatus = "SUPERSEDED"
)

// ReadStatus tracks whether the targeted user has opened the message.
type ReadStatus string

const (
	ReadUnread ReadStatus = "UNREAD"
	ReadRead   ReadStatus = "READ"
)

// UserBroadcast is the per-recipient delivery row. (BroadcastID, UserID) is
// unique; DeliveryStatus is monotonic except for the explicit
// PENDING->SUPERSEDED transition on cancel/expire and the DLT-driven
// DELIVERED->PENDING redrive reset.
type UserBroadcast struct {
	ID             uuid.UUID
	BroadcastID    uuid.UUID
	UserID         uuid.UUID
	DeliveryStatus DeliveryStatus
	ReadStatus     ReadStatus
	DeliveredAt    *time.Time
	ReadAt         *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CanTransitionDelivery reports whether moving from 'from' to 'to' is legal
// outside of the DLT-redrive escape hatch (handled separately by the DLT
// manager, which is the one caller allowed to move DELIVERED back to
// PENDING).
func CanTransitionDelivery(from, to DeliveryStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case DeliveryPending:
		return to == DeliveryDelivered || to == DeliveryFailed || to == DeliverySuperseded
	case DeliveryFailed:
		return to == DeliveryDelivered || to == DeliverySuperseded
	default:
		return false
	}
}

// CanTransitionRead reports whether moving from 'from' to 'to' respects the
// strictly-monotonic read invariant.
func CanTransitionRead(from, to ReadStatus) bool {
	if from == to {
		return true
	}
	return from == ReadUnread && to == ReadRead
}

// SeededDelivery is one row newly inserted by a targeting pass. Only rows
// actually inserted are reported back: a retried pass that hits
// ON CONFLICT DO NOTHING for an already-seeded recipient must not cause
// that recipient to be fanned out a second time.
type SeededDelivery struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

// Statistics holds the per-broadcast counters, upserted atomically with
// every delivery transition.
type Statistics struct {
	BroadcastID    uuid.UUID
	TotalTargeted  int64
	TotalDelivered int64
	TotalRead      int64
	TotalFailed    int64
}
