// Package event defines MessageDeliveryEvent, the unit of work carried
// across the outbox, the orchestration log, the grid, and finally the
// per-connection stream sender. The shape and the Eventer contract are
// adapted from the teacher's internal/domain/event package, generalized
// from a single message-centric event to the spec's broader event-type
// vocabulary (CREATED, READ, CANCELLED, EXPIRED, FAILED).
package event

import (
	"time"

	"github.com/google/uuid"
)

// Kind enumerates the lifecycle signals a MessageDeliveryEvent can carry.
type Kind string

const (
	KindCreated   Kind = "CREATED"
	KindRead      Kind = "READ"
	KindCancelled Kind = "CANCELLED"
	KindExpired   Kind = "EXPIRED"
	KindFailed    Kind = "FAILED"
	KindRemoved   Kind = "REMOVED"
)

// Priority controls the backpressure-shedding strategy applied when a
// recipient's connection mailbox is saturated.
type Priority int32

const (
	PriorityLow    Priority = 10
	PriorityNormal Priority = 20
	PriorityHigh   Priority = 30
)

func priorityForKind(k Kind) Priority {
	switch k {
	case KindCreated:
		return PriorityHigh
	case KindCancelled, KindExpired:
		return PriorityHigh
	case KindRead:
		return PriorityNormal
	default:
		return PriorityNormal
	}
}

// MessageDeliveryEvent is the event shape defined by spec §3. UserID may be
// empty for group events resolved on read by the orchestrator.
type MessageDeliveryEvent struct {
	EventID          string    `json:"event_id"`
	DeliveryRowID    uuid.UUID `json:"delivery_row_id,omitempty"`
	BroadcastID      uuid.UUID `json:"broadcast_id"`
	UserID           uuid.UUID `json:"user_id,omitempty"`
	Kind             Kind      `json:"event_type"`
	Timestamp        time.Time `json:"timestamp"`
	Message          string    `json:"message,omitempty"`
	FireAndForget    bool      `json:"fire_and_forget"`
	TransientFailure bool      `json:"transient_failure,omitempty"`

	cached any
}

// New constructs a MessageDeliveryEvent with a fresh id and the current
// timestamp.
func New(broadcastID, userID uuid.UUID, kind Kind, message string, fireAndForget bool) *MessageDeliveryEvent {
	return &MessageDeliveryEvent{
		EventID:       uuid.NewString(),
		BroadcastID:   broadcastID,
		UserID:        userID,
		Kind:          kind,
		Timestamp:     time.Now().UTC(),
		Message:       message,
		FireAndForget: fireAndForget,
	}
}

// Eventer is the contract satisfied by anything that can flow through a
// connection's mailbox: the registry and stream transports only depend on
// this interface, never the concrete MessageDeliveryEvent, so that system
// signals (CONNECTED, HEARTBEAT, SERVER_SHUTDOWN, CONNECTION_LIMIT_REACHED)
// can share the same pipe.
type Eventer interface {
	GetID() string
	GetUserID() uuid.UUID
	GetPriority() Priority
	GetOccurredAt() time.Time
	GetPayload() any
	// GetCached/SetCached memoize the wire-format encoding of the event so
	// that fanning the same event out to N sessions for one user marshals
	// it exactly once.
	GetCached() any
	SetCached(any)
}

var _ Eventer = (*MessageDeliveryEvent)(nil)

func (e *MessageDeliveryEvent) GetID() string           { return e.EventID }
func (e *MessageDeliveryEvent) GetUserID() uuid.UUID    { return e.UserID }
func (e *MessageDeliveryEvent) GetOccurredAt() time.Time { return e.Timestamp }
func (e *MessageDeliveryEvent) GetPayload() any         { return e }
func (e *MessageDeliveryEvent) GetCached() any          { return e.cached }
func (e *MessageDeliveryEvent) SetCached(v any)         { e.cached = v }

func (e *MessageDeliveryEvent) GetPriority() Priority {
	return priorityForKind(e.Kind)
}
