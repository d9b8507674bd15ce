// Package broadcast holds the core entities of the delivery pipeline:
// Broadcast, its target specification, the per-user delivery row, and the
// aggregate statistics kept alongside it.
package broadcast

import (
	"time"

	"github.com/google/uuid"
)

// Status is the broadcast lifecycle state. Transitions are enforced by
// internal/service/lifecycle, never by callers poking the field directly.
type Status string

const (
	StatusPreparing Status = "PREPARING"
	StatusReady     Status = "READY"
	StatusScheduled Status = "SCHEDULED"
	StatusActive    Status = "ACTIVE"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
	StatusFailed    Status = "FAILED"
)

// Terminal reports whether no further transition is legal from this status.
func (s Status) Terminal() bool {
	switch s {
	case StatusExpired, StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}

// Priority is an administrator-assigned urgency hint, independent of the
// event-delivery EventPriority used for backpressure shedding.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Broadcast is a single administrator-authored message targeting a set of
// users.
type Broadcast struct {
	ID            uuid.UUID
	SenderID      uuid.UUID
	Content       string
	Priority      Priority
	Category      string
	Target        TargetSpec
	ScheduledAt   *time.Time
	ExpiresAt     *time.Time
	FireAndForget bool
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FanOutMode classifies whether audience resolution happens when the
// broadcast is written (PRODUCT) or when the orchestrator reads the event
// off the log (ALL | ROLE | SELECTED).
type FanOutMode int

const (
	FanOutOnRead FanOutMode = iota
	FanOutOnWrite
)

// Mode returns the fan-out strategy dictated by the target variant, per
// spec §4.2.
func (b *Broadcast) Mode() FanOutMode {
	return b.Target.Mode()
}

// Immediate reports whether the broadcast has no ScheduledAt, i.e. it
// should activate (or begin precomputation) as soon as it is created.
func (b *Broadcast) Immediate() bool {
	return b.ScheduledAt == nil
}

// ValidateForCreate checks the invariants that must hold before a broadcast
// is persisted: Content is set, Target is valid, and ExpiresAt (when set) is
// not before CreatedAt or ScheduledAt. Status is not checked here; Create
// assigns it after validation.
func (b *Broadcast) ValidateForCreate() error {
	if b.Content == "" {
		return errValidation("content is required")
	}
	if err := b.Target.Validate(); err != nil {
		return err
	}
	if b.ExpiresAt != nil && b.CreatedAt.After(*b.ExpiresAt) {
		return errValidation("expiresAt must be >= createdAt")
	}
	if b.ScheduledAt != nil && b.ExpiresAt != nil && b.ScheduledAt.After(*b.ExpiresAt) {
		return errValidation("expiresAt must be >= scheduledAt")
	}
	return nil
}

// StateTransition is one row of the append-only audit trail kept per
// broadcast (SPEC_FULL §2.1 supplemental feature).
type StateTransition struct {
	BroadcastID uuid.UUID
	FromStatus  Status
	ToStatus    Status
	Reason      string
	OccurredAt  time.Time
}
