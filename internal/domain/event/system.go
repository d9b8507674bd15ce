package event

import (
	"time"

	"github.com/google/uuid"
)

// SystemKind enumerates the non-broadcast frames a stream can receive,
// named exactly as spec §6 requires them on the wire.
type SystemKind string

const (
	SystemConnected             SystemKind = "CONNECTED"
	SystemHeartbeat             SystemKind = "HEARTBEAT"
	SystemConnectionLimitReached SystemKind = "CONNECTION_LIMIT_REACHED"
	SystemServerShutdown        SystemKind = "SERVER_SHUTDOWN"
)

// SystemEvent is a process-local signal: it never crosses the outbox or the
// orchestration log, only a connection's mailbox.
type SystemEvent struct {
	ID         string
	UserID     uuid.UUID
	Kind       SystemKind
	OccurredAt time.Time
	Payload    any
	cached     any
}

var _ Eventer = (*SystemEvent)(nil)

func (e *SystemEvent) GetID() string            { return e.ID }
func (e *SystemEvent) GetUserID() uuid.UUID     { return e.UserID }
func (e *SystemEvent) GetOccurredAt() time.Time { return e.OccurredAt }
func (e *SystemEvent) GetPayload() any          { return e.Payload }
func (e *SystemEvent) GetCached() any           { return e.cached }
func (e *SystemEvent) SetCached(v any)          { e.cached = v }

func (e *SystemEvent) GetPriority() Priority {
	if e.Kind == SystemServerShutdown || e.Kind == SystemConnectionLimitReached {
		return PriorityHigh
	}
	return PriorityLow
}

func newSystemEvent(userID uuid.UUID, kind SystemKind, payload any) *SystemEvent {
	return &SystemEvent{
		ID:         uuid.NewString(),
		UserID:     userID,
		Kind:       kind,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// ConnectedPayload is sent once per stream, right after it opens.
type ConnectedPayload struct {
	ConnectionID string `json:"connection_id"`
}

func NewConnected(userID uuid.UUID, connectionID string) *SystemEvent {
	return newSystemEvent(userID, SystemConnected, &ConnectedPayload{ConnectionID: connectionID})
}

func NewHeartbeat(userID uuid.UUID) *SystemEvent {
	return newSystemEvent(userID, SystemHeartbeat, nil)
}

func NewConnectionLimitReached(userID uuid.UUID, maxPerUser int) *SystemEvent {
	return newSystemEvent(userID, SystemConnectionLimitReached, map[string]int{"max_connections_per_user": maxPerUser})
}

func NewServerShutdown(userID uuid.UUID) *SystemEvent {
	return newSystemEvent(userID, SystemServerShutdown, nil)
}
