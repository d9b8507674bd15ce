// Package grid defines the contract for the distributed in-memory grid
// (spec §3, §6): connection registry, heartbeats, per-user inbox, hot
// broadcast-content cache, and the pending-event queue for offline users.
// The only implementation shipped is Redis-backed (internal/grid/redisgrid);
// the interface exists so the orchestrator, worker, and registry packages
// depend on behavior, not on Redis specifically, per spec §9's dynamic-
// dispatch note on CacheService.
package grid

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ConnectionInfo is the per-connection metadata kept in UserConnections.
type ConnectionInfo struct {
	PodID          string
	ClusterID      string
	ConnectedAt    time.Time
	LastActivityAt time.Time
}

// StaleConnection identifies a connection whose heartbeat has expired,
// as produced by StaleConnections for the reaper scheduler.
type StaleConnection struct {
	UserID       uuid.UUID
	ConnectionID uuid.UUID
	LastHeartbeat time.Time
}

// InboxEntry is one record of UserInbox: an ordered (newest-first) pointer
// to a delivery row that the owning pod's worker should push to the user's
// open streams.
type InboxEntry struct {
	DeliveryRowID  uuid.UUID
	BroadcastID    uuid.UUID
	DeliveryStatus string
	ReadStatus     string
	CreatedAt      time.Time
}

// PendingEvent is a MessageDeliveryEvent payload queued for a user who was
// offline at push time, serialized as JSON for grid-neutral storage.
type PendingEvent struct {
	UserID    uuid.UUID
	Payload   []byte
	EnqueuedAt time.Time
}

// ErrConnectionCapReached signals, inside a RegisterConnection attempt, that
// the user's open-connection count already equals the configured maximum.
// The Redis implementation reports it to callers as an apperr RateLimited
// error rather than returning this value.
var ErrConnectionCapReached = &capError{}

type capError struct{}

func (*capError) Error() string { return "grid: per-user connection cap reached" }

// Grid is the full contract required by the connection registry, the
// orchestrator consumer, and the grid-observing workers.
type Grid interface {
	// --- UserConnections / Heartbeats (spec §4.7) ---

	// RegisterConnection performs the cap-enforced, compare-and-set
	// registration described in §4.7: read current size, reject over cap,
	// write back via CAS with bounded retries.
	RegisterConnection(ctx context.Context, userID, connID uuid.UUID, info ConnectionInfo, maxPerUser int) error
	UnregisterConnection(ctx context.Context, userID, connID uuid.UUID) error
	IsOnline(ctx context.Context, userID uuid.UUID) (bool, error)
	// OnlineSubset filters userIDs down to those currently online anywhere
	// in the cluster — used by fan-out-on-read resolution.
	OnlineSubset(ctx context.Context, userIDs []uuid.UUID) ([]uuid.UUID, error)
	ConnectionCount(ctx context.Context, userID uuid.UUID) (int, error)

	UpdateHeartbeats(ctx context.Context, connIDs []uuid.UUID) error
	StaleConnections(ctx context.Context, threshold time.Duration) ([]StaleConnection, error)

	// --- UserInbox (spec §4.4, §4.5) ---

	PushInbox(ctx context.Context, userID uuid.UUID, entry InboxEntry) error
	DrainInbox(ctx context.Context, userID uuid.UUID, max int) ([]InboxEntry, error)

	// --- BroadcastContent hot cache (spec §3) ---

	GetBroadcastContent(ctx context.Context, broadcastID uuid.UUID) ([]byte, bool, error)
	PutBroadcastContent(ctx context.Context, broadcastID uuid.UUID, payload []byte, ttl time.Duration) error
	EvictBroadcastContent(ctx context.Context, broadcastID uuid.UUID) error

	// --- PendingEvents (spec §3, §4.4) ---

	EnqueuePending(ctx context.Context, userID uuid.UUID, payload []byte, ttl time.Duration) error
	DrainPending(ctx context.Context, userID uuid.UUID, max int) ([]PendingEvent, error)

	// Subscribe returns a channel of userIDs that received a new UserInbox
	// entry scoped to podID, approximating the spec's "continuous query on
	// UserInbox for keys mapped to this pod". Implementations that lack
	// native push notifications may fall back to polling internally; callers
	// only see the channel.
	Subscribe(ctx context.Context, podID string) (<-chan uuid.UUID, error)
}
