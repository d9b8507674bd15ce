package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/broadcast-delivery-service/internal/domain/event"
)

// ClusterRegistrar is the cluster-wide half of the registry (spec §4.7):
// the grid-backed UserConnections/Heartbeats map with CAS semantics and the
// per-user connection cap. Hub delegates cap enforcement and cluster
// bookkeeping here before ever attaching a session locally, and tears it
// back down on Detach.
type ClusterRegistrar interface {
	// Register enforces the per-user connection cap and records conn in the
	// cluster-scoped connection map. It returns apperr with ClassRateLimited
	// semantics (mapped to CONNECTION_LIMIT_REACHED on the wire) if the cap
	// is already reached.
	Register(ctx context.Context, userID, connID uuid.UUID, podID, clusterID string) error
	Unregister(ctx context.Context, userID, connID uuid.UUID) error
}

// Hubber is the external API consumed by transport handlers and the
// orchestrator/worker.
type Hubber interface {
	Broadcast(ev event.Eventer) bool
	Register(ctx context.Context, conn Connector) error
	Unregister(ctx context.Context, userID, connID uuid.UUID)
	IsConnected(userID uuid.UUID) bool
	Stats() Stats
	// DisconnectAll forcibly closes every session a user currently holds
	// open on this pod and returns how many were closed, for the gRPC
	// admin control plane's ForceDisconnect.
	DisconnectAll(userID uuid.UUID) int
	Shutdown()
}

// Stats summarizes the local hub state, backing GET /api/user/sse/stats.
type Stats struct {
	TotalUsers       int
	TotalConnections int
}

// Hub fans events out to per-user Cells using a lock-free lookup
// (sync.Map), and periodically reclaims Cells that have gone idle.
type Hub struct {
	cells sync.Map // uuid.UUID -> Celler

	registrar ClusterRegistrar
	logger    *slog.Logger

	evictionInterval time.Duration
	idleTimeout      time.Duration
	mailboxSize      int

	podID     string
	clusterID string

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewHub(registrar ClusterRegistrar, logger *slog.Logger, opts ...Option) *Hub {
	h := &Hub{
		registrar:        registrar,
		logger:           logger,
		evictionInterval: time.Minute,
		idleTimeout:      5 * time.Minute,
		mailboxSize:      1024,
		podID:            "unknown-pod",
		clusterID:        "default",
		stopCh:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	go h.runEvictor()
	return h
}

func (h *Hub) IsConnected(userID uuid.UUID) bool {
	val, ok := h.cells.Load(userID)
	return ok && val.(Celler).SessionCount() > 0
}

func (h *Hub) Broadcast(ev event.Eventer) bool {
	val, ok := h.cells.Load(ev.GetUserID())
	if !ok {
		return false
	}
	cell := val.(Celler)
	return cell.Push(ev)
}

// Register attaches conn to the user's Cell after the cluster registrar
// accepts it under the connection cap. If the cap is exceeded, the caller
// (a transport handler) is expected to send CONNECTION_LIMIT_REACHED and
// close the stream without ever calling Attach.
func (h *Hub) Register(ctx context.Context, conn Connector) error {
	if err := h.registrar.Register(ctx, conn.GetUserID(), conn.GetID(), h.podID, h.clusterID); err != nil {
		return err
	}

	cell := h.cellFor(conn.GetUserID())
	cell.Attach(conn)
	return nil
}

// cellFor returns the user's existing Cell or creates one. Checking Load
// first avoids spinning up a Cell (and its loop goroutine) on every call
// just to have LoadOrStore discard it when the user already has one.
func (h *Hub) cellFor(userID uuid.UUID) Celler {
	if val, ok := h.cells.Load(userID); ok {
		return val.(Celler)
	}
	val, _ := h.cells.LoadOrStore(userID, NewCell(userID, h.mailboxSize))
	return val.(Celler)
}

func (h *Hub) Unregister(ctx context.Context, userID, connID uuid.UUID) {
	if val, ok := h.cells.Load(userID); ok {
		val.(Celler).Detach(connID)
	}
	if err := h.registrar.Unregister(ctx, userID, connID); err != nil {
		h.logger.Warn("cluster unregister failed", "user_id", userID, "conn_id", connID, "err", err)
	}
}

// DisconnectAll evicts the user's whole Cell locally. It does not walk the
// cluster connection map to remove individual entries since it has no
// per-session connection IDs to hand the registrar; those records expire
// naturally once the stale reaper observes their heartbeats lapse.
func (h *Hub) DisconnectAll(userID uuid.UUID) int {
	val, ok := h.cells.LoadAndDelete(userID)
	if !ok {
		return 0
	}
	cell := val.(Celler)
	n := cell.SessionCount()
	cell.Stop()
	return n
}

func (h *Hub) Stats() Stats {
	stats := Stats{}
	h.cells.Range(func(_, value any) bool {
		cell := value.(Celler)
		if n := cell.SessionCount(); n > 0 {
			stats.TotalUsers++
			stats.TotalConnections += n
		}
		return true
	})
	return stats
}

func (h *Hub) runEvictor() {
	ticker := time.NewTicker(h.evictionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.performEviction()
		}
	}
}

func (h *Hub) performEviction() {
	reaped := 0
	h.cells.Range(func(key, value any) bool {
		cell := value.(Celler)
		if cell.IsIdle(h.idleTimeout) {
			h.cells.Delete(key)
			cell.Stop()
			reaped++
		}
		return true
	})
	if reaped > 0 {
		h.logger.Debug("hub eviction complete", "reclaimed_cells", reaped)
	}
}

// Shutdown pushes a SERVER_SHUTDOWN frame to every locally-attached session
// so clients can reconnect elsewhere instead of reading a dropped
// connection as a transient network error, then stops every Cell and the
// evictor loop.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() { close(h.stopCh) })
	h.cells.Range(func(key, value any) bool {
		cell := value.(Celler)
		cell.Push(event.NewServerShutdown(key.(uuid.UUID)))
		cell.Stop()
		return true
	})
}
