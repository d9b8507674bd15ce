// Package registry implements the process-local half of the connection
// registry: a per-user actor ("Cell") that multiplexes delivery to every
// open stream ("Connector") for that user, adapted from the teacher's
// Hub/Cell/Connect actor trio. The cluster-wide half (UserConnections,
// Heartbeats, the connection cap, and CAS semantics of spec §4.7) lives in
// internal/grid, which this package's Hub notifies on Attach/Detach so the
// two stay consistent.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/broadcast-delivery-service/internal/domain/event"
)

// Connector is the interface for one open stream (SSE, WebSocket, or
// long-poll) attached to a user's Cell.
type Connector interface {
	GetID() uuid.UUID
	GetUserID() uuid.UUID
	// Send enqueues ev for delivery, enforcing a bounded backpressure
	// window. Returns false if the event was dropped.
	Send(ev event.Eventer, timeout time.Duration) bool
	Recv() <-chan event.Eventer
	Close()
}

var _ Connector = (*connect)(nil)

type connect struct {
	id        uuid.UUID
	userID    uuid.UUID
	createdAt time.Time

	ctx      context.Context
	cancelFn context.CancelFunc

	sendCh chan event.Eventer

	closeOnce sync.Once
}

// NewConnector creates a stream-local connection handle. bufferSize governs
// the mailbox depth before Send starts applying priority-aware shedding.
func NewConnector(ctx context.Context, userID uuid.UUID, bufferSize int) Connector {
	childCtx, cancel := context.WithCancel(ctx)
	return &connect{
		id:        uuid.New(),
		userID:    userID,
		createdAt: time.Now(),
		ctx:       childCtx,
		cancelFn:  cancel,
		sendCh:    make(chan event.Eventer, bufferSize),
	}
}

func (c *connect) GetID() uuid.UUID     { return c.id }
func (c *connect) GetUserID() uuid.UUID { return c.userID }

// Send attempts to push ev into the channel within timeout. If the channel
// stays full for the whole window, low-priority events are dropped outright
// and high-priority events attempt to evict one lower-priority event to
// make room, mirroring the teacher's handleBackpressure strategy.
func (c *connect) Send(ev event.Eventer, timeout time.Duration) bool {
	select {
	case <-c.ctx.Done():
		return false
	default:
	}

	select {
	case <-c.ctx.Done():
		return false
	case c.sendCh <- ev:
		return true
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	select {
	case <-c.ctx.Done():
		return false
	case c.sendCh <- ev:
		return true
	case <-ctx.Done():
		return c.handleBackpressure(ev, timeout)
	}
}

func (c *connect) handleBackpressure(ev event.Eventer, timeout time.Duration) bool {
	if ev.GetPriority() <= event.PriorityLow {
		return false
	}

	select {
	case oldEv := <-c.sendCh:
		if oldEv.GetPriority() < ev.GetPriority() {
			select {
			case c.sendCh <- ev:
				return true
			default:
			}
		}
		// Put it back best-effort; if there's no room it is lost, which is
		// acceptable since the channel was already saturated.
		select {
		case c.sendCh <- oldEv:
		default:
		}
	case <-time.After(timeout):
	}
	return false
}

func (c *connect) Recv() <-chan event.Eventer { return c.sendCh }

// Close is idempotent: it may be invoked concurrently by the transport
// handler's defer, a forced eviction from the hub, or the stale reaper.
func (c *connect) Close() {
	c.closeOnce.Do(func() {
		c.cancelFn()
		close(c.sendCh)
	})
}
