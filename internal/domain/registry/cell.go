package registry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/broadcast-delivery-service/internal/domain/event"
)

// Celler is the internal API for a single user's delivery actor.
type Celler interface {
	Push(ev event.Eventer) bool
	Attach(conn Connector)
	Detach(connID uuid.UUID) (empty bool)
	SessionCount() int
	IsIdle(timeout time.Duration) bool
	Stop()
}

// Cell fans one user's events out to every session (stream) they currently
// have open, decoupling slow individual consumers from the dispatch path
// via a buffered mailbox, exactly as the teacher's actor model does.
type Cell struct {
	userID uuid.UUID

	mailbox chan event.Eventer

	mu       sync.RWMutex
	sessions map[uuid.UUID]Connector

	doneCh chan struct{}
	once   sync.Once

	lastActivityUnix int64
}

func NewCell(userID uuid.UUID, bufferSize int) *Cell {
	c := &Cell{
		userID:           userID,
		mailbox:          make(chan event.Eventer, bufferSize),
		sessions:         make(map[uuid.UUID]Connector),
		doneCh:           make(chan struct{}),
		lastActivityUnix: time.Now().Unix(),
	}
	go c.loop()
	return c
}

func (c *Cell) touch() {
	atomic.StoreInt64(&c.lastActivityUnix, time.Now().Unix())
}

func (c *Cell) IsIdle(timeout time.Duration) bool {
	if c.SessionCount() > 0 {
		return false
	}
	last := time.Unix(atomic.LoadInt64(&c.lastActivityUnix), 0)
	return time.Since(last) > timeout
}

func (c *Cell) SessionCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

// Push enqueues ev into the cell mailbox; it drops the event rather than
// blocking the caller (the orchestrator consumer or worker) when the
// mailbox is saturated, per spec §5's "event dispatch does not suspend on
// slow consumers" rule.
func (c *Cell) Push(ev event.Eventer) bool {
	c.touch()
	select {
	case c.mailbox <- ev:
		return true
	default:
		return false
	}
}

func (c *Cell) Attach(conn Connector) {
	c.mu.Lock()
	c.sessions[conn.GetID()] = conn
	c.mu.Unlock()
	c.touch()
}

func (c *Cell) Detach(connID uuid.UUID) bool {
	c.mu.Lock()
	delete(c.sessions, connID)
	empty := len(c.sessions) == 0
	c.mu.Unlock()
	c.touch()
	return empty
}

func (c *Cell) loop() {
	const drainBurst = 64
	for {
		select {
		case <-c.doneCh:
			return
		case ev := <-c.mailbox:
			c.deliver(ev)
		drain:
			for range drainBurst {
				select {
				case next := <-c.mailbox:
					c.deliver(next)
				default:
					break drain
				}
			}
		}
	}
}

func (c *Cell) deliver(ev event.Eventer) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.deliverLocked(ev)
}

func (c *Cell) deliverLocked(ev event.Eventer) {
	for _, conn := range c.sessions {
		// A single stalled session gets a strict delivery window so it can
		// never hold up the actor loop for the user's other sessions.
		conn.Send(ev, 250*time.Millisecond)
	}
}

func (c *Cell) Stop() {
	c.once.Do(func() { close(c.doneCh) })

	c.mu.Lock()
	defer c.mu.Unlock()

	// loop() races doneCh against the mailbox and may exit without ever
	// reading a message enqueued just before Stop (e.g. a shutdown frame
	// pushed right before the caller tears the cell down). Drain whatever
	// is left so it still reaches sessions before they're closed below.
drain:
	for {
		select {
		case ev := <-c.mailbox:
			c.deliverLocked(ev)
		default:
			break drain
		}
	}

	for id, conn := range c.sessions {
		conn.Close()
		delete(c.sessions, id)
	}
}
