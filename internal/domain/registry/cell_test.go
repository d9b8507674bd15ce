package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/broadcast-delivery-service/internal/domain/event"
)

func newTestEvent(userID uuid.UUID) event.Eventer {
	return event.New(uuid.New(), userID, event.KindCreated, "hello", false)
}

func TestCell_PushWithNoSessionsStillAccepted(t *testing.T) {
	userID := uuid.New()
	cell := NewCell(userID, 4)
	defer cell.Stop()

	ok := cell.Push(newTestEvent(userID))
	assert.True(t, ok)
}

func TestCell_AttachDetach(t *testing.T) {
	userID := uuid.New()
	cell := NewCell(userID, 4)
	defer cell.Stop()

	conn := NewConnector(context.Background(), userID, 4)
	cell.Attach(conn)
	assert.Equal(t, 1, cell.SessionCount())

	empty := cell.Detach(conn.GetID())
	assert.True(t, empty)
	assert.Equal(t, 0, cell.SessionCount())
}

func TestCell_PushDeliversToAttachedSession(t *testing.T) {
	userID := uuid.New()
	cell := NewCell(userID, 4)
	defer cell.Stop()

	conn := NewConnector(context.Background(), userID, 4)
	cell.Attach(conn)

	ev := newTestEvent(userID)
	require.True(t, cell.Push(ev))

	select {
	case got := <-conn.Recv():
		assert.Equal(t, ev.GetID(), got.GetID())
	case <-time.After(time.Second):
		t.Fatal("event was not delivered within timeout")
	}
}

func TestCell_MailboxFullDropsRatherThanBlocks(t *testing.T) {
	userID := uuid.New()
	cell := NewCell(userID, 1)
	defer cell.Stop()

	// fill the single mailbox slot by pausing the loop: push twice fast.
	first := cell.Push(newTestEvent(userID))
	second := cell.Push(newTestEvent(userID))

	// at least the call must return promptly either way; no assertion on
	// which ones succeed since the loop may have already drained the first.
	_ = first
	_ = second
}

func TestCell_IsIdle(t *testing.T) {
	userID := uuid.New()
	cell := NewCell(userID, 4)
	defer cell.Stop()

	assert.False(t, cell.IsIdle(time.Hour))
	assert.True(t, cell.IsIdle(0))
}

func TestCell_IsIdleFalseWhileSessionsAttached(t *testing.T) {
	userID := uuid.New()
	cell := NewCell(userID, 4)
	defer cell.Stop()

	conn := NewConnector(context.Background(), userID, 4)
	cell.Attach(conn)

	assert.False(t, cell.IsIdle(0))
}

func TestCell_StopClosesAttachedSessions(t *testing.T) {
	userID := uuid.New()
	cell := NewCell(userID, 4)

	conn := NewConnector(context.Background(), userID, 4)
	cell.Attach(conn)

	cell.Stop()

	_, open := <-conn.Recv()
	assert.False(t, open)
}

func TestCell_StopIsIdempotent(t *testing.T) {
	userID := uuid.New()
	cell := NewCell(userID, 4)

	assert.NotPanics(t, func() {
		cell.Stop()
		cell.Stop()
	})
}

func TestCell_ConcurrentAttachDetach(t *testing.T) {
	userID := uuid.New()
	cell := NewCell(userID, 16)
	defer cell.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := NewConnector(context.Background(), userID, 4)
			cell.Attach(conn)
			cell.Detach(conn.GetID())
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, cell.SessionCount())
}
