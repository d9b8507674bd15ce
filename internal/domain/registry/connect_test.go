package registry

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/broadcast-delivery-service/internal/domain/event"
)

func TestConnector_SendAndRecv(t *testing.T) {
	userID := uuid.New()
	conn := NewConnector(context.Background(), userID, 4)
	defer conn.Close()

	ev := newTestEvent(userID)
	ok := conn.Send(ev, time.Second)
	require.True(t, ok)

	got := <-conn.Recv()
	assert.Equal(t, ev.GetID(), got.GetID())
}

func TestConnector_SendAfterCloseFails(t *testing.T) {
	userID := uuid.New()
	conn := NewConnector(context.Background(), userID, 4)
	conn.Close()

	ok := conn.Send(newTestEvent(userID), time.Second)
	assert.False(t, ok)
}

func TestConnector_CloseIsIdempotent(t *testing.T) {
	userID := uuid.New()
	conn := NewConnector(context.Background(), userID, 4)

	assert.NotPanics(t, func() {
		conn.Close()
		conn.Close()
	})
}

func TestConnector_ContextCancelClosesSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	userID := uuid.New()
	conn := NewConnector(ctx, userID, 0)
	cancel()

	// give the connector's child context a moment to observe the cancel
	time.Sleep(10 * time.Millisecond)

	ok := conn.Send(newTestEvent(userID), 50*time.Millisecond)
	assert.False(t, ok)
}

func TestConnector_HighPriorityEvictsLowPriorityWhenSaturated(t *testing.T) {
	userID := uuid.New()
	conn := NewConnector(context.Background(), userID, 1)
	defer conn.Close()

	low := &event.SystemEvent{ID: "low", UserID: userID, Kind: event.SystemHeartbeat}
	require.True(t, conn.Send(low, time.Second))

	high := newTestEvent(userID) // KindCreated -> PriorityHigh
	ok := conn.Send(high, 100*time.Millisecond)
	assert.True(t, ok)

	got := <-conn.Recv()
	assert.Equal(t, high.GetID(), got.GetID())
}

func TestConnector_LowPriorityDroppedWhenSaturated(t *testing.T) {
	userID := uuid.New()
	conn := NewConnector(context.Background(), userID, 1)
	defer conn.Close()

	first := &event.SystemEvent{ID: "first", UserID: userID, Kind: event.SystemHeartbeat}
	require.True(t, conn.Send(first, time.Second))

	second := &event.SystemEvent{ID: "second", UserID: userID, Kind: event.SystemHeartbeat}
	ok := conn.Send(second, 50*time.Millisecond)
	assert.False(t, ok)
}

func TestConnector_GetIDAndUserID(t *testing.T) {
	userID := uuid.New()
	conn := NewConnector(context.Background(), userID, 1)
	defer conn.Close()

	assert.Equal(t, userID, conn.GetUserID())
	assert.NotEqual(t, uuid.Nil, conn.GetID())
}
