package registry

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/broadcast-delivery-service/internal/domain/event"
)

type fakeRegistrar struct {
	mu          sync.Mutex
	registered  map[uuid.UUID]int
	registerErr error
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{registered: make(map[uuid.UUID]int)}
}

func (f *fakeRegistrar) Register(_ context.Context, userID, _ uuid.UUID, _, _ string) error {
	if f.registerErr != nil {
		return f.registerErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered[userID]++
	return nil
}

func (f *fakeRegistrar) Unregister(_ context.Context, userID, _ uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered[userID]--
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHub_RegisterAttachesCellAndIsConnected(t *testing.T) {
	registrar := newFakeRegistrar()
	hub := NewHub(registrar, testLogger())
	defer hub.Shutdown()

	userID := uuid.New()
	conn := NewConnector(context.Background(), userID, 4)

	err := hub.Register(context.Background(), conn)
	require.NoError(t, err)
	assert.True(t, hub.IsConnected(userID))
}

func TestHub_RegisterPropagatesRegistrarError(t *testing.T) {
	registrar := newFakeRegistrar()
	registrar.registerErr = assert.AnError
	hub := NewHub(registrar, testLogger())
	defer hub.Shutdown()

	userID := uuid.New()
	conn := NewConnector(context.Background(), userID, 4)

	err := hub.Register(context.Background(), conn)
	assert.ErrorIs(t, err, assert.AnError)
	assert.False(t, hub.IsConnected(userID))
}

func TestHub_BroadcastDeliversToRegisteredUser(t *testing.T) {
	registrar := newFakeRegistrar()
	hub := NewHub(registrar, testLogger())
	defer hub.Shutdown()

	userID := uuid.New()
	conn := NewConnector(context.Background(), userID, 4)
	require.NoError(t, hub.Register(context.Background(), conn))

	ev := newTestEvent(userID)
	ok := hub.Broadcast(ev)
	assert.True(t, ok)

	select {
	case got := <-conn.Recv():
		assert.Equal(t, ev.GetID(), got.GetID())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestHub_BroadcastToUnknownUserReturnsFalse(t *testing.T) {
	hub := NewHub(newFakeRegistrar(), testLogger())
	defer hub.Shutdown()

	ok := hub.Broadcast(newTestEvent(uuid.New()))
	assert.False(t, ok)
}

func TestHub_UnregisterDetachesAndNotifiesRegistrar(t *testing.T) {
	registrar := newFakeRegistrar()
	hub := NewHub(registrar, testLogger())
	defer hub.Shutdown()

	userID := uuid.New()
	conn := NewConnector(context.Background(), userID, 4)
	require.NoError(t, hub.Register(context.Background(), conn))

	hub.Unregister(context.Background(), userID, conn.GetID())

	assert.False(t, hub.IsConnected(userID))
	assert.Equal(t, 0, registrar.registered[userID])
}

func TestHub_DisconnectAllClosesAllSessionsForUser(t *testing.T) {
	hub := NewHub(newFakeRegistrar(), testLogger())
	defer hub.Shutdown()

	userID := uuid.New()
	conn1 := NewConnector(context.Background(), userID, 4)
	conn2 := NewConnector(context.Background(), userID, 4)
	require.NoError(t, hub.Register(context.Background(), conn1))
	require.NoError(t, hub.Register(context.Background(), conn2))

	n := hub.DisconnectAll(userID)
	assert.Equal(t, 2, n)
	assert.False(t, hub.IsConnected(userID))

	_, open := <-conn1.Recv()
	assert.False(t, open)
}

func TestHub_DisconnectAllUnknownUserReturnsZero(t *testing.T) {
	hub := NewHub(newFakeRegistrar(), testLogger())
	defer hub.Shutdown()

	assert.Equal(t, 0, hub.DisconnectAll(uuid.New()))
}

func TestHub_StatsCountsOnlyUsersWithOpenSessions(t *testing.T) {
	hub := NewHub(newFakeRegistrar(), testLogger())
	defer hub.Shutdown()

	userA, userB := uuid.New(), uuid.New()
	connA := NewConnector(context.Background(), userA, 4)
	connB1 := NewConnector(context.Background(), userB, 4)
	connB2 := NewConnector(context.Background(), userB, 4)

	require.NoError(t, hub.Register(context.Background(), connA))
	require.NoError(t, hub.Register(context.Background(), connB1))
	require.NoError(t, hub.Register(context.Background(), connB2))

	stats := hub.Stats()
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 3, stats.TotalConnections)
}

func TestHub_ShutdownBroadcastsServerShutdownThenClosesCells(t *testing.T) {
	hub := NewHub(newFakeRegistrar(), testLogger())

	userID := uuid.New()
	conn := NewConnector(context.Background(), userID, 4)
	require.NoError(t, hub.Register(context.Background(), conn))

	hub.Shutdown()

	var got event.Eventer
	select {
	case ev, open := <-conn.Recv():
		require.True(t, open, "expected a shutdown frame before the channel closed")
		got = ev
	case <-time.After(time.Second):
		t.Fatal("shutdown frame not delivered")
	}

	sysEv, ok := got.(*event.SystemEvent)
	require.True(t, ok, "expected *event.SystemEvent, got %T", got)
	assert.Equal(t, event.SystemServerShutdown, sysEv.Kind)

	_, open := <-conn.Recv()
	assert.False(t, open)
}

func TestHub_EvictsIdleCells(t *testing.T) {
	hub := NewHub(newFakeRegistrar(), testLogger(),
		WithEvictionInterval(10*time.Millisecond),
		WithIdleTimeout(0))
	defer hub.Shutdown()

	userID := uuid.New()
	conn := NewConnector(context.Background(), userID, 4)
	require.NoError(t, hub.Register(context.Background(), conn))
	hub.Unregister(context.Background(), userID, conn.GetID())

	require.Eventually(t, func() bool {
		return !hub.IsConnected(userID)
	}, time.Second, 10*time.Millisecond)
}
