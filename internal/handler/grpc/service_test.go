package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/broadcast-delivery-service/internal/domain/event"
	"github.com/webitel/broadcast-delivery-service/internal/domain/registry"
	"github.com/webitel/broadcast-delivery-service/internal/grid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeHub struct {
	stats         registry.Stats
	connected     map[uuid.UUID]bool
	unregistered  []uuid.UUID
	disconnectAll map[uuid.UUID]int
}

func (h *fakeHub) Broadcast(event.Eventer) bool { return true }
func (h *fakeHub) Register(context.Context, registry.Connector) error { return nil }
func (h *fakeHub) Unregister(_ context.Context, userID uuid.UUID, _ uuid.UUID) {
	h.unregistered = append(h.unregistered, userID)
}
func (h *fakeHub) IsConnected(userID uuid.UUID) bool { return h.connected[userID] }
func (h *fakeHub) Stats() registry.Stats             { return h.stats }
func (h *fakeHub) DisconnectAll(userID uuid.UUID) int { return h.disconnectAll[userID] }
func (h *fakeHub) Shutdown()                          {}

var _ registry.Hubber = (*fakeHub)(nil)

type fakeGrid struct {
	counts map[uuid.UUID]int
	err    error
}

func (g *fakeGrid) ConnectionCount(_ context.Context, userID uuid.UUID) (int, error) {
	if g.err != nil {
		return 0, g.err
	}
	return g.counts[userID], nil
}
func (g *fakeGrid) RegisterConnection(context.Context, uuid.UUID, uuid.UUID, grid.ConnectionInfo, int) error {
	panic("not implemented")
}
func (g *fakeGrid) UnregisterConnection(context.Context, uuid.UUID, uuid.UUID) error {
	panic("not implemented")
}
func (g *fakeGrid) IsOnline(context.Context, uuid.UUID) (bool, error) { panic("not implemented") }
func (g *fakeGrid) OnlineSubset(context.Context, []uuid.UUID) ([]uuid.UUID, error) {
	panic("not implemented")
}
func (g *fakeGrid) UpdateHeartbeats(context.Context, []uuid.UUID) error { panic("not implemented") }
func (g *fakeGrid) StaleConnections(context.Context, time.Duration) ([]grid.StaleConnection, error) {
	panic("not implemented")
}
func (g *fakeGrid) PushInbox(context.Context, uuid.UUID, grid.InboxEntry) error {
	panic("not implemented")
}
func (g *fakeGrid) DrainInbox(context.Context, uuid.UUID, int) ([]grid.InboxEntry, error) {
	panic("not implemented")
}
func (g *fakeGrid) GetBroadcastContent(context.Context, uuid.UUID) ([]byte, bool, error) {
	panic("not implemented")
}
func (g *fakeGrid) PutBroadcastContent(context.Context, uuid.UUID, []byte, time.Duration) error {
	panic("not implemented")
}
func (g *fakeGrid) EvictBroadcastContent(context.Context, uuid.UUID) error {
	panic("not implemented")
}
func (g *fakeGrid) EnqueuePending(context.Context, uuid.UUID, []byte, time.Duration) error {
	panic("not implemented")
}
func (g *fakeGrid) DrainPending(context.Context, uuid.UUID, int) ([]grid.PendingEvent, error) {
	panic("not implemented")
}
func (g *fakeGrid) Subscribe(context.Context, string) (<-chan uuid.UUID, error) {
	panic("not implemented")
}

var _ grid.Grid = (*fakeGrid)(nil)

func TestService_GetConnectionStats_EmptyUserIDReturnsTotals(t *testing.T) {
	hub := &fakeHub{stats: registry.Stats{TotalUsers: 5, TotalConnections: 9}}
	svc := NewService(hub, &fakeGrid{})

	resp, err := svc.GetConnectionStats(context.Background(), &GetConnectionStatsRequest{})

	require.NoError(t, err)
	assert.EqualValues(t, 5, resp.TotalUsers)
	assert.EqualValues(t, 9, resp.TotalConnections)
}

func TestService_GetConnectionStats_InvalidUserIDRejected(t *testing.T) {
	svc := NewService(&fakeHub{}, &fakeGrid{})

	_, err := svc.GetConnectionStats(context.Background(), &GetConnectionStatsRequest{UserID: "not-a-uuid"})

	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestService_GetConnectionStats_PerUserLookup(t *testing.T) {
	userID := uuid.New()
	hub := &fakeHub{connected: map[uuid.UUID]bool{userID: true}}
	g := &fakeGrid{counts: map[uuid.UUID]int{userID: 3}}
	svc := NewService(hub, g)

	resp, err := svc.GetConnectionStats(context.Background(), &GetConnectionStatsRequest{UserID: userID.String()})

	require.NoError(t, err)
	assert.True(t, resp.Connected)
	assert.EqualValues(t, 3, resp.ConnectionCount)
}

func TestService_GetConnectionStats_GridFailurePropagatesUnavailable(t *testing.T) {
	userID := uuid.New()
	svc := NewService(&fakeHub{}, &fakeGrid{err: assertErr{}})

	_, err := svc.GetConnectionStats(context.Background(), &GetConnectionStatsRequest{UserID: userID.String()})

	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

type assertErr struct{}

func (assertErr) Error() string { return "grid unavailable" }

func TestService_ForceDisconnect_InvalidUserIDRejected(t *testing.T) {
	svc := NewService(&fakeHub{}, &fakeGrid{})

	_, err := svc.ForceDisconnect(context.Background(), &ForceDisconnectRequest{UserID: "nope"})

	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestService_ForceDisconnect_InvalidConnectionIDRejected(t *testing.T) {
	svc := NewService(&fakeHub{}, &fakeGrid{})

	_, err := svc.ForceDisconnect(context.Background(), &ForceDisconnectRequest{
		UserID:       uuid.NewString(),
		ConnectionID: "nope",
	})

	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestService_ForceDisconnect_SpecificConnectionUnregistersOne(t *testing.T) {
	userID := uuid.New()
	hub := &fakeHub{}
	svc := NewService(hub, &fakeGrid{})

	resp, err := svc.ForceDisconnect(context.Background(), &ForceDisconnectRequest{
		UserID:       userID.String(),
		ConnectionID: uuid.NewString(),
	})

	require.NoError(t, err)
	assert.EqualValues(t, 1, resp.Disconnected)
	assert.Equal(t, []uuid.UUID{userID}, hub.unregistered)
}

func TestService_ForceDisconnect_NoConnectionIDDisconnectsAll(t *testing.T) {
	userID := uuid.New()
	hub := &fakeHub{disconnectAll: map[uuid.UUID]int{userID: 4}}
	svc := NewService(hub, &fakeGrid{})

	resp, err := svc.ForceDisconnect(context.Background(), &ForceDisconnectRequest{UserID: userID.String()})

	require.NoError(t, err)
	assert.EqualValues(t, 4, resp.Disconnected)
}
