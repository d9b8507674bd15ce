package event

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewConnected_SetsConnectionIDPayload(t *testing.T) {
	userID := uuid.New()
	ev := NewConnected(userID, "conn-1")

	assert.Equal(t, SystemConnected, ev.Kind)
	assert.Equal(t, userID, ev.GetUserID())
	payload, ok := ev.Payload.(*ConnectedPayload)
	assert.True(t, ok)
	assert.Equal(t, "conn-1", payload.ConnectionID)
}

func TestNewHeartbeat_HasNilPayload(t *testing.T) {
	ev := NewHeartbeat(uuid.New())
	assert.Equal(t, SystemHeartbeat, ev.Kind)
	assert.Nil(t, ev.Payload)
}

func TestSystemEvent_PriorityForUrgentKinds(t *testing.T) {
	shutdown := NewServerShutdown(uuid.New())
	assert.Equal(t, PriorityHigh, shutdown.GetPriority())

	limit := NewConnectionLimitReached(uuid.New(), 3)
	assert.Equal(t, PriorityHigh, limit.GetPriority())

	heartbeat := NewHeartbeat(uuid.New())
	assert.Equal(t, PriorityLow, heartbeat.GetPriority())
}

func TestNewConnectionLimitReached_CarriesMax(t *testing.T) {
	ev := NewConnectionLimitReached(uuid.New(), 5)
	payload, ok := ev.Payload.(map[string]int)
	assert.True(t, ok)
	assert.Equal(t, 5, payload["max_connections_per_user"])
}

func TestSystemEvent_CacheRoundTrip(t *testing.T) {
	ev := NewHeartbeat(uuid.New())
	assert.Nil(t, ev.GetCached())
	ev.SetCached("frame-bytes")
	assert.Equal(t, "frame-bytes", ev.GetCached())
}
