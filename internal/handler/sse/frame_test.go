package sse

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/broadcast-delivery-service/internal/domain/event"
)

func TestFrameFor_SystemEvents(t *testing.T) {
	userID := uuid.New()
	cases := []struct {
		ev   event.Eventer
		want FrameName
	}{
		{event.NewConnected(userID, "conn-1"), FrameConnected},
		{event.NewHeartbeat(userID), FrameHeartbeat},
		{event.NewConnectionLimitReached(userID, 3), FrameConnectionLimitReached},
		{event.NewServerShutdown(userID), FrameServerShutdown},
	}
	for _, c := range cases {
		frame, ok := frameFor(c.ev)
		assert.True(t, ok)
		assert.Equal(t, c.want, frame)
	}
}

func TestFrameFor_MessageDeliveryEvents(t *testing.T) {
	userID := uuid.New()
	cases := []struct {
		kind event.Kind
		want FrameName
		ok   bool
	}{
		{event.KindCreated, FrameMessage, true},
		{event.KindRead, FrameReadReceipt, true},
		{event.KindRemoved, FrameMessageRemoved, true},
		{event.KindCancelled, FrameMessageRemoved, true},
		{event.KindExpired, FrameMessageRemoved, true},
		{event.KindFailed, "", false},
	}
	for _, c := range cases {
		ev := event.New(uuid.New(), userID, c.kind, "hi", false)
		frame, ok := frameFor(ev)
		assert.Equal(t, c.ok, ok, c.kind)
		assert.Equal(t, c.want, frame, c.kind)
	}
}

func TestEncode_ProducesNamedFrameWithJSONPayload(t *testing.T) {
	userID := uuid.New()
	ev := event.New(uuid.New(), userID, event.KindCreated, "hello", false)

	block, err := encode(ev, FrameMessage)
	require.NoError(t, err)

	s := string(block)
	assert.True(t, strings.HasPrefix(s, "event: MESSAGE\ndata: "))
	assert.True(t, strings.HasSuffix(s, "\n\n"))

	data := strings.TrimSuffix(strings.TrimPrefix(s, "event: MESSAGE\ndata: "), "\n\n")
	var decoded event.MessageDeliveryEvent
	require.NoError(t, json.Unmarshal([]byte(data), &decoded))
	assert.Equal(t, ev.EventID, decoded.EventID)
}

func TestEncode_CachesEncodingOnEvent(t *testing.T) {
	ev := event.NewHeartbeat(uuid.New())

	first, err := encode(ev, FrameHeartbeat)
	require.NoError(t, err)

	cached := ev.GetCached()
	require.NotNil(t, cached)
	assert.Equal(t, first, cached)

	second, err := encode(ev, FrameHeartbeat)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
