package broadcast

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, StatusExpired.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusFailed.Terminal())

	assert.False(t, StatusPreparing.Terminal())
	assert.False(t, StatusReady.Terminal())
	assert.False(t, StatusScheduled.Terminal())
	assert.False(t, StatusActive.Terminal())
}

func TestBroadcast_Immediate(t *testing.T) {
	b := &Broadcast{}
	assert.True(t, b.Immediate())

	future := time.Now().Add(time.Hour)
	b.ScheduledAt = &future
	assert.False(t, b.Immediate())
}

func TestBroadcast_Mode(t *testing.T) {
	b := &Broadcast{Target: TargetSpec{Kind: TargetProduct, Product: "crm"}}
	assert.Equal(t, FanOutOnWrite, b.Mode())

	b.Target = TargetSpec{Kind: TargetAll}
	assert.Equal(t, FanOutOnRead, b.Mode())
}

func TestBroadcast_ValidateForCreate(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	t.Run("requires content", func(t *testing.T) {
		b := &Broadcast{Target: TargetSpec{Kind: TargetAll}, CreatedAt: now}
		assert.Error(t, b.ValidateForCreate())
	})

	t.Run("requires valid target", func(t *testing.T) {
		b := &Broadcast{Content: "hi", Target: TargetSpec{Kind: TargetRole}, CreatedAt: now}
		assert.Error(t, b.ValidateForCreate())
	})

	t.Run("expiresAt before createdAt is invalid", func(t *testing.T) {
		b := &Broadcast{
			Content:   "hi",
			Target:    TargetSpec{Kind: TargetAll},
			CreatedAt: now,
			ExpiresAt: &past,
		}
		assert.Error(t, b.ValidateForCreate())
	})

	t.Run("scheduledAt after expiresAt is invalid", func(t *testing.T) {
		b := &Broadcast{
			Content:     "hi",
			Target:      TargetSpec{Kind: TargetAll},
			CreatedAt:   now,
			ScheduledAt: &future,
			ExpiresAt:   &now,
		}
		assert.Error(t, b.ValidateForCreate())
	})

	t.Run("valid broadcast passes", func(t *testing.T) {
		b := &Broadcast{
			Content:   "hi",
			Target:    TargetSpec{Kind: TargetSelected, UserIDs: []uuid.UUID{uuid.New()}},
			CreatedAt: now,
			ExpiresAt: &future,
		}
		assert.NoError(t, b.ValidateForCreate())
	})
}
