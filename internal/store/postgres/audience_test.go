package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/broadcast-delivery-service/internal/domain/broadcast"
)

func TestAudienceRepository_InsertBatchThenPage(t *testing.T) {
	pool := newTestPool(t)
	broadcasts := NewBroadcastRepository(pool)
	audience := NewAudienceRepository(pool)
	ctx := context.Background()

	b := newTestBroadcast()
	b.Target = broadcast.TargetSpec{Kind: broadcast.TargetProduct, Product: "crm"}
	require.NoError(t, broadcasts.Create(ctx, b))

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	require.NoError(t, audience.InsertBatch(ctx, b.ID, ids))

	page, err := audience.Page(ctx, b.ID, uuid.Nil, 10)
	require.NoError(t, err)
	assert.Len(t, page, 3)
}

func TestAudienceRepository_InsertBatch_IsIdempotent(t *testing.T) {
	pool := newTestPool(t)
	broadcasts := NewBroadcastRepository(pool)
	audience := NewAudienceRepository(pool)
	ctx := context.Background()

	b := newTestBroadcast()
	b.Target = broadcast.TargetSpec{Kind: broadcast.TargetProduct, Product: "crm"}
	require.NoError(t, broadcasts.Create(ctx, b))

	ids := []uuid.UUID{uuid.New()}
	require.NoError(t, audience.InsertBatch(ctx, b.ID, ids))
	require.NoError(t, audience.InsertBatch(ctx, b.ID, ids))

	page, err := audience.Page(ctx, b.ID, uuid.Nil, 10)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestAudienceRepository_Page_RespectsCursorAndLimit(t *testing.T) {
	pool := newTestPool(t)
	broadcasts := NewBroadcastRepository(pool)
	audience := NewAudienceRepository(pool)
	ctx := context.Background()

	b := newTestBroadcast()
	b.Target = broadcast.TargetSpec{Kind: broadcast.TargetProduct, Product: "crm"}
	require.NoError(t, broadcasts.Create(ctx, b))

	ids := make([]uuid.UUID, 5)
	for i := range ids {
		ids[i] = uuid.New()
	}
	require.NoError(t, audience.InsertBatch(ctx, b.ID, ids))

	var all []uuid.UUID
	after := uuid.Nil
	for {
		page, err := audience.Page(ctx, b.ID, after, 2)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		after = page[len(page)-1]
	}

	assert.Len(t, all, 5)
}
