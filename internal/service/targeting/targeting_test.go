package targeting

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/broadcast-delivery-service/internal/directory"
	"github.com/webitel/broadcast-delivery-service/internal/domain/broadcast"
)

type fakeAudienceWriter struct {
	mu      sync.Mutex
	batches [][]uuid.UUID
}

func (w *fakeAudienceWriter) InsertBatch(_ context.Context, _ uuid.UUID, userIDs []uuid.UUID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batches = append(w.batches, userIDs)
	return nil
}

func TestService_Resolve_SelectedReturnsFullMembership(t *testing.T) {
	online, offline := uuid.New(), uuid.New()
	svc := New(directory.NewFakeDirectory(), &fakeAudienceWriter{})

	got, err := svc.Resolve(context.Background(), broadcast.TargetSpec{
		Kind:    broadcast.TargetSelected,
		UserIDs: []uuid.UUID{online, offline},
	})

	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{online, offline}, got)
}

func TestService_Resolve_RoleLooksUpDirectoryReturnsFullMembership(t *testing.T) {
	online, offline := uuid.New(), uuid.New()
	dir := directory.NewFakeDirectory()
	dir.RoleMembers["agent"] = []uuid.UUID{online, offline}
	svc := New(dir, &fakeAudienceWriter{})

	got, err := svc.Resolve(context.Background(), broadcast.TargetSpec{Kind: broadcast.TargetRole, Role: "agent"})

	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{online, offline}, got)
}

func TestService_Resolve_AllLooksUpDirectory(t *testing.T) {
	online, offline := uuid.New(), uuid.New()
	dir := directory.NewFakeDirectory()
	dir.Users = []uuid.UUID{online, offline}
	svc := New(dir, &fakeAudienceWriter{})

	got, err := svc.Resolve(context.Background(), broadcast.TargetSpec{Kind: broadcast.TargetAll})

	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{online, offline}, got)
}

func TestService_Resolve_ProductIsNotFanOutOnRead(t *testing.T) {
	svc := New(directory.NewFakeDirectory(), &fakeAudienceWriter{})

	_, err := svc.Resolve(context.Background(), broadcast.TargetSpec{Kind: broadcast.TargetProduct, Product: "crm"})
	assert.Error(t, err)
}

func TestService_Precompute_RejectsNonProductTarget(t *testing.T) {
	svc := New(directory.NewFakeDirectory(), &fakeAudienceWriter{})

	_, err := svc.Precompute(context.Background(), uuid.New(), broadcast.TargetSpec{Kind: broadcast.TargetAll})
	assert.Error(t, err)
}

func TestService_Precompute_BatchesLargeMembership(t *testing.T) {
	dir := directory.NewFakeDirectory()
	members := make([]uuid.UUID, audienceBatchSize+1)
	for i := range members {
		members[i] = uuid.New()
	}
	dir.ProductEntitledMembers["crm"] = members

	writer := &fakeAudienceWriter{}
	svc := New(dir, writer)

	count, err := svc.Precompute(context.Background(), uuid.New(), broadcast.TargetSpec{Kind: broadcast.TargetProduct, Product: "crm"})

	require.NoError(t, err)
	assert.Equal(t, len(members), count)
	assert.Len(t, writer.batches, 2)

	var total int
	for _, b := range writer.batches {
		total += len(b)
	}
	assert.Equal(t, len(members), total)
}

func TestService_Precompute_EmptyMembershipWritesNoBatches(t *testing.T) {
	dir := directory.NewFakeDirectory()
	writer := &fakeAudienceWriter{}
	svc := New(dir, writer)

	count, err := svc.Precompute(context.Background(), uuid.New(), broadcast.TargetSpec{Kind: broadcast.TargetProduct, Product: "crm"})

	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Empty(t, writer.batches)
}
