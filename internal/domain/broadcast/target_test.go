package broadcast

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTargetSpec_ModeByKind(t *testing.T) {
	assert.Equal(t, FanOutOnRead, TargetSpec{Kind: TargetAll}.Mode())
	assert.Equal(t, FanOutOnRead, TargetSpec{Kind: TargetRole, Role: "agent"}.Mode())
	assert.Equal(t, FanOutOnWrite, TargetSpec{Kind: TargetProduct, Product: "crm"}.Mode())
	assert.Equal(t, FanOutOnRead, TargetSpec{Kind: TargetSelected, UserIDs: []uuid.UUID{uuid.New()}}.Mode())
}

func TestTargetSpec_Validate(t *testing.T) {
	assert.NoError(t, TargetSpec{Kind: TargetAll}.Validate())

	assert.Error(t, TargetSpec{Kind: TargetRole}.Validate())
	assert.NoError(t, TargetSpec{Kind: TargetRole, Role: "agent"}.Validate())

	assert.Error(t, TargetSpec{Kind: TargetProduct}.Validate())
	assert.NoError(t, TargetSpec{Kind: TargetProduct, Product: "crm"}.Validate())

	assert.Error(t, TargetSpec{Kind: TargetSelected}.Validate())
	assert.NoError(t, TargetSpec{Kind: TargetSelected, UserIDs: []uuid.UUID{uuid.New()}}.Validate())

	assert.Error(t, TargetSpec{Kind: "BOGUS"}.Validate())
}

func TestTargetSpec_DeduplicatedPreservesOrder(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	spec := TargetSpec{Kind: TargetSelected, UserIDs: []uuid.UUID{a, b, a, c, b}}

	got := spec.Deduplicated()
	assert.Equal(t, []uuid.UUID{a, b, c}, got)
}

func TestTargetSpec_DeduplicatedEmpty(t *testing.T) {
	spec := TargetSpec{Kind: TargetSelected}
	assert.Empty(t, spec.Deduplicated())
}
