package directory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeDirectory_AllUsers(t *testing.T) {
	d := NewFakeDirectory()
	id := uuid.New()
	d.Users = []uuid.UUID{id}

	got, err := d.AllUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id}, got)
}

func TestFakeDirectory_UsersWithRole_UnknownRoleReturnsEmpty(t *testing.T) {
	d := NewFakeDirectory()

	got, err := d.UsersWithRole(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFakeDirectory_UsersWithProductEntitlement(t *testing.T) {
	d := NewFakeDirectory()
	id := uuid.New()
	d.ProductEntitledMembers["crm"] = []uuid.UUID{id}

	got, err := d.UsersWithProductEntitlement(context.Background(), "crm")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id}, got)
}

var _ UserDirectory = (*FakeDirectory)(nil)
