// Package directory stands in for the real user-directory service that
// spec.md's Non-goals explicitly exclude from this repository: role and
// product-entitlement membership are owned by a separate system. UserDirectory
// is the seam the targeting engine depends on; FakeDirectory is the only
// implementation shipped here; a production deployment wires a real client
// (gRPC or HTTP) behind the same interface.
package directory

import (
	"context"

	"github.com/google/uuid"
)

// UserDirectory answers membership questions the targeting engine needs to
// resolve ROLE and PRODUCT audiences.
type UserDirectory interface {
	AllUsers(ctx context.Context) ([]uuid.UUID, error)
	UsersWithRole(ctx context.Context, role string) ([]uuid.UUID, error)
	UsersWithProductEntitlement(ctx context.Context, product string) ([]uuid.UUID, error)
}

// FakeDirectory is a static, in-memory UserDirectory for tests and for
// standalone local runs that have no real directory service to call.
type FakeDirectory struct {
	Users                  []uuid.UUID
	RoleMembers            map[string][]uuid.UUID
	ProductEntitledMembers map[string][]uuid.UUID
}

func NewFakeDirectory() *FakeDirectory {
	return &FakeDirectory{
		RoleMembers:            map[string][]uuid.UUID{},
		ProductEntitledMembers: map[string][]uuid.UUID{},
	}
}

func (f *FakeDirectory) AllUsers(_ context.Context) ([]uuid.UUID, error) {
	return f.Users, nil
}

func (f *FakeDirectory) UsersWithRole(_ context.Context, role string) ([]uuid.UUID, error) {
	return f.RoleMembers[role], nil
}

func (f *FakeDirectory) UsersWithProductEntitlement(_ context.Context, product string) ([]uuid.UUID, error) {
	return f.ProductEntitledMembers[product], nil
}
