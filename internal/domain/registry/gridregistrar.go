package registry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/broadcast-delivery-service/internal/grid"
)

// gridRegistrar adapts a grid.Grid into the ClusterRegistrar Hub depends on,
// binding the configured per-user connection cap at construction time so
// Hub itself never needs to know about config.
type gridRegistrar struct {
	g          grid.Grid
	maxPerUser int
}

// NewGridRegistrar builds a ClusterRegistrar backed by g.
func NewGridRegistrar(g grid.Grid, maxPerUser int) ClusterRegistrar {
	return &gridRegistrar{g: g, maxPerUser: maxPerUser}
}

func (r *gridRegistrar) Register(ctx context.Context, userID, connID uuid.UUID, podID, clusterID string) error {
	now := time.Now()
	return r.g.RegisterConnection(ctx, userID, connID, grid.ConnectionInfo{
		PodID:          podID,
		ClusterID:      clusterID,
		ConnectedAt:    now,
		LastActivityAt: now,
	}, r.maxPerUser)
}

func (r *gridRegistrar) Unregister(ctx context.Context, userID, connID uuid.UUID) error {
	return r.g.UnregisterConnection(ctx, userID, connID)
}
