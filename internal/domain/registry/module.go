package registry

import (
	"context"
	"log/slog"

	"github.com/webitel/broadcast-delivery-service/internal/config"
	"github.com/webitel/broadcast-delivery-service/internal/grid"
	"go.uber.org/fx"
)

// Module wires the local Hub and its cluster-registrar adapter. It depends
// on grid.Grid being provided elsewhere (internal/grid/redisgrid.Module).
var Module = fx.Module("registry",
	fx.Provide(
		newClusterRegistrar,
		fx.Annotate(newHub, fx.As(new(Hubber))),
	),
)

func newClusterRegistrar(g grid.Grid, cfg *config.Config) ClusterRegistrar {
	return NewGridRegistrar(g, cfg.SSE.MaxConnectionsPerUser)
}

func newHub(registrar ClusterRegistrar, logger *slog.Logger, cfg *config.Config) *Hub {
	return NewHub(registrar, logger,
		WithMailboxSize(cfg.SSE.MailboxSize),
		WithPodID(cfg.Pod.ID),
		WithClusterID(cfg.Cluster.Name),
	)
}

// RegisterShutdownHook appends the hub's SERVER_SHUTDOWN broadcast to the
// app lifecycle. internal/app places this fx.Invoke after the HTTP server's
// own start/stop registration: fx runs OnStop hooks in the reverse order
// they were registered, so registering this one later means it fires
// first — every open stream gets SERVER_SHUTDOWN and has a chance to drain
// before srv.Shutdown begins waiting on those same handlers to return.
func RegisterShutdownHook(lc fx.Lifecycle, hub Hubber) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			hub.Shutdown()
			return nil
		},
	})
}
