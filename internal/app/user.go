package app

import (
	"github.com/webitel/broadcast-delivery-service/internal/config"
	"github.com/webitel/broadcast-delivery-service/internal/directory"
	"github.com/webitel/broadcast-delivery-service/internal/domain/registry"
	"github.com/webitel/broadcast-delivery-service/internal/grid/redisgrid"
	"github.com/webitel/broadcast-delivery-service/internal/handler/grpc"
	"github.com/webitel/broadcast-delivery-service/internal/handler/http"
	"github.com/webitel/broadcast-delivery-service/internal/handler/sse"
	"github.com/webitel/broadcast-delivery-service/internal/logutil"
	"github.com/webitel/broadcast-delivery-service/internal/scheduler"
	"github.com/webitel/broadcast-delivery-service/internal/service/orchestrator"
	"github.com/webitel/broadcast-delivery-service/internal/service/targeting"
	"github.com/webitel/broadcast-delivery-service/internal/store/outbox"
	"github.com/webitel/broadcast-delivery-service/internal/store/postgres"
	"github.com/webitel/broadcast-delivery-service/internal/worker"
	"go.uber.org/fx"
)

// NewUserApp assembles the User Service: the connection registry, the SSE
// and gRPC delivery surfaces, the grid-observer worker, the orchestrator
// consumer that fans broadcast events out to the grid, and the stale-reap
// scheduler. It never mutates broadcast lifecycle state; it only resolves
// audiences at consume time and pushes to whatever this pod has open.
func NewUserApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			logutil.ProvideLogger,
			logutil.ProvideWatermillLogger,
		),

		storeBinders,

		postgres.Module,
		redisgrid.Module,
		directory.Module,
		outbox.Module,

		targeting.Module,
		registry.Module,
		worker.Module,
		orchestrator.Module,

		scheduler.UserModule,

		http.UserModule,
		sse.Module,
		grpc.Module,

		fx.Invoke(http.StartUserServer),
		fx.Invoke(registry.RegisterShutdownHook),
		fx.Invoke(logutil.RunProcessMetrics),
	)
}
