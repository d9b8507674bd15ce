package app

import (
	"github.com/webitel/broadcast-delivery-service/internal/config"
	"github.com/webitel/broadcast-delivery-service/internal/directory"
	"github.com/webitel/broadcast-delivery-service/internal/grid/redisgrid"
	"github.com/webitel/broadcast-delivery-service/internal/handler/http"
	"github.com/webitel/broadcast-delivery-service/internal/logutil"
	"github.com/webitel/broadcast-delivery-service/internal/scheduler"
	"github.com/webitel/broadcast-delivery-service/internal/service/dlt"
	"github.com/webitel/broadcast-delivery-service/internal/service/lifecycle"
	"github.com/webitel/broadcast-delivery-service/internal/service/targeting"
	"github.com/webitel/broadcast-delivery-service/internal/store/outbox"
	"github.com/webitel/broadcast-delivery-service/internal/store/postgres"
	"go.uber.org/fx"
)

// NewAdminApp assembles the Admin Service: broadcast lifecycle, targeting
// precompute, the four lease-elected schedulers, the outbox publisher, DLT
// administration, and the admin REST surface. It owns broadcast state;
// it never touches a live connection.
func NewAdminApp(cfg *config.Config) *fx.App {
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

		lifecycle.Module,
		targeting.Module,
		dlt.Module,

		scheduler.AdminModule,

		http.AdminModule,

		fx.Invoke(logutil.RunProcessMetrics),
	)
}
