package scheduler

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/webitel/broadcast-delivery-service/internal/config"
	"github.com/webitel/broadcast-delivery-service/internal/grid"
	"github.com/webitel/broadcast-delivery-service/internal/leaseelection"
	"github.com/webitel/broadcast-delivery-service/internal/service/lifecycle"
	"github.com/webitel/broadcast-delivery-service/internal/service/targeting"
	"github.com/webitel/broadcast-delivery-service/internal/store/outbox"
	"github.com/webitel/broadcast-delivery-service/internal/store/postgres"
	"go.uber.org/fx"
)

// AdminModule wires the precompute/activation/expiration/outbox loops into
// the Admin Service binary.
var AdminModule = fx.Module("scheduler-admin",
	fx.Provide(NewAdminScheduler),
	fx.Invoke(runAdmin),
)

// UserModule wires the stale-reap loop into the User Service binary,
// alongside the connection registry it polices.
var UserModule = fx.Module("scheduler-user",
	fx.Provide(newStaleReaper),
	fx.Invoke(runStaleReaper),
)

func NewAdminScheduler(
	pool *pgxpool.Pool,
	broadcasts *postgres.BroadcastRepository,
	lifecycleSvc *lifecycle.Service,
	precompute *targeting.Service,
	poller *outbox.Poller,
	logger *slog.Logger,
	cfg *config.Config,
) *AdminScheduler {
	lease := func(name string) *leaseelection.Lease {
		return leaseelection.New(pool, name, logger, cfg.Scheduler.LockAtLeastFor, cfg.Scheduler.LockAtMostFor)
	}

	return &AdminScheduler{
		leases: adminLeases{
			precompute: lease("scheduler.precompute"),
			activation: lease("scheduler.activation"),
			expiration: lease("scheduler.expiration"),
			outbox:     lease("scheduler.outbox"),
		},
		broadcasts: broadcasts,
		preparing:  broadcasts,
		lifecycle:  lifecycleSvc,
		precompute: precompute,
		outboxOnce: poller,
		logger:     logger,

		precomputeInterval: cfg.Scheduler.PrecomputeInterval,
		activationInterval: cfg.Scheduler.ActivationInterval,
		expirationInterval: cfg.Scheduler.ExpirationInterval,
		outboxInterval:     cfg.Scheduler.OutboxInterval,
	}
}

func runAdmin(lc fx.Lifecycle, s *AdminScheduler) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.Run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func newStaleReaper(pool *pgxpool.Pool, g grid.Grid, logger *slog.Logger, cfg *config.Config) *StaleReaper {
	lease := leaseelection.New(pool, "scheduler.stale_reap", logger, cfg.Scheduler.LockAtLeastFor, cfg.Scheduler.LockAtMostFor)
	return NewStaleReaper(lease, g, logger, cfg.Scheduler.StaleReapInterval, cfg.SSE.ClientTimeoutThreshold)
}

func runStaleReaper(lc fx.Lifecycle, r *StaleReaper) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go r.Run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
