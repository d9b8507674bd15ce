// Package scheduler runs the periodic, single-leader loops of SPEC_FULL
// §2.6. Precompute/activation/expiration/outbox belong to the Admin
// Service, which owns broadcast lifecycle and targeting; stale-reap belongs
// to the User Service, which owns the connection registry (§2). Every loop
// is wrapped by internal/leaseelection so exactly one pod in the cluster
// executes a given tick at a time; every tick is written to be idempotent,
// so a lease handoff mid-tick never double-applies work.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/broadcast-delivery-service/internal/domain/broadcast"
	"github.com/webitel/broadcast-delivery-service/internal/grid"
	"github.com/webitel/broadcast-delivery-service/internal/leaseelection"
)

const schedulerBatchSize = 500

// BroadcastStore is the subset of postgres.BroadcastRepository the
// activation/expiration loops depend on.
type BroadcastStore interface {
	DueForActivation(ctx context.Context, asOf time.Time, limit int) ([]*broadcast.Broadcast, error)
	DueForExpiration(ctx context.Context, asOf time.Time, limit int) ([]*broadcast.Broadcast, error)
}

// LifecycleService is the subset of lifecycle.Service the activation and
// expiration loops drive.
type LifecycleService interface {
	Activate(ctx context.Context, broadcastID uuid.UUID) error
	Expire(ctx context.Context, broadcastID uuid.UUID) error
	MarkReady(ctx context.Context, broadcastID uuid.UUID) error
}

// Precomputer is the subset of targeting.Service the precompute loop drives.
type Precomputer interface {
	Precompute(ctx context.Context, broadcastID uuid.UUID, t broadcast.TargetSpec) (int, error)
}

// PreparingLister finds broadcasts still waiting on audience precomputation.
type PreparingLister interface {
	ListPreparing(ctx context.Context, limit int) ([]*broadcast.Broadcast, error)
}

// OutboxRunner drains a single outbox batch per invocation.
type OutboxRunner interface {
	RunOnce(ctx context.Context) error
}

type adminLeases struct {
	precompute *leaseelection.Lease
	activation *leaseelection.Lease
	expiration *leaseelection.Lease
	outbox     *leaseelection.Lease
}

// AdminScheduler owns the four lease-wrapped loops that run alongside the
// broadcast lifecycle and targeting services.
type AdminScheduler struct {
	leases adminLeases

	broadcasts BroadcastStore
	preparing  PreparingLister
	lifecycle  LifecycleService
	precompute Precomputer
	outboxOnce OutboxRunner
	logger     *slog.Logger

	precomputeInterval time.Duration
	activationInterval time.Duration
	expirationInterval time.Duration
	outboxInterval     time.Duration
}

// Run launches all four loops as goroutines and blocks until ctx is
// cancelled.
func (s *AdminScheduler) Run(ctx context.Context) {
	go s.leases.precompute.Run(ctx, s.precomputeInterval, s.runPrecompute)
	go s.leases.activation.Run(ctx, s.activationInterval, s.runActivation)
	go s.leases.expiration.Run(ctx, s.expirationInterval, s.runExpiration)
	go s.leases.outbox.Run(ctx, s.outboxInterval, s.outboxOnce.RunOnce)
	<-ctx.Done()
}

// runPrecompute finishes audience precomputation for every PREPARING
// broadcast, then advances it to READY/SCHEDULED via MarkReady. A broadcast
// already fully precomputed on a prior tick that crashed before MarkReady
// simply recomputes its audience again; InsertBatch's ON CONFLICT DO NOTHING
// makes the recompute a no-op rather than a duplicate.
func (s *AdminScheduler) runPrecompute(ctx context.Context) error {
	pending, err := s.preparing.ListPreparing(ctx, schedulerBatchSize)
	if err != nil {
		return err
	}
	for _, b := range pending {
		if _, err := s.precompute.Precompute(ctx, b.ID, b.Target); err != nil {
			s.logger.Error("scheduler: precompute failed", "broadcast_id", b.ID, "error", err)
			continue
		}
		if err := s.lifecycle.MarkReady(ctx, b.ID); err != nil {
			s.logger.Error("scheduler: mark ready failed", "broadcast_id", b.ID, "error", err)
		}
	}
	return nil
}

func (s *AdminScheduler) runActivation(ctx context.Context) error {
	due, err := s.broadcasts.DueForActivation(ctx, time.Now().UTC(), schedulerBatchSize)
	if err != nil {
		return err
	}
	for _, b := range due {
		if err := s.lifecycle.Activate(ctx, b.ID); err != nil {
			s.logger.Error("scheduler: activation failed", "broadcast_id", b.ID, "error", err)
		}
	}
	return nil
}

func (s *AdminScheduler) runExpiration(ctx context.Context) error {
	due, err := s.broadcasts.DueForExpiration(ctx, time.Now().UTC(), schedulerBatchSize)
	if err != nil {
		return err
	}
	for _, b := range due {
		if err := s.lifecycle.Expire(ctx, b.ID); err != nil {
			s.logger.Error("scheduler: expiration failed", "broadcast_id", b.ID, "error", err)
		}
	}
	return nil
}

// StaleReaper is the sole authority for cleaning up connections whose pod
// crashed without a clean unregister: it scans Heartbeats for entries older
// than threshold and evicts them from UserConnections. It lives in the User
// Service, alongside the connection registry it polices.
type StaleReaper struct {
	lease     *leaseelection.Lease
	grid      grid.Grid
	logger    *slog.Logger
	interval  time.Duration
	threshold time.Duration
}

func NewStaleReaper(lease *leaseelection.Lease, g grid.Grid, logger *slog.Logger, interval, threshold time.Duration) *StaleReaper {
	return &StaleReaper{lease: lease, grid: g, logger: logger, interval: interval, threshold: threshold}
}

func (r *StaleReaper) Run(ctx context.Context) {
	r.lease.Run(ctx, r.interval, r.runOnce)
}

func (r *StaleReaper) runOnce(ctx context.Context) error {
	stale, err := r.grid.StaleConnections(ctx, r.threshold)
	if err != nil {
		return err
	}
	for _, c := range stale {
		if err := r.grid.UnregisterConnection(ctx, c.UserID, c.ConnectionID); err != nil {
			r.logger.Warn("scheduler: stale reap unregister failed", "user_id", c.UserID, "conn_id", c.ConnectionID, "error", err)
		}
	}
	return nil
}
