// Package targeting resolves a broadcast's TargetSpec into concrete user
// IDs (spec §4.2): ALL and ROLE resolve cheaply at consume time
// (fan-out-on-read), PRODUCT is precomputed into broadcast_audience ahead of
// activation (fan-out-on-write) because its membership can be arbitrarily
// large. ROLE/PRODUCT lookups go through internal/directory, mirroring the
// teacher's peer_enricher.go errgroup-parallel external-lookup shape.
package targeting

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/webitel/broadcast-delivery-service/internal/directory"
	"github.com/webitel/broadcast-delivery-service/internal/domain/broadcast"
	"golang.org/x/sync/errgroup"
)

const audienceBatchSize = 5000

// AudienceWriter bulk-persists a precomputed audience.
type AudienceWriter interface {
	InsertBatch(ctx context.Context, broadcastID uuid.UUID, userIDs []uuid.UUID) error
}

type Service struct {
	directory directory.UserDirectory
	audience  AudienceWriter
}

func New(dir directory.UserDirectory, audience AudienceWriter) *Service {
	return &Service{directory: dir, audience: audience}
}

// Resolve computes the full audience at consume time for ALL/ROLE/SELECTED
// targets: every targeted user, online or not. Fan-out-on-read means
// resolution happens when the orchestrator consumes the event rather than
// when the broadcast is written, not that offline recipients are dropped —
// the caller (orchestrator.fanOut) checks grid.IsOnline per recipient and
// routes offline ones to PendingEvents, so filtering here would silently
// lose delivery rows for anyone not connected at resolve time.
func (s *Service) Resolve(ctx context.Context, t broadcast.TargetSpec) ([]uuid.UUID, error) {
	switch t.Kind {
	case broadcast.TargetSelected:
		return t.Deduplicated(), nil
	case broadcast.TargetRole:
		members, err := s.directory.UsersWithRole(ctx, t.Role)
		if err != nil {
			return nil, fmt.Errorf("targeting: resolve role %q: %w", t.Role, err)
		}
		return members, nil
	case broadcast.TargetAll:
		all, err := s.directory.AllUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("targeting: resolve all users: %w", err)
		}
		return all, nil
	default:
		return nil, fmt.Errorf("targeting: %q is not fan-out-on-read", t.Kind)
	}
}

// Precompute resolves a PRODUCT target's full membership (online or not)
// and persists it into broadcast_audience in batches, so the orchestrator
// can page through it without holding the whole set in memory.
func (s *Service) Precompute(ctx context.Context, broadcastID uuid.UUID, t broadcast.TargetSpec) (int, error) {
	if t.Kind != broadcast.TargetProduct {
		return 0, fmt.Errorf("targeting: precompute is only valid for PRODUCT targets, got %q", t.Kind)
	}

	members, err := s.directory.UsersWithProductEntitlement(ctx, t.Product)
	if err != nil {
		return 0, fmt.Errorf("targeting: resolve product %q: %w", t.Product, err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	for start := 0; start < len(members); start += audienceBatchSize {
		end := start + audienceBatchSize
		if end > len(members) {
			end = len(members)
		}
		batch := members[start:end]
		g.Go(func() error {
			return s.audience.InsertBatch(gCtx, broadcastID, batch)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("targeting: persist audience batches: %w", err)
	}

	return len(members), nil
}
