// Package postgres holds the pgx-backed persistence layer: connection pool
// setup, embedded schema migrations, and the repositories for broadcasts,
// deliveries (which also maintain broadcast statistics), precomputed
// audiences, and the dead-letter table. The transactional outbox lives in
// internal/store/outbox. Migration bootstrapping follows the teacher pack's
// embed-and-apply-on-startup pattern (codeready-toolchain-tarsy's
// pkg/database/client.go), adapted to run pgx/v5 directly instead of
// through an ORM, since SPEC_FULL.md's domain stack designates pgxpool
// rather than Ent (no Ent codegen is available in the retrieval pack).
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool opens a pgx connection pool against dsn and verifies connectivity.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: open pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return pool, nil
}
