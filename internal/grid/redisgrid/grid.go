package redisgrid

import (
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Grid is the Redis-backed implementation of grid.Grid.
type Grid struct {
	rdb    redis.UniversalClient
	logger *slog.Logger

	// casRetries bounds the compare-and-set retry loop used by connection
	// set mutations, per spec §4.7 ("retry up to 5 times").
	casRetries int
}

func New(rdb redis.UniversalClient, logger *slog.Logger) *Grid {
	return &Grid{rdb: rdb, logger: logger, casRetries: 5}
}
