package redisgrid

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/webitel/broadcast-delivery-service/internal/apperr"
)

// GetBroadcastContent serves the hot-content cache described in spec §3:
// workers fetching the same ALL/ROLE broadcast for many users should not
// each round-trip Postgres for identical bytes.
func (g *Grid) GetBroadcastContent(ctx context.Context, broadcastID uuid.UUID) ([]byte, bool, error) {
	raw, err := g.rdb.Get(ctx, contentKey(broadcastID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperr.GridUnavailable("get broadcast content", err)
	}
	return raw, true, nil
}

func (g *Grid) PutBroadcastContent(ctx context.Context, broadcastID uuid.UUID, payload []byte, ttl time.Duration) error {
	if err := g.rdb.Set(ctx, contentKey(broadcastID), payload, ttl).Err(); err != nil {
		return apperr.GridUnavailable("put broadcast content", err)
	}
	return nil
}

func (g *Grid) EvictBroadcastContent(ctx context.Context, broadcastID uuid.UUID) error {
	if err := g.rdb.Del(ctx, contentKey(broadcastID)).Err(); err != nil {
		return apperr.GridUnavailable("evict broadcast content", err)
	}
	return nil
}
