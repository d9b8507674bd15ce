package redisgrid

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/webitel/broadcast-delivery-service/internal/apperr"
	"github.com/webitel/broadcast-delivery-service/internal/grid"
)

type pendingEnvelope struct {
	UserID     uuid.UUID `json:"user_id"`
	Payload    []byte    `json:"payload"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// pendingMaxLen caps the per-user offline queue so a long-absent user never
// forces an unbounded replay storm on reconnect. The cap is 500 entries,
// larger than the inbox's inboxMaxLen of 200.
const pendingMaxLen = 500

func (g *Grid) EnqueuePending(ctx context.Context, userID uuid.UUID, payload []byte, ttl time.Duration) error {
	encoded, err := json.Marshal(pendingEnvelope{UserID: userID, Payload: payload, EnqueuedAt: time.Now()})
	if err != nil {
		return apperr.Poison("encode pending event", err)
	}

	key := pendingKey(userID)
	pipe := g.rdb.TxPipeline()
	pipe.RPush(ctx, key, encoded)
	pipe.LTrim(ctx, key, -pendingMaxLen, -1)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return apperr.GridUnavailable("enqueue pending event", err)
	}
	return nil
}

func (g *Grid) DrainPending(ctx context.Context, userID uuid.UUID, max int) ([]grid.PendingEvent, error) {
	key := pendingKey(userID)

	raws, err := g.rdb.LPopCount(ctx, key, max).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.GridUnavailable("drain pending events", err)
	}

	events := make([]grid.PendingEvent, 0, len(raws))
	for _, raw := range raws {
		var env pendingEnvelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			continue
		}
		events = append(events, grid.PendingEvent{
			UserID:     env.UserID,
			Payload:    env.Payload,
			EnqueuedAt: env.EnqueuedAt,
		})
	}
	return events, nil
}
