package redisgrid

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/webitel/broadcast-delivery-service/internal/apperr"
	"github.com/webitel/broadcast-delivery-service/internal/grid"
)

// inboxMaxLen bounds UserInbox per spec §3: it is a pointer structure for
// the worker to replay on reconnect, not a durable log, so it is trimmed
// aggressively rather than left to grow unbounded.
const inboxMaxLen = 200

// PushInbox prepends entry (newest-first, per spec §4.4) and trims the list,
// then publishes the userID on notifyChannel so any pod's Subscribe loop can
// wake and pull it.
func (g *Grid) PushInbox(ctx context.Context, userID uuid.UUID, entry grid.InboxEntry) error {
	encoded, err := json.Marshal(entry)
	if err != nil {
		return apperr.Poison("encode inbox entry", err)
	}

	key := inboxKey(userID)
	pipe := g.rdb.TxPipeline()
	pipe.LPush(ctx, key, encoded)
	pipe.LTrim(ctx, key, 0, inboxMaxLen-1)
	pipe.Publish(ctx, notifyChannel, userID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return apperr.GridUnavailable("push inbox", err)
	}
	return nil
}

// DrainInbox pops up to max entries, oldest-pushed-first within the batch,
// leaving the rest for a subsequent drain.
func (g *Grid) DrainInbox(ctx context.Context, userID uuid.UUID, max int) ([]grid.InboxEntry, error) {
	key := inboxKey(userID)

	raws, err := g.rdb.RPopCount(ctx, key, max).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.GridUnavailable("drain inbox", err)
	}

	entries := make([]grid.InboxEntry, 0, len(raws))
	for _, raw := range raws {
		var e grid.InboxEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue // skip poisoned entry rather than fail the whole drain
		}
		entries = append(entries, e)
	}
	return entries, nil
}
