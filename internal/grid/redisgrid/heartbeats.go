package redisgrid

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/broadcast-delivery-service/internal/apperr"
	"github.com/webitel/broadcast-delivery-service/internal/grid"
)

type heartbeatRecord struct {
	UserID uuid.UUID `json:"user_id"`
	Epoch  int64     `json:"epoch"`
}

// UpdateHeartbeats is deliberately non-CAS: spec §4.7 calls it "idempotent,
// non-blocking", and a last-writer-wins HSET is exactly that — heartbeat
// writes are allowed to reorder versus registrations because staleness is
// evaluated monotonically by the reaper.
func (g *Grid) UpdateHeartbeats(ctx context.Context, connIDs []uuid.UUID) error {
	if len(connIDs) == 0 {
		return nil
	}

	now := time.Now().Unix()
	pipe := g.rdb.Pipeline()
	for _, connID := range connIDs {
		userID, err := g.userIDForConnection(ctx, connID)
		if err != nil {
			continue // connection already unregistered elsewhere; nothing to bump
		}
		encoded, _ := json.Marshal(heartbeatRecord{UserID: userID, Epoch: now})
		pipe.HSet(ctx, heartbeatsKey, connID.String(), encoded)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return apperr.GridUnavailable("update heartbeats", err)
	}
	return nil
}

// userIDForConnection resolves the owning user of a connection by asking
// the existing heartbeat record if present; new connections seed their own
// heartbeat entry at registration time (see connections.go RegisterConnection
// callers), so this only needs to read back what was already written.
func (g *Grid) userIDForConnection(ctx context.Context, connID uuid.UUID) (uuid.UUID, error) {
	raw, err := g.rdb.HGet(ctx, heartbeatsKey, connID.String()).Result()
	if err != nil {
		return uuid.Nil, err
	}
	var rec heartbeatRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return uuid.Nil, err
	}
	return rec.UserID, nil
}

// timeNowUnix is a thin indirection so RegisterConnection's heartbeat seed
// and UpdateHeartbeats share one notion of "now".
func timeNowUnix() int64 { return time.Now().Unix() }

func (g *Grid) StaleConnections(ctx context.Context, threshold time.Duration) ([]grid.StaleConnection, error) {
	all, err := g.rdb.HGetAll(ctx, heartbeatsKey).Result()
	if err != nil {
		return nil, apperr.GridUnavailable("scan heartbeats", err)
	}

	cutoff := time.Now().Add(-threshold)
	var stale []grid.StaleConnection
	for connIDStr, raw := range all {
		var rec heartbeatRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue // malformed entry; leave for manual inspection rather than guess-deleting
		}
		last := time.Unix(rec.Epoch, 0)
		if last.Before(cutoff) {
			connID, err := uuid.Parse(connIDStr)
			if err != nil {
				continue
			}
			stale = append(stale, grid.StaleConnection{
				UserID:        rec.UserID,
				ConnectionID:  connID,
				LastHeartbeat: last,
			})
		}
	}
	return stale, nil
}
