package redisgrid

import (
	"context"

	"github.com/google/uuid"
)

// Subscribe returns every UserInbox notification published cluster-wide.
// Redis pub/sub has no server-side routing by subscriber identity, and
// keys are intentionally cluster- rather than pod-scoped (see keys.go), so
// there is no way to ask Redis for "just this pod's users". podID is kept
// in the signature to satisfy grid.Grid and for parity with a future
// sharded-channel implementation; the caller (internal/worker) is expected
// to filter the stream against its own local registry.Hub.IsConnected.
func (g *Grid) Subscribe(ctx context.Context, podID string) (<-chan uuid.UUID, error) {
	sub := g.rdb.Subscribe(ctx, notifyChannel)

	out := make(chan uuid.UUID, 256)
	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				userID, err := uuid.Parse(msg.Payload)
				if err != nil {
					g.logger.Warn("redisgrid: malformed notify payload", "payload", msg.Payload, "error", err)
					continue
				}
				select {
				case out <- userID:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
