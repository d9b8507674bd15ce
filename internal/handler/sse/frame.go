// Package sse implements the primary delivery transport of spec §6: a
// Server-Sent-Events stream carrying the named frames CONNECTED, MESSAGE,
// READ_RECEIPT, MESSAGE_REMOVED, HEARTBEAT, CONNECTION_LIMIT_REACHED, and
// SERVER_SHUTDOWN. The connect/pump-loop shape is adapted from the
// teacher's internal/handler/ws and internal/handler/lp delivery handlers,
// generalized from a single hardcoded test user to the full
// Subscribe/Recv/Unsubscribe contract against the cluster-backed registry.
package sse

import (
	"encoding/json"

	"github.com/webitel/broadcast-delivery-service/internal/domain/event"
)

// FrameName is one of the seven wire frame names spec §6 fixes exactly.
type FrameName string

const (
	FrameConnected             FrameName = "CONNECTED"
	FrameMessage               FrameName = "MESSAGE"
	FrameReadReceipt           FrameName = "READ_RECEIPT"
	FrameMessageRemoved        FrameName = "MESSAGE_REMOVED"
	FrameHeartbeat             FrameName = "HEARTBEAT"
	FrameConnectionLimitReached FrameName = "CONNECTION_LIMIT_REACHED"
	FrameServerShutdown        FrameName = "SERVER_SHUTDOWN"
)

// frameFor maps a domain/system event to its wire frame name. Returns ok =
// false for event kinds that never cross the wire (e.g. the internal-only
// FAILED delivery status, which the worker alone consumes to decide retry).
func frameFor(ev event.Eventer) (FrameName, bool) {
	switch e := ev.(type) {
	case *event.SystemEvent:
		switch e.Kind {
		case event.SystemConnected:
			return FrameConnected, true
		case event.SystemHeartbeat:
			return FrameHeartbeat, true
		case event.SystemConnectionLimitReached:
			return FrameConnectionLimitReached, true
		case event.SystemServerShutdown:
			return FrameServerShutdown, true
		}
		return "", false
	case *event.MessageDeliveryEvent:
		switch e.Kind {
		case event.KindCreated:
			return FrameMessage, true
		case event.KindRead:
			return FrameReadReceipt, true
		case event.KindRemoved, event.KindCancelled, event.KindExpired:
			return FrameMessageRemoved, true
		default:
			return "", false
		}
	default:
		return "", false
	}
}

// encode renders ev as an SSE wire block: "event: NAME\ndata: JSON\n\n".
// The encoding is cached on the event (event.Eventer.SetCached) so fanning
// the same event out to a user's several open sessions marshals it once.
func encode(ev event.Eventer, frame FrameName) ([]byte, error) {
	if cached := ev.GetCached(); cached != nil {
		if b, ok := cached.([]byte); ok {
			return b, nil
		}
	}

	payload, err := json.Marshal(ev.GetPayload())
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(payload)+32)
	out = append(out, "event: "...)
	out = append(out, frame...)
	out = append(out, "\ndata: "...)
	out = append(out, payload...)
	out = append(out, "\n\n"...)

	ev.SetCached(out)
	return out, nil
}
