package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/webitel/broadcast-delivery-service/internal/apperr"
	"github.com/webitel/broadcast-delivery-service/internal/config"
	"github.com/webitel/broadcast-delivery-service/internal/domain/event"
	"github.com/webitel/broadcast-delivery-service/internal/domain/registry"
	"github.com/webitel/broadcast-delivery-service/internal/grid"
	"github.com/webitel/broadcast-delivery-service/internal/store/outbox"
	"github.com/webitel/broadcast-delivery-service/internal/store/postgres"

	"github.com/go-chi/chi/v5"
)

// UserHandler exposes the connection-management and read-receipt endpoints
// of spec §6's user surface; the SSE stream itself lives in
// internal/handler/sse.
type UserHandler struct {
	hub        registry.Hubber
	grid       grid.Grid
	deliveries *postgres.DeliveryRepository
	emitter    postgres.ReadEventEmitter
	topic      string
}

func NewUserHandler(hub registry.Hubber, g grid.Grid, deliveries *postgres.DeliveryRepository, emitter *outbox.Writer, cfg *config.Config) *UserHandler {
	return &UserHandler{hub: hub, grid: g, deliveries: deliveries, emitter: emitter, topic: cfg.Kafka.Topic.NameOrchestration}
}

func (h *UserHandler) Routes(r chi.Router) {
	r.Post("/api/user/sse/disconnect", h.disconnect)
	r.Post("/api/user/messages/read", h.markRead)
	r.Get("/api/user/sse/stats", h.stats)
	r.Get("/api/user/sse/connected/{userId}", h.connected)
}

func parseQueryUUID(r *http.Request, key string) (uuid.UUID, error) {
	return uuid.Parse(r.URL.Query().Get(key))
}

func (h *UserHandler) disconnect(w http.ResponseWriter, r *http.Request) {
	userID, err := parseQueryUUID(r, "userId")
	if err != nil {
		writeError(w, apperr.Validation("invalid_user_id", "userId is not a uuid"))
		return
	}
	connID, err := parseQueryUUID(r, "connectionId")
	if err != nil {
		writeError(w, apperr.Validation("invalid_connection_id", "connectionId is not a uuid"))
		return
	}
	h.hub.Unregister(r.Context(), userID, connID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) markRead(w http.ResponseWriter, r *http.Request) {
	userID, err := parseQueryUUID(r, "userId")
	if err != nil {
		writeError(w, apperr.Validation("invalid_user_id", "userId is not a uuid"))
		return
	}
	broadcastID, err := parseQueryUUID(r, "broadcastId")
	if err != nil {
		writeError(w, apperr.Validation("invalid_broadcast_id", "broadcastId is not a uuid"))
		return
	}

	ev := event.New(broadcastID, userID, event.KindRead, "", true)
	if err := h.deliveries.MarkReadAndEmit(r.Context(), broadcastID, userID, h.emitter, h.topic, ev); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.hub.Stats())
}

func (h *UserHandler) connected(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, apperr.Validation("invalid_user_id", "userId is not a uuid"))
		return
	}
	count, err := h.grid.ConnectionCount(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"userId":    userID,
		"connected": h.hub.IsConnected(userID),
		"count":     count,
	})
}
