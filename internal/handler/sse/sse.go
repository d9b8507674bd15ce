package sse

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/broadcast-delivery-service/internal/apperr"
	"github.com/webitel/broadcast-delivery-service/internal/config"
	"github.com/webitel/broadcast-delivery-service/internal/domain/event"
	"github.com/webitel/broadcast-delivery-service/internal/domain/registry"
	"github.com/webitel/broadcast-delivery-service/internal/grid"
	"github.com/webitel/broadcast-delivery-service/internal/worker"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

// Handler serves the one long-lived connection spec §6 calls "connect": a
// streamed body of named SSE frames, kept open until the client disconnects,
// the stream hits its configured timeout, or the server shuts down. The
// subscribe/pump-loop/defer-unregister shape follows the teacher's
// internal/handler/lp and internal/handler/ws delivery handlers; unlike
// either, frames here carry a stable wire name rather than a marshalled
// batch envelope.
type Handler struct {
	hub            registry.Hubber
	grid           grid.Grid
	cfg            *config.Config
	connectLimiter *rate.Limiter
}

func NewHandler(hub registry.Hubber, g grid.Grid, cfg *config.Config) *Handler {
	return &Handler{
		hub:  hub,
		grid: g,
		cfg:  cfg,
		// One new stream every 500ms, bursting to 10, counted across all
		// users: this single limiter is shared by the whole handler and is
		// not kept per user, so one user's reconnect storm also uses up the
		// allowance of every other user.
		connectLimiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 10),
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/user/sse/connect", h.connect)
}

func (h *Handler) connect(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("userId"))
	if err != nil {
		http.Error(w, "userId is not a uuid", http.StatusBadRequest)
		return
	}

	if !h.connectLimiter.Allow() {
		http.Error(w, "connect rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	connectionID := r.URL.Query().Get("connectionId")
	if connectionID == "" {
		connectionID = uuid.NewString()
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	conn := registry.NewConnector(ctx, userID, h.cfg.SSE.MailboxSize)

	if err := h.hub.Register(ctx, conn); err != nil {
		if class, ok := apperr.ClassOf(err); ok && class == apperr.ClassRateLimited {
			h.writeCapReached(w, flusher, userID)
			return
		}
		http.Error(w, "registration failed", http.StatusServiceUnavailable)
		return
	}
	// Close last: defers run LIFO, and Unregister must detach conn from its
	// Cell before Close tears down conn's channel, or a delivery racing this
	// teardown can send on an already-closed channel.
	defer conn.Close()
	defer h.hub.Unregister(context.WithoutCancel(ctx), userID, conn.GetID())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if !h.writeFrame(w, flusher, event.NewConnected(userID, connectionID)) {
		return
	}

	worker.ReplayPending(ctx, h.grid, h.hub, userID)

	heartbeat := time.NewTicker(h.cfg.SSE.HeartbeatInterval)
	defer heartbeat.Stop()

	timeout := time.NewTimer(h.cfg.SSE.Timeout)
	defer timeout.Stop()

	connID := conn.GetID()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timeout.C:
			return
		case <-heartbeat.C:
			if err := h.grid.UpdateHeartbeats(ctx, []uuid.UUID{connID}); err != nil {
				return
			}
			if !h.writeFrame(w, flusher, event.NewHeartbeat(userID)) {
				return
			}
		case ev, open := <-conn.Recv():
			if !open {
				return
			}
			if !h.writeFrame(w, flusher, ev) {
				return
			}
		}
	}
}

func (h *Handler) writeCapReached(w http.ResponseWriter, flusher http.Flusher, userID uuid.UUID) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	h.writeFrame(w, flusher, event.NewConnectionLimitReached(userID, h.cfg.SSE.MaxConnectionsPerUser))
}

func (h *Handler) writeFrame(w http.ResponseWriter, flusher http.Flusher, ev event.Eventer) bool {
	frame, ok := frameFor(ev)
	if !ok {
		return true
	}
	block, err := encode(ev, frame)
	if err != nil {
		return true
	}
	if _, err := w.Write(block); err != nil {
		return false
	}
	flusher.Flush()
	return true
}
