package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/webitel/broadcast-delivery-service/internal/apperr"
	"github.com/webitel/broadcast-delivery-service/internal/directory"
	"github.com/webitel/broadcast-delivery-service/internal/domain/broadcast"
	"github.com/webitel/broadcast-delivery-service/internal/service/dlt"
	"github.com/webitel/broadcast-delivery-service/internal/service/lifecycle"
	"github.com/webitel/broadcast-delivery-service/internal/store/postgres"
	"golang.org/x/time/rate"
)

const defaultListLimit = 200

// AdminHandler exposes the broadcast lifecycle and DLT management surface
// described by spec §6's admin endpoints.
type AdminHandler struct {
	lifecycle  *lifecycle.Service
	broadcasts *postgres.BroadcastRepository
	deliveries *postgres.DeliveryRepository
	directory  directory.UserDirectory
	dlt        *dlt.Manager
	createRate *rate.Limiter
}

func NewAdminHandler(
	lifecycleSvc *lifecycle.Service,
	broadcasts *postgres.BroadcastRepository,
	deliveries *postgres.DeliveryRepository,
	dir directory.UserDirectory,
	dltManager *dlt.Manager,
) *AdminHandler {
	return &AdminHandler{
		lifecycle:  lifecycleSvc,
		broadcasts: broadcasts,
		deliveries: deliveries,
		directory:  dir,
		dlt:        dltManager,
		// One broadcast creation per 200ms sustained, bursting to 5: cheap
		// enough for legitimate admin traffic, tight enough to stop a
		// scripting mistake from fanning out thousands of broadcasts.
		createRate: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
	}
}

func (h *AdminHandler) Routes(r chi.Router) {
	r.Post("/api/admin/broadcasts", h.create)
	r.Get("/api/admin/broadcasts", h.list)
	r.Get("/api/admin/broadcasts/{id}", h.get)
	r.Get("/api/admin/broadcasts/{id}/stats", h.stats)
	r.Get("/api/admin/broadcasts/{id}/deliveries", h.deliveriesList)
	r.Delete("/api/admin/broadcasts/{id}", h.cancel)
	r.Get("/api/admin/broadcasts/users/all-ids", h.allUserIDs)

	r.Get("/api/admin/dlt/messages", h.dltList)
	r.Post("/api/admin/dlt/redrive/{id}", h.dltRedriveOne)
	r.Post("/api/admin/dlt/redrive-all", h.dltRedriveAll)
	r.Delete("/api/admin/dlt/purge/{id}", h.dltPurgeOne)
	r.Delete("/api/admin/dlt/purge-all", h.dltPurgeAll)
}

type createBroadcastRequest struct {
	SenderID      uuid.UUID           `json:"senderId"`
	Content       string              `json:"content"`
	Priority      broadcast.Priority  `json:"priority"`
	Category      string              `json:"category"`
	Target        targetSpecRequest   `json:"target"`
	ScheduledAt   *time.Time          `json:"scheduledAt,omitempty"`
	ExpiresAt     *time.Time          `json:"expiresAt,omitempty"`
	FireAndForget bool                `json:"fireAndForget"`
}

type targetSpecRequest struct {
	Kind    broadcast.TargetKind `json:"kind"`
	Role    string               `json:"role,omitempty"`
	Product string               `json:"product,omitempty"`
	UserIDs []uuid.UUID          `json:"userIds,omitempty"`
}

func (h *AdminHandler) create(w http.ResponseWriter, r *http.Request) {
	if !h.createRate.Allow() {
		writeError(w, apperr.RateLimited("broadcast creation rate limit exceeded"))
		return
	}

	var req createBroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid_body", "request body is not valid JSON"))
		return
	}

	b := &broadcast.Broadcast{
		SenderID: req.SenderID,
		Content:  req.Content,
		Priority: req.Priority,
		Category: req.Category,
		Target: broadcast.TargetSpec{
			Kind:    req.Target.Kind,
			Role:    req.Target.Role,
			Product: req.Target.Product,
			UserIDs: req.Target.UserIDs,
		},
		ScheduledAt:   req.ScheduledAt,
		ExpiresAt:     req.ExpiresAt,
		FireAndForget: req.FireAndForget,
	}

	if err := h.lifecycle.Create(r.Context(), b); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *AdminHandler) list(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("filter")
	if filter == "" {
		filter = "all"
	}
	items, err := h.broadcasts.List(r.Context(), filter, defaultListLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *AdminHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperr.Validation("invalid_id", "id is not a uuid"))
		return
	}
	b, err := h.broadcasts.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *AdminHandler) stats(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperr.Validation("invalid_id", "id is not a uuid"))
		return
	}
	stats, err := h.deliveries.Statistics(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) deliveriesList(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperr.Validation("invalid_id", "id is not a uuid"))
		return
	}
	rows, err := h.deliveries.ListByBroadcast(r.Context(), id, defaultListLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *AdminHandler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperr.Validation("invalid_id", "id is not a uuid"))
		return
	}
	if err := h.lifecycle.Cancel(r.Context(), id, "cancelled via admin api"); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) allUserIDs(w http.ResponseWriter, r *http.Request) {
	ids, err := h.directory.AllUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

func (h *AdminHandler) dltList(w http.ResponseWriter, r *http.Request) {
	records, err := h.dlt.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *AdminHandler) dltRedriveOne(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.dlt.RedriveOne(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) dltRedriveAll(w http.ResponseWriter, r *http.Request) {
	redrived, err := h.dlt.RedriveAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"redrived": redrived})
}

func (h *AdminHandler) dltPurgeOne(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.dlt.PurgeOne(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) dltPurgeAll(w http.ResponseWriter, r *http.Request) {
	purged, err := h.dlt.PurgeAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"purged": purged})
}
