// Package http implements the admin and user REST surfaces of spec §6,
// chi-routed exactly as the teacher routes its gRPC-adjacent HTTP endpoints,
// with apperr's taxonomy mapped to status codes at the edge so handlers
// never hand-roll status-code decisions.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/webitel/broadcast-delivery-service/internal/apperr"
)

func writeError(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		writeJSON(w, statusFor(appErr.Class), map[string]string{
			"error":  appErr.Reason,
			"detail": appErr.Message,
		})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal", "detail": err.Error()})
}

func statusFor(class apperr.Class) int {
	switch class {
	case apperr.ClassNotFound:
		return http.StatusNotFound
	case apperr.ClassValidation:
		return http.StatusBadRequest
	case apperr.ClassRateLimited:
		return http.StatusTooManyRequests
	case apperr.ClassConflictCAS:
		return http.StatusConflict
	case apperr.ClassStoreUnavailable, apperr.ClassLogUnavailable, apperr.ClassGridUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
