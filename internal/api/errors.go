package api

import (
	"errors"
	"net/http"

	"amenityhub/internal/models"
)

var errBadRequest = errors.New("bad request")

// statusFor maps a service error to the HTTP status and machine readable code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, models.ErrInvalidInterval):
		return http.StatusBadRequest, "invalid_interval"
	case errors.Is(err, models.ErrResourceUnavailable):
		return http.StatusUnprocessableEntity, "resource_unavailable"
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, models.ErrTooLateToCancel):
		return http.StatusConflict, "too_late_to_cancel"
	case errors.Is(err, models.ErrTooLateToReschedule):
		return http.StatusConflict, "too_late_to_reschedule"
	case errors.Is(err, models.ErrInvalidArtifact):
		return http.StatusNotFound, "invalid_artifact"
	case errors.Is(err, models.ErrHoldExpired):
		return http.StatusGone, "hold_expired"
	case errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, models.ErrTransientStorage):
		return http.StatusServiceUnavailable, "transient_storage"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

type errorResponse struct {
	Error     string   `json:"error"`
	Message   string   `json:"message"`
	Conflicts []string `json:"conflicts,omitempty"`
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	resp := errorResponse{Error: code, Message: err.Error()}
	if status >= http.StatusInternalServerError {
		// Детали хранилища наружу не отдаём
		resp.Message = http.StatusText(status)
	}
	var ce *models.ConflictError
	if errors.As(err, &ce) {
		resp.Conflicts = ce.ReservationIDs
	}
	writeJSON(w, status, resp)
}
