package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"wheelshare-backend/internal/domain"
	"wheelshare-backend/internal/logger"
)

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Overlap string `json:"overlap,omitempty"`
}

// writeError maps the service error taxonomy onto HTTP statuses. Unknown
// errors become 500 with a generic body so internals never leak to clients.
func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Message: err.Error()}
	var status int

	var conflict *domain.ConflictError
	switch {
	case errors.As(err, &conflict):
		status = http.StatusConflict
		resp.Kind = "CONFLICT"
		resp.Overlap = string(conflict.Kind)
	case errors.Is(err, domain.ErrInvalidRange):
		status = http.StatusBadRequest
		resp.Kind = "INVALID_RANGE"
	case errors.Is(err, domain.ErrInvalidArgument):
		status = http.StatusBadRequest
		resp.Kind = "INVALID_ARGUMENT"
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
		resp.Kind = "FORBIDDEN"
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		resp.Kind = "NOT_FOUND"
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
		resp.Kind = "CONFLICT"
	case errors.Is(err, domain.ErrInvalidState):
		status = http.StatusConflict
		resp.Kind = "INVALID_STATE"
	case errors.Is(err, domain.ErrIllegalTransition):
		status = http.StatusConflict
		resp.Kind = "ILLEGAL_TRANSITION"
	case errors.Is(err, domain.ErrBusy):
		status = http.StatusTooManyRequests
		resp.Kind = "BUSY"
	case errors.Is(err, domain.ErrUnavailable):
		status = http.StatusServiceUnavailable
		resp.Kind = "UNAVAILABLE"
	default:
		logger.Error("unhandled error in http layer", "error", err)
		status = http.StatusInternalServerError
		resp.Kind = "INTERNAL"
		resp.Message = "internal server error"
	}

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
