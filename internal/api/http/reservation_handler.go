package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"wheelshare-backend/internal/domain"
	"wheelshare-backend/internal/service"
)

type ReservationHandler struct {
	engine service.AvailabilityEngine
}

func NewReservationHandler(engine service.AvailabilityEngine) *ReservationHandler {
	return &ReservationHandler{engine: engine}
}

type createReservationRequest struct {
	VehicleID string    `json:"vehicle_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrForbidden)
		return
	}

	var req createReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: malformed request body", domain.ErrInvalidArgument))
		return
	}
	if req.VehicleID == "" {
		writeError(w, fmt.Errorf("%w: vehicle_id is required", domain.ErrInvalidArgument))
		return
	}

	booking, err := h.engine.TryReserve(r.Context(), req.VehicleID, domain.DateRange{
		Start: req.Start,
		End:   req.End,
	}, actor.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

type busyRangesResponse struct {
	VehicleID string             `json:"vehicle_id"`
	Busy      []domain.DateRange `json:"busy"`
}

func (h *ReservationHandler) BusyRanges(w http.ResponseWriter, r *http.Request) {
	vehicleID := mux.Vars(r)["id"]

	from, err := parseTimeParam(r, "from")
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := parseTimeParam(r, "to")
	if err != nil {
		writeError(w, err)
		return
	}

	busy, err := h.engine.ListBusyRanges(r.Context(), vehicleID, from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	if busy == nil {
		busy = []domain.DateRange{}
	}
	writeJSON(w, http.StatusOK, busyRangesResponse{VehicleID: vehicleID, Busy: busy})
}

func parseTimeParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", domain.ErrInvalidArgument, name)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC 3339", domain.ErrInvalidArgument, name)
	}
	return t, nil
}
