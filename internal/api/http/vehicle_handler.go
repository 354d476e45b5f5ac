package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"wheelshare-backend/internal/domain"
	"wheelshare-backend/internal/repository"
)

// VehicleHandler registers vehicles for the authenticated owner. Listing lives
// on stats and busy-range endpoints; this handler only creates.
type VehicleHandler struct {
	repo repository.VehicleRepository
}

func NewVehicleHandler(repo repository.VehicleRepository) *VehicleHandler {
	return &VehicleHandler{repo: repo}
}

type createVehicleRequest struct {
	Name  string `json:"name"`
	Plate string `json:"plate"`
}

func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrForbidden)
		return
	}

	var req createVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidArgument))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Plate = strings.TrimSpace(req.Plate)
	if req.Name == "" || req.Plate == "" {
		writeError(w, fmt.Errorf("%w: name and plate are required", domain.ErrInvalidArgument))
		return
	}

	vehicle := &domain.Vehicle{
		ID:      uuid.NewString(),
		OwnerID: actor.UserID,
		Name:    req.Name,
		Plate:   req.Plate,
	}
	if err := h.repo.Create(r.Context(), vehicle); err != nil {
		writeError(w, domain.Unavailable(err))
		return
	}
	writeJSON(w, http.StatusCreated, vehicle)
}
