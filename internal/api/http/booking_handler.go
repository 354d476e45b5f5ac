package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"wheelshare-backend/internal/domain"
	"wheelshare-backend/internal/service"
)

type BookingHandler struct {
	lifecycle service.BookingLifecycle
}

func NewBookingHandler(lifecycle service.BookingLifecycle) *BookingHandler {
	return &BookingHandler{lifecycle: lifecycle}
}

type bookingListResponse struct {
	Bookings []domain.Booking `json:"bookings"`
	Total    int32            `json:"total"`
}

// List pages through the caller's own bookings, newest first. ?status= narrows
// to a single state.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrForbidden)
		return
	}

	status := domain.BookingStatus(r.URL.Query().Get("status"))
	page := queryInt32(r, "page", 1)
	pageSize := queryInt32(r, "page_size", 20)
	if page < 1 || pageSize < 1 || pageSize > 100 {
		writeError(w, fmt.Errorf("%w: page must be positive and page_size 1-100", domain.ErrInvalidArgument))
		return
	}

	bookings, total, err := h.lifecycle.List(r.Context(), actor.UserID, status, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}
	writeJSON(w, http.StatusOK, bookingListResponse{Bookings: bookings, Total: total})
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrForbidden)
		return
	}
	booking, err := h.lifecycle.Get(r.Context(), mux.Vars(r)["id"], actor.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// ConfirmPayment is the payment collaborator's webhook target. The caller is
// authenticated but the transition itself is actor-agnostic.
func (h *BookingHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	booking, err := h.lifecycle.ConfirmPayment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *BookingHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.Activate)
}

func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.Complete)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.Cancel)
}

func (h *BookingHandler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, bookingID, actorID string) (*domain.Booking, error)) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrForbidden)
		return
	}
	booking, err := fn(r.Context(), mux.Vars(r)["id"], actor.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}
