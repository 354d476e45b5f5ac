package http

import (
	"fmt"
	"net/http"
	"strconv"

	"wheelshare-backend/internal/domain"
	"wheelshare-backend/internal/repository"
	"wheelshare-backend/internal/service"
)

type StatsHandler struct {
	stats service.StatsAggregator
}

func NewStatsHandler(stats service.StatsAggregator) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// BookingCounts serves per-status booking counts, optionally scoped to a
// single vehicle via ?vehicle_id=.
func (h *StatsHandler) BookingCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.stats.BookingCountsByStatus(r.Context(), r.URL.Query().Get("vehicle_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (h *StatsHandler) ReportCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.stats.ReportCountsByStatus(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

type NotificationHandler struct {
	repo repository.NotificationRepository
}

func NewNotificationHandler(repo repository.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{repo: repo}
}

type notificationListResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	Total         int32                 `json:"total"`
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrForbidden)
		return
	}

	limit := queryInt32(r, "limit", 20)
	offset := queryInt32(r, "offset", 0)
	if limit <= 0 || limit > 100 || offset < 0 {
		writeError(w, fmt.Errorf("%w: limit must be 1-100 and offset non-negative", domain.ErrInvalidArgument))
		return
	}

	notes, total, err := h.repo.List(r.Context(), actor.UserID, limit, offset)
	if err != nil {
		writeError(w, domain.Unavailable(err))
		return
	}
	if notes == nil {
		notes = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, notificationListResponse{Notifications: notes, Total: total})
}

func queryInt32(r *http.Request, name string, def int32) int32 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return -1
	}
	return int32(n)
}
