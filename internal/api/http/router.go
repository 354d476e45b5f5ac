package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"wheelshare-backend/internal/repository"
	"wheelshare-backend/internal/security"
	"wheelshare-backend/internal/service"
)

type RouterDeps struct {
	Engine        service.AvailabilityEngine
	Lifecycle     service.BookingLifecycle
	Workflow      service.ConditionReportWorkflow
	Stats         service.StatsAggregator
	Vehicles      repository.VehicleRepository
	Notifications repository.NotificationRepository
	Tokens        security.TokenManager
}

// NewRouter wires all HTTP endpoints. Everything under /api/v1 requires a
// bearer token except the health check.
func NewRouter(deps RouterDeps) *mux.Router {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(AuthMiddleware(deps.Tokens))

	reservations := NewReservationHandler(deps.Engine)
	api.HandleFunc("/reservations", reservations.Create).Methods(http.MethodPost)

	vehicles := NewVehicleHandler(deps.Vehicles)
	api.HandleFunc("/vehicles", vehicles.Create).Methods(http.MethodPost)
	api.HandleFunc("/vehicles/{id}/busy", reservations.BusyRanges).Methods(http.MethodGet)

	bookings := NewBookingHandler(deps.Lifecycle)
	api.HandleFunc("/bookings", bookings.List).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{id}", bookings.Get).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{id}/payment-confirmed", bookings.ConfirmPayment).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id}/pickup", bookings.Activate).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id}/return", bookings.Complete).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id}", bookings.Cancel).Methods(http.MethodDelete)

	reports := NewReportHandler(deps.Workflow)
	api.HandleFunc("/bookings/{id}/reports", reports.Create).Methods(http.MethodPost)
	api.HandleFunc("/reports/{id}", reports.Get).Methods(http.MethodGet)
	api.HandleFunc("/reports/{id}/confirm", reports.Confirm).Methods(http.MethodPost)
	api.HandleFunc("/reports/{id}/dispute", reports.Dispute).Methods(http.MethodPost)
	api.HandleFunc("/reports/{id}/resolve", reports.Resolve).Methods(http.MethodPost)
	api.HandleFunc("/reports/{id}", reports.Cancel).Methods(http.MethodDelete)

	stats := NewStatsHandler(deps.Stats)
	api.HandleFunc("/stats/bookings", stats.BookingCounts).Methods(http.MethodGet)
	api.HandleFunc("/stats/reports", stats.ReportCounts).Methods(http.MethodGet)

	notifications := NewNotificationHandler(deps.Notifications)
	api.HandleFunc("/notifications", notifications.List).Methods(http.MethodGet)

	return r
}
