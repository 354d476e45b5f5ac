package domain

import "time"

type EventType string

const (
	EventBookingStateChanged EventType = "booking.state_changed"
	EventReportCreated       EventType = "report.created"
	EventReportConfirmed     EventType = "report.confirmed"
	EventReportDisputed      EventType = "report.disputed"
	EventReportResolved      EventType = "report.resolved"
)

// Event is the fire-and-forget message emitted to the notification
// collaborator after a state change has been committed. It is always published
// outside any lock, from already-committed state.
type Event struct {
	Type       EventType `json:"type"`
	BookingID  string    `json:"booking_id"`
	ReportID   string    `json:"report_id,omitempty"`
	VehicleID  string    `json:"vehicle_id,omitempty"`
	ActorID    string    `json:"actor_id,omitempty"`
	OldStatus  string    `json:"old_status,omitempty"`
	NewStatus  string    `json:"new_status,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
