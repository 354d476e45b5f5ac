package service

import (
	"context"
	"time"

	"wheelshare-backend/internal/domain"
)

// AvailabilityEngine owns atomic check-and-reserve over the interval index.
type AvailabilityEngine interface {
	// TryReserve creates a PENDING booking iff the range is free for the
	// vehicle. The overlap check and the index insert run as one atomic unit
	// under the vehicle's reservation lock.
	TryReserve(ctx context.Context, vehicleID string, r domain.DateRange, renterID string) (*domain.Booking, error)
	// ListBusyRanges returns blocking ranges intersecting the window, for
	// calendar rendering. Reads are lock-free and may be slightly stale.
	ListBusyRanges(ctx context.Context, vehicleID string, from, to time.Time) ([]domain.DateRange, error)
}

// BookingLifecycle advances a booking through its state machine in response
// to external signals.
type BookingLifecycle interface {
	// ConfirmPayment handles the payment collaborator's signal:
	// PENDING -> CONFIRMED, idempotent when already CONFIRMED.
	ConfirmPayment(ctx context.Context, bookingID string) (*domain.Booking, error)
	// Activate handles the pickup event: CONFIRMED -> ACTIVE; requires a
	// non-cancelled PICKUP report and that the rental window has started.
	Activate(ctx context.Context, bookingID, actorID string) (*domain.Booking, error)
	// Complete handles the return event: ACTIVE -> COMPLETED; requires the
	// RETURN report to be CONFIRMED or RESOLVED. A disputed return blocks
	// completion until resolved.
	Complete(ctx context.Context, bookingID, actorID string) (*domain.Booking, error)
	// Cancel moves PENDING/CONFIRMED bookings to CANCELLED and releases the
	// interval. Idempotent when already CANCELLED.
	Cancel(ctx context.Context, bookingID, actorID string) (*domain.Booking, error)
	Get(ctx context.Context, bookingID, actorID string) (*domain.Booking, error)
	// List pages through the renter's own bookings, newest first, optionally
	// filtered by status. Returns the page and the total match count.
	List(ctx context.Context, renterID string, status domain.BookingStatus, page, pageSize int32) ([]domain.Booking, int32, error)
	// ExpirePending cancels PENDING bookings older than the payment window
	// and releases their intervals. Returns the number of bookings expired.
	ExpirePending(ctx context.Context, window time.Duration) (int, error)
}

// ConditionReportWorkflow runs the pickup/return inspection state machine.
type ConditionReportWorkflow interface {
	CreateReport(ctx context.Context, bookingID, reporterID string, t domain.ReportType, fields domain.ReportFields) (*domain.ConditionReport, error)
	// Confirm is performed by the counterparty; self-confirmation is
	// forbidden. Retries by the same confirmer are idempotent.
	Confirm(ctx context.Context, reportID, actorID string) (*domain.ConditionReport, error)
	// Dispute is performed by the counterparty with a required reason.
	Dispute(ctx context.Context, reportID, actorID, reason string) (*domain.ConditionReport, error)
	// Resolve is performed by an administrator, the single exception to the
	// counterparty-only rule.
	Resolve(ctx context.Context, reportID string, admin domain.Actor, outcome string) (*domain.ConditionReport, error)
	// CancelReport lets the reporter withdraw a still-PENDING report.
	CancelReport(ctx context.Context, reportID, reporterID string) (*domain.ConditionReport, error)
	Get(ctx context.Context, reportID, actorID string) (*domain.ConditionReport, error)
}

// StatsAggregator serves read-only rollups for dashboards. Never mutates.
type StatsAggregator interface {
	BookingCountsByStatus(ctx context.Context, vehicleID string) (map[domain.BookingStatus]int64, error)
	ReportCountsByStatus(ctx context.Context) (map[domain.ReportStatus]int64, error)
}

// EventPublisher delivers committed domain events to the notification
// collaborator, fire-and-forget.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}
