package repository

import (
	"context"
	"time"

	"wheelshare-backend/internal/domain"
)

type VehicleRepository interface {
	Create(ctx context.Context, v *domain.Vehicle) error
	GetByID(ctx context.Context, id string) (*domain.Vehicle, error)
}

type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	// UpdateStatus transitions a booking from one status to another using a
	// compare-and-set on the current status. Returns domain.ErrInvalidState
	// wrapped in domain.ErrIllegalTransition semantics at the service layer
	// when the row is no longer in `from`.
	UpdateStatus(ctx context.Context, id string, from, to domain.BookingStatus) error
	// ListBlocking returns all bookings whose status occupies the interval
	// index, used to warm-load the index at startup.
	ListBlocking(ctx context.Context) ([]domain.Booking, error)
	ListByRenter(ctx context.Context, renterID string, status domain.BookingStatus, page, pageSize int32) ([]domain.Booking, int32, error)
	// ListPendingBefore returns PENDING bookings created before the cutoff,
	// candidates for reservation-timeout expiry.
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]domain.Booking, error)
	// ListActiveEndedBefore returns ACTIVE bookings whose range ended before
	// the cutoff, candidates for overdue flagging.
	ListActiveEndedBefore(ctx context.Context, cutoff time.Time) ([]domain.Booking, error)
	CountByStatus(ctx context.Context, vehicleID string) (map[domain.BookingStatus]int64, error)
}

type ReportRepository interface {
	Create(ctx context.Context, r *domain.ConditionReport) error
	GetByID(ctx context.Context, id string) (*domain.ConditionReport, error)
	// GetActiveByBookingAndType returns the single non-cancelled report of the
	// given type for a booking, or domain.ErrNotFound.
	GetActiveByBookingAndType(ctx context.Context, bookingID string, t domain.ReportType) (*domain.ConditionReport, error)
	Update(ctx context.Context, r *domain.ConditionReport) error
	CountByStatus(ctx context.Context) (map[domain.ReportStatus]int64, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	List(ctx context.Context, userID string, limit, offset int32) ([]domain.Notification, int32, error)
}
