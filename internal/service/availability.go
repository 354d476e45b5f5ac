package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wheelshare-backend/internal/cache"
	"wheelshare-backend/internal/domain"
	"wheelshare-backend/internal/interval"
	"wheelshare-backend/internal/keylock"
	"wheelshare-backend/internal/logger"
	"wheelshare-backend/internal/repository"
)

type availabilityEngine struct {
	bookingRepo repository.BookingRepository
	vehicleRepo repository.VehicleRepository
	noteRepo    repository.NotificationRepository
	index       *interval.Index
	locks       *keylock.KeyedMutex
	events      EventPublisher
	cache       *cache.Cache
	now         func() time.Time
}

func NewAvailabilityEngine(
	bookingRepo repository.BookingRepository,
	vehicleRepo repository.VehicleRepository,
	noteRepo repository.NotificationRepository,
	index *interval.Index,
	locks *keylock.KeyedMutex,
	events EventPublisher,
	c *cache.Cache,
) AvailabilityEngine {
	return &availabilityEngine{
		bookingRepo: bookingRepo,
		vehicleRepo: vehicleRepo,
		noteRepo:    noteRepo,
		index:       index,
		locks:       locks,
		events:      events,
		cache:       c,
		now:         time.Now,
	}
}

// WarmIntervalIndex seeds the index from persisted blocking bookings. Called
// once at startup, before the engine takes traffic.
func WarmIntervalIndex(ctx context.Context, repo repository.BookingRepository, index *interval.Index) error {
	bookings, err := repo.ListBlocking(ctx)
	if err != nil {
		return domain.Unavailable(err)
	}
	entries := make(map[string][]interval.Entry)
	for _, b := range bookings {
		entries[b.VehicleID] = append(entries[b.VehicleID], interval.Entry{BookingID: b.ID, Range: b.Range})
	}
	index.Load(entries)
	logger.Info("interval index warmed", "bookings", len(bookings), "vehicles", len(entries))
	return nil
}

func (s *availabilityEngine) TryReserve(ctx context.Context, vehicleID string, r domain.DateRange, renterID string) (*domain.Booking, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: end must be after start", domain.ErrInvalidRange)
	}
	if r.Start.Before(s.now()) {
		return nil, fmt.Errorf("%w: start must not be in the past", domain.ErrInvalidRange)
	}

	vehicle, err := s.vehicleRepo.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, storageErr(err)
	}

	release, err := s.locks.Acquire(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, keylock.ErrTimeout) {
			return nil, domain.ErrBusy
		}
		return nil, err
	}

	// Check and insert run under the vehicle lock; nothing below performs
	// external I/O until the lock is released.
	conflicts := s.index.Conflicts(vehicleID, r)
	if len(conflicts) > 0 {
		release()
		return nil, &domain.ConflictError{Kind: overlapKind(r, conflicts)}
	}

	booking := &domain.Booking{
		ID:        uuid.NewString(),
		VehicleID: vehicleID,
		RenterID:  renterID,
		OwnerID:   vehicle.OwnerID,
		Range:     r,
		Status:    domain.BookingStatusPending,
	}
	s.index.Insert(vehicleID, booking.ID, r)

	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		// Roll the index entry back so the range is not blocked by a booking
		// that was never persisted.
		s.index.Remove(vehicleID, booking.ID)
		release()
		return nil, domain.Unavailable(err)
	}
	release()

	s.cache.Invalidate(ctx, bookingStatsKey(vehicleID))
	notif := &domain.Notification{
		UserID:  vehicle.OwnerID,
		Title:   "New Reservation",
		Message: fmt.Sprintf("Vehicle %s reserved from %s to %s", vehicle.Name, r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339)),
		Attributes: map[string]string{
			"type":       "RESERVATION_CREATED",
			"booking_id": booking.ID,
		},
	}
	if err := s.noteRepo.Create(ctx, notif); err != nil {
		logger.Warn("owner notification failed", "booking_id", booking.ID, "error", err)
	}
	_ = s.events.Publish(ctx, domain.Event{
		Type:       domain.EventBookingStateChanged,
		BookingID:  booking.ID,
		VehicleID:  vehicleID,
		ActorID:    renterID,
		NewStatus:  string(domain.BookingStatusPending),
		OccurredAt: s.now().UTC(),
	})

	return booking, nil
}

func (s *availabilityEngine) ListBusyRanges(ctx context.Context, vehicleID string, from, to time.Time) ([]domain.DateRange, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: window end must be after window start", domain.ErrInvalidRange)
	}
	return s.index.BusyRanges(vehicleID, from, to), nil
}

// overlapKind classifies a rejected reservation: FULL when some existing
// range covers the whole request, PARTIAL otherwise.
func overlapKind(r domain.DateRange, conflicts []domain.DateRange) domain.OverlapKind {
	for _, c := range conflicts {
		if c.Contains(r) {
			return domain.OverlapFull
		}
	}
	return domain.OverlapPartial
}

// storageErr passes through typed domain errors and wraps anything else as a
// storage outage.
func storageErr(err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidState) {
		return err
	}
	return domain.Unavailable(err)
}
