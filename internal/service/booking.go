package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wheelshare-backend/internal/cache"
	"wheelshare-backend/internal/domain"
	"wheelshare-backend/internal/interval"
	"wheelshare-backend/internal/keylock"
	"wheelshare-backend/internal/logger"
	"wheelshare-backend/internal/repository"
)

type bookingLifecycle struct {
	bookingRepo repository.BookingRepository
	reportRepo  repository.ReportRepository
	noteRepo    repository.NotificationRepository
	index       *interval.Index
	locks       *keylock.KeyedMutex
	events      EventPublisher
	cache       *cache.Cache
	now         func() time.Time
}

func NewBookingLifecycle(
	bookingRepo repository.BookingRepository,
	reportRepo repository.ReportRepository,
	noteRepo repository.NotificationRepository,
	index *interval.Index,
	locks *keylock.KeyedMutex,
	events EventPublisher,
	c *cache.Cache,
) BookingLifecycle {
	return &bookingLifecycle{
		bookingRepo: bookingRepo,
		reportRepo:  reportRepo,
		noteRepo:    noteRepo,
		index:       index,
		locks:       locks,
		events:      events,
		cache:       c,
		now:         time.Now,
	}
}

func (s *bookingLifecycle) ConfirmPayment(ctx context.Context, bookingID string) (*domain.Booking, error) {
	release, err := s.acquire(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		release()
		return nil, storageErr(err)
	}

	// Payment collaborators retry; a second confirmation of the same booking
	// is a success, not an error.
	if b.Status == domain.BookingStatusConfirmed {
		release()
		return b, nil
	}
	if b.Status != domain.BookingStatusPending {
		release()
		return nil, fmt.Errorf("%w: cannot confirm payment from %s", domain.ErrIllegalTransition, b.Status)
	}

	if err := s.transition(ctx, b, domain.BookingStatusConfirmed); err != nil {
		release()
		return nil, err
	}
	release()

	s.cache.Invalidate(ctx, bookingStatsKey(b.VehicleID))
	s.notify(ctx, b.RenterID, "Booking Confirmed",
		fmt.Sprintf("Payment received, booking %s is confirmed", b.ID), b.ID)
	s.publish(ctx, b, domain.BookingStatusPending, "")
	return b, nil
}

func (s *bookingLifecycle) Activate(ctx context.Context, bookingID, actorID string) (*domain.Booking, error) {
	release, err := s.acquire(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		release()
		return nil, storageErr(err)
	}
	if !b.Party(actorID) {
		release()
		return nil, domain.ErrForbidden
	}
	if b.Status != domain.BookingStatusConfirmed {
		release()
		return nil, fmt.Errorf("%w: cannot activate from %s", domain.ErrIllegalTransition, b.Status)
	}
	if s.now().Before(b.Range.Start) {
		release()
		return nil, fmt.Errorf("%w: rental window has not started", domain.ErrIllegalTransition)
	}
	// The pickup inspection must have been recorded; it does not need to be
	// confirmed yet.
	if _, err := s.reportRepo.GetActiveByBookingAndType(ctx, bookingID, domain.ReportTypePickup); err != nil {
		release()
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: no pickup report recorded", domain.ErrIllegalTransition)
		}
		return nil, storageErr(err)
	}

	if err := s.transition(ctx, b, domain.BookingStatusActive); err != nil {
		release()
		return nil, err
	}
	release()

	s.cache.Invalidate(ctx, bookingStatsKey(b.VehicleID))
	s.notify(ctx, b.Counterparty(actorID), "Rental Started",
		fmt.Sprintf("Booking %s is now active", b.ID), b.ID)
	s.publish(ctx, b, domain.BookingStatusConfirmed, actorID)
	return b, nil
}

func (s *bookingLifecycle) Complete(ctx context.Context, bookingID, actorID string) (*domain.Booking, error) {
	release, err := s.acquire(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		release()
		return nil, storageErr(err)
	}
	if !b.Party(actorID) {
		release()
		return nil, domain.ErrForbidden
	}
	if b.Status != domain.BookingStatusActive {
		release()
		return nil, fmt.Errorf("%w: cannot complete from %s", domain.ErrIllegalTransition, b.Status)
	}

	ret, err := s.reportRepo.GetActiveByBookingAndType(ctx, bookingID, domain.ReportTypeReturn)
	if err != nil {
		release()
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: no return report recorded", domain.ErrIllegalTransition)
		}
		return nil, storageErr(err)
	}
	if !ret.Status.Settled() {
		release()
		return nil, fmt.Errorf("%w: return report is %s, must be confirmed or resolved", domain.ErrIllegalTransition, ret.Status)
	}

	if err := s.transition(ctx, b, domain.BookingStatusCompleted); err != nil {
		release()
		return nil, err
	}
	s.index.Remove(b.VehicleID, b.ID)
	release()

	s.cache.Invalidate(ctx, bookingStatsKey(b.VehicleID))
	s.notify(ctx, b.Counterparty(actorID), "Rental Completed",
		fmt.Sprintf("Booking %s is complete", b.ID), b.ID)
	s.publish(ctx, b, domain.BookingStatusActive, actorID)
	return b, nil
}

func (s *bookingLifecycle) Cancel(ctx context.Context, bookingID, actorID string) (*domain.Booking, error) {
	release, err := s.acquire(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		release()
		return nil, storageErr(err)
	}
	if !b.Party(actorID) {
		release()
		return nil, domain.ErrForbidden
	}

	// Retried cancellations succeed without touching timestamps or the index.
	if b.Status == domain.BookingStatusCancelled {
		release()
		return b, nil
	}
	if b.Status.Terminal() {
		release()
		return nil, fmt.Errorf("%w: cannot cancel a %s booking", domain.ErrIllegalTransition, b.Status)
	}
	if b.Status == domain.BookingStatusActive {
		release()
		return nil, fmt.Errorf("%w: active rentals must be completed, not cancelled", domain.ErrIllegalTransition)
	}

	prev := b.Status
	if err := s.transition(ctx, b, domain.BookingStatusCancelled); err != nil {
		release()
		return nil, err
	}
	s.index.Remove(b.VehicleID, b.ID)
	release()

	s.cache.Invalidate(ctx, bookingStatsKey(b.VehicleID))
	s.notify(ctx, b.Counterparty(actorID), "Booking Cancelled",
		fmt.Sprintf("Booking %s was cancelled", b.ID), b.ID)
	s.publish(ctx, b, prev, actorID)
	return b, nil
}

func (s *bookingLifecycle) Get(ctx context.Context, bookingID, actorID string) (*domain.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, storageErr(err)
	}
	if !b.Party(actorID) {
		return nil, domain.ErrForbidden
	}
	return b, nil
}

func (s *bookingLifecycle) List(ctx context.Context, renterID string, status domain.BookingStatus, page, pageSize int32) ([]domain.Booking, int32, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	bookings, total, err := s.bookingRepo.ListByRenter(ctx, renterID, status, page, pageSize)
	if err != nil {
		return nil, 0, storageErr(err)
	}
	return bookings, total, nil
}

func (s *bookingLifecycle) ExpirePending(ctx context.Context, window time.Duration) (int, error) {
	cutoff := s.now().Add(-window)
	stale, err := s.bookingRepo.ListPendingBefore(ctx, cutoff)
	if err != nil {
		return 0, storageErr(err)
	}

	expired := 0
	for i := range stale {
		b := &stale[i]
		release, err := s.acquire(ctx, b.ID)
		if err != nil {
			logger.Warn("skipping expiry, booking busy", "booking_id", b.ID, "error", err)
			continue
		}
		err = s.bookingRepo.UpdateStatus(ctx, b.ID, domain.BookingStatusPending, domain.BookingStatusCancelled)
		if err != nil {
			release()
			if errors.Is(err, domain.ErrInvalidState) {
				// Paid or cancelled since listing; nothing to expire.
				continue
			}
			return expired, domain.Unavailable(err)
		}
		s.index.Remove(b.VehicleID, b.ID)
		release()

		s.cache.Invalidate(ctx, bookingStatsKey(b.VehicleID))
		b.Status = domain.BookingStatusCancelled
		s.notify(ctx, b.RenterID, "Reservation Expired",
			fmt.Sprintf("Booking %s expired before payment and was cancelled", b.ID), b.ID)
		s.publish(ctx, b, domain.BookingStatusPending, "")
		expired++
	}
	return expired, nil
}

func (s *bookingLifecycle) acquire(ctx context.Context, bookingID string) (func(), error) {
	release, err := s.locks.Acquire(ctx, bookingID)
	if err != nil {
		if errors.Is(err, keylock.ErrTimeout) {
			return nil, domain.ErrBusy
		}
		return nil, err
	}
	return release, nil
}

// transition performs the compare-and-set status update and mirrors the new
// status onto the in-memory copy.
func (s *bookingLifecycle) transition(ctx context.Context, b *domain.Booking, to domain.BookingStatus) error {
	if err := s.bookingRepo.UpdateStatus(ctx, b.ID, b.Status, to); err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			return fmt.Errorf("%w: booking moved concurrently", domain.ErrIllegalTransition)
		}
		return domain.Unavailable(err)
	}
	b.Status = to
	return nil
}

func (s *bookingLifecycle) notify(ctx context.Context, userID, title, message, bookingID string) {
	notif := &domain.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Attributes: map[string]string{
			"type":       "BOOKING_STATE",
			"booking_id": bookingID,
		},
	}
	if err := s.noteRepo.Create(ctx, notif); err != nil {
		logger.Warn("booking notification failed", "booking_id", bookingID, "error", err)
	}
}

func (s *bookingLifecycle) publish(ctx context.Context, b *domain.Booking, from domain.BookingStatus, actorID string) {
	_ = s.events.Publish(ctx, domain.Event{
		Type:       domain.EventBookingStateChanged,
		BookingID:  b.ID,
		VehicleID:  b.VehicleID,
		ActorID:    actorID,
		OldStatus:  string(from),
		NewStatus:  string(b.Status),
		OccurredAt: s.now().UTC(),
	})
}
