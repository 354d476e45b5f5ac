package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wheelshare-backend/internal/cache"
	"wheelshare-backend/internal/config"
	"wheelshare-backend/internal/domain"
	"wheelshare-backend/internal/interval"
	"wheelshare-backend/internal/keylock"
)

type lifecycleFixture struct {
	bookings *mockBookingRepo
	reports  *mockReportRepo
	notes    *mockNotificationRepo
	events   *mockEventPublisher
	index    *interval.Index
	svc      *bookingLifecycle
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	f := &lifecycleFixture{
		bookings: new(mockBookingRepo),
		reports:  new(mockReportRepo),
		notes:    new(mockNotificationRepo),
		events:   new(mockEventPublisher),
		index:    interval.NewIndex(),
	}
	svc := NewBookingLifecycle(f.bookings, f.reports, f.notes, f.index, keylock.New(100*time.Millisecond), f.events, cache.New(config.RedisConfig{}))
	f.svc = svc.(*bookingLifecycle)
	f.svc.now = func() time.Time { return testClock }
	f.notes.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.events.On("Publish", mock.Anything, mock.Anything).Return(nil)
	return f
}

func fixtureBooking(status domain.BookingStatus) *domain.Booking {
	return &domain.Booking{
		ID:        "booking-1",
		VehicleID: "vehicle-1",
		RenterID:  "renter-1",
		OwnerID:   "owner-1",
		Range: domain.DateRange{
			Start: testClock.Add(-time.Hour),
			End:   testClock.Add(24 * time.Hour),
		},
		Status: status,
	}
}

func TestConfirmPayment(t *testing.T) {
	f := newLifecycleFixture(t)
	f.bookings.On("GetByID", mock.Anything, "booking-1").Return(fixtureBooking(domain.BookingStatusPending), nil)
	f.bookings.On("UpdateStatus", mock.Anything, "booking-1", domain.BookingStatusPending, domain.BookingStatusConfirmed).Return(nil)

	b, err := f.svc.ConfirmPayment(context.Background(), "booking-1")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, b.Status)
	f.bookings.AssertExpectations(t)
}

func TestConfirmPayment_IdempotentRetry(t *testing.T) {
	f := newLifecycleFixture(t)
	f.bookings.On("GetByID", mock.Anything, "booking-1").Return(fixtureBooking(domain.BookingStatusConfirmed), nil)

	b, err := f.svc.ConfirmPayment(context.Background(), "booking-1")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, b.Status)
	f.bookings.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmPayment_RejectsLateStates(t *testing.T) {
	for _, status := range []domain.BookingStatus{
		domain.BookingStatusActive,
		domain.BookingStatusCompleted,
		domain.BookingStatusCancelled,
	} {
		f := newLifecycleFixture(t)
		f.bookings.On("GetByID", mock.Anything, "booking-1").Return(fixtureBooking(status), nil)

		_, err := f.svc.ConfirmPayment(context.Background(), "booking-1")
		assert.ErrorIs(t, err, domain.ErrIllegalTransition, "from %s", status)
	}
}

func TestActivate(t *testing.T) {
	f := newLifecycleFixture(t)
	f.bookings.On("GetByID", mock.Anything, "booking-1").Return(fixtureBooking(domain.BookingStatusConfirmed), nil)
	f.reports.On("GetActiveByBookingAndType", mock.Anything, "booking-1", domain.ReportTypePickup).
		Return(&domain.ConditionReport{ID: "report-1", Status: domain.ReportStatusPending}, nil)
	f.bookings.On("UpdateStatus", mock.Anything, "booking-1", domain.BookingStatusConfirmed, domain.BookingStatusActive).Return(nil)

	b, err := f.svc.Activate(context.Background(), "booking-1", "renter-1")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusActive, b.Status)
}

func TestActivate_RequiresPickupReport(t *testing.T) {
	f := newLifecycleFixture(t)
	f.bookings.On("GetByID", mock.Anything, "booking-1").Return(fixtureBooking(domain.BookingStatusConfirmed), nil)
	f.reports.On("GetActiveByBookingAndType", mock.Anything, "booking-1", domain.ReportTypePickup).
		Return(nil, domain.ErrNotFound)

	_, err := f.svc.Activate(context.Background(), "booking-1", "renter-1")
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
}

func TestActivate_RejectsBeforeWindowStart(t *testing.T) {
	f := newLifecycleFixture(t)
	early := fixtureBooking(domain.BookingStatusConfirmed)
	early.Range.Start = testClock.Add(time.Hour)
	f.bookings.On("GetByID", mock.Anything, "booking-1").Return(early, nil)

	_, err := f.svc.Activate(context.Background(), "booking-1", "renter-1")
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
}

func TestActivate_ForbiddenForStranger(t *testing.T) {
	f := newLifecycleFixture(t)
	f.bookings.On("GetByID", mock.Anything, "booking-1").Return(fixtureBooking(domain.BookingStatusConfirmed), nil)

	_, err := f.svc.Activate(context.Background(), "booking-1", "someone-else")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestComplete(t *testing.T) {
	f := newLifecycleFixture(t)
	f.index.Insert("vehicle-1", "booking-1", fixtureBooking(domain.BookingStatusActive).Range)
	f.bookings.On("GetByID", mock.Anything, "booking-1").Return(fixtureBooking(domain.BookingStatusActive), nil)
	f.reports.On("GetActiveByBookingAndType", mock.Anything, "booking-1", domain.ReportTypeReturn).
		Return(&domain.ConditionReport{ID: "report-2", Status: domain.ReportStatusConfirmed}, nil)
	f.bookings.On("UpdateStatus", mock.Anything, "booking-1", domain.BookingStatusActive, domain.BookingStatusCompleted).Return(nil)

	b, err := f.svc.Complete(context.Background(), "booking-1", "owner-1")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCompleted, b.Status)
	assert.False(t, f.index.Overlaps("vehicle-1", b.Range), "completed booking must release its interval")
}

func TestComplete_DisputedReturnBlocks(t *testing.T) {
	f := newLifecycleFixture(t)
	f.bookings.On("GetByID", mock.Anything, "booking-1").Return(fixtureBooking(domain.BookingStatusActive), nil)
	f.reports.On("GetActiveByBookingAndType", mock.Anything, "booking-1", domain.ReportTypeReturn).
		Return(&domain.ConditionReport{ID: "report-2", Status: domain.ReportStatusDisputed}, nil)

	_, err := f.svc.Complete(context.Background(), "booking-1", "owner-1")
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
	f.bookings.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestComplete_ResolvedReturnUnblocks(t *testing.T) {
	f := newLifecycleFixture(t)
	f.bookings.On("GetByID", mock.Anything, "booking-1").Return(fixtureBooking(domain.BookingStatusActive), nil)
	f.reports.On("GetActiveByBookingAndType", mock.Anything, "booking-1", domain.ReportTypeReturn).
		Return(&domain.ConditionReport{ID: "report-2", Status: domain.ReportStatusResolved}, nil)
	f.bookings.On("UpdateStatus", mock.Anything, "booking-1", domain.BookingStatusActive, domain.BookingStatusCompleted).Return(nil)

	_, err := f.svc.Complete(context.Background(), "booking-1", "owner-1")
	require.NoError(t, err)
}

func TestCancel_ReleasesInterval(t *testing.T) {
	f := newLifecycleFixture(t)
	b := fixtureBooking(domain.BookingStatusConfirmed)
	f.index.Insert("vehicle-1", "booking-1", b.Range)
	f.bookings.On("GetByID", mock.Anything, "booking-1").Return(b, nil)
	f.bookings.On("UpdateStatus", mock.Anything, "booking-1", domain.BookingStatusConfirmed, domain.BookingStatusCancelled).Return(nil)

	got, err := f.svc.Cancel(context.Background(), "booking-1", "renter-1")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, got.Status)
	assert.False(t, f.index.Overlaps("vehicle-1", b.Range))
}

func TestCancel_IdempotentRetry(t *testing.T) {
	f := newLifecycleFixture(t)
	f.bookings.On("GetByID", mock.Anything, "booking-1").Return(fixtureBooking(domain.BookingStatusCancelled), nil)

	got, err := f.svc.Cancel(context.Background(), "booking-1", "renter-1")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, got.Status)
	f.bookings.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancel_RejectsActiveBooking(t *testing.T) {
	f := newLifecycleFixture(t)
	f.bookings.On("GetByID", mock.Anything, "booking-1").Return(fixtureBooking(domain.BookingStatusActive), nil)

	_, err := f.svc.Cancel(context.Background(), "booking-1", "owner-1")
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
}

func TestCancel_RejectsCompletedBooking(t *testing.T) {
	f := newLifecycleFixture(t)
	f.bookings.On("GetByID", mock.Anything, "booking-1").Return(fixtureBooking(domain.BookingStatusCompleted), nil)

	_, err := f.svc.Cancel(context.Background(), "booking-1", "renter-1")
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
	f.bookings.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestList_DefaultsPaging(t *testing.T) {
	f := newLifecycleFixture(t)
	page := []domain.Booking{*fixtureBooking(domain.BookingStatusConfirmed)}
	f.bookings.On("ListByRenter", mock.Anything, "renter-1", domain.BookingStatusConfirmed, int32(1), int32(20)).
		Return(page, int32(1), nil)

	bookings, total, err := f.svc.List(context.Background(), "renter-1", domain.BookingStatusConfirmed, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(1), total)
	require.Len(t, bookings, 1)
	assert.Equal(t, "booking-1", bookings[0].ID)
}

func TestGet_ForbiddenForStranger(t *testing.T) {
	f := newLifecycleFixture(t)
	f.bookings.On("GetByID", mock.Anything, "booking-1").Return(fixtureBooking(domain.BookingStatusPending), nil)

	_, err := f.svc.Get(context.Background(), "booking-1", "someone-else")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.Get(context.Background(), "booking-1", "owner-1")
	assert.NoError(t, err)
}

func TestExpirePending(t *testing.T) {
	f := newLifecycleFixture(t)
	stale := []domain.Booking{*fixtureBooking(domain.BookingStatusPending)}
	stale[0].ID = "booking-stale"
	f.index.Insert("vehicle-1", "booking-stale", stale[0].Range)

	f.bookings.On("ListPendingBefore", mock.Anything, testClock.Add(-30*time.Minute)).Return(stale, nil)
	f.bookings.On("UpdateStatus", mock.Anything, "booking-stale", domain.BookingStatusPending, domain.BookingStatusCancelled).Return(nil)

	n, err := f.svc.ExpirePending(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, f.index.Overlaps("vehicle-1", stale[0].Range))
}

func TestExpirePending_SkipsConcurrentlyPaidBooking(t *testing.T) {
	f := newLifecycleFixture(t)
	stale := []domain.Booking{*fixtureBooking(domain.BookingStatusPending)}

	f.bookings.On("ListPendingBefore", mock.Anything, mock.Anything).Return(stale, nil)
	// Payment arrived between the listing and the expiry sweep.
	f.bookings.On("UpdateStatus", mock.Anything, "booking-1", domain.BookingStatusPending, domain.BookingStatusCancelled).
		Return(domain.ErrInvalidState)

	n, err := f.svc.ExpirePending(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
