package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wheelshare-backend/internal/domain"
	"wheelshare-backend/internal/keylock"
)

type workflowFixture struct {
	reports  *mockReportRepo
	bookings *mockBookingRepo
	notes    *mockNotificationRepo
	events   *mockEventPublisher
	svc      *reportWorkflow
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()
	f := &workflowFixture{
		reports:  new(mockReportRepo),
		bookings: new(mockBookingRepo),
		notes:    new(mockNotificationRepo),
		events:   new(mockEventPublisher),
	}
	svc := NewConditionReportWorkflow(f.reports, f.bookings, f.notes, keylock.New(100*time.Millisecond), f.events)
	f.svc = svc.(*reportWorkflow)
	f.svc.now = func() time.Time { return testClock }
	f.notes.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.events.On("Publish", mock.Anything, mock.Anything).Return(nil)
	return f
}

func fixtureReport(status domain.ReportStatus) *domain.ConditionReport {
	return &domain.ConditionReport{
		ID:         "report-1",
		BookingID:  "booking-1",
		ReporterID: "renter-1",
		Type:       domain.ReportTypePickup,
		Status:     status,
		Fields:     validFields(),
	}
}

func validFields() domain.ReportFields {
	return domain.ReportFields{
		FuelLevel:         80,
		Mileage:           42100,
		ExteriorCondition: domain.ConditionGood,
		InteriorCondition: domain.ConditionExcellent,
		EngineCondition:   domain.ConditionGood,
		TireCondition:     domain.ConditionAcceptable,
	}
}

func TestCreateReport_Pickup(t *testing.T) {
	f := newWorkflowFixture(t)
	f.bookings.On("GetByID", mock.Anything, "booking-1").Return(fixtureBooking(domain.BookingStatusConfirmed), nil)
	f.reports.On("GetActiveByBookingAndType", mock.Anything, "booking-1", domain.ReportTypePickup).Return(nil, domain.ErrNotFound)
	f.reports.On("Create", mock.Anything, mock.Anything).Return(nil)

	r, err := f.svc.CreateReport(context.Background(), "booking-1", "renter-1", domain.ReportTypePickup, validFields())
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, domain.ReportStatusPending, r.Status)
	assert.Equal(t, "renter-1", r.ReporterID)
	f.reports.AssertExpectations(t)
}

func TestCreateReport_ReturnRequiresActiveBooking(t *testing.T) {
	f := newWorkflowFixture(t)
	f.bookings.On("GetByID", mock.Anything, "booking-1").Return(fixtureBooking(domain.BookingStatusConfirmed), nil)

	_, err := f.svc.CreateReport(context.Background(), "booking-1", "owner-1", domain.ReportTypeReturn, validFields())
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestCreateReport_RejectsDuplicate(t *testing.T) {
	f := newWorkflowFixture(t)
	f.bookings.On("GetByID", mock.Anything, "booking-1").Return(fixtureBooking(domain.BookingStatusConfirmed), nil)
	f.reports.On("GetActiveByBookingAndType", mock.Anything, "booking-1", domain.ReportTypePickup).
		Return(fixtureReport(domain.ReportStatusPending), nil)

	_, err := f.svc.CreateReport(context.Background(), "booking-1", "renter-1", domain.ReportTypePickup, validFields())
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	f.reports.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateReport_ValidatesFields(t *testing.T) {
	f := newWorkflowFixture(t)

	over := validFields()
	over.FuelLevel = 120
	_, err := f.svc.CreateReport(context.Background(), "booking-1", "renter-1", domain.ReportTypePickup, over)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	negative := validFields()
	negative.Mileage = -1
	_, err = f.svc.CreateReport(context.Background(), "booking-1", "renter-1", domain.ReportTypePickup, negative)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestCreateReport_ForbiddenForStranger(t *testing.T) {
	f := newWorkflowFixture(t)
	f.bookings.On("GetByID", mock.Anything, "booking-1").Return(fixtureBooking(domain.BookingStatusConfirmed), nil)

	_, err := f.svc.CreateReport(context.Background(), "booking-1", "someone-else", domain.ReportTypePickup, validFields())
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestConfirm(t *testing.T) {
	f := newWorkflowFixture(t)
	f.reports.On("GetByID", mock.Anything, "report-1").Return(fixtureReport(domain.ReportStatusPending), nil)
	f.bookings.On("GetByID", mock.Anything, "booking-1").Return(fixtureBooking(domain.BookingStatusConfirmed), nil)
	f.reports.On("Update", mock.Anything, mock.Anything).Return(nil)

	r, err := f.svc.Confirm(context.Background(), "report-1", "owner-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusConfirmed, r.Status)
	require.NotNil(t, r.ConfirmedBy)
	assert.Equal(t, "owner-1", *r.ConfirmedBy)
	require.NotNil(t, r.ConfirmedAt)
	assert.Equal(t, testClock.UTC(), *r.ConfirmedAt)
}

func TestConfirm_SelfConfirmationForbidden(t *testing.T) {
	f := newWorkflowFixture(t)
	f.reports.On("GetByID", mock.Anything, "report-1").Return(fixtureReport(domain.ReportStatusPending), nil)
	f.bookings.On("GetByID", mock.Anything, "booking-1").Return(fixtureBooking(domain.BookingStatusConfirmed), nil)

	_, err := f.svc.Confirm(context.Background(), "report-1", "renter-1")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	f.reports.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestConfirm_IdempotentRetryKeepsOriginalTimestamp(t *testing.T) {
	f := newWorkflowFixture(t)
	confirmedAt := testClock.Add(-time.Hour)
	confirmedBy := "owner-1"
	already := fixtureReport(domain.ReportStatusConfirmed)
	already.ConfirmedBy = &confirmedBy
	already.ConfirmedAt = &confirmedAt
	f.reports.On("GetByID", mock.Anything, "report-1").Return(already, nil)
	f.bookings.On("GetByID", mock.Anything, "booking-1").Return(fixtureBooking(domain.BookingStatusConfirmed), nil)

	r, err := f.svc.Confirm(context.Background(), "report-1", "owner-1")
	require.NoError(t, err)
	assert.Equal(t, confirmedAt, *r.ConfirmedAt)
	f.reports.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestConfirm_RejectsDisputedReport(t *testing.T) {
	f := newWorkflowFixture(t)
	f.reports.On("GetByID", mock.Anything, "report-1").Return(fixtureReport(domain.ReportStatusDisputed), nil)
	f.bookings.On("GetByID", mock.Anything, "booking-1").Return(fixtureBooking(domain.BookingStatusConfirmed), nil)

	_, err := f.svc.Confirm(context.Background(), "report-1", "owner-1")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestDispute(t *testing.T) {
	f := newWorkflowFixture(t)
	f.reports.On("GetByID", mock.Anything, "report-1").Return(fixtureReport(domain.ReportStatusPending), nil)
	f.bookings.On("GetByID", mock.Anything, "booking-1").Return(fixtureBooking(domain.BookingStatusConfirmed), nil)
	f.reports.On("Update", mock.Anything, mock.Anything).Return(nil)

	r, err := f.svc.Dispute(context.Background(), "report-1", "owner-1", "odometer reading is wrong")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusDisputed, r.Status)
	assert.Equal(t, "odometer reading is wrong", r.DisputeReason)
	require.NotNil(t, r.DisputedBy)
	assert.Equal(t, "owner-1", *r.DisputedBy)
}

func TestDispute_RequiresReason(t *testing.T) {
	f := newWorkflowFixture(t)

	_, err := f.svc.Dispute(context.Background(), "report-1", "owner-1", "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestResolve(t *testing.T) {
	f := newWorkflowFixture(t)
	disputed := fixtureReport(domain.ReportStatusDisputed)
	f.reports.On("GetByID", mock.Anything, "report-1").Return(disputed, nil)
	f.bookings.On("GetByID", mock.Anything, "booking-1").Return(fixtureBooking(domain.BookingStatusActive), nil)
	f.reports.On("Update", mock.Anything, mock.Anything).Return(nil)

	admin := domain.Actor{UserID: "admin-1", Role: domain.RoleAdmin}
	r, err := f.svc.Resolve(context.Background(), "report-1", admin, "damage pre-existing, report stands")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusResolved, r.Status)
	assert.Equal(t, "damage pre-existing, report stands", r.Resolution)
	require.NotNil(t, r.ResolvedBy)
	assert.Equal(t, "admin-1", *r.ResolvedBy)
}

func TestResolve_ForbiddenForMembers(t *testing.T) {
	f := newWorkflowFixture(t)

	member := domain.Actor{UserID: "owner-1", Role: domain.RoleMember}
	_, err := f.svc.Resolve(context.Background(), "report-1", member, "settled between parties")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestResolve_OnlyDisputedReports(t *testing.T) {
	f := newWorkflowFixture(t)
	f.reports.On("GetByID", mock.Anything, "report-1").Return(fixtureReport(domain.ReportStatusPending), nil)

	admin := domain.Actor{UserID: "admin-1", Role: domain.RoleAdmin}
	_, err := f.svc.Resolve(context.Background(), "report-1", admin, "no dispute to resolve")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestCancelReport(t *testing.T) {
	f := newWorkflowFixture(t)
	f.reports.On("GetByID", mock.Anything, "report-1").Return(fixtureReport(domain.ReportStatusPending), nil)
	f.reports.On("Update", mock.Anything, mock.Anything).Return(nil)

	r, err := f.svc.CancelReport(context.Background(), "report-1", "renter-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusCancelled, r.Status)
}

func TestCancelReport_ReporterOnly(t *testing.T) {
	f := newWorkflowFixture(t)
	f.reports.On("GetByID", mock.Anything, "report-1").Return(fixtureReport(domain.ReportStatusPending), nil)

	_, err := f.svc.CancelReport(context.Background(), "report-1", "owner-1")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestCancelReport_RejectsConfirmedReport(t *testing.T) {
	f := newWorkflowFixture(t)
	f.reports.On("GetByID", mock.Anything, "report-1").Return(fixtureReport(domain.ReportStatusConfirmed), nil)

	_, err := f.svc.CancelReport(context.Background(), "report-1", "renter-1")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestDispute_RejectsConfirmedReport(t *testing.T) {
	f := newWorkflowFixture(t)
	f.reports.On("GetByID", mock.Anything, "report-1").Return(fixtureReport(domain.ReportStatusConfirmed), nil)
	f.bookings.On("GetByID", mock.Anything, "booking-1").Return(fixtureBooking(domain.BookingStatusActive), nil)

	_, err := f.svc.Dispute(context.Background(), "report-1", "owner-1", "odometer reading off by 200km")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

// A confirm and a dispute racing on the same pending report must settle on
// exactly one outcome; the loser observes the state error.
func TestReview_ConcurrentConfirmDisputeSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	locks := keylock.New(500 * time.Millisecond)
	workflow := NewConditionReportWorkflow(memReportRepo{store}, memBookingRepo{store}, memNotificationRepo{store}, locks, nopPublisher{}).(*reportWorkflow)
	workflow.now = func() time.Time { return testClock }

	for i := 0; i < 40; i++ {
		bookingID := fmt.Sprintf("booking-%d", i)
		reportID := fmt.Sprintf("report-%d", i)
		store.mu.Lock()
		store.bookings[bookingID] = &domain.Booking{
			ID:        bookingID,
			VehicleID: "vehicle-1",
			RenterID:  "renter-1",
			OwnerID:   "owner-1",
			Status:    domain.BookingStatusActive,
		}
		store.reports[reportID] = &domain.ConditionReport{
			ID:         reportID,
			BookingID:  bookingID,
			ReporterID: "renter-1",
			Type:       domain.ReportTypePickup,
			Status:     domain.ReportStatusPending,
		}
		store.mu.Unlock()

		var wg sync.WaitGroup
		var confirmErr, disputeErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, confirmErr = workflow.Confirm(ctx, reportID, "owner-1")
		}()
		go func() {
			defer wg.Done()
			_, disputeErr = workflow.Dispute(ctx, reportID, "owner-1", "panel dent not in photos")
		}()
		wg.Wait()

		final, err := workflow.Get(ctx, reportID, "owner-1")
		require.NoError(t, err)
		switch {
		case confirmErr == nil:
			require.ErrorIs(t, disputeErr, domain.ErrInvalidState, "dispute must lose once confirm won")
			assert.Equal(t, domain.ReportStatusConfirmed, final.Status)
		case disputeErr == nil:
			require.ErrorIs(t, confirmErr, domain.ErrInvalidState, "confirm must lose once dispute won")
			assert.Equal(t, domain.ReportStatusDisputed, final.Status)
		default:
			t.Fatalf("no winner: confirm=%v dispute=%v", confirmErr, disputeErr)
		}
	}
}
