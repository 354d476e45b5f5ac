package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"wheelshare-backend/internal/domain"
	"wheelshare-backend/internal/keylock"
	"wheelshare-backend/internal/logger"
	"wheelshare-backend/internal/repository"
)

type reportWorkflow struct {
	reportRepo  repository.ReportRepository
	bookingRepo repository.BookingRepository
	noteRepo    repository.NotificationRepository
	locks       *keylock.KeyedMutex
	events      EventPublisher
	now         func() time.Time
}

func NewConditionReportWorkflow(
	reportRepo repository.ReportRepository,
	bookingRepo repository.BookingRepository,
	noteRepo repository.NotificationRepository,
	locks *keylock.KeyedMutex,
	events EventPublisher,
) ConditionReportWorkflow {
	return &reportWorkflow{
		reportRepo:  reportRepo,
		bookingRepo: bookingRepo,
		noteRepo:    noteRepo,
		locks:       locks,
		events:      events,
		now:         time.Now,
	}
}

func (s *reportWorkflow) CreateReport(ctx context.Context, bookingID, reporterID string, t domain.ReportType, fields domain.ReportFields) (*domain.ConditionReport, error) {
	if t != domain.ReportTypePickup && t != domain.ReportTypeReturn {
		return nil, fmt.Errorf("%w: unknown report type %q", domain.ErrInvalidArgument, t)
	}
	if err := validateFields(fields); err != nil {
		return nil, err
	}

	// Creation is serialized per booking so two racing reporters cannot both
	// pass the uniqueness check below.
	release, err := s.acquire(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		release()
		return nil, storageErr(err)
	}
	if !b.Party(reporterID) {
		release()
		return nil, domain.ErrForbidden
	}

	switch t {
	case domain.ReportTypePickup:
		if b.Status != domain.BookingStatusConfirmed && b.Status != domain.BookingStatusActive {
			release()
			return nil, fmt.Errorf("%w: pickup report requires a confirmed or active booking, got %s", domain.ErrInvalidState, b.Status)
		}
	case domain.ReportTypeReturn:
		if b.Status != domain.BookingStatusActive {
			release()
			return nil, fmt.Errorf("%w: return report requires an active booking, got %s", domain.ErrInvalidState, b.Status)
		}
	}

	if _, err := s.reportRepo.GetActiveByBookingAndType(ctx, bookingID, t); err == nil {
		release()
		return nil, fmt.Errorf("%w: a %s report already exists for this booking", domain.ErrInvalidState, t)
	} else if !errors.Is(err, domain.ErrNotFound) {
		release()
		return nil, storageErr(err)
	}

	report := &domain.ConditionReport{
		ID:         uuid.NewString(),
		BookingID:  bookingID,
		ReporterID: reporterID,
		Type:       t,
		Status:     domain.ReportStatusPending,
		Fields:     fields,
	}
	if err := s.reportRepo.Create(ctx, report); err != nil {
		release()
		return nil, domain.Unavailable(err)
	}
	release()

	s.notify(ctx, b.Counterparty(reporterID), "Condition Report Filed",
		fmt.Sprintf("A %s condition report was filed for booking %s, please review it", strings.ToLower(string(t)), bookingID),
		report)
	s.publish(ctx, domain.EventReportCreated, report, b.VehicleID, reporterID)
	return report, nil
}

func (s *reportWorkflow) Confirm(ctx context.Context, reportID, actorID string) (*domain.ConditionReport, error) {
	release, err := s.acquire(ctx, reportID)
	if err != nil {
		return nil, err
	}

	report, b, err := s.loadForReview(ctx, reportID, actorID)
	if err != nil {
		release()
		return nil, err
	}

	if report.Status == domain.ReportStatusConfirmed {
		release()
		if report.ConfirmedBy != nil && *report.ConfirmedBy == actorID {
			return report, nil
		}
		return nil, fmt.Errorf("%w: report already confirmed", domain.ErrInvalidState)
	}
	if report.Status != domain.ReportStatusPending {
		release()
		return nil, fmt.Errorf("%w: cannot confirm a %s report", domain.ErrInvalidState, report.Status)
	}

	at := s.now().UTC()
	report.Status = domain.ReportStatusConfirmed
	report.ConfirmedBy = &actorID
	report.ConfirmedAt = &at
	if err := s.reportRepo.Update(ctx, report); err != nil {
		release()
		return nil, domain.Unavailable(err)
	}
	release()

	s.notify(ctx, report.ReporterID, "Condition Report Confirmed",
		fmt.Sprintf("Your %s report for booking %s was confirmed", strings.ToLower(string(report.Type)), report.BookingID),
		report)
	s.publish(ctx, domain.EventReportConfirmed, report, b.VehicleID, actorID)
	return report, nil
}

func (s *reportWorkflow) Dispute(ctx context.Context, reportID, actorID, reason string) (*domain.ConditionReport, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: dispute reason is required", domain.ErrInvalidArgument)
	}

	release, err := s.acquire(ctx, reportID)
	if err != nil {
		return nil, err
	}

	report, b, err := s.loadForReview(ctx, reportID, actorID)
	if err != nil {
		release()
		return nil, err
	}

	if report.Status == domain.ReportStatusDisputed {
		release()
		if report.DisputedBy != nil && *report.DisputedBy == actorID {
			return report, nil
		}
		return nil, fmt.Errorf("%w: report already disputed", domain.ErrInvalidState)
	}
	if report.Status.Immutable() {
		release()
		return nil, fmt.Errorf("%w: report is already settled", domain.ErrInvalidState)
	}
	if report.Status != domain.ReportStatusPending {
		release()
		return nil, fmt.Errorf("%w: cannot dispute a %s report", domain.ErrInvalidState, report.Status)
	}

	at := s.now().UTC()
	report.Status = domain.ReportStatusDisputed
	report.DisputeReason = reason
	report.DisputedBy = &actorID
	report.DisputedAt = &at
	if err := s.reportRepo.Update(ctx, report); err != nil {
		release()
		return nil, domain.Unavailable(err)
	}
	release()

	s.notify(ctx, report.ReporterID, "Condition Report Disputed",
		fmt.Sprintf("Your %s report for booking %s was disputed: %s", strings.ToLower(string(report.Type)), report.BookingID, reason),
		report)
	s.publish(ctx, domain.EventReportDisputed, report, b.VehicleID, actorID)
	return report, nil
}

func (s *reportWorkflow) Resolve(ctx context.Context, reportID string, admin domain.Actor, outcome string) (*domain.ConditionReport, error) {
	if !admin.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	outcome = strings.TrimSpace(outcome)
	if outcome == "" {
		return nil, fmt.Errorf("%w: resolution outcome is required", domain.ErrInvalidArgument)
	}

	release, err := s.acquire(ctx, reportID)
	if err != nil {
		return nil, err
	}

	report, err := s.reportRepo.GetByID(ctx, reportID)
	if err != nil {
		release()
		return nil, storageErr(err)
	}

	if report.Status == domain.ReportStatusResolved {
		release()
		if report.ResolvedBy != nil && *report.ResolvedBy == admin.UserID {
			return report, nil
		}
		return nil, fmt.Errorf("%w: report already resolved", domain.ErrInvalidState)
	}
	if report.Status != domain.ReportStatusDisputed {
		release()
		return nil, fmt.Errorf("%w: only disputed reports can be resolved, got %s", domain.ErrInvalidState, report.Status)
	}

	b, err := s.bookingRepo.GetByID(ctx, report.BookingID)
	if err != nil {
		release()
		return nil, storageErr(err)
	}

	at := s.now().UTC()
	report.Status = domain.ReportStatusResolved
	report.Resolution = outcome
	report.ResolvedBy = &admin.UserID
	report.ResolvedAt = &at
	if err := s.reportRepo.Update(ctx, report); err != nil {
		release()
		return nil, domain.Unavailable(err)
	}
	release()

	for _, userID := range []string{b.RenterID, b.OwnerID} {
		s.notify(ctx, userID, "Dispute Resolved",
			fmt.Sprintf("The dispute on the %s report for booking %s was resolved: %s", strings.ToLower(string(report.Type)), report.BookingID, outcome),
			report)
	}
	s.publish(ctx, domain.EventReportResolved, report, b.VehicleID, admin.UserID)
	return report, nil
}

func (s *reportWorkflow) CancelReport(ctx context.Context, reportID, reporterID string) (*domain.ConditionReport, error) {
	release, err := s.acquire(ctx, reportID)
	if err != nil {
		return nil, err
	}

	report, err := s.reportRepo.GetByID(ctx, reportID)
	if err != nil {
		release()
		return nil, storageErr(err)
	}
	if report.ReporterID != reporterID {
		release()
		return nil, domain.ErrForbidden
	}
	if report.Status == domain.ReportStatusCancelled {
		release()
		return report, nil
	}
	if report.Status.Immutable() {
		release()
		return nil, fmt.Errorf("%w: cannot withdraw a settled report", domain.ErrInvalidState)
	}
	if report.Status != domain.ReportStatusPending {
		release()
		return nil, fmt.Errorf("%w: cannot withdraw a %s report", domain.ErrInvalidState, report.Status)
	}

	report.Status = domain.ReportStatusCancelled
	if err := s.reportRepo.Update(ctx, report); err != nil {
		release()
		return nil, domain.Unavailable(err)
	}
	release()
	return report, nil
}

func (s *reportWorkflow) Get(ctx context.Context, reportID, actorID string) (*domain.ConditionReport, error) {
	report, err := s.reportRepo.GetByID(ctx, reportID)
	if err != nil {
		return nil, storageErr(err)
	}
	b, err := s.bookingRepo.GetByID(ctx, report.BookingID)
	if err != nil {
		return nil, storageErr(err)
	}
	if !b.Party(actorID) {
		return nil, domain.ErrForbidden
	}
	return report, nil
}

// loadForReview fetches the report and its booking and checks that the actor
// is the counterparty: a booking party other than the reporter.
func (s *reportWorkflow) loadForReview(ctx context.Context, reportID, actorID string) (*domain.ConditionReport, *domain.Booking, error) {
	report, err := s.reportRepo.GetByID(ctx, reportID)
	if err != nil {
		return nil, nil, storageErr(err)
	}
	b, err := s.bookingRepo.GetByID(ctx, report.BookingID)
	if err != nil {
		return nil, nil, storageErr(err)
	}
	if !b.Party(actorID) || actorID == report.ReporterID {
		return nil, nil, domain.ErrForbidden
	}
	return report, b, nil
}

func (s *reportWorkflow) acquire(ctx context.Context, key string) (func(), error) {
	release, err := s.locks.Acquire(ctx, key)
	if err != nil {
		if errors.Is(err, keylock.ErrTimeout) {
			return nil, domain.ErrBusy
		}
		return nil, err
	}
	return release, nil
}

func validateFields(f domain.ReportFields) error {
	if f.FuelLevel < 0 || f.FuelLevel > 100 {
		return fmt.Errorf("%w: fuel level must be between 0 and 100", domain.ErrInvalidArgument)
	}
	if f.Mileage < 0 {
		return fmt.Errorf("%w: mileage cannot be negative", domain.ErrInvalidArgument)
	}
	return nil
}

func (s *reportWorkflow) notify(ctx context.Context, userID, title, message string, report *domain.ConditionReport) {
	notif := &domain.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Attributes: map[string]string{
			"type":       "CONDITION_REPORT",
			"report_id":  report.ID,
			"booking_id": report.BookingID,
		},
	}
	if err := s.noteRepo.Create(ctx, notif); err != nil {
		logger.Warn("report notification failed", "report_id", report.ID, "error", err)
	}
}

func (s *reportWorkflow) publish(ctx context.Context, t domain.EventType, report *domain.ConditionReport, vehicleID, actorID string) {
	_ = s.events.Publish(ctx, domain.Event{
		Type:       t,
		BookingID:  report.BookingID,
		ReportID:   report.ID,
		VehicleID:  vehicleID,
		ActorID:    actorID,
		NewStatus:  string(report.Status),
		OccurredAt: s.now().UTC(),
	})
}
