package jobs

import (
	"context"
	"fmt"
	"time"

	"wheelshare-backend/internal/domain"
	"wheelshare-backend/internal/logger"
)

// ExpirePendingBookings cancels PENDING bookings whose payment window has
// lapsed and releases their reserved intervals.
func (jr *JobRunner) ExpirePendingBookings() {
	jr.runWithRecovery("ExpirePendingBookings", func() {
		ctx := context.Background()
		window := time.Duration(jr.config.Reservation.PaymentWindowMinutes) * time.Minute

		count, err := jr.lifecycle.ExpirePending(ctx, window)
		if err != nil {
			logger.Error("Failed to expire pending bookings", "error", err)
			return
		}
		logger.Info("Expired pending bookings", "count", count, "window", window)
	})
}

// FlagOverdueActiveBookings notifies both parties of ACTIVE bookings whose
// rental window ended without a return. The job never force-completes a
// booking; the return flow with its condition report stays mandatory.
func (jr *JobRunner) FlagOverdueActiveBookings() {
	jr.runWithRecovery("FlagOverdueActiveBookings", func() {
		ctx := context.Background()

		overdue, err := jr.bookings.ListActiveEndedBefore(ctx, time.Now().UTC())
		if err != nil {
			logger.Error("Failed to list overdue bookings", "error", err)
			return
		}

		for _, b := range overdue {
			logger.Warn("Booking overdue", "booking_id", b.ID, "vehicle_id", b.VehicleID, "ended", b.Range.End)
			for _, userID := range []string{b.RenterID, b.OwnerID} {
				notif := &domain.Notification{
					UserID:  userID,
					Title:   "Rental Overdue",
					Message: fmt.Sprintf("Booking %s ended on %s but the vehicle has not been returned", b.ID, b.Range.End.Format(time.RFC3339)),
					Attributes: map[string]string{
						"type":       "BOOKING_OVERDUE",
						"booking_id": b.ID,
					},
				}
				if err := jr.notes.Create(ctx, notif); err != nil {
					logger.Error("Failed to create overdue notification", "booking_id", b.ID, "user_id", userID, "error", err)
				}
			}
		}
		logger.Info("Flagged overdue bookings", "count", len(overdue))
	})
}
