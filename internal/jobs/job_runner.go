package jobs

import (
	"wheelshare-backend/internal/config"
	"wheelshare-backend/internal/logger"
	"wheelshare-backend/internal/repository"
	"wheelshare-backend/internal/service"
)

// JobRunner coordinates all scheduled maintenance jobs.
type JobRunner struct {
	lifecycle service.BookingLifecycle
	bookings  repository.BookingRepository
	notes     repository.NotificationRepository
	config    *config.Config
}

func NewJobRunner(
	lifecycle service.BookingLifecycle,
	bookings repository.BookingRepository,
	notes repository.NotificationRepository,
	cfg *config.Config,
) *JobRunner {
	return &JobRunner{
		lifecycle: lifecycle,
		bookings:  bookings,
		notes:     notes,
		config:    cfg,
	}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery so a bad job run
// never takes the scheduler down.
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// RunAll runs every maintenance job once, for manual execution.
func (jr *JobRunner) RunAll() {
	jr.ExpirePendingBookings()
	jr.FlagOverdueActiveBookings()
}
