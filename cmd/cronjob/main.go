package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"wheelshare-backend/internal/cache"
	"wheelshare-backend/internal/config"
	"wheelshare-backend/internal/interval"
	"wheelshare-backend/internal/jobs"
	"wheelshare-backend/internal/keylock"
	"wheelshare-backend/internal/logger"
	"wheelshare-backend/internal/queue"
	"wheelshare-backend/internal/repository/postgres"
	"wheelshare-backend/internal/service"
)

// Offline maintenance runner. The server schedules these jobs in-process;
// this binary exists for manual one-off sweeps while the server is down.
// Running it against a live server would bypass the server's interval index.
func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "all", "Job to run once and exit ('expire-pending', 'flag-overdue', 'all')")
	flag.Parse()

	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Wheelshare Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// The runner builds its own index from current DB state; it only needs
	// the entries the expiry sweep will remove.
	index := interval.NewIndex()
	if err := service.WarmIntervalIndex(context.Background(), store.BookingRepository, index); err != nil {
		logger.Error("Failed to warm interval index", "error", err)
		log.Fatalf("Failed to warm interval index: %v", err)
	}

	locks := keylock.New(time.Duration(cfg.Reservation.LockWaitMS) * time.Millisecond)
	publisher := queue.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Queue)
	statsCache := cache.New(cfg.Redis)

	lifecycle := service.NewBookingLifecycle(
		store.BookingRepository,
		store.ReportRepository,
		store.NotificationRepository,
		index,
		locks,
		publisher,
		statsCache,
	)

	jobRunner := jobs.NewJobRunner(lifecycle, store.BookingRepository, store.NotificationRepository, cfg)

	switch *runOnce {
	case "expire-pending":
		jobRunner.ExpirePendingBookings()
	case "flag-overdue":
		jobRunner.FlagOverdueActiveBookings()
	case "all":
		jobRunner.RunAll()
	default:
		log.Fatalf("Unknown job: %s", *runOnce)
	}

	logger.Info("Cronjob runner finished", "job", *runOnce)
}
