package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	httpapi "wheelshare-backend/internal/api/http"
	"wheelshare-backend/internal/cache"
	"wheelshare-backend/internal/config"
	"wheelshare-backend/internal/interval"
	"wheelshare-backend/internal/jobs"
	"wheelshare-backend/internal/keylock"
	"wheelshare-backend/internal/logger"
	"wheelshare-backend/internal/queue"
	"wheelshare-backend/internal/repository/postgres"
	"wheelshare-backend/internal/scheduler"
	"wheelshare-backend/internal/security"
	"wheelshare-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load .env if present; real env vars still win
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Wheelshare Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

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

	// Warm the interval index from persisted blocking bookings before taking
	// any traffic. The index is authoritative for overlap checks from here on.
	index := interval.NewIndex()
	if err := service.WarmIntervalIndex(context.Background(), store.BookingRepository, index); err != nil {
		logger.Error("Failed to warm interval index", "error", err)
		log.Fatalf("Failed to warm interval index: %v", err)
	}

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret)

	// Initialize supporting infrastructure
	locks := keylock.New(time.Duration(cfg.Reservation.LockWaitMS) * time.Millisecond)
	statsCache := cache.New(cfg.Redis)
	publisher := queue.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Queue)
	if cfg.AMQP.URL != "" {
		go queue.StartEventConsumer(cfg.AMQP.URL, cfg.AMQP.Queue)
	}

	// Initialize Services
	engine := service.NewAvailabilityEngine(
		store.BookingRepository,
		store.VehicleRepository,
		store.NotificationRepository,
		index,
		locks,
		publisher,
		statsCache,
	)
	lifecycle := service.NewBookingLifecycle(
		store.BookingRepository,
		store.ReportRepository,
		store.NotificationRepository,
		index,
		locks,
		publisher,
		statsCache,
	)
	workflow := service.NewConditionReportWorkflow(
		store.ReportRepository,
		store.BookingRepository,
		store.NotificationRepository,
		locks,
		publisher,
	)
	stats := service.NewStatsAggregator(
		store.BookingRepository,
		store.ReportRepository,
		statsCache,
		time.Duration(cfg.Reservation.StatsCacheTTLSeconds)*time.Second,
	)

	// The scheduler runs in-process so expiry sweeps share the same interval
	// index the reservation path uses.
	jobRunner := jobs.NewJobRunner(lifecycle, store.BookingRepository, store.NotificationRepository, cfg)
	sched := scheduler.NewScheduler(jobRunner)
	sched.Start()
	defer sched.Stop()

	// Initialize HTTP API
	router := httpapi.NewRouter(httpapi.RouterDeps{
		Engine:        engine,
		Lifecycle:     lifecycle,
		Workflow:      workflow,
		Stats:         stats,
		Vehicles:      store.VehicleRepository,
		Notifications: store.NotificationRepository,
		Tokens:        tokenManager,
	})

	server := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	logger.Info("Server stopped")
}
