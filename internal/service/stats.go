package service

import (
	"context"
	"time"

	"wheelshare-backend/internal/cache"
	"wheelshare-backend/internal/domain"
	"wheelshare-backend/internal/repository"
)

const statsReportsKey = "stats:reports"

// bookingStatsKey is shared with the lifecycle services, which invalidate the
// entry whenever a booking changes status.
func bookingStatsKey(vehicleID string) string {
	return "stats:bookings:" + vehicleID
}

type statsAggregator struct {
	bookingRepo repository.BookingRepository
	reportRepo  repository.ReportRepository
	cache       *cache.Cache
	ttl         time.Duration
}

func NewStatsAggregator(
	bookingRepo repository.BookingRepository,
	reportRepo repository.ReportRepository,
	c *cache.Cache,
	ttl time.Duration,
) StatsAggregator {
	return &statsAggregator{
		bookingRepo: bookingRepo,
		reportRepo:  reportRepo,
		cache:       c,
		ttl:         ttl,
	}
}

func (s *statsAggregator) BookingCountsByStatus(ctx context.Context, vehicleID string) (map[domain.BookingStatus]int64, error) {
	key := bookingStatsKey(vehicleID)
	var cached map[domain.BookingStatus]int64
	if s.cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	counts, err := s.bookingRepo.CountByStatus(ctx, vehicleID)
	if err != nil {
		return nil, storageErr(err)
	}
	s.cache.SetJSON(ctx, key, counts, s.ttl)
	return counts, nil
}

func (s *statsAggregator) ReportCountsByStatus(ctx context.Context) (map[domain.ReportStatus]int64, error) {
	const key = statsReportsKey
	var cached map[domain.ReportStatus]int64
	if s.cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	counts, err := s.reportRepo.CountByStatus(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	s.cache.SetJSON(ctx, key, counts, s.ttl)
	return counts, nil
}
