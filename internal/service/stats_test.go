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
)

func TestBookingCountsByStatus(t *testing.T) {
	bookings := new(mockBookingRepo)
	reports := new(mockReportRepo)
	bookings.On("CountByStatus", mock.Anything, "vehicle-1").Return(map[domain.BookingStatus]int64{
		domain.BookingStatusPending:   2,
		domain.BookingStatusCompleted: 7,
	}, nil)

	svc := NewStatsAggregator(bookings, reports, cache.New(config.RedisConfig{}), 30*time.Second)
	counts, err := svc.BookingCountsByStatus(context.Background(), "vehicle-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[domain.BookingStatusPending])
	assert.Equal(t, int64(7), counts[domain.BookingStatusCompleted])
}

func TestReportCountsByStatus(t *testing.T) {
	bookings := new(mockBookingRepo)
	reports := new(mockReportRepo)
	reports.On("CountByStatus", mock.Anything).Return(map[domain.ReportStatus]int64{
		domain.ReportStatusDisputed: 1,
	}, nil)

	svc := NewStatsAggregator(bookings, reports, cache.New(config.RedisConfig{}), 30*time.Second)
	counts, err := svc.ReportCountsByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.ReportStatusDisputed])
}
