package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/fredrickBO/TwendeBus/internal/bookings"
	"github.com/fredrickBO/TwendeBus/internal/seats"
	"github.com/fredrickBO/TwendeBus/internal/shared/apperrors"
	"github.com/fredrickBO/TwendeBus/internal/shared/constants"
	"github.com/fredrickBO/TwendeBus/internal/shared/identity"
	"github.com/fredrickBO/TwendeBus/pkg/cache"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxDailyStatsDays = 90

// Service serves the operator reports. All reads require an admin.
type Service interface {
	GetDashboardAnalytics(ctx context.Context, caller identity.Caller) (*DashboardAnalytics, error)
	GetTripOccupancy(ctx context.Context, caller identity.Caller, tripID uuid.UUID) (*TripOccupancy, error)
	GetBookingDailyStats(ctx context.Context, caller identity.Caller, days int) ([]DailyBookingStats, error)
}

type service struct {
	repo      Repository
	cache     cache.Service
	inventory *seats.Inventory
	now       func() time.Time
}

func NewService(repo Repository, cacheService cache.Service, inventory *seats.Inventory) Service {
	if cacheService == nil {
		cacheService = cache.NewService(nil)
	}
	return &service{repo: repo, cache: cacheService, inventory: inventory, now: time.Now}
}

func (s *service) GetDashboardAnalytics(ctx context.Context, caller identity.Caller) (*DashboardAnalytics, error) {
	if err := caller.RequireAdmin(); err != nil {
		return nil, err
	}

	var dashboard DashboardAnalytics
	err := s.cache.GetOrSet(ctx, constants.CACHE_KEY_ANALYTICS_DASHBOARD, constants.TTL_ANALYTICS_DASHBOARD, func() (interface{}, error) {
		return s.buildDashboard(ctx)
	}, &dashboard)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to build dashboard")
	}
	return &dashboard, nil
}

func (s *service) buildDashboard(ctx context.Context) (*DashboardAnalytics, error) {
	now := s.now().UTC()

	overview, err := s.repo.GetOverviewMetrics(ctx, now)
	if err != nil {
		return nil, err
	}
	bookingOverview, err := s.repo.GetBookingOverview(ctx)
	if err != nil {
		return nil, err
	}
	walletOverview, err := s.repo.GetWalletOverview(ctx)
	if err != nil {
		return nil, err
	}

	return &DashboardAnalytics{
		Overview:    *overview,
		Bookings:    *bookingOverview,
		Wallet:      *walletOverview,
		GeneratedAt: now,
	}, nil
}

// GetTripOccupancy is never cached; holds come and go within seconds
func (s *service) GetTripOccupancy(ctx context.Context, caller identity.Caller, tripID uuid.UUID) (*TripOccupancy, error) {
	if err := caller.RequireAdmin(); err != nil {
		return nil, err
	}

	occ, err := s.repo.GetTripOccupancy(ctx, tripID, s.inventory.HoldCutoff())
	if err != nil {
		if errors.Is(err, ErrTripNotFound) {
			return nil, apperrors.NotFound("trip not found")
		}
		return nil, apperrors.Internal(err, "failed to load trip occupancy")
	}
	return occ, nil
}

func (s *service) GetBookingDailyStats(ctx context.Context, caller identity.Caller, days int) ([]DailyBookingStats, error) {
	if err := caller.RequireAdmin(); err != nil {
		return nil, err
	}
	if days < 1 || days > maxDailyStatsDays {
		return nil, apperrors.InvalidArgument("days must be between 1 and %d", maxDailyStatsDays)
	}

	var stats []DailyBookingStats
	err := s.cache.GetOrSet(ctx, constants.BuildDailyStatsKey(days), constants.TTL_ANALYTICS_DAILY, func() (interface{}, error) {
		since := s.now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -(days - 1))
		rows, err := s.repo.ListBookingsSince(ctx, since)
		if err != nil {
			return nil, err
		}
		return bucketByDay(rows), nil
	}, &stats)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load daily stats")
	}
	return stats, nil
}

// bucketByDay groups rows by UTC calendar day, newest first. Rows must
// arrive newest first.
func bucketByDay(rows []bookingRow) []DailyBookingStats {
	stats := []DailyBookingStats{}
	index := map[string]int{}

	for _, row := range rows {
		day := row.CreatedAt.UTC().Format("2006-01-02")
		i, ok := index[day]
		if !ok {
			i = len(stats)
			index[day] = i
			stats = append(stats, DailyBookingStats{Date: day, Revenue: decimal.Zero})
		}

		entry := &stats[i]
		entry.TotalBookings++
		switch status := bookings.Status(row.Status); {
		case status.IsPaid():
			entry.PaidBookings++
			entry.Revenue = entry.Revenue.Add(row.FarePaid)
		case status == bookings.StatusCancelled:
			entry.CancelledBookings++
		}
	}
	return stats
}
