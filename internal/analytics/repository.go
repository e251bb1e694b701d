package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fredrickBO/TwendeBus/internal/bookings"
	"github.com/fredrickBO/TwendeBus/internal/cancellation"
	"github.com/fredrickBO/TwendeBus/internal/seats"
	"github.com/fredrickBO/TwendeBus/internal/shared/constants"
	"github.com/fredrickBO/TwendeBus/internal/trips"
	"github.com/fredrickBO/TwendeBus/internal/users"
	"github.com/fredrickBO/TwendeBus/internal/wallet"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrTripNotFound = errors.New("trip not found")

var paidStatuses = []bookings.Status{bookings.StatusConfirmed, bookings.StatusActive}

type Repository interface {
	GetOverviewMetrics(ctx context.Context, now time.Time) (*OverviewMetrics, error)
	GetBookingOverview(ctx context.Context) (*BookingOverview, error)
	GetWalletOverview(ctx context.Context) (*WalletOverview, error)
	GetTripOccupancy(ctx context.Context, tripID uuid.UUID, holdCutoff time.Time) (*TripOccupancy, error)
	ListBookingsSince(ctx context.Context, since time.Time) ([]bookingRow, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetOverviewMetrics(ctx context.Context, now time.Time) (*OverviewMetrics, error) {
	db := r.db.WithContext(ctx)
	var m OverviewMetrics

	if err := db.Model(&users.User{}).Count(&m.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if err := db.Model(&users.User{}).Where("role = ?", constants.RolePassenger).Count(&m.Passengers).Error; err != nil {
		return nil, fmt.Errorf("failed to count passengers: %w", err)
	}
	m.StaffAccounts = m.TotalUsers - m.Passengers

	if err := db.Model(&trips.Route{}).Count(&m.Routes).Error; err != nil {
		return nil, fmt.Errorf("failed to count routes: %w", err)
	}
	if err := db.Model(&trips.Trip{}).Where("departure_time > ?", now).Count(&m.UpcomingTrips).Error; err != nil {
		return nil, fmt.Errorf("failed to count trips: %w", err)
	}
	return &m, nil
}

func (r *repository) GetBookingOverview(ctx context.Context) (*BookingOverview, error) {
	db := r.db.WithContext(ctx)
	overview := BookingOverview{BookingsByStatus: map[string]int64{}}

	var counts []struct {
		Status string
		Count  int64
	}
	err := db.Model(&bookings.Booking{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings: %w", err)
	}
	for _, c := range counts {
		overview.BookingsByStatus[c.Status] = c.Count
		overview.TotalBookings += c.Count
	}

	var paidFares decimal.Decimal
	err = db.Model(&bookings.Booking{}).
		Where("status IN ?", paidStatuses).
		Select("COALESCE(SUM(fare_paid), 0)").
		Scan(&paidFares).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum fares: %w", err)
	}

	err = db.Table("booking_seats").
		Joins("JOIN bookings ON bookings.id = booking_seats.booking_id").
		Where("bookings.status IN ?", paidStatuses).
		Count(&overview.SeatsSold).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count seats: %w", err)
	}

	// Cancellation records exist only for paid bookings
	var retained struct {
		Kept     decimal.Decimal
		Refunded decimal.Decimal
	}
	err = db.Model(&cancellation.Cancellation{}).
		Select("COALESCE(SUM(fare_paid - refund_amount), 0) AS kept, COALESCE(SUM(refund_amount), 0) AS refunded").
		Scan(&retained).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum refunds: %w", err)
	}

	overview.Revenue = paidFares.Add(retained.Kept).Round(2)
	overview.Refunded = retained.Refunded.Round(2)
	if overview.TotalBookings > 0 {
		cancelled := overview.BookingsByStatus[string(bookings.StatusCancelled)]
		overview.CancellationRate = float64(cancelled) / float64(overview.TotalBookings) * 100
	}
	return &overview, nil
}

func (r *repository) GetWalletOverview(ctx context.Context) (*WalletOverview, error) {
	db := r.db.WithContext(ctx)
	var w WalletOverview

	if err := db.Model(&users.User{}).Select("COALESCE(SUM(wallet_balance), 0)").Scan(&w.TotalBalance).Error; err != nil {
		return nil, fmt.Errorf("failed to sum balances: %w", err)
	}
	err := db.Model(&wallet.Transaction{}).
		Where("type = ? AND status = ?", wallet.TypeDeposit, wallet.StatusCompleted).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&w.Deposits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum deposits: %w", err)
	}
	err = db.Model(&wallet.Transaction{}).
		Where("type = ? AND status = ?", wallet.TypeDeposit, wallet.StatusPending).
		Count(&w.PendingDeposits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count pending deposits: %w", err)
	}
	err = db.Model(&wallet.Transaction{}).
		Where("type = ? AND status = ?", wallet.TypeDeposit, wallet.StatusFailed).
		Count(&w.FailedDeposits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count failed deposits: %w", err)
	}
	return &w, nil
}

func (r *repository) GetTripOccupancy(ctx context.Context, tripID uuid.UUID, holdCutoff time.Time) (*TripOccupancy, error) {
	db := r.db.WithContext(ctx)

	var trip trips.Trip
	if err := db.Preload("Route").Where("id = ?", tripID).First(&trip).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, fmt.Errorf("failed to load trip: %w", err)
	}

	occ := TripOccupancy{
		TripID:        trip.ID,
		DepartureTime: trip.DepartureTime,
		Capacity:      trip.Capacity,
		BookedSeats:   trip.BookedSeats(),
	}
	if trip.Route != nil {
		occ.RouteName = trip.Route.Name
	}
	if trip.Capacity > 0 {
		occ.OccupancyRate = float64(occ.BookedSeats) / float64(trip.Capacity) * 100
	}

	err := db.Model(&seats.TripSeat{}).
		Where("trip_id = ? AND state = ? AND held_at >= ?", tripID, seats.StateHeld, holdCutoff).
		Count(&occ.HeldSeats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count holds: %w", err)
	}

	err = db.Model(&bookings.Booking{}).
		Where("trip_id = ? AND status IN ?", tripID, paidStatuses).
		Count(&occ.PaidBookings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings: %w", err)
	}
	err = db.Model(&bookings.Booking{}).
		Where("trip_id = ? AND status IN ?", tripID, paidStatuses).
		Select("COALESCE(SUM(fare_paid), 0)").
		Scan(&occ.Revenue).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum fares: %w", err)
	}
	return &occ, nil
}

func (r *repository) ListBookingsSince(ctx context.Context, since time.Time) ([]bookingRow, error) {
	var rows []bookingRow
	err := r.db.WithContext(ctx).
		Model(&bookings.Booking{}).
		Select("status, fare_paid, created_at").
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return rows, nil
}
