package analytics

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DashboardAnalytics is the admin overview
type DashboardAnalytics struct {
	Overview    OverviewMetrics `json:"overview"`
	Bookings    BookingOverview `json:"bookings"`
	Wallet      WalletOverview  `json:"wallet"`
	GeneratedAt time.Time       `json:"generated_at"`
}

type OverviewMetrics struct {
	TotalUsers    int64 `json:"total_users"`
	Passengers    int64 `json:"passengers"`
	StaffAccounts int64 `json:"staff_accounts"`
	Routes        int64 `json:"routes"`
	UpcomingTrips int64 `json:"upcoming_trips"`
}

// BookingOverview counts bookings by status. Revenue is what has been kept
// after refunds: fares of paid bookings plus the retained part of cancelled ones.
type BookingOverview struct {
	TotalBookings    int64            `json:"total_bookings"`
	BookingsByStatus map[string]int64 `json:"bookings_by_status"`
	SeatsSold        int64            `json:"seats_sold"`
	Revenue          decimal.Decimal  `json:"revenue"`
	Refunded         decimal.Decimal  `json:"refunded"`
	CancellationRate float64          `json:"cancellation_rate"`
}

type WalletOverview struct {
	TotalBalance    decimal.Decimal `json:"total_balance"`
	Deposits        decimal.Decimal `json:"deposits"`
	PendingDeposits int64           `json:"pending_deposits"`
	FailedDeposits  int64           `json:"failed_deposits"`
}

// TripOccupancy is the seat picture of one departure
type TripOccupancy struct {
	TripID        uuid.UUID       `json:"trip_id"`
	RouteName     string          `json:"route_name"`
	DepartureTime time.Time       `json:"departure_time"`
	Capacity      int             `json:"capacity"`
	BookedSeats   int             `json:"booked_seats"`
	HeldSeats     int64           `json:"held_seats"`
	OccupancyRate float64         `json:"occupancy_rate"`
	PaidBookings  int64           `json:"paid_bookings"`
	Revenue       decimal.Decimal `json:"revenue"`
}

type DailyBookingStats struct {
	Date              string          `json:"date"`
	TotalBookings     int             `json:"total_bookings"`
	PaidBookings      int             `json:"paid_bookings"`
	CancelledBookings int             `json:"cancelled_bookings"`
	Revenue           decimal.Decimal `json:"revenue"`
}

// bookingRow is the slice of a booking the daily report needs
type bookingRow struct {
	Status    string
	FarePaid  decimal.Decimal
	CreatedAt time.Time
}
