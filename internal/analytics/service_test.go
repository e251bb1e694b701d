package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/fredrickBO/TwendeBus/internal/analytics"
	"github.com/fredrickBO/TwendeBus/internal/bookings/bookingstest"
	"github.com/fredrickBO/TwendeBus/internal/cancellation"
	"github.com/fredrickBO/TwendeBus/internal/shared/apperrors"
	"github.com/fredrickBO/TwendeBus/internal/shared/constants"
	"github.com/fredrickBO/TwendeBus/internal/shared/identity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var admin = identity.Caller{UserID: uuid.New(), Role: constants.RoleAdmin}

// seed leaves one paid booking, one cancelled at 50% and one pending, plus a live hold
func seed(t *testing.T) (*bookingstest.Fixture, analytics.Service, uuid.UUID) {
	ctx := context.Background()
	f := bookingstest.New(t, &cancellation.Cancellation{})
	cancellations := cancellation.NewService(cancellation.NewRepository(f.DB), f.Runner, f.Inventory, f.Ledger,
		f.Publisher, cancellation.DefaultRefundPolicy())

	trip := f.Trip(t, 500, 10, 3*time.Hour)
	alice := f.User(t, 5000)
	bob := f.User(t, 0)

	f.Paid(t, alice, trip, 1, 2)
	cancelled := f.Paid(t, alice, trip, 3)
	_, err := cancellations.CancelBooking(ctx, alice, cancelled)
	require.NoError(t, err)
	f.Pending(t, bob, trip, 4)
	_, err = f.Seats.HoldSeat(ctx, bob, trip.ID, 5)
	require.NoError(t, err)

	return f, analytics.NewService(analytics.NewRepository(f.DB), nil, f.Inventory), trip.ID
}

func TestDashboard(t *testing.T) {
	_, svc, _ := seed(t)

	dash, err := svc.GetDashboardAnalytics(context.Background(), admin)
	require.NoError(t, err)

	assert.Equal(t, int64(2), dash.Overview.TotalUsers)
	assert.Equal(t, int64(2), dash.Overview.Passengers)
	assert.Equal(t, int64(1), dash.Overview.Routes)
	assert.Equal(t, int64(1), dash.Overview.UpcomingTrips)

	assert.Equal(t, int64(3), dash.Bookings.TotalBookings)
	assert.Equal(t, int64(1), dash.Bookings.BookingsByStatus["confirmed"])
	assert.Equal(t, int64(1), dash.Bookings.BookingsByStatus["cancelled"])
	assert.Equal(t, int64(1), dash.Bookings.BookingsByStatus["pending"])
	assert.Equal(t, int64(2), dash.Bookings.SeatsSold)
	assert.Equal(t, "1250.00", dash.Bookings.Revenue.StringFixed(2))
	assert.Equal(t, "250.00", dash.Bookings.Refunded.StringFixed(2))
	assert.InDelta(t, 33.33, dash.Bookings.CancellationRate, 0.01)

	assert.Equal(t, "3750.00", dash.Wallet.TotalBalance.StringFixed(2))
}

func TestTripOccupancy(t *testing.T) {
	_, svc, tripID := seed(t)
	ctx := context.Background()

	occ, err := svc.GetTripOccupancy(ctx, admin, tripID)
	require.NoError(t, err)
	assert.Equal(t, 10, occ.Capacity)
	assert.Equal(t, 3, occ.BookedSeats, "pending bookings hold their seats")
	assert.Equal(t, int64(1), occ.HeldSeats)
	assert.Equal(t, int64(1), occ.PaidBookings)
	assert.Equal(t, "1000.00", occ.Revenue.StringFixed(2))
	assert.InDelta(t, 30.0, occ.OccupancyRate, 0.001)

	_, err = svc.GetTripOccupancy(ctx, admin, uuid.New())
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestBookingDailyStats(t *testing.T) {
	_, svc, _ := seed(t)
	ctx := context.Background()

	stats, err := svc.GetBookingDailyStats(ctx, admin, 7)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), stats[0].Date)
	assert.Equal(t, 3, stats[0].TotalBookings)
	assert.Equal(t, 1, stats[0].PaidBookings)
	assert.Equal(t, 1, stats[0].CancelledBookings)
	assert.Equal(t, "1000.00", stats[0].Revenue.StringFixed(2))

	_, err = svc.GetBookingDailyStats(ctx, admin, 0)
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidArgument))
}

func TestAnalytics_AdminOnly(t *testing.T) {
	f, svc, tripID := seed(t)
	ctx := context.Background()
	passenger := f.User(t, 0)
	support := identity.Caller{UserID: uuid.New(), Role: constants.RoleSupport}

	for _, caller := range []identity.Caller{passenger, support} {
		_, err := svc.GetDashboardAnalytics(ctx, caller)
		assert.True(t, apperrors.Is(err, apperrors.KindPermissionDenied))
		_, err = svc.GetTripOccupancy(ctx, caller, tripID)
		assert.True(t, apperrors.Is(err, apperrors.KindPermissionDenied))
	}

	_, err := svc.GetBookingDailyStats(ctx, identity.Anonymous, 7)
	assert.True(t, apperrors.Is(err, apperrors.KindUnauthenticated))
}
