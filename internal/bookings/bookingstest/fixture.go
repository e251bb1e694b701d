// Package bookingstest builds a wired booking stack on SQLite for tests of
// the packages that act on bookings.
package bookingstest

import (
	"context"
	"testing"
	"time"

	"github.com/fredrickBO/TwendeBus/internal/bookings"
	"github.com/fredrickBO/TwendeBus/internal/notifications"
	"github.com/fredrickBO/TwendeBus/internal/seats"
	"github.com/fredrickBO/TwendeBus/internal/shared/constants"
	"github.com/fredrickBO/TwendeBus/internal/shared/database"
	"github.com/fredrickBO/TwendeBus/internal/shared/database/dbtest"
	"github.com/fredrickBO/TwendeBus/internal/shared/identity"
	"github.com/fredrickBO/TwendeBus/internal/trips"
	"github.com/fredrickBO/TwendeBus/internal/users"
	"github.com/fredrickBO/TwendeBus/internal/wallet"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Models lists every table the booking flows touch
func Models() []interface{} {
	return []interface{}{
		&users.User{},
		&trips.Route{}, &trips.RouteStop{}, &trips.Trip{},
		&seats.TripSeat{},
		&bookings.Booking{}, &bookings.BookingSeat{}, &bookings.Checkout{},
		&wallet.Transaction{},
		&notifications.Notification{},
	}
}

type Fixture struct {
	DB            *gorm.DB
	Runner        *database.TxRunner
	Inventory     *seats.Inventory
	Ledger        *wallet.Ledger
	Notifications notifications.Repository
	Publisher     notifications.Publisher
	Repo          bookings.Repository
	Bookings      bookings.Service
	Seats         seats.Service
}

func New(t *testing.T, extraModels ...interface{}) *Fixture {
	t.Helper()
	db := dbtest.New(t, append(Models(), extraModels...)...)
	runner := dbtest.Runner(db)
	inventory := seats.NewInventory(10*time.Minute, nil)
	ledger := wallet.NewLedger()
	notifRepo := notifications.NewRepository(db)
	publisher := notifications.NewStorePublisher(notifRepo)
	repo := bookings.NewRepository(db)

	return &Fixture{
		DB:            db,
		Runner:        runner,
		Inventory:     inventory,
		Ledger:        ledger,
		Notifications: notifRepo,
		Publisher:     publisher,
		Repo:          repo,
		Bookings:      bookings.NewService(repo, runner, inventory, ledger, publisher),
		Seats:         seats.NewService(seats.NewRepository(db), trips.NewRepository(db), runner, inventory, nil),
	}
}

// User creates a passenger with balance shillings in the wallet
func (f *Fixture) User(t *testing.T, balance int64) identity.Caller {
	t.Helper()
	u := &users.User{FirstName: "Test", LastName: "Rider", Email: uuid.NewString() + "@twende.test", PhoneNumber: "254712345678"}
	require.NoError(t, users.NewRepository(f.DB).Create(context.Background(), u))
	if balance != 0 {
		require.NoError(t, f.DB.Model(&users.User{}).Where("id = ?", u.ID).
			Update("wallet_balance", decimal.NewFromInt(balance)).Error)
	}
	return identity.Caller{UserID: u.ID, Email: u.Email, Role: constants.RolePassenger}
}

// Trip schedules a trip departing departIn from now
func (f *Fixture) Trip(t *testing.T, fare int64, capacity int, departIn time.Duration) *trips.Trip {
	t.Helper()
	route := &trips.Route{Name: "Nairobi - Mombasa", Origin: "Nairobi", Destination: "Mombasa"}
	require.NoError(t, f.DB.Create(route).Error)
	trip := &trips.Trip{
		RouteID:         route.ID,
		Fare:            decimal.NewFromInt(fare),
		Capacity:        capacity,
		AvailableSeats:  capacity,
		DepartureTime:   time.Now().UTC().Add(departIn),
		BusRegistration: "KDA 001A",
	}
	require.NoError(t, f.DB.Create(trip).Error)
	return trip
}

// Pending creates an unpaid booking
func (f *Fixture) Pending(t *testing.T, caller identity.Caller, trip *trips.Trip, seatNumbers ...int) uuid.UUID {
	t.Helper()
	res, err := f.Bookings.CreatePendingBooking(context.Background(), caller, bookings.CreateBookingRequest{
		TripID:        trip.ID.String(),
		SelectedSeats: seatNumbers,
	})
	require.NoError(t, err)
	return res.BookingID
}

// Paid creates a booking and pays it from the wallet
func (f *Fixture) Paid(t *testing.T, caller identity.Caller, trip *trips.Trip, seatNumbers ...int) uuid.UUID {
	t.Helper()
	id := f.Pending(t, caller, trip, seatNumbers...)
	_, err := f.Bookings.ProcessWalletPayment(context.Background(), caller, id)
	require.NoError(t, err)
	return id
}

func (f *Fixture) Balance(t *testing.T, userID uuid.UUID) decimal.Decimal {
	t.Helper()
	bal, err := wallet.NewRepository(f.DB).GetBalance(context.Background(), userID)
	require.NoError(t, err)
	return bal
}

func (f *Fixture) Available(t *testing.T, tripID uuid.UUID) int {
	t.Helper()
	var trip trips.Trip
	require.NoError(t, f.DB.First(&trip, "id = ?", tripID).Error)
	return trip.AvailableSeats
}

func (f *Fixture) Booking(t *testing.T, id uuid.UUID) *bookings.Booking {
	t.Helper()
	b, err := f.Repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return b
}

func (f *Fixture) Transactions(t *testing.T, userID uuid.UUID) []wallet.Transaction {
	t.Helper()
	var txns []wallet.Transaction
	require.NoError(t, f.DB.Where("user_id = ?", userID).Order("created_at ASC").Find(&txns).Error)
	return txns
}

// SeatRows counts booked seat rows on a trip
func (f *Fixture) SeatRows(t *testing.T, tripID uuid.UUID) int {
	t.Helper()
	var n int64
	require.NoError(t, f.DB.Model(&seats.TripSeat{}).
		Where("trip_id = ? AND state = ?", tripID, seats.StateBooked).
		Count(&n).Error)
	return int(n)
}

// Age moves a booking's creation time into the past
func (f *Fixture) Age(t *testing.T, bookingID uuid.UUID, by time.Duration) {
	t.Helper()
	require.NoError(t, f.DB.Model(&bookings.Booking{}).Where("id = ?", bookingID).
		UpdateColumn("created_at", time.Now().UTC().Add(-by)).Error)
}

// Checkouts lists the M-Pesa prompts issued for a booking, oldest first
func (f *Fixture) Checkouts(t *testing.T, bookingID uuid.UUID) []bookings.Checkout {
	t.Helper()
	var list []bookings.Checkout
	require.NoError(t, f.DB.Where("booking_id = ?", bookingID).Order("checkout_request_id ASC").Find(&list).Error)
	return list
}
