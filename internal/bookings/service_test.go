package bookings_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fredrickBO/TwendeBus/internal/bookings"
	"github.com/fredrickBO/TwendeBus/internal/bookings/bookingstest"
	"github.com/fredrickBO/TwendeBus/internal/notifications"
	"github.com/fredrickBO/TwendeBus/internal/shared/apperrors"
	"github.com/fredrickBO/TwendeBus/internal/shared/constants"
	"github.com/fredrickBO/TwendeBus/internal/shared/identity"
	"github.com/fredrickBO/TwendeBus/internal/wallet"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePendingBooking(t *testing.T) {
	ctx := context.Background()
	f := bookingstest.New(t)
	rider := f.User(t, 0)
	trip := f.Trip(t, 500, 10, 24*time.Hour)

	res, err := f.Bookings.CreatePendingBooking(ctx, rider, bookings.CreateBookingRequest{
		TripID:        trip.ID.String(),
		SelectedSeats: []int{3, 1},
		StartStop:     " Nairobi ",
		EndStop:       "Voi",
	})
	require.NoError(t, err)
	assert.Equal(t, bookings.StatusPending, res.Status)
	assert.True(t, res.FarePaid.Equal(decimal.NewFromInt(1000)))

	b := f.Booking(t, res.BookingID)
	assert.Equal(t, []int{3, 1}, b.SeatNumbers())
	assert.Equal(t, "Nairobi", b.StartStop)
	assert.Equal(t, 8, f.Available(t, trip.ID))
	assert.Equal(t, 2, f.SeatRows(t, trip.ID))
	assert.Empty(t, f.Transactions(t, rider.UserID), "nothing is charged until payment")

	t.Run("taken seat", func(t *testing.T) {
		other := f.User(t, 0)
		_, err := f.Bookings.CreatePendingBooking(ctx, other, bookings.CreateBookingRequest{
			TripID:        trip.ID.String(),
			SelectedSeats: []int{2, 3},
		})
		assert.True(t, apperrors.Is(err, apperrors.KindAlreadyExists))
		assert.Equal(t, 8, f.Available(t, trip.ID))
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := f.Bookings.CreatePendingBooking(ctx, rider, bookings.CreateBookingRequest{TripID: "nope", SelectedSeats: []int{4}})
		assert.True(t, apperrors.Is(err, apperrors.KindInvalidArgument))

		_, err = f.Bookings.CreatePendingBooking(ctx, rider, bookings.CreateBookingRequest{TripID: trip.ID.String()})
		assert.True(t, apperrors.Is(err, apperrors.KindInvalidArgument))

		_, err = f.Bookings.CreatePendingBooking(ctx, rider, bookings.CreateBookingRequest{TripID: trip.ID.String(), SelectedSeats: []int{11}})
		assert.True(t, apperrors.Is(err, apperrors.KindInvalidArgument))

		_, err = f.Bookings.CreatePendingBooking(ctx, identity.Anonymous, bookings.CreateBookingRequest{TripID: trip.ID.String(), SelectedSeats: []int{4}})
		assert.True(t, apperrors.Is(err, apperrors.KindUnauthenticated))
	})

	t.Run("unknown trip", func(t *testing.T) {
		_, err := f.Bookings.CreatePendingBooking(ctx, rider, bookings.CreateBookingRequest{TripID: uuid.NewString(), SelectedSeats: []int{1}})
		assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	})

	t.Run("departed trip", func(t *testing.T) {
		gone := f.Trip(t, 500, 10, -time.Hour)
		_, err := f.Bookings.CreatePendingBooking(ctx, rider, bookings.CreateBookingRequest{TripID: gone.ID.String(), SelectedSeats: []int{1}})
		assert.True(t, apperrors.Is(err, apperrors.KindFailedPrecondition))
		assert.Equal(t, 10, f.Available(t, gone.ID))
	})
}

func TestCreatePendingBooking_ConcurrentSameSeat(t *testing.T) {
	ctx := context.Background()
	f := bookingstest.New(t)
	trip := f.Trip(t, 500, 10, 24*time.Hour)

	const riders = 6
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  []uuid.UUID
		conflict int
	)
	for i := 0; i < riders; i++ {
		rider := f.User(t, 0)
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.Bookings.CreatePendingBooking(ctx, rider, bookings.CreateBookingRequest{
				TripID:        trip.ID.String(),
				SelectedSeats: []int{6},
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created = append(created, res.BookingID)
			} else if apperrors.Is(err, apperrors.KindAlreadyExists) {
				conflict++
			}
		}()
	}
	wg.Wait()

	require.Len(t, created, 1)
	assert.Equal(t, riders-1, conflict)

	var rows int64
	require.NoError(t, f.DB.Model(&bookings.Booking{}).Where("trip_id = ?", trip.ID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
	assert.Equal(t, 1, f.SeatRows(t, trip.ID))
	assert.Equal(t, 9, f.Available(t, trip.ID))
	assert.Equal(t, []int{6}, f.Booking(t, created[0]).SeatNumbers())
}

func TestProcessWalletPayment(t *testing.T) {
	ctx := context.Background()
	f := bookingstest.New(t)
	trip := f.Trip(t, 600, 10, 24*time.Hour)

	t.Run("insufficient funds changes nothing", func(t *testing.T) {
		rider := f.User(t, 1000)
		id := f.Pending(t, rider, trip, 1, 2)

		_, err := f.Bookings.ProcessWalletPayment(ctx, rider, id)
		assert.True(t, apperrors.Is(err, apperrors.KindFailedPrecondition))
		assert.Equal(t, bookings.StatusPending, f.Booking(t, id).Status)
		assert.True(t, f.Balance(t, rider.UserID).Equal(decimal.NewFromInt(1000)))
		assert.Empty(t, f.Transactions(t, rider.UserID))
	})

	t.Run("confirms and charges once", func(t *testing.T) {
		rider := f.User(t, 1000)
		id := f.Pending(t, rider, trip, 5)

		res, err := f.Bookings.ProcessWalletPayment(ctx, rider, id)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, bookings.StatusConfirmed, f.Booking(t, id).Status)
		assert.True(t, f.Balance(t, rider.UserID).Equal(decimal.NewFromInt(400)))

		txns := f.Transactions(t, rider.UserID)
		require.Len(t, txns, 1)
		assert.Equal(t, wallet.TypeDeduction, txns[0].Type)
		assert.True(t, txns[0].Amount.Equal(decimal.NewFromInt(-600)))
		require.NotNil(t, txns[0].BookingID)
		assert.Equal(t, id, *txns[0].BookingID)

		_, err = f.Bookings.ProcessWalletPayment(ctx, rider, id)
		assert.True(t, apperrors.Is(err, apperrors.KindFailedPrecondition))
		assert.True(t, f.Balance(t, rider.UserID).Equal(decimal.NewFromInt(400)))

		sent, _, err := f.Notifications.ListByUser(ctx, rider.UserID, 10, 0)
		require.NoError(t, err)
		require.Len(t, sent, 1)
		assert.Equal(t, notifications.TypeBookingConfirmed, sent[0].Type)
	})

	t.Run("someone else's booking", func(t *testing.T) {
		owner := f.User(t, 1000)
		id := f.Pending(t, owner, trip, 6)
		_, err := f.Bookings.ProcessWalletPayment(ctx, f.User(t, 5000), id)
		assert.True(t, apperrors.Is(err, apperrors.KindPermissionDenied))
	})

	t.Run("unknown booking", func(t *testing.T) {
		_, err := f.Bookings.ProcessWalletPayment(ctx, f.User(t, 5000), uuid.New())
		assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	})
}

func TestProcessWalletPayment_ConcurrentSpendOnce(t *testing.T) {
	ctx := context.Background()
	f := bookingstest.New(t)
	trip := f.Trip(t, 1000, 10, 24*time.Hour)
	rider := f.User(t, 1000)

	ids := []uuid.UUID{f.Pending(t, rider, trip, 1), f.Pending(t, rider, trip, 2)}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			if _, err := f.Bookings.ProcessWalletPayment(ctx, rider, id); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.True(t, f.Balance(t, rider.UserID).IsZero())
	assert.Len(t, f.Transactions(t, rider.UserID), 1)
}

func TestConfirmHeldBooking(t *testing.T) {
	ctx := context.Background()
	f := bookingstest.New(t)
	trip := f.Trip(t, 300, 10, 24*time.Hour)
	rider := f.User(t, 1000)

	for _, seat := range []int{4, 5} {
		res, err := f.Seats.HoldSeat(ctx, rider, trip.ID, seat)
		require.NoError(t, err)
		require.True(t, res.Success)
	}
	assert.Equal(t, 10, f.Available(t, trip.ID), "holds leave availability alone")

	t.Run("seat not held", func(t *testing.T) {
		_, err := f.Bookings.ConfirmHeldBooking(ctx, rider, bookings.CreateBookingRequest{
			TripID:        trip.ID.String(),
			SelectedSeats: []int{4, 6},
		})
		assert.True(t, apperrors.Is(err, apperrors.KindAborted))
		assert.True(t, f.Balance(t, rider.UserID).Equal(decimal.NewFromInt(1000)))
	})

	t.Run("held by someone else", func(t *testing.T) {
		_, err := f.Bookings.ConfirmHeldBooking(ctx, f.User(t, 1000), bookings.CreateBookingRequest{
			TripID:        trip.ID.String(),
			SelectedSeats: []int{4},
		})
		assert.True(t, apperrors.Is(err, apperrors.KindAborted))
	})

	res, err := f.Bookings.ConfirmHeldBooking(ctx, rider, bookings.CreateBookingRequest{
		TripID:        trip.ID.String(),
		SelectedSeats: []int{4, 5},
	})
	require.NoError(t, err)
	assert.Equal(t, bookings.StatusActive, res.Status)
	assert.True(t, f.Balance(t, rider.UserID).Equal(decimal.NewFromInt(400)))
	assert.Equal(t, 8, f.Available(t, trip.ID))
	assert.Equal(t, 2, f.SeatRows(t, trip.ID))

	seatMap, err := f.Seats.GetSeatMap(ctx, trip.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{4, 5}, seatMap.Booked)
	assert.Empty(t, seatMap.Held)
}

func TestConfirmHeldBooking_InsufficientFundsKeepsHolds(t *testing.T) {
	ctx := context.Background()
	f := bookingstest.New(t)
	trip := f.Trip(t, 800, 10, 24*time.Hour)
	rider := f.User(t, 500)

	_, err := f.Seats.HoldSeat(ctx, rider, trip.ID, 7)
	require.NoError(t, err)

	_, err = f.Bookings.ConfirmHeldBooking(ctx, rider, bookings.CreateBookingRequest{
		TripID:        trip.ID.String(),
		SelectedSeats: []int{7},
	})
	assert.True(t, apperrors.Is(err, apperrors.KindFailedPrecondition))

	seatMap, err := f.Seats.GetSeatMap(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{7}, seatMap.Held)
	assert.Equal(t, 10, f.Available(t, trip.ID))
}

func TestGetBookingAndTicket(t *testing.T) {
	ctx := context.Background()
	f := bookingstest.New(t)
	trip := f.Trip(t, 450, 10, 24*time.Hour)
	rider := f.User(t, 1000)

	pending := f.Pending(t, rider, trip, 1)
	paid := f.Paid(t, rider, trip, 2, 3)

	b, err := f.Bookings.GetBooking(ctx, rider, paid)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, b.SeatNumbers())
	require.NotNil(t, b.Trip)

	_, err = f.Bookings.GetBooking(ctx, f.User(t, 0), paid)
	assert.True(t, apperrors.Is(err, apperrors.KindPermissionDenied))

	support := identity.Caller{UserID: uuid.New(), Role: constants.RoleSupport}
	_, err = f.Bookings.GetBooking(ctx, support, paid)
	assert.NoError(t, err)

	_, err = f.Bookings.Ticket(ctx, rider, pending)
	assert.True(t, apperrors.Is(err, apperrors.KindFailedPrecondition))

	pdf, err := f.Bookings.Ticket(ctx, rider, paid)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestListUserBookings(t *testing.T) {
	ctx := context.Background()
	f := bookingstest.New(t)
	trip := f.Trip(t, 100, 10, 24*time.Hour)
	rider := f.User(t, 1000)

	f.Pending(t, rider, trip, 1)
	f.Paid(t, rider, trip, 2)
	f.Paid(t, rider, trip, 3)
	f.Pending(t, f.User(t, 0), trip, 4)

	page, err := f.Bookings.ListUserBookings(ctx, rider, "", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)

	page, err = f.Bookings.ListUserBookings(ctx, rider, bookings.StatusConfirmed, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Len(t, page.Bookings, 1)

	_, err = f.Bookings.ListUserBookings(ctx, rider, bookings.Status("boarded"), 1, 20)
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidArgument))
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to bookings.Status
		ok       bool
	}{
		{bookings.StatusPending, bookings.StatusConfirmed, true},
		{bookings.StatusPending, bookings.StatusCancelled, true},
		{bookings.StatusConfirmed, bookings.StatusCancelled, true},
		{bookings.StatusActive, bookings.StatusCancelled, true},
		{bookings.StatusCancelled, bookings.StatusConfirmed, false},
		{bookings.StatusConfirmed, bookings.StatusPending, false},
		{bookings.StatusPending, bookings.StatusActive, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}
