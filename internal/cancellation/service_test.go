package cancellation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fredrickBO/TwendeBus/internal/bookings"
	"github.com/fredrickBO/TwendeBus/internal/bookings/bookingstest"
	"github.com/fredrickBO/TwendeBus/internal/cancellation"
	"github.com/fredrickBO/TwendeBus/internal/shared/apperrors"
	"github.com/fredrickBO/TwendeBus/internal/wallet"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*bookingstest.Fixture, cancellation.Service) {
	f := bookingstest.New(t, &cancellation.Cancellation{})
	svc := cancellation.NewService(cancellation.NewRepository(f.DB), f.Runner, f.Inventory, f.Ledger, f.Publisher,
		cancellation.DefaultRefundPolicy())
	return f, svc
}

func TestRefundPolicy(t *testing.T) {
	policy := cancellation.DefaultRefundPolicy()
	tests := []struct {
		hours   float64
		percent int
	}{
		{48, 100},
		{5, 100},
		{4.99, 50},
		{1, 50},
		{0.99, 0},
		{-2, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.percent, policy.Percent(tt.hours), "%.2fh", tt.hours)
	}

	amount, percent := policy.Refund(decimal.RequireFromString("1234.50"), 3)
	assert.Equal(t, 50, percent)
	assert.Equal(t, "617.25", amount.StringFixed(2))
}

func TestCancelBooking_RefundTiers(t *testing.T) {
	tests := []struct {
		name     string
		departIn time.Duration
		refund   int64
	}{
		{"six hours out", 6 * time.Hour, 1000},
		{"three hours out", 3 * time.Hour, 500},
		{"thirty minutes out", 30 * time.Minute, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f, svc := setup(t)
			rider := f.User(t, 1000)
			trip := f.Trip(t, 1000, 10, tt.departIn)
			id := f.Paid(t, rider, trip, 1)
			require.True(t, f.Balance(t, rider.UserID).IsZero())

			res, err := svc.CancelBooking(ctx, rider, id)
			require.NoError(t, err)
			assert.True(t, res.Success)
			assert.True(t, res.RefundAmount.Equal(decimal.NewFromInt(tt.refund)), "refund %s", res.RefundAmount)
			assert.True(t, f.Balance(t, rider.UserID).Equal(decimal.NewFromInt(tt.refund)))

			b := f.Booking(t, id)
			assert.Equal(t, bookings.StatusCancelled, b.Status)
			assert.True(t, b.RefundAmount.Equal(decimal.NewFromInt(tt.refund)))
			assert.NotNil(t, b.CancelledAt)
			assert.Equal(t, 10, f.Available(t, trip.ID))

			txns := f.Transactions(t, rider.UserID)
			if tt.refund > 0 {
				require.Len(t, txns, 2)
				assert.Equal(t, wallet.TypeRefund, txns[1].Type)
			} else {
				assert.Len(t, txns, 1)
			}
		})
	}
}

func TestCancelBooking_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f, svc := setup(t)
	rider := f.User(t, 1000)
	trip := f.Trip(t, 500, 10, 24*time.Hour)

	id := f.Paid(t, rider, trip, 3, 4)
	assert.Equal(t, 8, f.Available(t, trip.ID))
	assert.Equal(t, 2, f.SeatRows(t, trip.ID))
	assert.True(t, f.Balance(t, rider.UserID).IsZero())

	_, err := svc.CancelBooking(ctx, rider, id)
	require.NoError(t, err)

	assert.Equal(t, 10, f.Available(t, trip.ID))
	assert.Zero(t, f.SeatRows(t, trip.ID))
	assert.True(t, f.Balance(t, rider.UserID).Equal(decimal.NewFromInt(1000)))

	txns := f.Transactions(t, rider.UserID)
	require.Len(t, txns, 2)
	assert.Equal(t, wallet.TypeDeduction, txns[0].Type)
	assert.Equal(t, wallet.TypeRefund, txns[1].Type)
	assert.True(t, txns[0].Amount.Add(txns[1].Amount).IsZero())

	record, err := svc.GetCancellation(ctx, rider, id)
	require.NoError(t, err)
	assert.Equal(t, 100, record.RefundPercent)

	list, err := svc.ListUserCancellations(ctx, rider)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// freed seats can be sold again
	again := f.Pending(t, f.User(t, 0), trip, 3)
	assert.NotEqual(t, id, again)
}

func TestCancelBooking_Rejections(t *testing.T) {
	ctx := context.Background()
	f, svc := setup(t)
	rider := f.User(t, 2000)
	trip := f.Trip(t, 500, 10, 24*time.Hour)

	t.Run("pending booking", func(t *testing.T) {
		id := f.Pending(t, rider, trip, 1)
		_, err := svc.CancelBooking(ctx, rider, id)
		assert.True(t, apperrors.Is(err, apperrors.KindFailedPrecondition))
		assert.Equal(t, bookings.StatusPending, f.Booking(t, id).Status)
	})

	t.Run("another user's booking", func(t *testing.T) {
		id := f.Paid(t, rider, trip, 2)
		_, err := svc.CancelBooking(ctx, f.User(t, 0), id)
		assert.True(t, apperrors.Is(err, apperrors.KindPermissionDenied))
		assert.Equal(t, bookings.StatusConfirmed, f.Booking(t, id).Status)
	})

	t.Run("already cancelled", func(t *testing.T) {
		id := f.Paid(t, rider, trip, 5)
		_, err := svc.CancelBooking(ctx, rider, id)
		require.NoError(t, err)
		before := f.Balance(t, rider.UserID)

		_, err = svc.CancelBooking(ctx, rider, id)
		assert.True(t, apperrors.Is(err, apperrors.KindFailedPrecondition))
		assert.True(t, f.Balance(t, rider.UserID).Equal(before))
	})
}

func TestCancelBooking_ConcurrentRefundsOnce(t *testing.T) {
	ctx := context.Background()
	f, svc := setup(t)
	rider := f.User(t, 800)
	trip := f.Trip(t, 800, 10, 24*time.Hour)
	id := f.Paid(t, rider, trip, 9)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.CancelBooking(ctx, rider, id); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.True(t, f.Balance(t, rider.UserID).Equal(decimal.NewFromInt(800)))
	assert.Equal(t, 10, f.Available(t, trip.ID))
}
