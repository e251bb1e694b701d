package reconciler_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/fredrickBO/TwendeBus/internal/bookings"
	"github.com/fredrickBO/TwendeBus/internal/bookings/bookingstest"
	"github.com/fredrickBO/TwendeBus/internal/notifications"
	"github.com/fredrickBO/TwendeBus/internal/reconciler"
	"github.com/fredrickBO/TwendeBus/internal/seats"
	"github.com/fredrickBO/TwendeBus/internal/shared/database"
	"github.com/fredrickBO/TwendeBus/internal/trips"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newReconciler(f *bookingstest.Fixture) *reconciler.Reconciler {
	return reconciler.New(f.Repo, f.Runner, f.Inventory, f.Seats, f.Publisher, 5*time.Minute, 100)
}

func TestRunOnce_ExpiresStalePendingBookings(t *testing.T) {
	ctx := context.Background()
	f := bookingstest.New(t)
	r := newReconciler(f)
	trip := f.Trip(t, 400, 10, 24*time.Hour)
	rider := f.User(t, 1000)

	stale := f.Pending(t, rider, trip, 1, 2)
	f.Age(t, stale, 6*time.Minute)
	fresh := f.Pending(t, rider, trip, 3)
	paid := f.Paid(t, rider, trip, 4)
	f.Age(t, paid, time.Hour)
	require.Equal(t, 6, f.Available(t, trip.ID))

	res, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Expired)
	assert.Zero(t, res.Failed)

	assert.Equal(t, bookings.StatusCancelled, f.Booking(t, stale).Status)
	assert.Equal(t, bookings.StatusPending, f.Booking(t, fresh).Status)
	assert.Equal(t, bookings.StatusConfirmed, f.Booking(t, paid).Status)
	assert.Equal(t, 8, f.Available(t, trip.ID))
	assert.Equal(t, 2, f.SeatRows(t, trip.ID))

	sent, _, err := f.Notifications.ListByUser(ctx, rider.UserID, 10, 0)
	require.NoError(t, err)
	var expired int
	for _, n := range sent {
		if n.Type == notifications.TypeBookingExpired {
			expired++
		}
	}
	assert.Equal(t, 1, expired)

	// a second pass has nothing to do
	res, err = r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Expired)
	assert.Equal(t, 8, f.Available(t, trip.ID))

	// released seats can be booked again
	f.Pending(t, f.User(t, 0), trip, 1, 2)
}

func TestRunOnce_MissingTrip(t *testing.T) {
	ctx := context.Background()
	f := bookingstest.New(t)
	r := newReconciler(f)
	trip := f.Trip(t, 400, 10, 24*time.Hour)
	id := f.Pending(t, f.User(t, 0), trip, 5)
	f.Age(t, id, 10*time.Minute)

	require.NoError(t, f.DB.Delete(&trips.Trip{}, "id = ?", trip.ID).Error)

	res, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Expired)
	assert.Equal(t, bookings.StatusCancelled, f.Booking(t, id).Status)
}

func TestRunOnce_SweepsExpiredHolds(t *testing.T) {
	ctx := context.Background()
	f := bookingstest.New(t)
	r := newReconciler(f)
	trip := f.Trip(t, 400, 10, 24*time.Hour)
	rider := f.User(t, 0)

	_, err := f.Seats.HoldSeat(ctx, rider, trip.ID, 7)
	require.NoError(t, err)
	_, err = f.Seats.HoldSeat(ctx, rider, trip.ID, 8)
	require.NoError(t, err)
	require.NoError(t, f.DB.Model(&seats.TripSeat{}).
		Where("trip_id = ? AND seat_number = ?", trip.ID, 7).
		UpdateColumn("held_at", time.Now().UTC().Add(-11*time.Minute)).Error)

	res, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.HoldsSwept)

	seatMap, err := f.Seats.GetSeatMap(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{8}, seatMap.Held)
}

func TestJobProcessor_RunsOnStartAndStops(t *testing.T) {
	f := bookingstest.New(t)
	trip := f.Trip(t, 400, 10, 24*time.Hour)
	id := f.Pending(t, f.User(t, 0), trip, 1)
	f.Age(t, id, 6*time.Minute)

	jp := reconciler.NewJobProcessor(newReconciler(f), &reconciler.JobConfig{Interval: time.Hour})
	jp.Start(context.Background())

	require.Eventually(t, func() bool {
		_, ok := jp.GetJobStatus()["last_result"]
		return ok
	}, 5*time.Second, 10*time.Millisecond)
	jp.Stop()
	jp.Stop()

	assert.Equal(t, bookings.StatusCancelled, f.Booking(t, id).Status)
	assert.Equal(t, "1h0m0s", jp.GetJobStatus()["interval"])
}

func TestListExpiredPending_QueryShape(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id" FROM "bookings" WHERE status = $1 AND created_at < $2 ORDER BY created_at ASC LIMIT`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).
			AddRow("6f1c2d0e-8b7a-4a55-9c61-3f2e1d0c9b8a").
			AddRow("0a9b8c7d-6e5f-4a3b-8c1d-2e3f4a5b6c7d"))

	ids, err := bookings.NewRepository(db).ListExpiredPending(context.Background(), time.Now().Add(-5*time.Minute), 100)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Equal(t, "6f1c2d0e-8b7a-4a55-9c61-3f2e1d0c9b8a", ids[0].String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockBooking_TakesRowLock(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "bookings" WHERE id = $1 ORDER BY "bookings"."id" LIMIT`) + `.*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow("6f1c2d0e-8b7a-4a55-9c61-3f2e1d0c9b8a", "pending"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "booking_seats" WHERE booking_id = $1 ORDER BY position ASC`)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number", "position"}).AddRow(3, 0))
	mock.ExpectRollback()

	runner := database.NewTxRunner(db, 0)
	err = runner.Run(context.Background(), func(tx *database.Tx) error {
		b, err := bookings.LockBooking(tx, uuid.MustParse("6f1c2d0e-8b7a-4a55-9c61-3f2e1d0c9b8a"))
		require.NoError(t, err)
		assert.Equal(t, []int{3}, b.SeatNumbers())
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	require.NoError(t, mock.ExpectationsWereMet())
}
