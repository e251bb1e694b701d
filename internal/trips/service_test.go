package trips

import (
	"context"
	"testing"
	"time"

	"github.com/fredrickBO/TwendeBus/internal/shared/apperrors"
	"github.com/fredrickBO/TwendeBus/internal/shared/constants"
	"github.com/fredrickBO/TwendeBus/internal/shared/database/dbtest"
	"github.com/fredrickBO/TwendeBus/internal/shared/identity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	adminCaller     = identity.Caller{UserID: uuid.New(), Role: constants.RoleAdmin}
	passengerCaller = identity.Caller{UserID: uuid.New(), Role: constants.RolePassenger}
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	db := dbtest.New(t, &Route{}, &RouteStop{}, &Trip{})
	// Seat rows belong to the seats package; deletes only need the table
	require.NoError(t, db.Exec(`CREATE TABLE trip_seats (
		id TEXT PRIMARY KEY,
		trip_id TEXT NOT NULL,
		seat_number INTEGER NOT NULL
	)`).Error)
	return NewService(NewRepository(db), dbtest.Runner(db), nil), db
}

func createRoute(t *testing.T, svc Service) *Route {
	t.Helper()
	route, err := svc.CreateRoute(context.Background(), adminCaller, CreateRouteRequest{
		Name:        "Nairobi - Nakuru",
		Origin:      "Nairobi",
		Destination: "Nakuru",
		Stops:       []string{"Limuru", "Naivasha"},
	})
	require.NoError(t, err)
	return route
}

func createTrip(t *testing.T, svc Service, routeID uuid.UUID, departure time.Time) *Trip {
	t.Helper()
	trip, err := svc.CreateTrip(context.Background(), adminCaller, CreateTripRequest{
		RouteID:         routeID.String(),
		Fare:            decimal.NewFromInt(1000),
		Capacity:        10,
		DepartureTime:   departure,
		BusRegistration: "kcb 123x",
	})
	require.NoError(t, err)
	return trip
}

func TestCreateRouteAndTrip(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	route := createRoute(t, svc)
	loaded, err := svc.GetRoute(ctx, route.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Stops, 2)
	assert.Equal(t, "Limuru", loaded.Stops[0].Name)
	assert.Equal(t, 2, loaded.Stops[1].Sequence)

	trip := createTrip(t, svc, route.ID, time.Now().Add(24*time.Hour))
	assert.Equal(t, 10, trip.AvailableSeats)
	assert.Equal(t, "KCB 123X", trip.BusRegistration)

	_, err = svc.CreateRoute(ctx, passengerCaller, CreateRouteRequest{Name: "x"})
	assert.True(t, apperrors.Is(err, apperrors.KindPermissionDenied))

	_, err = svc.CreateTrip(ctx, adminCaller, CreateTripRequest{
		RouteID:       route.ID.String(),
		Fare:          decimal.NewFromInt(1000),
		Capacity:      10,
		DepartureTime: time.Now().Add(-time.Hour),
	})
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidArgument))

	_, err = svc.CreateTrip(ctx, adminCaller, CreateTripRequest{
		RouteID:       uuid.NewString(),
		Fare:          decimal.NewFromInt(1000),
		Capacity:      10,
		DepartureTime: time.Now().Add(time.Hour),
	})
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestListUpcomingTrips(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)
	route := createRoute(t, svc)

	later := createTrip(t, svc, route.ID, time.Now().Add(48*time.Hour))
	sooner := createTrip(t, svc, route.ID, time.Now().Add(2*time.Hour))
	past := createTrip(t, svc, route.ID, time.Now().Add(time.Hour))
	require.NoError(t, db.Model(&Trip{}).Where("id = ?", past.ID).
		Update("departure_time", time.Now().UTC().Add(-time.Hour)).Error)

	trips, err := svc.ListUpcomingTrips(ctx, &route.ID)
	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, sooner.ID, trips[0].ID)
	assert.Equal(t, later.ID, trips[1].ID)

	other := uuid.New()
	trips, err = svc.ListUpcomingTrips(ctx, &other)
	require.NoError(t, err)
	assert.Empty(t, trips)
}

func TestDeleteRoute(t *testing.T) {
	ctx := context.Background()

	t.Run("removes stops, upcoming trips and holds", func(t *testing.T) {
		svc, db := newTestService(t)
		route := createRoute(t, svc)
		upcoming := createTrip(t, svc, route.ID, time.Now().Add(24*time.Hour))
		past := createTrip(t, svc, route.ID, time.Now().Add(time.Hour))
		require.NoError(t, db.Model(&Trip{}).Where("id = ?", past.ID).
			Update("departure_time", time.Now().UTC().Add(-24*time.Hour)).Error)
		require.NoError(t, db.Exec("INSERT INTO trip_seats (id, trip_id, seat_number) VALUES (?, ?, ?)",
			uuid.NewString(), upcoming.ID, 3).Error)

		require.NoError(t, svc.DeleteRoute(ctx, adminCaller, route.ID))

		_, err := svc.GetRoute(ctx, route.ID)
		assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
		_, err = svc.GetTrip(ctx, upcoming.ID)
		assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

		// Departed trips stay for booking history
		_, err = svc.GetTrip(ctx, past.ID)
		assert.NoError(t, err)

		var stops, holds int64
		require.NoError(t, db.Model(&RouteStop{}).Where("route_id = ?", route.ID).Count(&stops).Error)
		require.NoError(t, db.Table("trip_seats").Count(&holds).Error)
		assert.Zero(t, stops)
		assert.Zero(t, holds)
	})

	t.Run("refuses while seats are booked", func(t *testing.T) {
		svc, db := newTestService(t)
		route := createRoute(t, svc)
		trip := createTrip(t, svc, route.ID, time.Now().Add(24*time.Hour))
		require.NoError(t, db.Model(&Trip{}).Where("id = ?", trip.ID).Update("available_seats", 8).Error)

		err := svc.DeleteRoute(ctx, adminCaller, route.ID)
		assert.True(t, apperrors.Is(err, apperrors.KindFailedPrecondition))

		_, err = svc.GetRoute(ctx, route.ID)
		assert.NoError(t, err)
	})

	t.Run("unknown route and non admin", func(t *testing.T) {
		svc, _ := newTestService(t)
		err := svc.DeleteRoute(ctx, adminCaller, uuid.New())
		assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

		err = svc.DeleteRoute(ctx, passengerCaller, uuid.New())
		assert.True(t, apperrors.Is(err, apperrors.KindPermissionDenied))
	})
}
