package trips

import (
	"context"
	"errors"
	"time"

	"github.com/fredrickBO/TwendeBus/internal/shared/apperrors"
	"github.com/fredrickBO/TwendeBus/internal/shared/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrRouteNotFound = errors.New("route not found")
	ErrTripNotFound  = errors.New("trip not found")
)

type Repository interface {
	CreateRoute(ctx context.Context, route *Route) error
	GetRoute(ctx context.Context, id uuid.UUID) (*Route, error)
	ListRoutes(ctx context.Context) ([]Route, error)

	CreateTrip(ctx context.Context, trip *Trip) error
	GetTrip(ctx context.Context, id uuid.UUID) (*Trip, error)
	ListUpcomingTrips(ctx context.Context, routeID *uuid.UUID, from time.Time, limit int) ([]Trip, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateRoute(ctx context.Context, route *Route) error {
	return r.db.WithContext(ctx).Create(route).Error
}

func (r *repository) GetRoute(ctx context.Context, id uuid.UUID) (*Route, error) {
	var route Route
	err := r.db.WithContext(ctx).
		Preload("Stops", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		Where("id = ?", id).
		First(&route).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRouteNotFound
		}
		return nil, err
	}
	return &route, nil
}

func (r *repository) ListRoutes(ctx context.Context) ([]Route, error) {
	var routes []Route
	err := r.db.WithContext(ctx).
		Preload("Stops", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		Order("name ASC").
		Find(&routes).Error
	return routes, err
}

func (r *repository) CreateTrip(ctx context.Context, trip *Trip) error {
	return r.db.WithContext(ctx).Create(trip).Error
}

func (r *repository) GetTrip(ctx context.Context, id uuid.UUID) (*Trip, error) {
	var trip Trip
	err := r.db.WithContext(ctx).Preload("Route").Where("id = ?", id).First(&trip).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	return &trip, nil
}

func (r *repository) ListUpcomingTrips(ctx context.Context, routeID *uuid.UUID, from time.Time, limit int) ([]Trip, error) {
	if limit <= 0 {
		limit = 50
	}
	query := r.db.WithContext(ctx).Where("departure_time > ?", from)
	if routeID != nil {
		query = query.Where("route_id = ?", *routeID)
	}

	var trips []Trip
	err := query.Order("departure_time ASC").Limit(limit).Find(&trips).Error
	return trips, err
}

// LockTrip reads a trip inside tx and holds its row lock until commit.
// Every seat mutation on the trip goes through here first.
func LockTrip(tx *database.Tx, id uuid.UUID) (*Trip, error) {
	var trip Trip
	err := tx.Locking().Where("id = ?", id).First(&trip).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, apperrors.NotFound("trip not found")
		}
		return nil, apperrors.Internal(err, "failed to lock trip")
	}
	return &trip, nil
}

// AdjustAvailableSeats applies delta to a trip locked by LockTrip
func AdjustAvailableSeats(tx *database.Tx, trip *Trip, delta int) error {
	if delta == 0 {
		return nil
	}
	next := trip.AvailableSeats + delta
	if next < 0 || next > trip.Capacity {
		return apperrors.Internal(nil, "seat counter for trip %s would leave [0, %d]", trip.ID, trip.Capacity)
	}
	err := tx.Model(&Trip{}).Where("id = ?", trip.ID).Update("available_seats", next).Error
	if err != nil {
		return apperrors.Internal(err, "failed to update seat counter")
	}
	trip.AvailableSeats = next
	return nil
}
