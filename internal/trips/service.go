package trips

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/fredrickBO/TwendeBus/internal/shared/apperrors"
	"github.com/fredrickBO/TwendeBus/internal/shared/constants"
	"github.com/fredrickBO/TwendeBus/internal/shared/database"
	"github.com/fredrickBO/TwendeBus/internal/shared/identity"
	"github.com/fredrickBO/TwendeBus/pkg/cache"
	"github.com/fredrickBO/TwendeBus/pkg/logger"

	"github.com/google/uuid"
)

type Service interface {
	ListRoutes(ctx context.Context) ([]Route, error)
	GetRoute(ctx context.Context, id uuid.UUID) (*Route, error)
	CreateRoute(ctx context.Context, caller identity.Caller, req CreateRouteRequest) (*Route, error)
	DeleteRoute(ctx context.Context, caller identity.Caller, id uuid.UUID) error

	CreateTrip(ctx context.Context, caller identity.Caller, req CreateTripRequest) (*Trip, error)
	GetTrip(ctx context.Context, id uuid.UUID) (*Trip, error)
	ListUpcomingTrips(ctx context.Context, routeID *uuid.UUID) ([]Trip, error)
}

type service struct {
	repo   Repository
	runner *database.TxRunner
	cache  cache.Service
	log    *logger.Logger
	now    func() time.Time
}

func NewService(repo Repository, runner *database.TxRunner, cacheService cache.Service) Service {
	if cacheService == nil {
		cacheService = cache.NewService(nil)
	}
	return &service{
		repo:   repo,
		runner: runner,
		cache:  cacheService,
		log:    logger.GetDefault(),
		now:    time.Now,
	}
}

func (s *service) ListRoutes(ctx context.Context) ([]Route, error) {
	var routes []Route
	err := s.cache.GetOrSet(ctx, constants.CACHE_KEY_ROUTES_LIST, constants.TTL_ROUTES_LIST, func() (interface{}, error) {
		return s.repo.ListRoutes(ctx)
	}, &routes)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list routes")
	}
	return routes, nil
}

func (s *service) GetRoute(ctx context.Context, id uuid.UUID) (*Route, error) {
	route, err := s.repo.GetRoute(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRouteNotFound) {
			return nil, apperrors.NotFound("route not found")
		}
		return nil, apperrors.Internal(err, "failed to load route")
	}
	return route, nil
}

func (s *service) CreateRoute(ctx context.Context, caller identity.Caller, req CreateRouteRequest) (*Route, error) {
	if err := caller.RequireAdmin(); err != nil {
		return nil, err
	}

	route := &Route{
		Name:        strings.TrimSpace(req.Name),
		Origin:      strings.TrimSpace(req.Origin),
		Destination: strings.TrimSpace(req.Destination),
	}
	for i, name := range req.Stops {
		route.Stops = append(route.Stops, RouteStop{Name: strings.TrimSpace(name), Sequence: i + 1})
	}

	if err := s.repo.CreateRoute(ctx, route); err != nil {
		return nil, apperrors.Internal(err, "failed to create route")
	}
	s.invalidateRoutes(ctx)
	return route, nil
}

// DeleteRoute removes a route with its stops and upcoming trips. It refuses
// while any upcoming trip on the route still has booked seats.
func (s *service) DeleteRoute(ctx context.Context, caller identity.Caller, id uuid.UUID) error {
	if err := caller.RequireAdmin(); err != nil {
		return err
	}

	now := s.now().UTC()
	var removedTrips int
	err := s.runner.Run(ctx, func(tx *database.Tx) error {
		var route Route
		if err := tx.Locking().Where("id = ?", id).First(&route).Error; err != nil {
			if database.IsNotFound(err) {
				return apperrors.NotFound("route not found")
			}
			return apperrors.Internal(err, "failed to lock route")
		}

		var upcoming []Trip
		if err := tx.Locking().
			Where("route_id = ? AND departure_time > ?", id, now).
			Find(&upcoming).Error; err != nil {
			return apperrors.Internal(err, "failed to load trips")
		}

		tripIDs := make([]uuid.UUID, 0, len(upcoming))
		for _, t := range upcoming {
			if t.BookedSeats() > 0 {
				return apperrors.FailedPrecondition("route has upcoming trips with booked seats")
			}
			tripIDs = append(tripIDs, t.ID)
		}

		if len(tripIDs) > 0 {
			// Only holds can remain on trips without booked seats
			if err := tx.Exec("DELETE FROM trip_seats WHERE trip_id IN ?", tripIDs).Error; err != nil {
				return apperrors.Internal(err, "failed to clear seat holds")
			}
			if err := tx.Where("id IN ?", tripIDs).Delete(&Trip{}).Error; err != nil {
				return apperrors.Internal(err, "failed to delete trips")
			}
		}
		if err := tx.Where("route_id = ?", id).Delete(&RouteStop{}).Error; err != nil {
			return apperrors.Internal(err, "failed to delete stops")
		}
		if err := tx.Delete(&route).Error; err != nil {
			return apperrors.Internal(err, "failed to delete route")
		}

		removedTrips = len(tripIDs)
		tx.AfterCommit("invalidate route cache", s.invalidateRoutes)
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("route deleted",
		slog.String("route_id", id.String()),
		slog.Int("upcoming_trips_removed", removedTrips),
		slog.String("deleted_by", caller.UserID.String()),
	)
	return nil
}

func (s *service) CreateTrip(ctx context.Context, caller identity.Caller, req CreateTripRequest) (*Trip, error) {
	if err := caller.RequireAdmin(); err != nil {
		return nil, err
	}

	routeID, err := uuid.Parse(req.RouteID)
	if err != nil {
		return nil, apperrors.InvalidArgument("invalid route id")
	}
	if !req.Fare.IsPositive() {
		return nil, apperrors.InvalidArgument("fare must be positive")
	}
	if req.Capacity < 1 {
		return nil, apperrors.InvalidArgument("capacity must be at least 1")
	}
	if !req.DepartureTime.After(s.now()) {
		return nil, apperrors.InvalidArgument("departure time must be in the future")
	}

	if _, err := s.GetRoute(ctx, routeID); err != nil {
		return nil, err
	}

	trip := &Trip{
		RouteID:         routeID,
		Fare:            req.Fare.Round(2),
		Capacity:        req.Capacity,
		AvailableSeats:  req.Capacity,
		DepartureTime:   req.DepartureTime.UTC(),
		BusRegistration: strings.ToUpper(strings.TrimSpace(req.BusRegistration)),
	}
	if err := s.repo.CreateTrip(ctx, trip); err != nil {
		return nil, apperrors.Internal(err, "failed to create trip")
	}
	return trip, nil
}

func (s *service) GetTrip(ctx context.Context, id uuid.UUID) (*Trip, error) {
	trip, err := s.repo.GetTrip(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTripNotFound) {
			return nil, apperrors.NotFound("trip not found")
		}
		return nil, apperrors.Internal(err, "failed to load trip")
	}
	return trip, nil
}

func (s *service) ListUpcomingTrips(ctx context.Context, routeID *uuid.UUID) ([]Trip, error) {
	trips, err := s.repo.ListUpcomingTrips(ctx, routeID, s.now().UTC(), 100)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list trips")
	}
	return trips, nil
}

func (s *service) invalidateRoutes(ctx context.Context) {
	if err := s.cache.Delete(ctx, constants.CACHE_KEY_ROUTES_LIST); err != nil {
		s.log.Warn("failed to invalidate routes cache", slog.String("error", err.Error()))
	}
}
