package seats

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fredrickBO/TwendeBus/internal/shared/apperrors"
	"github.com/fredrickBO/TwendeBus/internal/shared/constants"
	"github.com/fredrickBO/TwendeBus/internal/shared/database"
	"github.com/fredrickBO/TwendeBus/internal/shared/identity"
	"github.com/fredrickBO/TwendeBus/internal/trips"
	"github.com/fredrickBO/TwendeBus/pkg/cache"
	"github.com/fredrickBO/TwendeBus/pkg/logger"

	"github.com/google/uuid"
)

type Service interface {
	HoldSeat(ctx context.Context, caller identity.Caller, tripID uuid.UUID, seatNumber int) (*HoldResult, error)
	ReleaseSeat(ctx context.Context, caller identity.Caller, tripID uuid.UUID, seatNumber int) (*HoldResult, error)
	GetSeatMap(ctx context.Context, tripID uuid.UUID) (*SeatMap, error)

	// SweepExpiredHolds deletes lapsed holds and returns how many were removed
	SweepExpiredHolds(ctx context.Context) (int, error)
}

type service struct {
	repo      Repository
	tripRepo  trips.Repository
	runner    *database.TxRunner
	inventory *Inventory
	cache     cache.Service
	log       *logger.Logger
}

func NewService(repo Repository, tripRepo trips.Repository, runner *database.TxRunner, inventory *Inventory, cacheService cache.Service) Service {
	if cacheService == nil {
		cacheService = cache.NewService(nil)
	}
	return &service{
		repo:      repo,
		tripRepo:  tripRepo,
		runner:    runner,
		inventory: inventory,
		cache:     cacheService,
		log:       logger.GetDefault(),
	}
}

func (s *service) HoldSeat(ctx context.Context, caller identity.Caller, tripID uuid.UUID, seatNumber int) (*HoldResult, error) {
	if err := caller.Authenticated(); err != nil {
		return nil, err
	}

	err := s.runner.Run(ctx, func(tx *database.Tx) error {
		trip, err := trips.LockTrip(tx, tripID)
		if err != nil {
			return err
		}
		if !trip.DepartureTime.After(s.inventory.now()) {
			return apperrors.FailedPrecondition("trip has already departed")
		}
		return s.inventory.Reserve(tx, trip, []int{seatNumber}, ModeHold, Owner{UserID: caller.UserID})
	})
	if err != nil {
		return nil, err
	}

	expires := s.inventory.now().UTC().Add(s.inventory.HoldTTL())
	return &HoldResult{
		Success:   true,
		Message:   describeSeats([]int{seatNumber}) + " held",
		ExpiresAt: &expires,
	}, nil
}

func (s *service) ReleaseSeat(ctx context.Context, caller identity.Caller, tripID uuid.UUID, seatNumber int) (*HoldResult, error) {
	if err := caller.Authenticated(); err != nil {
		return nil, err
	}
	if _, err := s.tripRepo.GetTrip(ctx, tripID); err != nil {
		if errors.Is(err, trips.ErrTripNotFound) {
			return nil, apperrors.NotFound("trip not found")
		}
		return nil, apperrors.Internal(err, "failed to load trip")
	}

	removed, err := s.repo.DeleteHold(ctx, tripID, seatNumber, caller.UserID)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to release hold")
	}
	if removed == 0 {
		return &HoldResult{Success: false, Message: "you do not hold " + describeSeats([]int{seatNumber})}, nil
	}

	s.inventory.invalidate(ctx, tripID)
	return &HoldResult{Success: true, Message: describeSeats([]int{seatNumber}) + " released"}, nil
}

func (s *service) GetSeatMap(ctx context.Context, tripID uuid.UUID) (*SeatMap, error) {
	key := constants.BuildSeatMapKey(tripID.String())

	var seatMap SeatMap
	err := s.cache.GetOrSet(ctx, key, constants.TTL_SEAT_MAP, func() (interface{}, error) {
		return s.buildSeatMap(ctx, tripID)
	}, &seatMap)
	if err != nil {
		if errors.Is(err, trips.ErrTripNotFound) {
			return nil, apperrors.NotFound("trip not found")
		}
		return nil, apperrors.Internal(err, "failed to load seat map")
	}
	return &seatMap, nil
}

func (s *service) buildSeatMap(ctx context.Context, tripID uuid.UUID) (*SeatMap, error) {
	trip, err := s.tripRepo.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListTripSeats(ctx, tripID)
	if err != nil {
		return nil, err
	}

	seatMap := &SeatMap{
		TripID:    trip.ID,
		Capacity:  trip.Capacity,
		Available: trip.AvailableSeats,
		Booked:    []int{},
		Held:      []int{},
	}
	cutoff := s.inventory.HoldCutoff()
	for _, row := range rows {
		switch {
		case row.IsBooked():
			seatMap.Booked = append(seatMap.Booked, row.SeatNumber)
		case row.LiveHold(cutoff):
			seatMap.Held = append(seatMap.Held, row.SeatNumber)
		}
	}
	return seatMap, nil
}

func (s *service) SweepExpiredHolds(ctx context.Context) (int, error) {
	removed, err := s.repo.DeleteHoldsBefore(ctx, s.inventory.HoldCutoff())
	if err != nil {
		return 0, apperrors.Internal(err, "failed to sweep holds")
	}
	if removed > 0 {
		s.log.Info("expired seat holds removed", slog.Int64("count", removed))
	}
	return int(removed), nil
}
