package bookings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fredrickBO/TwendeBus/internal/notifications"
	"github.com/fredrickBO/TwendeBus/internal/seats"
	"github.com/fredrickBO/TwendeBus/internal/shared/apperrors"
	"github.com/fredrickBO/TwendeBus/internal/shared/database"
	"github.com/fredrickBO/TwendeBus/internal/shared/identity"
	"github.com/fredrickBO/TwendeBus/internal/trips"
	"github.com/fredrickBO/TwendeBus/internal/wallet"
	"github.com/fredrickBO/TwendeBus/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service interface defines the contract for booking business logic
type Service interface {
	// CreatePendingBooking books seats now and leaves payment for later.
	// Unpaid bookings are released by the expiry reconciler.
	CreatePendingBooking(ctx context.Context, caller identity.Caller, req CreateBookingRequest) (*CreateBookingResponse, error)

	// ProcessWalletPayment pays a pending booking from the wallet
	ProcessWalletPayment(ctx context.Context, caller identity.Caller, bookingID uuid.UUID) (*PaymentResponse, error)

	// ConfirmHeldBooking turns the caller's live holds into a paid booking
	ConfirmHeldBooking(ctx context.Context, caller identity.Caller, req CreateBookingRequest) (*CreateBookingResponse, error)

	GetBooking(ctx context.Context, caller identity.Caller, bookingID uuid.UUID) (*Booking, error)
	ListUserBookings(ctx context.Context, caller identity.Caller, status Status, page, limit int) (*BookingPage, error)
	Ticket(ctx context.Context, caller identity.Caller, bookingID uuid.UUID) ([]byte, error)
}

type service struct {
	repo      Repository
	runner    *database.TxRunner
	inventory *seats.Inventory
	ledger    *wallet.Ledger
	publisher notifications.Publisher
	log       *logger.Logger
	now       func() time.Time
}

func NewService(repo Repository, runner *database.TxRunner, inventory *seats.Inventory, ledger *wallet.Ledger, publisher notifications.Publisher) Service {
	return &service{
		repo:      repo,
		runner:    runner,
		inventory: inventory,
		ledger:    ledger,
		publisher: publisher,
		log:       logger.GetDefault(),
		now:       time.Now,
	}
}

func (s *service) CreatePendingBooking(ctx context.Context, caller identity.Caller, req CreateBookingRequest) (*CreateBookingResponse, error) {
	if err := caller.Authenticated(); err != nil {
		return nil, err
	}
	tripID, err := uuid.Parse(req.TripID)
	if err != nil {
		return nil, apperrors.InvalidArgument("invalid trip id")
	}
	if len(req.SelectedSeats) == 0 {
		return nil, apperrors.InvalidArgument("at least one seat is required")
	}

	var booking *Booking
	err = s.runner.Run(ctx, func(tx *database.Tx) error {
		trip, err := s.lockBookableTrip(tx, tripID)
		if err != nil {
			return err
		}

		booking = &Booking{
			ID:        uuid.New(),
			UserID:    caller.UserID,
			TripID:    trip.ID,
			FarePaid:  fareFor(trip, len(req.SelectedSeats)),
			Status:    StatusPending,
			StartStop: strings.TrimSpace(req.StartStop),
			EndStop:   strings.TrimSpace(req.EndStop),
			Seats:     newSeats(req.SelectedSeats),
		}

		owner := seats.Owner{UserID: caller.UserID, BookingID: booking.ID}
		if err := s.inventory.Reserve(tx, trip, req.SelectedSeats, seats.ModeBook, owner); err != nil {
			return err
		}
		if err := tx.Create(booking).Error; err != nil {
			return apperrors.Internal(err, "failed to create booking")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.LogBookingCreated(ctx, booking.ID.String(), booking.TripID.String(), caller.UserID.String(),
		booking.Status.String(), len(booking.Seats))
	return &CreateBookingResponse{Success: true, BookingID: booking.ID, Status: booking.Status, FarePaid: booking.FarePaid}, nil
}

func (s *service) ProcessWalletPayment(ctx context.Context, caller identity.Caller, bookingID uuid.UUID) (*PaymentResponse, error) {
	if err := caller.Authenticated(); err != nil {
		return nil, err
	}

	err := s.runner.Run(ctx, func(tx *database.Tx) error {
		booking, err := LockBooking(tx, bookingID)
		if err != nil {
			return err
		}
		if booking.UserID != caller.UserID {
			return apperrors.PermissionDenied("booking belongs to another user")
		}
		if booking.Status != StatusPending {
			return apperrors.FailedPrecondition("booking is %s, only pending bookings can be paid", booking.Status)
		}

		_, err = s.ledger.Debit(tx, caller.UserID, booking.FarePaid, wallet.Entry{
			BookingID: &booking.ID,
			Details:   "Booking payment for " + describeSeats(booking.SeatNumbers()),
		})
		if err != nil {
			return err
		}
		if err := Transition(tx, booking, StatusConfirmed, nil); err != nil {
			return err
		}

		notifications.PublishAfterCommit(tx, s.publisher,
			notifications.BookingConfirmed(booking.UserID, booking.ID, booking.SeatNumbers(), booking.FarePaid))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("booking paid from wallet",
		slog.String("booking_id", bookingID.String()),
		slog.String("user_id", caller.UserID.String()),
	)
	return &PaymentResponse{Success: true, Message: "Payment successful. Your booking is confirmed."}, nil
}

func (s *service) ConfirmHeldBooking(ctx context.Context, caller identity.Caller, req CreateBookingRequest) (*CreateBookingResponse, error) {
	if err := caller.Authenticated(); err != nil {
		return nil, err
	}
	tripID, err := uuid.Parse(req.TripID)
	if err != nil {
		return nil, apperrors.InvalidArgument("invalid trip id")
	}
	if len(req.SelectedSeats) == 0 {
		return nil, apperrors.InvalidArgument("at least one seat is required")
	}

	var booking *Booking
	err = s.runner.Run(ctx, func(tx *database.Tx) error {
		trip, err := s.lockBookableTrip(tx, tripID)
		if err != nil {
			return err
		}
		if err := s.inventory.VerifyHolds(tx, trip.ID, req.SelectedSeats, caller.UserID); err != nil {
			return err
		}

		booking = &Booking{
			ID:        uuid.New(),
			UserID:    caller.UserID,
			TripID:    trip.ID,
			FarePaid:  fareFor(trip, len(req.SelectedSeats)),
			Status:    StatusActive,
			StartStop: strings.TrimSpace(req.StartStop),
			EndStop:   strings.TrimSpace(req.EndStop),
			Seats:     newSeats(req.SelectedSeats),
		}

		_, err = s.ledger.Debit(tx, caller.UserID, booking.FarePaid, wallet.Entry{
			BookingID: &booking.ID,
			Details:   "Booking payment for " + describeSeats(req.SelectedSeats),
		})
		if err != nil {
			return err
		}

		owner := seats.Owner{UserID: caller.UserID, BookingID: booking.ID}
		if err := s.inventory.Reserve(tx, trip, req.SelectedSeats, seats.ModeBook, owner); err != nil {
			return err
		}
		if err := tx.Create(booking).Error; err != nil {
			return apperrors.Internal(err, "failed to create booking")
		}

		notifications.PublishAfterCommit(tx, s.publisher,
			notifications.BookingConfirmed(booking.UserID, booking.ID, req.SelectedSeats, booking.FarePaid))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.LogBookingCreated(ctx, booking.ID.String(), booking.TripID.String(), caller.UserID.String(),
		booking.Status.String(), len(booking.Seats))
	return &CreateBookingResponse{Success: true, BookingID: booking.ID, Status: booking.Status, FarePaid: booking.FarePaid}, nil
}

func (s *service) GetBooking(ctx context.Context, caller identity.Caller, bookingID uuid.UUID) (*Booking, error) {
	if err := caller.Authenticated(); err != nil {
		return nil, err
	}
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, apperrors.NotFound("booking not found")
		}
		return nil, apperrors.Internal(err, "failed to load booking")
	}
	if !caller.CanAccess(booking.UserID) {
		return nil, apperrors.PermissionDenied("booking belongs to another user")
	}
	return booking, nil
}

func (s *service) ListUserBookings(ctx context.Context, caller identity.Caller, status Status, page, limit int) (*BookingPage, error) {
	if err := caller.Authenticated(); err != nil {
		return nil, err
	}
	if status != "" && !status.IsValid() {
		return nil, apperrors.InvalidArgument("unknown status %q", status)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	items, total, err := s.repo.ListByUser(ctx, caller.UserID, status, limit, (page-1)*limit)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list bookings")
	}
	return &BookingPage{Bookings: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *service) Ticket(ctx context.Context, caller identity.Caller, bookingID uuid.UUID) ([]byte, error) {
	booking, err := s.GetBooking(ctx, caller, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.Status.IsPaid() {
		return nil, apperrors.FailedPrecondition("tickets are only issued for paid bookings")
	}

	pdf, err := RenderTicket(booking, s.now())
	if err != nil {
		return nil, apperrors.Internal(err, "failed to render ticket")
	}
	return pdf, nil
}

// lockBookableTrip locks the trip and rejects departed ones
func (s *service) lockBookableTrip(tx *database.Tx, tripID uuid.UUID) (*trips.Trip, error) {
	trip, err := trips.LockTrip(tx, tripID)
	if err != nil {
		return nil, err
	}
	if !trip.DepartureTime.After(s.now()) {
		return nil, apperrors.FailedPrecondition("trip has already departed")
	}
	return trip, nil
}

func fareFor(trip *trips.Trip, seatCount int) decimal.Decimal {
	return trip.Fare.Mul(decimal.NewFromInt(int64(seatCount))).Round(2)
}

func describeSeats(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return "seat(s) " + strings.Join(parts, ", ")
}
