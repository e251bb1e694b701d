package cancellation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fredrickBO/TwendeBus/internal/bookings"
	"github.com/fredrickBO/TwendeBus/internal/notifications"
	"github.com/fredrickBO/TwendeBus/internal/seats"
	"github.com/fredrickBO/TwendeBus/internal/shared/apperrors"
	"github.com/fredrickBO/TwendeBus/internal/shared/database"
	"github.com/fredrickBO/TwendeBus/internal/shared/identity"
	"github.com/fredrickBO/TwendeBus/internal/trips"
	"github.com/fredrickBO/TwendeBus/internal/wallet"
	"github.com/fredrickBO/TwendeBus/pkg/logger"

	"github.com/google/uuid"
)

// Service interface defines the contract for cancellation business logic
type Service interface {
	// CancelBooking cancels a paid booking, refunds the wallet according to
	// the refund policy and returns the seats to the trip.
	CancelBooking(ctx context.Context, caller identity.Caller, bookingID uuid.UUID) (*CancelResponse, error)

	GetCancellation(ctx context.Context, caller identity.Caller, bookingID uuid.UUID) (*Cancellation, error)
	ListUserCancellations(ctx context.Context, caller identity.Caller) ([]Cancellation, error)
}

type service struct {
	repo      Repository
	runner    *database.TxRunner
	inventory *seats.Inventory
	ledger    *wallet.Ledger
	publisher notifications.Publisher
	policy    RefundPolicy
	log       *logger.Logger
	now       func() time.Time
}

func NewService(repo Repository, runner *database.TxRunner, inventory *seats.Inventory, ledger *wallet.Ledger, publisher notifications.Publisher, policy RefundPolicy) Service {
	return &service{
		repo:      repo,
		runner:    runner,
		inventory: inventory,
		ledger:    ledger,
		publisher: publisher,
		policy:    policy,
		log:       logger.GetDefault(),
		now:       time.Now,
	}
}

func (s *service) CancelBooking(ctx context.Context, caller identity.Caller, bookingID uuid.UUID) (*CancelResponse, error) {
	if err := caller.Authenticated(); err != nil {
		return nil, err
	}

	var record *Cancellation
	var tripID uuid.UUID
	err := s.runner.Run(ctx, func(tx *database.Tx) error {
		booking, err := bookings.LockBooking(tx, bookingID)
		if err != nil {
			return err
		}
		if booking.UserID != caller.UserID {
			return apperrors.PermissionDenied("booking belongs to another user")
		}
		if !booking.Status.CanBeCancelled() {
			return apperrors.FailedPrecondition("booking is %s, only confirmed or active bookings can be cancelled", booking.Status)
		}

		trip, err := trips.LockTrip(tx, booking.TripID)
		if err != nil {
			return err
		}
		tripID = trip.ID

		now := s.now().UTC()
		hours := trip.HoursUntilDeparture(now)
		refund, percent := s.policy.Refund(booking.FarePaid, hours)

		if refund.IsPositive() {
			_, err := s.ledger.Credit(tx, booking.UserID, refund, wallet.TypeRefund, wallet.Entry{
				BookingID: &booking.ID,
				Details:   fmt.Sprintf("Refund (%d%%) for cancelled booking", percent),
			})
			if err != nil {
				return err
			}
		}

		if err := bookings.MarkCancelled(tx, booking, refund, now); err != nil {
			return err
		}
		if _, err := s.inventory.Release(tx, trip, booking.SeatNumbers(), booking.ID); err != nil {
			return err
		}

		record = &Cancellation{
			BookingID:     booking.ID,
			UserID:        booking.UserID,
			FarePaid:      booking.FarePaid,
			HoursBefore:   hours,
			RefundPercent: percent,
			RefundAmount:  refund,
			ProcessedAt:   now,
		}
		if err := tx.Create(record).Error; err != nil {
			if database.IsDuplicateKey(err) {
				return apperrors.FailedPrecondition("booking is already cancelled")
			}
			return apperrors.Internal(err, "failed to record cancellation")
		}

		notifications.PublishAfterCommit(tx, s.publisher,
			notifications.BookingCancelled(booking.UserID, booking.ID, refund, percent))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.LogBookingCancelled(ctx, bookingID.String(), tripID.String(), caller.UserID.String(), "user", record.RefundAmount.String())

	message := "Booking cancelled. No refund is due this close to departure."
	if record.RefundAmount.IsPositive() {
		message = fmt.Sprintf("Booking cancelled. KES %s (%d%%) has been refunded to your wallet.",
			record.RefundAmount.StringFixed(2), record.RefundPercent)
	}
	return &CancelResponse{
		Success:       true,
		Message:       message,
		RefundAmount:  record.RefundAmount,
		RefundPercent: record.RefundPercent,
	}, nil
}

func (s *service) GetCancellation(ctx context.Context, caller identity.Caller, bookingID uuid.UUID) (*Cancellation, error) {
	if err := caller.Authenticated(); err != nil {
		return nil, err
	}
	record, err := s.repo.GetByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, ErrCancellationNotFound) {
			return nil, apperrors.NotFound("no cancellation for this booking")
		}
		return nil, apperrors.Internal(err, "failed to load cancellation")
	}
	if !caller.CanAccess(record.UserID) {
		return nil, apperrors.PermissionDenied("booking belongs to another user")
	}
	return record, nil
}

func (s *service) ListUserCancellations(ctx context.Context, caller identity.Caller) ([]Cancellation, error) {
	if err := caller.Authenticated(); err != nil {
		return nil, err
	}
	records, err := s.repo.ListByUser(ctx, caller.UserID)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list cancellations")
	}
	return records, nil
}
