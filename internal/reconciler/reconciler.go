// Package reconciler expires unpaid bookings and stale seat holds.
package reconciler

import (
	"context"
	"log/slog"
	"time"

	"github.com/fredrickBO/TwendeBus/internal/bookings"
	"github.com/fredrickBO/TwendeBus/internal/notifications"
	"github.com/fredrickBO/TwendeBus/internal/seats"
	"github.com/fredrickBO/TwendeBus/internal/shared/apperrors"
	"github.com/fredrickBO/TwendeBus/internal/shared/database"
	"github.com/fredrickBO/TwendeBus/internal/trips"
	"github.com/fredrickBO/TwendeBus/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RunResult counts what one pass did
type RunResult struct {
	Expired    int `json:"expired"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
	HoldsSwept int `json:"holds_swept"`
}

// Reconciler cancels pending bookings older than the pending TTL and
// returns their seats.
type Reconciler struct {
	repo       bookings.Repository
	runner     *database.TxRunner
	inventory  *seats.Inventory
	seats      seats.Service
	publisher  notifications.Publisher
	pendingTTL time.Duration
	batchSize  int
	log        *logger.Logger
	now        func() time.Time
}

func New(repo bookings.Repository, runner *database.TxRunner, inventory *seats.Inventory, seatService seats.Service,
	publisher notifications.Publisher, pendingTTL time.Duration, batchSize int) *Reconciler {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Reconciler{
		repo:       repo,
		runner:     runner,
		inventory:  inventory,
		seats:      seatService,
		publisher:  publisher,
		pendingTTL: pendingTTL,
		batchSize:  batchSize,
		log:        logger.GetDefault(),
		now:        time.Now,
	}
}

// RunOnce runs a single pass. Each booking is expired in its own
// transaction; one failure is logged and the rest of the batch continues.
func (r *Reconciler) RunOnce(ctx context.Context) (*RunResult, error) {
	started := time.Now()
	cutoff := r.now().UTC().Add(-r.pendingTTL)

	ids, err := r.repo.ListExpiredPending(ctx, cutoff, r.batchSize)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list expired bookings")
	}

	result := &RunResult{}
	for _, id := range ids {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		expired, err := r.expire(ctx, id)
		switch {
		case err != nil:
			result.Failed++
			r.log.Error("failed to expire booking",
				slog.String("booking_id", id.String()),
				slog.String("error", err.Error()),
			)
		case expired:
			result.Expired++
		default:
			result.Skipped++
		}
	}

	swept, err := r.seats.SweepExpiredHolds(ctx)
	if err != nil {
		r.log.Error("failed to sweep seat holds", slog.String("error", err.Error()))
	}
	result.HoldsSwept = swept

	r.log.LogReconcilerRun(ctx, result.Expired, result.Failed, result.HoldsSwept, time.Since(started))
	return result, nil
}

// expire cancels one booking if it is still pending. It reports whether
// the booking was cancelled by this call.
func (r *Reconciler) expire(ctx context.Context, id uuid.UUID) (bool, error) {
	var expired bool
	err := r.runner.Run(ctx, func(tx *database.Tx) error {
		expired = false

		booking, err := bookings.LockBooking(tx, id)
		if err != nil {
			return err
		}
		// paid or cancelled since the listing
		if booking.Status != bookings.StatusPending {
			return nil
		}

		trip, err := trips.LockTrip(tx, booking.TripID)
		if err != nil && !apperrors.Is(err, apperrors.KindNotFound) {
			return err
		}

		if err := bookings.MarkCancelled(tx, booking, decimal.Zero, r.now().UTC()); err != nil {
			return err
		}

		if trip == nil {
			r.log.Warn("trip missing for expired booking, skipping seat release",
				slog.String("booking_id", booking.ID.String()),
				slog.String("trip_id", booking.TripID.String()),
			)
		} else if _, err := r.inventory.Release(tx, trip, booking.SeatNumbers(), booking.ID); err != nil {
			return err
		}

		notifications.PublishAfterCommit(tx, r.publisher, notifications.BookingExpired(booking.UserID, booking.ID))
		expired = true
		return nil
	})
	return expired, err
}
