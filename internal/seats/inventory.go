package seats

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/fredrickBO/TwendeBus/internal/shared/apperrors"
	"github.com/fredrickBO/TwendeBus/internal/shared/constants"
	"github.com/fredrickBO/TwendeBus/internal/shared/database"
	"github.com/fredrickBO/TwendeBus/internal/trips"
	"github.com/fredrickBO/TwendeBus/pkg/cache"
	"github.com/fredrickBO/TwendeBus/pkg/logger"

	"github.com/google/uuid"
)

// Mode selects what Reserve writes
type Mode int

const (
	ModeHold Mode = iota
	ModeBook
)

// Owner identifies who a reservation is for. BookingID is required for ModeBook.
type Owner struct {
	UserID    uuid.UUID
	BookingID uuid.UUID
}

// Inventory mutates seat rows inside a caller's transaction. Callers must
// lock the trip with trips.LockTrip first.
type Inventory struct {
	holdTTL time.Duration
	cache   cache.Service
	log     *logger.Logger
	now     func() time.Time
}

func NewInventory(holdTTL time.Duration, cacheService cache.Service) *Inventory {
	if cacheService == nil {
		cacheService = cache.NewService(nil)
	}
	return &Inventory{
		holdTTL: holdTTL,
		cache:   cacheService,
		log:     logger.GetDefault(),
		now:     time.Now,
	}
}

// HoldCutoff is the oldest held_at that still counts as a live hold
func (inv *Inventory) HoldCutoff() time.Time {
	return inv.now().UTC().Add(-inv.holdTTL)
}

// HoldTTL is how long a hold lasts
func (inv *Inventory) HoldTTL() time.Duration {
	return inv.holdTTL
}

// Reserve claims seats on trip for owner. In ModeBook the claimed seats become
// BOOKED for owner.BookingID and the trip's available counter drops by the
// number of newly booked seats; seats the owner holds are converted. In
// ModeHold free seats become HELD by owner.UserID. Seats already in the
// requested state for the same owner are left alone.
func (inv *Inventory) Reserve(tx *database.Tx, trip *trips.Trip, seatNumbers []int, mode Mode, owner Owner) error {
	if err := validateSeats(trip, seatNumbers); err != nil {
		return err
	}
	if mode == ModeBook && owner.BookingID == uuid.Nil {
		return apperrors.Internal(nil, "booking id required to book seats")
	}

	existing, err := lockSeatRows(tx, trip.ID, seatNumbers)
	if err != nil {
		return err
	}

	now := inv.now().UTC()
	cutoff := now.Add(-inv.holdTTL)

	var (
		conflicts []int
		inserts   []TripSeat
		converts  []TripSeat
	)
	for _, n := range seatNumbers {
		row, ok := existing[n]
		if !ok {
			inserts = append(inserts, newSeatRow(trip.ID, n, mode, owner, now))
			continue
		}

		switch {
		case row.IsBooked():
			if mode == ModeBook && row.BookedFor(owner.BookingID) {
				continue
			}
			conflicts = append(conflicts, n)
		case row.HeldBy(owner.UserID):
			if mode == ModeBook {
				converts = append(converts, row)
			}
		case row.LiveHold(cutoff):
			conflicts = append(conflicts, n)
		default:
			// Somebody else's hold has lapsed
			converts = append(converts, row)
		}
	}

	if len(conflicts) > 0 {
		sort.Ints(conflicts)
		return apperrors.AlreadyExists("seat(s) %v are no longer available", conflicts)
	}

	for _, row := range converts {
		updates := seatUpdates(mode, owner, now)
		if err := tx.Model(&TripSeat{}).Where("id = ?", row.ID).Updates(updates).Error; err != nil {
			return apperrors.Internal(err, "failed to update seat %d", row.SeatNumber)
		}
	}

	if len(inserts) > 0 {
		if err := tx.Create(&inserts).Error; err != nil {
			if database.IsDuplicateKey(err) {
				return apperrors.AlreadyExists("one or more seats were taken concurrently")
			}
			return apperrors.Internal(err, "failed to reserve seats")
		}
	}

	if mode == ModeBook {
		if err := trips.AdjustAvailableSeats(tx, trip, -(len(inserts) + len(converts))); err != nil {
			return err
		}
	}

	inv.invalidateOnCommit(tx, trip.ID)
	return nil
}

// Release frees the seats booked for bookingID and returns how many rows
// were removed. Seats not booked for it are ignored.
func (inv *Inventory) Release(tx *database.Tx, trip *trips.Trip, seatNumbers []int, bookingID uuid.UUID) (int, error) {
	if len(seatNumbers) == 0 {
		return 0, nil
	}

	result := tx.Where("trip_id = ? AND booking_id = ? AND state = ? AND seat_number IN ?",
		trip.ID, bookingID, StateBooked, seatNumbers).
		Delete(&TripSeat{})
	if result.Error != nil {
		return 0, apperrors.Internal(result.Error, "failed to release seats")
	}

	released := int(result.RowsAffected)
	if err := trips.AdjustAvailableSeats(tx, trip, released); err != nil {
		return 0, err
	}

	inv.invalidateOnCommit(tx, trip.ID)
	return released, nil
}

// VerifyHolds checks that userID holds every seat and that no hold has lapsed
func (inv *Inventory) VerifyHolds(tx *database.Tx, tripID uuid.UUID, seatNumbers []int, userID uuid.UUID) error {
	rows, err := lockSeatRows(tx, tripID, seatNumbers)
	if err != nil {
		return err
	}

	cutoff := inv.HoldCutoff()
	for _, n := range seatNumbers {
		row, ok := rows[n]
		if !ok || !row.HeldBy(userID) {
			return apperrors.Aborted("seat %d is not held by you", n)
		}
		if !row.LiveHold(cutoff) {
			return apperrors.Aborted("your hold on seat %d has expired", n)
		}
	}
	return nil
}

func (inv *Inventory) invalidateOnCommit(tx *database.Tx, tripID uuid.UUID) {
	tx.AfterCommit("invalidate seat map", func(ctx context.Context) {
		inv.invalidate(ctx, tripID)
	})
}

func (inv *Inventory) invalidate(ctx context.Context, tripID uuid.UUID) {
	if err := inv.cache.Delete(ctx, constants.BuildSeatMapKey(tripID.String())); err != nil {
		inv.log.Warn("failed to invalidate seat map",
			slog.String("trip_id", tripID.String()),
			slog.String("error", err.Error()),
		)
	}
}

func validateSeats(trip *trips.Trip, seatNumbers []int) error {
	if len(seatNumbers) == 0 {
		return apperrors.InvalidArgument("at least one seat is required")
	}
	seen := make(map[int]struct{}, len(seatNumbers))
	for _, n := range seatNumbers {
		if !trip.ValidSeat(n) {
			return apperrors.InvalidArgument("seat %d does not exist on this bus (1-%d)", n, trip.Capacity)
		}
		if _, dup := seen[n]; dup {
			return apperrors.InvalidArgument("seat %d selected more than once", n)
		}
		seen[n] = struct{}{}
	}
	return nil
}

func lockSeatRows(tx *database.Tx, tripID uuid.UUID, seatNumbers []int) (map[int]TripSeat, error) {
	var rows []TripSeat
	err := tx.Locking().
		Where("trip_id = ? AND seat_number IN ?", tripID, seatNumbers).
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.Internal(err, "failed to read seats")
	}

	byNumber := make(map[int]TripSeat, len(rows))
	for _, r := range rows {
		byNumber[r.SeatNumber] = r
	}
	return byNumber, nil
}

func newSeatRow(tripID uuid.UUID, n int, mode Mode, owner Owner, now time.Time) TripSeat {
	row := TripSeat{TripID: tripID, SeatNumber: n}
	if mode == ModeBook {
		bookingID := owner.BookingID
		row.State = StateBooked
		row.BookingID = &bookingID
		return row
	}
	holder := owner.UserID
	row.State = StateHeld
	row.HolderID = &holder
	row.HeldAt = &now
	return row
}

func seatUpdates(mode Mode, owner Owner, now time.Time) map[string]interface{} {
	if mode == ModeBook {
		return map[string]interface{}{
			"state":      StateBooked,
			"booking_id": owner.BookingID,
			"holder_id":  nil,
			"held_at":    nil,
		}
	}
	return map[string]interface{}{
		"state":      StateHeld,
		"booking_id": nil,
		"holder_id":  owner.UserID,
		"held_at":    now,
	}
}

func describeSeats(seatNumbers []int) string {
	if len(seatNumbers) == 1 {
		return fmt.Sprintf("seat %d", seatNumbers[0])
	}
	return fmt.Sprintf("seats %v", seatNumbers)
}
