package seats

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	ListTripSeats(ctx context.Context, tripID uuid.UUID) ([]TripSeat, error)
	DeleteHold(ctx context.Context, tripID uuid.UUID, seatNumber int, holderID uuid.UUID) (int64, error)
	DeleteHoldsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListTripSeats(ctx context.Context, tripID uuid.UUID) ([]TripSeat, error) {
	var rows []TripSeat
	err := r.db.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Order("seat_number ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) DeleteHold(ctx context.Context, tripID uuid.UUID, seatNumber int, holderID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("trip_id = ? AND seat_number = ? AND state = ? AND holder_id = ?", tripID, seatNumber, StateHeld, holderID).
		Delete(&TripSeat{})
	return result.RowsAffected, result.Error
}

// DeleteHoldsBefore removes holds placed before cutoff. Booked rows are never touched.
func (r *repository) DeleteHoldsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("state = ? AND held_at < ?", StateHeld, cutoff).
		Delete(&TripSeat{})
	return result.RowsAffected, result.Error
}
