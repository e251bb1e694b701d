package cancellation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrCancellationNotFound = errors.New("cancellation not found")

// Repository interface defines the contract for cancellation reads
type Repository interface {
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*Cancellation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Cancellation, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*Cancellation, error) {
	var cancellation Cancellation
	err := r.db.WithContext(ctx).First(&cancellation, "booking_id = ?", bookingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCancellationNotFound
		}
		return nil, fmt.Errorf("failed to get cancellation by booking ID: %w", err)
	}
	return &cancellation, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Cancellation, error) {
	var cancellations []Cancellation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("processed_at DESC").
		Find(&cancellations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user cancellations: %w", err)
	}
	return cancellations, nil
}
