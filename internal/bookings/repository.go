package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/fredrickBO/TwendeBus/internal/shared/apperrors"
	"github.com/fredrickBO/TwendeBus/internal/shared/database"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrBookingNotFound = errors.New("booking not found")

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	ListByUser(ctx context.Context, userID uuid.UUID, status Status, limit, offset int) ([]Booking, int64, error)

	// ListExpiredPending returns ids of pending bookings created before cutoff, oldest first
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func orderedSeats(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).
		Preload("Seats", orderedSeats).
		Preload("Trip.Route").
		Where("id = ?", id).
		First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, status Status, limit, offset int) ([]Booking, int64, error) {
	query := r.db.WithContext(ctx).Model(&Booking{}).Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var bookings []Booking
	err := query.
		Preload("Seats", orderedSeats).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&bookings).Error
	return bookings, total, err
}

func (r *repository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("status = ? AND created_at < ?", StatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// LockBooking reads a booking and its seats inside tx, holding the booking
// row lock until commit.
func LockBooking(tx *database.Tx, id uuid.UUID) (*Booking, error) {
	var booking Booking
	if err := tx.Locking().Where("id = ?", id).First(&booking).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperrors.NotFound("booking not found")
		}
		return nil, apperrors.Internal(err, "failed to lock booking")
	}
	if err := loadSeats(tx, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// LockCheckout locks the checkout row for checkoutRequestID and its booking.
// It returns nils when no booking payment carries the id.
func LockCheckout(tx *database.Tx, checkoutRequestID string) (*Checkout, *Booking, error) {
	var checkout Checkout
	err := tx.Where("checkout_request_id = ?", checkoutRequestID).First(&checkout).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, nil, nil
		}
		return nil, nil, apperrors.Internal(err, "failed to load checkout")
	}

	// Booking first, the same order every other booking write uses
	booking, err := LockBooking(tx, checkout.BookingID)
	if err != nil {
		return nil, nil, err
	}
	var locked Checkout
	if err := tx.Locking().Where("checkout_request_id = ?", checkoutRequestID).First(&locked).Error; err != nil {
		return nil, nil, apperrors.Internal(err, "failed to lock checkout")
	}
	return &locked, booking, nil
}

func loadSeats(tx *database.Tx, booking *Booking) error {
	err := tx.Where("booking_id = ?", booking.ID).Order("position ASC").Find(&booking.Seats).Error
	if err != nil {
		return apperrors.Internal(err, "failed to load booking seats")
	}
	return nil
}

// Transition moves a locked booking to next, writing any extra columns
func Transition(tx *database.Tx, booking *Booking, next Status, extra map[string]interface{}) error {
	if !booking.Status.CanTransitionTo(next) {
		return apperrors.FailedPrecondition("booking is %s and cannot become %s", booking.Status, next)
	}

	updates := map[string]interface{}{"status": next}
	for k, v := range extra {
		updates[k] = v
	}
	if err := tx.Model(&Booking{}).Where("id = ?", booking.ID).Updates(updates).Error; err != nil {
		return apperrors.Internal(err, "failed to update booking")
	}
	booking.Status = next
	return nil
}

// MarkCancelled cancels a locked booking and records the refund given
func MarkCancelled(tx *database.Tx, booking *Booking, refund decimal.Decimal, at time.Time) error {
	err := Transition(tx, booking, StatusCancelled, map[string]interface{}{
		"refund_amount": refund,
		"cancelled_at":  at,
	})
	if err != nil {
		return err
	}
	booking.RefundAmount = refund
	booking.CancelledAt = &at
	return nil
}

// RecordCheckout stores a prompt issued for booking
func RecordCheckout(tx *database.Tx, booking *Booking, merchantRequestID, checkoutRequestID string) (*Checkout, error) {
	checkout := &Checkout{
		CheckoutRequestID: checkoutRequestID,
		MerchantRequestID: merchantRequestID,
		BookingID:         booking.ID,
		Amount:            booking.FarePaid,
		Status:            CheckoutPending,
	}
	if err := tx.Create(checkout).Error; err != nil {
		if database.IsDuplicateKey(err) {
			return nil, apperrors.AlreadyExists("checkout request %s is already recorded", checkoutRequestID)
		}
		return nil, apperrors.Internal(err, "failed to record checkout")
	}
	return checkout, nil
}

// SettleCheckout moves a locked checkout to status with the gateway's result
func SettleCheckout(tx *database.Tx, checkout *Checkout, status CheckoutStatus, receipt, resultDesc string) error {
	err := tx.Model(&Checkout{}).Where("checkout_request_id = ?", checkout.CheckoutRequestID).Updates(map[string]interface{}{
		"status":        status,
		"mpesa_receipt": receipt,
		"result_desc":   resultDesc,
	}).Error
	if err != nil {
		return apperrors.Internal(err, "failed to update checkout")
	}
	checkout.Status = status
	checkout.MpesaReceipt = receipt
	checkout.ResultDesc = resultDesc
	return nil
}
