package notifications

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type NotificationType string

const (
	TypeBookingConfirmed NotificationType = "BOOKING_CONFIRMED"
	TypeBookingCancelled NotificationType = "BOOKING_CANCELLED"
	TypeBookingExpired   NotificationType = "BOOKING_EXPIRED"
	TypeTopUpCompleted   NotificationType = "TOPUP_COMPLETED"
	TypeTopUpFailed      NotificationType = "TOPUP_FAILED"
	TypeRefundIssued     NotificationType = "REFUND_ISSUED"
)

// Notification is an in-app message for one user. The same struct is the
// Kafka message body, so the ID doubles as the dedup key on consume.
type Notification struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID        `gorm:"type:uuid;index;not null" json:"user_id"`
	Type      NotificationType `gorm:"type:varchar(40);not null" json:"type"`
	Title     string           `gorm:"not null" json:"title"`
	Body      string           `gorm:"type:text" json:"body"`
	BookingID *uuid.UUID       `gorm:"type:uuid;index" json:"booking_id,omitempty"`
	Read      bool             `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time        `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

func (n *Notification) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}

// GetPartitionKey keeps one user's notifications in order on a single partition
func (n *Notification) GetPartitionKey() string {
	return n.UserID.String()
}

func newNotification(userID uuid.UUID, kind NotificationType, bookingID *uuid.UUID, title, body string) *Notification {
	return &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      kind,
		Title:     title,
		Body:      body,
		BookingID: bookingID,
		CreatedAt: time.Now().UTC(),
	}
}

func BookingConfirmed(userID, bookingID uuid.UUID, seats []int, amount decimal.Decimal) *Notification {
	return newNotification(userID, TypeBookingConfirmed, &bookingID,
		"Booking confirmed",
		fmt.Sprintf("Your booking for seat(s) %v is confirmed. KES %s paid.", seats, amount.StringFixed(2)))
}

func BookingCancelled(userID, bookingID uuid.UUID, refund decimal.Decimal, percent int) *Notification {
	body := "Your booking has been cancelled. No refund applies this close to departure."
	if refund.IsPositive() {
		body = fmt.Sprintf("Your booking has been cancelled. KES %s (%d%%) was refunded to your wallet.",
			refund.StringFixed(2), percent)
	}
	return newNotification(userID, TypeBookingCancelled, &bookingID, "Booking cancelled", body)
}

func BookingExpired(userID, bookingID uuid.UUID) *Notification {
	return newNotification(userID, TypeBookingExpired, &bookingID,
		"Booking expired",
		"Payment was not completed in time, so your seats were released.")
}

func TopUpCompleted(userID uuid.UUID, amount decimal.Decimal, receipt string) *Notification {
	return newNotification(userID, TypeTopUpCompleted, nil,
		"Wallet topped up",
		fmt.Sprintf("KES %s was added to your wallet. M-Pesa receipt %s.", amount.StringFixed(2), receipt))
}

func TopUpFailed(userID uuid.UUID, amount decimal.Decimal, reason string) *Notification {
	return newNotification(userID, TypeTopUpFailed, nil,
		"Top-up failed",
		fmt.Sprintf("Your KES %s top-up did not go through: %s", amount.StringFixed(2), reason))
}

func RefundIssued(userID, bookingID uuid.UUID, amount decimal.Decimal) *Notification {
	return newNotification(userID, TypeRefundIssued, &bookingID,
		"Payment refunded",
		fmt.Sprintf("Your payment arrived after the booking expired. KES %s was credited to your wallet.", amount.StringFixed(2)))
}
