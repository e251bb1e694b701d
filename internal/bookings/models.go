package bookings

import (
	"time"

	"github.com/fredrickBO/TwendeBus/internal/trips"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Booking is a passenger's claim on seats of one trip. FarePaid is fixed
// when the booking is created and is what payment and refunds are based on.
type Booking struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	TripID            uuid.UUID       `gorm:"type:uuid;index;not null" json:"trip_id"`
	FarePaid          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"fare_paid"`
	Status            Status          `gorm:"type:varchar(20);not null;index:idx_bookings_status_created,priority:1" json:"status"`
	StartStop         string          `gorm:"type:varchar(100)" json:"start_stop,omitempty"`
	EndStop           string          `gorm:"type:varchar(100)" json:"end_stop,omitempty"`
	RefundAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"refund_amount"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt         time.Time       `gorm:"index:idx_bookings_status_created,priority:2" json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	Seats     []BookingSeat `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE;" json:"seats"`
	Checkouts []Checkout    `gorm:"foreignKey:BookingID" json:"checkouts,omitempty"`
	Trip      *trips.Trip   `gorm:"foreignKey:TripID" json:"trip,omitempty"`
}

// BookingSeat is one seat of a booking, in the order the passenger chose
type BookingSeat struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	BookingID  uuid.UUID `gorm:"type:uuid;index;not null" json:"-"`
	SeatNumber int       `gorm:"not null" json:"seat_number"`
	Position   int       `gorm:"not null" json:"-"`
}

type CheckoutStatus string

const (
	CheckoutPending  CheckoutStatus = "pending"
	CheckoutFailed   CheckoutStatus = "failed"
	CheckoutPaid     CheckoutStatus = "paid"
	CheckoutRefunded CheckoutStatus = "refunded"
)

// Checkout is one M-Pesa prompt issued for a booking. A booking can have
// several; every issued checkout id keeps its row so a late result can
// always be matched to the booking.
type Checkout struct {
	CheckoutRequestID string          `gorm:"type:varchar(64);primaryKey" json:"checkout_request_id"`
	MerchantRequestID string          `gorm:"type:varchar(64)" json:"merchant_request_id"`
	BookingID         uuid.UUID       `gorm:"type:uuid;index;not null" json:"-"`
	Amount            decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Status            CheckoutStatus  `gorm:"type:varchar(20);not null" json:"status"`
	MpesaReceipt      string          `gorm:"type:varchar(32)" json:"mpesa_receipt,omitempty"`
	ResultDesc        string          `gorm:"type:varchar(255)" json:"result_desc,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Settled reports whether money from this checkout has already been applied
func (c *Checkout) Settled() bool {
	return c.Status == CheckoutPaid || c.Status == CheckoutRefunded
}

func (Checkout) TableName() string {
	return "booking_checkouts"
}

func (Booking) TableName() string {
	return "bookings"
}

func (BookingSeat) TableName() string {
	return "booking_seats"
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

func (s *BookingSeat) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SeatNumbers returns the booked seats in selection order
func (b *Booking) SeatNumbers() []int {
	numbers := make([]int, len(b.Seats))
	for i, s := range b.Seats {
		numbers[i] = s.SeatNumber
	}
	return numbers
}

func newSeats(numbers []int) []BookingSeat {
	seats := make([]BookingSeat, len(numbers))
	for i, n := range numbers {
		seats[i] = BookingSeat{SeatNumber: n, Position: i}
	}
	return seats
}
