package cancellation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Cancellation records how a paid booking was cancelled and what was refunded
type Cancellation struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID     uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"booking_id"`
	UserID        uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	FarePaid      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"fare_paid"`
	HoursBefore   float64         `gorm:"not null" json:"hours_before_departure"`
	RefundPercent int             `gorm:"not null" json:"refund_percent"`
	RefundAmount  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"refund_amount"`
	ProcessedAt   time.Time       `gorm:"not null" json:"processed_at"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (Cancellation) TableName() string {
	return "cancellations"
}

func (c *Cancellation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// RefundPolicy is the tiered refund schedule keyed on hours before departure
type RefundPolicy struct {
	FullRefundHours    float64
	PartialRefundHours float64
	PartialRefundRate  float64
}

// DefaultRefundPolicy refunds everything from 5 hours out, half from 1 hour
// out and nothing after that.
func DefaultRefundPolicy() RefundPolicy {
	return RefundPolicy{FullRefundHours: 5, PartialRefundHours: 1, PartialRefundRate: 0.5}
}

// Percent is the share of the fare refunded when cancelling hoursBefore
// hours ahead of departure.
func (p RefundPolicy) Percent(hoursBefore float64) int {
	switch {
	case hoursBefore >= p.FullRefundHours:
		return 100
	case hoursBefore >= p.PartialRefundHours:
		return int(p.PartialRefundRate*100 + 0.5)
	default:
		return 0
	}
}

// Refund returns the amount and percent refunded for fare
func (p RefundPolicy) Refund(fare decimal.Decimal, hoursBefore float64) (decimal.Decimal, int) {
	percent := p.Percent(hoursBefore)
	amount := fare.Mul(decimal.NewFromInt(int64(percent))).Div(decimal.NewFromInt(100)).Round(2)
	return amount, percent
}
