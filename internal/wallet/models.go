package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TypeDeduction TransactionType = "deduction"
	TypeRefund    TransactionType = "refund"
	TypeDeposit   TransactionType = "deposit"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// Transaction is one entry in a user's wallet history. Amount is signed:
// deductions are negative. For M-Pesa flows the ID is the gateway's
// checkout request id, which makes callback handling idempotent.
type Transaction struct {
	ID           string            `gorm:"type:varchar(64);primaryKey" json:"id"`
	UserID       uuid.UUID         `gorm:"type:uuid;index;not null" json:"user_id"`
	Amount       decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"amount"`
	Type         TransactionType   `gorm:"type:varchar(20);not null" json:"type"`
	Status       TransactionStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	BookingID    *uuid.UUID        `gorm:"type:uuid;index" json:"booking_id,omitempty"`
	Details      string            `gorm:"type:text" json:"details,omitempty"`
	PhoneNumber  string            `gorm:"type:varchar(20)" json:"phone_number,omitempty"`
	MpesaReceipt string            `gorm:"type:varchar(32)" json:"mpesa_receipt,omitempty"`
	CreatedAt    time.Time         `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

func (t *Transaction) IsPending() bool {
	return t.Status == StatusPending
}

// Entry describes the ledger line written alongside a balance change
type Entry struct {
	// ID overrides the generated id. A second write with the same ID is a no-op.
	ID          string
	BookingID   *uuid.UUID
	Details     string
	PhoneNumber string
	Receipt     string
}

// Summary is a user's current wallet position
type Summary struct {
	UserID  uuid.UUID       `json:"user_id"`
	Balance decimal.Decimal `json:"balance"`
}
