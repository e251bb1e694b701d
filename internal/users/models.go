package users

import (
	"time"

	"github.com/fredrickBO/TwendeBus/internal/shared/constants"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User is an account holder. WalletBalance is written only by the wallet
// package; everything here treats it as read-only.
type User struct {
	ID            uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid"`
	FirstName     string          `json:"first_name" gorm:"not null"`
	LastName      string          `json:"last_name" gorm:"not null"`
	Email         string          `json:"email" gorm:"uniqueIndex;not null"`
	PhoneNumber   string          `json:"phone_number" gorm:"type:varchar(20)"`
	Password      string          `json:"-" gorm:"not null;default:''"` // empty for externally provisioned identities
	Role          constants.Role  `json:"role" gorm:"type:varchar(20);not null;default:'passenger'"`
	WalletBalance decimal.Decimal `json:"wallet_balance" gorm:"type:numeric(12,2);not null;default:0"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = constants.RolePassenger
	}
	return nil
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
