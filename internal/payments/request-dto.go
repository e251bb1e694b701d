package payments

import "github.com/shopspring/decimal"

type TopUpRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PhoneNumber string          `json:"phoneNumber" validate:"required"`
}

type BookingPaymentRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required"`
}
