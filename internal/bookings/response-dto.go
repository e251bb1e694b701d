package bookings

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateBookingResponse struct {
	Success   bool            `json:"success"`
	BookingID uuid.UUID       `json:"bookingId"`
	Status    Status          `json:"status"`
	FarePaid  decimal.Decimal `json:"farePaid"`
}

type PaymentResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type BookingPage struct {
	Bookings []Booking `json:"bookings"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
}
