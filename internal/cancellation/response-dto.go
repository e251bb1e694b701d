package cancellation

import "github.com/shopspring/decimal"

type CancelResponse struct {
	Success       bool            `json:"success"`
	Message       string          `json:"message"`
	RefundAmount  decimal.Decimal `json:"refundAmount"`
	RefundPercent int             `json:"refundPercent"`
}
