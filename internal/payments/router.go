package payments

import (
	"github.com/gin-gonic/gin"
)

// SetupPaymentRoutes registers the M-Pesa endpoints. The callback is
// unauthenticated; Daraja cannot present a token.
func SetupPaymentRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	rg.POST("/wallet/topup/mpesa", auth, controller.InitiateTopUp)              // POST /api/v1/wallet/topup/mpesa
	rg.POST("/bookings/:id/pay/mpesa", auth, controller.InitiateBookingPayment) // POST /api/v1/bookings/:id/pay/mpesa

	payments := rg.Group("/payments")
	{
		payments.POST("/mpesa/callback", controller.Callback) // POST /api/v1/payments/mpesa/callback
	}
}
