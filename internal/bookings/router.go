package bookings

import (
	"github.com/gin-gonic/gin"
)

// SetupBookingRoutes registers the booking endpoints. The cancel and M-Pesa
// payment routes live with the cancellation and payments packages.
func SetupBookingRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	bookings := rg.Group("/bookings")
	bookings.Use(auth)
	{
		bookings.POST("", controller.CreatePendingBooking)                // POST /api/v1/bookings
		bookings.POST("/from-holds", controller.ConfirmHeldBooking)       // POST /api/v1/bookings/from-holds
		bookings.GET("", controller.ListBookings)                         // GET /api/v1/bookings
		bookings.GET("/:id", controller.GetBooking)                       // GET /api/v1/bookings/:id
		bookings.GET("/:id/ticket", controller.DownloadTicket)            // GET /api/v1/bookings/:id/ticket
		bookings.POST("/:id/pay/wallet", controller.ProcessWalletPayment) // POST /api/v1/bookings/:id/pay/wallet
	}
}
