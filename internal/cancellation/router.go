package cancellation

import (
	"github.com/gin-gonic/gin"
)

func SetupCancellationRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	bookings := rg.Group("/bookings")
	bookings.Use(auth)
	{
		bookings.POST("/:id/cancel", controller.CancelBooking)        // POST /api/v1/bookings/:id/cancel
		bookings.GET("/:id/cancellation", controller.GetCancellation) // GET /api/v1/bookings/:id/cancellation
	}

	cancellations := rg.Group("/cancellations")
	cancellations.Use(auth)
	{
		cancellations.GET("", controller.GetUserCancellations) // GET /api/v1/cancellations
	}
}
