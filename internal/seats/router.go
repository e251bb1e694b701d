package seats

import (
	"github.com/gin-gonic/gin"
)

func SetupSeatRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	rg.GET("/trips/:id/seats", controller.GetSeatMap) // GET /api/v1/trips/:id/seats

	holds := rg.Group("/trips/:id/seats/:seat")
	holds.Use(auth)
	{
		holds.POST("/hold", controller.HoldSeat)      // POST /api/v1/trips/:id/seats/:seat/hold
		holds.DELETE("/hold", controller.ReleaseSeat) // DELETE /api/v1/trips/:id/seats/:seat/hold
	}
}
