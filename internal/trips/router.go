package trips

import (
	"github.com/gin-gonic/gin"
)

// SetupTripRoutes configures route and trip browsing plus their admin endpoints
func SetupTripRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc, admin gin.HandlerFunc) {
	rg.GET("/routes", controller.ListRoutes) // GET /api/v1/routes

	trips := rg.Group("/trips")
	{
		trips.GET("", controller.ListTrips)   // GET /api/v1/trips
		trips.GET("/:id", controller.GetTrip) // GET /api/v1/trips/:id
	}

	adminRoutes := rg.Group("/admin")
	adminRoutes.Use(auth, admin)
	{
		adminRoutes.POST("/routes", controller.CreateRoute)       // POST /api/v1/admin/routes
		adminRoutes.DELETE("/routes/:id", controller.DeleteRoute) // DELETE /api/v1/admin/routes/:id
		adminRoutes.POST("/trips", controller.CreateTrip)         // POST /api/v1/admin/trips
	}
}
