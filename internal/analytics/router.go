package analytics

import (
	"github.com/gin-gonic/gin"
)

func SetupAnalyticsRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc, admin gin.HandlerFunc) {
	analytics := rg.Group("/admin/analytics")
	analytics.Use(auth, admin)
	{
		analytics.GET("/dashboard", controller.GetDashboardAnalytics)      // GET /api/v1/admin/analytics/dashboard
		analytics.GET("/trips/:id", controller.GetTripOccupancy)           // GET /api/v1/admin/analytics/trips/:id
		analytics.GET("/bookings/daily", controller.GetBookingDailyStats) // GET /api/v1/admin/analytics/bookings/daily
	}
}
