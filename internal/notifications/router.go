package notifications

import (
	"github.com/gin-gonic/gin"
)

func SetupNotificationRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	notifications := rg.Group("/notifications")
	notifications.Use(auth)
	{
		notifications.GET("", controller.ListNotifications)           // GET /api/v1/notifications
		notifications.POST("/delete", controller.DeleteNotifications) // POST /api/v1/notifications/delete
	}
}
