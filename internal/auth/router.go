package auth

import (
	"github.com/gin-gonic/gin"
)

// SetupAuthRoutes registers the credential endpoints. Only change-password
// needs a signed-in caller.
func SetupAuthRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	group := rg.Group("/auth")
	{
		group.POST("/register", controller.Register)
		group.POST("/login", controller.Login)
		group.POST("/refresh", controller.RefreshToken)

		protected := group.Group("")
		protected.Use(auth)
		{
			protected.PUT("/change-password", controller.ChangePassword)
		}
	}
}
