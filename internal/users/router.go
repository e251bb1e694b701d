package users

import (
	"github.com/gin-gonic/gin"
)

// SetupUserRoutes configures profile and user administration routes.
// auth and admin are the middleware chains for signed-in callers and admins.
func SetupUserRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc, admin gin.HandlerFunc) {
	users := rg.Group("/users")
	users.Use(auth)
	{
		users.GET("/me", controller.GetMe) // GET /api/v1/users/me
	}

	adminUsers := rg.Group("/admin")
	adminUsers.Use(auth, admin)
	{
		adminUsers.PUT("/users/:id/role", controller.ChangeUserRole) // PUT /api/v1/admin/users/:id/role
		adminUsers.POST("/staff", controller.CreateStaffUser)        // POST /api/v1/admin/staff
	}
}
