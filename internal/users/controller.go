package users

import (
	"net/http"

	"github.com/fredrickBO/TwendeBus/internal/shared/middleware"
	"github.com/fredrickBO/TwendeBus/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Controller struct {
	service   Service
	validator *validator.Validate
}

func NewController(service Service) *Controller {
	return &Controller{
		service:   service,
		validator: validator.New(),
	}
}

// GetMe handles GET /api/v1/users/me
func (c *Controller) GetMe(ctx *gin.Context) {
	user, err := c.service.GetProfile(ctx.Request.Context(), middleware.CallerFrom(ctx))
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Profile retrieved successfully", user, nil)
}

// ChangeUserRole handles PUT /api/v1/admin/users/:id/role
func (c *Controller) ChangeUserRole(ctx *gin.Context) {
	targetID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid user ID", nil, err.Error())
		return
	}

	var req ChangeRoleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := c.validator.Struct(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	user, err := c.service.ChangeUserRole(ctx.Request.Context(), middleware.CallerFrom(ctx), targetID, req.Role)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Role updated", gin.H{
		"success": true,
		"message": "Role for " + user.Email + " set to " + user.Role.String(),
		"user":    user,
	}, nil)
}

// CreateStaffUser handles POST /api/v1/admin/staff
func (c *Controller) CreateStaffUser(ctx *gin.Context) {
	var req CreateStaffUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := c.validator.Struct(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	user, err := c.service.CreateStaffUser(ctx.Request.Context(), middleware.CallerFrom(ctx), req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Staff user created", gin.H{
		"success": true,
		"message": "Staff account created for " + user.Email,
		"user":    user,
	}, nil)
}
