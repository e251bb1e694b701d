package notifications

import (
	"net/http"
	"strconv"

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
	return &Controller{service: service, validator: validator.New()}
}

// ListNotifications handles GET /api/v1/notifications
func (c *Controller) ListNotifications(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	result, err := c.service.ListNotifications(ctx.Request.Context(), middleware.CallerFrom(ctx), page, limit)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Notifications retrieved successfully", result, nil)
}

// DeleteNotifications handles POST /api/v1/notifications/delete
func (c *Controller) DeleteNotifications(ctx *gin.Context) {
	var req DeleteNotificationsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := c.validator.Struct(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		ids = append(ids, uuid.MustParse(raw))
	}

	deleted, err := c.service.DeleteNotifications(ctx.Request.Context(), middleware.CallerFrom(ctx), ids)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Notifications deleted", gin.H{
		"success":      true,
		"deletedCount": deleted,
	}, nil)
}
