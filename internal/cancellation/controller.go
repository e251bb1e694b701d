package cancellation

import (
	"net/http"

	"github.com/fredrickBO/TwendeBus/internal/shared/middleware"
	"github.com/fredrickBO/TwendeBus/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel
func (c *Controller) CancelBooking(ctx *gin.Context) {
	bookingID, ok := parseBookingID(ctx)
	if !ok {
		return
	}

	result, err := c.service.CancelBooking(ctx.Request.Context(), middleware.CallerFrom(ctx), bookingID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, result.Message, result, nil)
}

// GetCancellation handles GET /api/v1/bookings/:id/cancellation
func (c *Controller) GetCancellation(ctx *gin.Context) {
	bookingID, ok := parseBookingID(ctx)
	if !ok {
		return
	}

	record, err := c.service.GetCancellation(ctx.Request.Context(), middleware.CallerFrom(ctx), bookingID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Cancellation retrieved", record, nil)
}

// GetUserCancellations handles GET /api/v1/cancellations
func (c *Controller) GetUserCancellations(ctx *gin.Context) {
	records, err := c.service.ListUserCancellations(ctx.Request.Context(), middleware.CallerFrom(ctx))
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Cancellations retrieved", gin.H{
		"cancellations": records,
		"count":         len(records),
	}, nil)
}

func parseBookingID(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid booking ID", nil, err.Error())
		return uuid.Nil, false
	}
	return id, true
}
