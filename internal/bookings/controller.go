package bookings

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

// CreatePendingBooking handles POST /api/v1/bookings
func (c *Controller) CreatePendingBooking(ctx *gin.Context) {
	req, ok := c.bindBookingRequest(ctx)
	if !ok {
		return
	}

	result, err := c.service.CreatePendingBooking(ctx.Request.Context(), middleware.CallerFrom(ctx), req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusCreated, "Seats reserved. Complete payment within 5 minutes.", result, nil)
}

// ConfirmHeldBooking handles POST /api/v1/bookings/from-holds
func (c *Controller) ConfirmHeldBooking(ctx *gin.Context) {
	req, ok := c.bindBookingRequest(ctx)
	if !ok {
		return
	}

	result, err := c.service.ConfirmHeldBooking(ctx.Request.Context(), middleware.CallerFrom(ctx), req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusCreated, "Booking confirmed", result, nil)
}

// ProcessWalletPayment handles POST /api/v1/bookings/:id/pay/wallet
func (c *Controller) ProcessWalletPayment(ctx *gin.Context) {
	id, ok := parseBookingID(ctx)
	if !ok {
		return
	}

	result, err := c.service.ProcessWalletPayment(ctx.Request.Context(), middleware.CallerFrom(ctx), id)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, result.Message, result, nil)
}

// GetBooking handles GET /api/v1/bookings/:id
func (c *Controller) GetBooking(ctx *gin.Context) {
	id, ok := parseBookingID(ctx)
	if !ok {
		return
	}

	booking, err := c.service.GetBooking(ctx.Request.Context(), middleware.CallerFrom(ctx), id)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Booking retrieved successfully", booking, nil)
}

// ListBookings handles GET /api/v1/bookings?status=&page=&limit=
func (c *Controller) ListBookings(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	status := Status(ctx.Query("status"))

	result, err := c.service.ListUserBookings(ctx.Request.Context(), middleware.CallerFrom(ctx), status, page, limit)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Bookings retrieved successfully", result, nil)
}

// DownloadTicket handles GET /api/v1/bookings/:id/ticket
func (c *Controller) DownloadTicket(ctx *gin.Context) {
	id, ok := parseBookingID(ctx)
	if !ok {
		return
	}

	pdf, err := c.service.Ticket(ctx.Request.Context(), middleware.CallerFrom(ctx), id)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	ctx.Header("Content-Disposition", "attachment; filename=ticket-"+id.String()+".pdf")
	ctx.Data(http.StatusOK, "application/pdf", pdf)
}

func (c *Controller) bindBookingRequest(ctx *gin.Context) (CreateBookingRequest, bool) {
	var req CreateBookingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return req, false
	}
	if err := c.validator.Struct(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return req, false
	}
	return req, true
}

func parseBookingID(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid booking ID", nil, err.Error())
		return uuid.Nil, false
	}
	return id, true
}
