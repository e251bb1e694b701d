package payments

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
	return &Controller{service: service, validator: validator.New()}
}

// InitiateTopUp handles POST /api/v1/wallet/topup/mpesa
func (c *Controller) InitiateTopUp(ctx *gin.Context) {
	var req TopUpRequest
	if !c.bind(ctx, &req) {
		return
	}

	result, err := c.service.InitiateMpesaTopUp(ctx.Request.Context(), middleware.CallerFrom(ctx), req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusAccepted, result.Message, result, nil)
}

// InitiateBookingPayment handles POST /api/v1/bookings/:id/pay/mpesa
func (c *Controller) InitiateBookingPayment(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid booking ID", nil, err.Error())
		return
	}
	var req BookingPaymentRequest
	if !c.bind(ctx, &req) {
		return
	}

	result, err := c.service.InitiateMpesaBookingPayment(ctx.Request.Context(), middleware.CallerFrom(ctx), bookingID, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusAccepted, result.Message, result, nil)
}

// Callback handles POST /api/v1/payments/mpesa/callback. Daraja retries
// anything but a 200, so every request is acknowledged.
func (c *Controller) Callback(ctx *gin.Context) {
	raw, err := ctx.GetRawData()
	if err == nil {
		c.service.HandleCallback(ctx.Request.Context(), raw)
	}
	ctx.JSON(http.StatusOK, CallbackAck{ResultCode: 0, ResultDesc: "Accepted"})
}

func (c *Controller) bind(ctx *gin.Context, req interface{}) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return false
	}
	if err := c.validator.Struct(req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return false
	}
	return true
}
