package seats

import (
	"net/http"
	"strconv"

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

// HoldSeat handles POST /api/v1/trips/:id/seats/:seat/hold
func (c *Controller) HoldSeat(ctx *gin.Context) {
	tripID, seat, ok := parseSeatParams(ctx)
	if !ok {
		return
	}

	result, err := c.service.HoldSeat(ctx.Request.Context(), middleware.CallerFrom(ctx), tripID, seat)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, result.Message, result, nil)
}

// ReleaseSeat handles DELETE /api/v1/trips/:id/seats/:seat/hold
func (c *Controller) ReleaseSeat(ctx *gin.Context) {
	tripID, seat, ok := parseSeatParams(ctx)
	if !ok {
		return
	}

	result, err := c.service.ReleaseSeat(ctx.Request.Context(), middleware.CallerFrom(ctx), tripID, seat)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, result.Message, result, nil)
}

// GetSeatMap handles GET /api/v1/trips/:id/seats
func (c *Controller) GetSeatMap(ctx *gin.Context) {
	tripID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid trip ID", nil, err.Error())
		return
	}

	seatMap, err := c.service.GetSeatMap(ctx.Request.Context(), tripID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Seat map retrieved successfully", seatMap, nil)
}

func parseSeatParams(ctx *gin.Context) (uuid.UUID, int, bool) {
	tripID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid trip ID", nil, err.Error())
		return uuid.Nil, 0, false
	}
	seat, err := strconv.Atoi(ctx.Param("seat"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid seat number", nil, err.Error())
		return uuid.Nil, 0, false
	}
	return tripID, seat, true
}
