package analytics

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

// GetDashboardAnalytics handles GET /api/v1/admin/analytics/dashboard
func (ctrl *Controller) GetDashboardAnalytics(c *gin.Context) {
	dashboard, err := ctrl.service.GetDashboardAnalytics(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Dashboard analytics retrieved successfully", dashboard, nil)
}

// GetTripOccupancy handles GET /api/v1/admin/analytics/trips/:id
func (ctrl *Controller) GetTripOccupancy(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid trip ID", nil, err.Error())
		return
	}

	occ, err := ctrl.service.GetTripOccupancy(c.Request.Context(), middleware.CallerFrom(c), tripID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Trip occupancy retrieved successfully", occ, nil)
}

// GetBookingDailyStats handles GET /api/v1/admin/analytics/bookings/daily?days=30
func (ctrl *Controller) GetBookingDailyStats(c *gin.Context) {
	days := 30
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid days parameter", nil, err.Error())
			return
		}
		days = parsed
	}

	stats, err := ctrl.service.GetBookingDailyStats(c.Request.Context(), middleware.CallerFrom(c), days)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Daily booking stats retrieved successfully", stats, nil)
}
