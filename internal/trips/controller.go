package trips

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

// ListRoutes handles GET /api/v1/routes
func (c *Controller) ListRoutes(ctx *gin.Context) {
	routes, err := c.service.ListRoutes(ctx.Request.Context())
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Routes retrieved successfully", routes, nil)
}

// ListTrips handles GET /api/v1/trips?route_id=
func (c *Controller) ListTrips(ctx *gin.Context) {
	var routeID *uuid.UUID
	if raw := ctx.Query("route_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid route ID", nil, err.Error())
			return
		}
		routeID = &id
	}

	trips, err := c.service.ListUpcomingTrips(ctx.Request.Context(), routeID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Trips retrieved successfully", trips, nil)
}

// GetTrip handles GET /api/v1/trips/:id
func (c *Controller) GetTrip(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid trip ID", nil, err.Error())
		return
	}

	trip, err := c.service.GetTrip(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Trip retrieved successfully", trip, nil)
}

// CreateRoute handles POST /api/v1/admin/routes
func (c *Controller) CreateRoute(ctx *gin.Context) {
	var req CreateRouteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := c.validator.Struct(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	route, err := c.service.CreateRoute(ctx.Request.Context(), middleware.CallerFrom(ctx), req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusCreated, "Route created successfully", route, nil)
}

// DeleteRoute handles DELETE /api/v1/admin/routes/:id
func (c *Controller) DeleteRoute(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid route ID", nil, err.Error())
		return
	}

	if err := c.service.DeleteRoute(ctx.Request.Context(), middleware.CallerFrom(ctx), id); err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Route deleted", gin.H{
		"success": true,
		"message": "Route deleted successfully",
	}, nil)
}

// CreateTrip handles POST /api/v1/admin/trips
func (c *Controller) CreateTrip(ctx *gin.Context) {
	var req CreateTripRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := c.validator.Struct(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	trip, err := c.service.CreateTrip(ctx.Request.Context(), middleware.CallerFrom(ctx), req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusCreated, "Trip scheduled successfully", trip, nil)
}
