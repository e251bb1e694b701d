package trips

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateRouteRequest is the body of POST /admin/routes
type CreateRouteRequest struct {
	Name        string   `json:"name" validate:"required,min=2,max=100"`
	Origin      string   `json:"origin" validate:"required"`
	Destination string   `json:"destination" validate:"required"`
	Stops       []string `json:"stops" validate:"dive,required"`
}

// CreateTripRequest is the body of POST /admin/trips
type CreateTripRequest struct {
	RouteID         string          `json:"route_id" validate:"required,uuid"`
	Fare            decimal.Decimal `json:"fare" validate:"required"`
	Capacity        int             `json:"capacity" validate:"required,min=1,max=100"`
	DepartureTime   time.Time       `json:"departure_time" validate:"required"`
	BusRegistration string          `json:"bus_registration" validate:"omitempty,max=20"`
}
