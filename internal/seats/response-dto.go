package seats

import (
	"time"

	"github.com/google/uuid"
)

// HoldResult is the reply to hold and release requests
type HoldResult struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// SeatMap is the occupancy of one trip
type SeatMap struct {
	TripID    uuid.UUID `json:"trip_id"`
	Capacity  int       `json:"capacity"`
	Available int       `json:"available"`
	Booked    []int     `json:"booked"`
	Held      []int     `json:"held"`
}
