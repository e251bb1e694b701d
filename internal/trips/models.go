package trips

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Route is a named line with ordered stops
type Route struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string      `gorm:"not null" json:"name"`
	Origin      string      `gorm:"not null" json:"origin"`
	Destination string      `gorm:"not null" json:"destination"`
	Stops       []RouteStop `gorm:"foreignKey:RouteID;constraint:OnDelete:CASCADE;" json:"stops,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// RouteStop is a pick-up or drop-off point on a route
type RouteStop struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RouteID  uuid.UUID `gorm:"type:uuid;index;not null" json:"route_id"`
	Name     string    `gorm:"not null" json:"name"`
	Sequence int       `gorm:"not null" json:"sequence"`
}

// Trip is one departure of a bus on a route. AvailableSeats is kept equal
// to Capacity minus the number of booked seats by the seat inventory.
type Trip struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	RouteID         uuid.UUID       `gorm:"type:uuid;index;not null" json:"route_id"`
	Fare            decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"fare"`
	Capacity        int             `gorm:"not null" json:"capacity"`
	AvailableSeats  int             `gorm:"not null" json:"available_seats"`
	DepartureTime   time.Time       `gorm:"index;not null" json:"departure_time"`
	BusRegistration string          `gorm:"type:varchar(20)" json:"bus_registration,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Route *Route `gorm:"foreignKey:RouteID" json:"route,omitempty"`
}

func (Route) TableName() string {
	return "routes"
}

func (RouteStop) TableName() string {
	return "route_stops"
}

func (Trip) TableName() string {
	return "trips"
}

func (r *Route) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (s *RouteStop) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (t *Trip) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// BookedSeats is the number of seats sold on the trip
func (t *Trip) BookedSeats() int {
	return t.Capacity - t.AvailableSeats
}

// HoursUntilDeparture is the fractional number of hours from now to departure
func (t *Trip) HoursUntilDeparture(now time.Time) float64 {
	return t.DepartureTime.Sub(now).Hours()
}

// ValidSeat reports whether n is a seat number on this trip's bus
func (t *Trip) ValidSeat(n int) bool {
	return n >= 1 && n <= t.Capacity
}
