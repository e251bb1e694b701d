package seats

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SeatState string

const (
	StateBooked SeatState = "BOOKED"
	StateHeld   SeatState = "HELD"
)

// TripSeat is a taken seat on a trip. Free seats have no row, and the
// unique (trip_id, seat_number) index keeps a seat in at most one state.
type TripSeat struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TripID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_trip_seat" json:"trip_id"`
	SeatNumber int        `gorm:"not null;uniqueIndex:idx_trip_seat" json:"seat_number"`
	State      SeatState  `gorm:"type:varchar(10);not null;check:state IN ('BOOKED', 'HELD')" json:"state"`
	BookingID  *uuid.UUID `gorm:"type:uuid;index" json:"booking_id,omitempty"`
	HolderID   *uuid.UUID `gorm:"type:uuid;index" json:"holder_id,omitempty"`
	HeldAt     *time.Time `gorm:"index" json:"held_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (TripSeat) TableName() string {
	return "trip_seats"
}

func (s *TripSeat) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *TripSeat) IsBooked() bool {
	return s.State == StateBooked
}

// LiveHold reports whether the seat is held and the hold started at or after cutoff
func (s *TripSeat) LiveHold(cutoff time.Time) bool {
	return s.State == StateHeld && s.HeldAt != nil && !s.HeldAt.Before(cutoff)
}

func (s *TripSeat) HeldBy(userID uuid.UUID) bool {
	return s.State == StateHeld && s.HolderID != nil && *s.HolderID == userID
}

func (s *TripSeat) BookedFor(bookingID uuid.UUID) bool {
	return s.State == StateBooked && s.BookingID != nil && *s.BookingID == bookingID
}
