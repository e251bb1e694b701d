package bookings

// CreateBookingRequest is the body of POST /bookings and POST /bookings/from-holds
type CreateBookingRequest struct {
	TripID        string `json:"trip_id" validate:"required,uuid"`
	SelectedSeats []int  `json:"selected_seats" validate:"required,min=1,max=10,dive,min=1"`
	StartStop     string `json:"start_stop" validate:"omitempty,max=100"`
	EndStop       string `json:"end_stop" validate:"omitempty,max=100"`
}
