package bookings

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// IsValid checks if the booking status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusActive, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// IsPaid reports whether the seats have been paid for
func (s Status) IsPaid() bool {
	return s == StatusConfirmed || s == StatusActive
}

// CanBeCancelled reports whether a passenger may cancel from this status.
// Unpaid bookings are left to expire.
func (s Status) CanBeCancelled() bool {
	return s.IsPaid()
}

// CanTransitionTo enforces pending -> confirmed|cancelled and
// confirmed|active -> cancelled. Nothing leaves cancelled.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed, StatusActive:
		return next == StatusCancelled
	}
	return false
}
