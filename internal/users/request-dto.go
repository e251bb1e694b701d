package users

import "github.com/fredrickBO/TwendeBus/internal/shared/constants"

// ChangeRoleRequest is the body of PUT /admin/users/:id/role
type ChangeRoleRequest struct {
	Role constants.Role `json:"role" validate:"required"`
}

// CreateStaffUserRequest is the body of POST /admin/staff
type CreateStaffUserRequest struct {
	Email       string         `json:"email" validate:"required,email"`
	Password    string         `json:"password" validate:"required,min=8"`
	FirstName   string         `json:"first_name" validate:"required,min=2,max=100"`
	LastName    string         `json:"last_name" validate:"required,min=2,max=100"`
	PhoneNumber string         `json:"phone_number" validate:"required,min=9,max=15"`
	Role        constants.Role `json:"role" validate:"required"`
}
