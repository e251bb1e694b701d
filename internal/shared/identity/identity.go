// Package identity carries the verified caller of a request into services.
package identity

import (
	"github.com/fredrickBO/TwendeBus/internal/shared/apperrors"
	"github.com/fredrickBO/TwendeBus/internal/shared/constants"

	"github.com/google/uuid"
)

// Caller is the authenticated principal issuing an operation
type Caller struct {
	UserID uuid.UUID
	Email  string
	Role   constants.Role
}

// Anonymous is the zero caller
var Anonymous = Caller{}

func (c Caller) IsAuthenticated() bool {
	return c.UserID != uuid.Nil
}

// Authenticated returns Unauthenticated when the caller carries no identity
func (c Caller) Authenticated() error {
	if !c.IsAuthenticated() {
		return apperrors.Unauthenticated("authentication required")
	}
	return nil
}

// RequireAdmin fails unless the caller is an admin or super admin
func (c Caller) RequireAdmin() error {
	if err := c.Authenticated(); err != nil {
		return err
	}
	if !c.Role.IsAdmin() {
		return apperrors.PermissionDenied("admin privileges required")
	}
	return nil
}

// CanAccess reports whether the caller may read a resource owned by ownerID
func (c Caller) CanAccess(ownerID uuid.UUID) bool {
	return c.UserID == ownerID || c.Role.IsStaff()
}
