package constants

// Role is a user's authorization level. It gates administration only; the
// booking core never looks at it.
type Role string

const (
	RolePassenger  Role = "passenger"
	RoleDriver     Role = "driver"
	RoleSupport    Role = "support"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RolePassenger, RoleDriver, RoleSupport, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsAdmin reports whether r may run administrative operations
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// IsStaff reports whether r belongs to an operator account
func (r Role) IsStaff() bool {
	return r == RoleDriver || r == RoleSupport || r.IsAdmin()
}

// IsPrivileged reports whether granting or revoking r needs a super admin
func (r Role) IsPrivileged() bool {
	return r.IsAdmin()
}

func (r Role) String() string {
	return string(r)
}
