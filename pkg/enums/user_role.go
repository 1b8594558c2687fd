package enums

import "fmt"

// UserRole is the platform-wide role of a profile.
type UserRole string

const (
	UserRoleStudent UserRole = "STUDENT"
	UserRoleAdmin   UserRole = "ADMIN"
)

var validUserRoles = []UserRole{
	UserRoleStudent,
	UserRoleAdmin,
}

// String implements fmt.Stringer.
func (v UserRole) String() string {
	return string(v)
}

// IsValid reports whether the value is a known UserRole.
func (v UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
