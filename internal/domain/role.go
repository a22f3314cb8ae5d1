package domain

import "fmt"

// Role enumerates the closed set of user roles.
type Role string

const (
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

// ParseRole validates a raw role value.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleStaff:
		return RoleStaff, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// CanReviewSubmissions reports whether the role may approve or flag submissions.
func (r Role) CanReviewSubmissions() bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleStaff:
		return false
	}
	return false
}

// CanViewAllSubmissions reports whether the role sees every staff member's submissions.
func (r Role) CanViewAllSubmissions() bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleStaff:
		return false
	}
	return false
}
