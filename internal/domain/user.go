package domain

import "time"

// User is an account that submits or reviews meal counts.
type User struct {
	ID           string
	Username     string
	PasswordHash string `json:"-"`
	DisplayName  string
	Role         Role
	CreatedAt    time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role.CanReviewSubmissions()
}
