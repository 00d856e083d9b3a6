package models

// User is an account allowed to log entries.
type User struct {
	Username     string `json:"username"`
	Name         string `json:"name"`
	Role         Role   `json:"role"`
	Phone        string `json:"phone,omitempty"`
	PasswordHash string `json:"-"`
}

// IsAdmin is a shorthand for the admin role check.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
