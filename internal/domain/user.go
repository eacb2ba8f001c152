package domain

import "time"

// Role gates which workflows the presentation layer offers. The backend enforces it.
type Role string

const (
	RoleUser         Role = "user"
	RoleServiceOwner Role = "service_owner"
	RoleAdmin        Role = "admin"
)

// User is the identity returned by the marketplace backend.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// IsProvider reports whether the user owns a service page.
func (u *User) IsProvider() bool {
	return u != nil && u.Role == RoleServiceOwner
}
