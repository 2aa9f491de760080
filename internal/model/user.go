package model

import "time"

// User mirrors an account row. PasswordHash never leaves the server.
type User struct {
	ID           uint64    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	DisplayName  string    `json:"display_name"`
	AvatarRef    string    `json:"avatar_url,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal projects the account onto the session identity.
func (u User) Principal() Principal {
	return Principal{ID: u.ID, Role: u.Role, DisplayName: u.DisplayName, Email: u.Email}
}
