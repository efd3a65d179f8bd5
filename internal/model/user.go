// Package model defines domain entities for the application.
package model

import "time"

// Role is the authorization role assigned to a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// IsValid checks if the role is a known value.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a registered account.
// PasswordHash is never serialized to API responses.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// IsAdmin returns true if the user holds the ADMIN role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// AuthContext holds the resolved identity attached to a request
// after the auth middleware has verified the bearer token.
type AuthContext struct {
	UserID string
	Email  string
	Role   Role
}

// IsAdmin returns true if the authenticated principal holds the ADMIN role.
func (a *AuthContext) IsAdmin() bool {
	return a.Role == RoleAdmin
}
