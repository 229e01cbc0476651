package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        User      `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	Email        string   `json:"email"`
	Role         UserRole `json:"role"`
	FullName     string   `json:"full_name"`
	IsSuperAdmin bool     `json:"is_super_admin,omitempty"`
	jwt.RegisteredClaims
}

// Actor identifies the authenticated caller of a service operation.
type Actor struct {
	Email string
	Role  UserRole
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Actor returns the caller encoded in the token.
func (c *JWTClaims) Actor() Actor {
	return Actor{Email: c.Email, Role: c.Role}
}
