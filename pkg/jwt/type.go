package jwt

import "github.com/golang-jwt/jwt/v5"

// Claims are the access-token claims the sync client cares about.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}
