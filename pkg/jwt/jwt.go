package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Inspect decodes an access token issued by the backend without verifying
// its signature. The client never holds the signing key; the server verifies
// the token on connect. Inspect only reads who the token belongs to.
func Inspect(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}

// Expired reports whether the claims carry an expiry before now.
// Tokens without exp never expire from the client's point of view.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return now.After(c.ExpiresAt.Time)
}

// SubjectOf is a convenience wrapper returning the sub claim of a token,
// or an error when it is missing or the token has already expired.
func SubjectOf(tokenString string, now time.Time) (string, error) {
	claims, err := Inspect(tokenString)
	if err != nil {
		return "", err
	}
	if claims.Expired(now) {
		return "", ErrTokenExpired
	}
	return claims.Subject, nil
}
