package jwt

import "errors"

var (
	ErrMissingToken   = errors.New("jwt: missing token")
	ErrMissingSubject = errors.New("jwt: missing sub claim")
	ErrTokenExpired   = errors.New("jwt: token expired")
)
