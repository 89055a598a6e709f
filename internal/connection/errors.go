package connection

import "errors"

var (
	ErrMissingToken  = errors.New("connection: no access token")
	ErrOutboxFull    = errors.New("connection: outbox full")
	ErrSessionClosed = errors.New("connection: session closed")
	ErrTornDown      = errors.New("connection: torn down")
)
