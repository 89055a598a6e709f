package realtime

import "errors"

var (
	ErrStopped         = errors.New("engine stopped")
	ErrAlreadyRunning  = errors.New("engine already running")
	ErrFieldRequired   = errors.New("field required")
	ErrUnknownIdentity = errors.New("unknown identity")
)
