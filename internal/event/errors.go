package event

import "errors"

var (
	// ErrMalformedEnvelope is returned for frames that cannot be parsed or
	// lack the fields their tag requires. The frame is dropped.
	ErrMalformedEnvelope = errors.New("malformed envelope")

	// ErrMissingType is returned when the envelope has no type tag.
	ErrMissingType = errors.New("envelope type is missing")
)
