package event

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"realtime-sync/internal/models"
)

// Decode parses a raw frame received on channel into an Envelope.
// Frames that are not JSON objects or carry no type are rejected.
func Decode(channel string, raw []byte) (models.Envelope, error) {
	if !gjson.ValidBytes(raw) {
		return models.Envelope{}, fmt.Errorf("%w: invalid json", ErrMalformedEnvelope)
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return models.Envelope{}, fmt.Errorf("%w: not an object", ErrMalformedEnvelope)
	}

	tag := root.Get("type")
	if tag.Type != gjson.String || tag.Str == "" {
		return models.Envelope{}, fmt.Errorf("%w: %w", ErrMalformedEnvelope, ErrMissingType)
	}

	data := root.Get("data")
	switch {
	case !data.Exists() || data.Type == gjson.Null:
		data = gjson.Parse("{}")
	case !data.IsObject():
		return models.Envelope{}, fmt.Errorf("%w: data is not an object", ErrMalformedEnvelope)
	}

	return models.Envelope{
		Type:          tag.Str,
		OriginChannel: channel,
		Data:          json.RawMessage(data.Raw),
	}, nil
}
