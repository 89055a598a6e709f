package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtime-sync/internal/models"
)

func TestDecode(t *testing.T) {
	env, err := Decode(models.ChannelBroadcastSupport, []byte(`{"type":"message.created","data":{"id":"m1"}}`))
	require.NoError(t, err)
	assert.Equal(t, models.TagMessageCreated, env.Type)
	assert.Equal(t, models.ChannelBroadcastSupport, env.OriginChannel)
	assert.JSONEq(t, `{"id":"m1"}`, string(env.Data))
}

func TestDecodeMissingData(t *testing.T) {
	env, err := Decode(models.ChannelPersonalNotifications, []byte(`{"type":"PING"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(env.Data))
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: `{"type":`},
		{name: "array", raw: `[1,2]`},
		{name: "missing type", raw: `{"data":{}}`},
		{name: "empty type", raw: `{"type":"","data":{}}`},
		{name: "numeric type", raw: `{"type":5,"data":{}}`},
		{name: "data not object", raw: `{"type":"message.created","data":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(models.ChannelBroadcastSupport, []byte(tt.raw))
			assert.ErrorIs(t, err, ErrMalformedEnvelope)
		})
	}
}
