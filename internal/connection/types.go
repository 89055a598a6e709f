package connection

import (
	"context"
	"time"
)

// Status is the connection lifecycle state.
type Status int32

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Frame is one raw payload received on (or sent to) a channel.
type Frame struct {
	Channel string
	Payload []byte
}

// Session is one live transport connection. Subscriptions do not outlive it.
type Session interface {
	Subscribe(channel string) error
	Unsubscribe(channel string) error
	Publish(channel string, payload []byte) error
	// Frames is closed when the session ends for any reason.
	Frames() <-chan Frame
	// Err reports why Frames was closed, nil after a clean Close.
	Err() error
	// Close is idempotent.
	Close() error
}

// Dialer opens sessions authenticated with token.
type Dialer interface {
	Dial(ctx context.Context, token string) (Session, error)
}

// AuthProvider yields the current access token, if any.
type AuthProvider interface {
	AccessToken(ctx context.Context) (string, bool)
}

// AuthFunc adapts a function to AuthProvider.
type AuthFunc func(ctx context.Context) (string, bool)

func (f AuthFunc) AccessToken(ctx context.Context) (string, bool) {
	return f(ctx)
}

// StaticToken is an AuthProvider that always returns the same token.
type StaticToken string

func (t StaticToken) AccessToken(context.Context) (string, bool) {
	return string(t), t != ""
}

// Listener receives session lifecycle and inbound frames. All calls come
// from the manager goroutine, in order.
type Listener interface {
	OnConnected(ctx context.Context, sess Session)
	OnFrame(ctx context.Context, frame Frame)
	OnDisconnected(ctx context.Context, cause error)
}

// Options tunes reconnects and the outbox.
type Options struct {
	ReconnectBase time.Duration
	ReconnectCap  time.Duration
	JitterPercent int
	OutboxSize    int
	// OnStatus, when set, is called after every status change.
	OnStatus func(Status)
}

const (
	DefaultReconnectBase = time.Second
	DefaultReconnectCap  = 30 * time.Second
	DefaultJitterPercent = 25
	DefaultOutboxSize    = 100
)

func (o Options) withDefaults() Options {
	if o.ReconnectBase <= 0 {
		o.ReconnectBase = DefaultReconnectBase
	}
	if o.ReconnectCap < o.ReconnectBase {
		o.ReconnectCap = max(DefaultReconnectCap, o.ReconnectBase)
	}
	if o.JitterPercent <= 0 {
		o.JitterPercent = DefaultJitterPercent
	}
	if o.OutboxSize <= 0 {
		o.OutboxSize = DefaultOutboxSize
	}
	return o
}
