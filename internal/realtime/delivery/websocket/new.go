// Package websocket is the gorilla/websocket transport for the connection
// manager. Channels are multiplexed over one socket with JSON control frames.
package websocket

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"realtime-sync/internal/connection"
	"realtime-sync/pkg/log"
)

const (
	defaultPingInterval   = 30 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultWriteWait      = 10 * time.Second
	defaultMaxMessageSize = 64 * 1024
	sendBuffer            = 256
	frameBuffer           = 256
)

type Config struct {
	URL              string
	PingInterval     time.Duration
	PongWait         time.Duration
	WriteWait        time.Duration
	HandshakeTimeout time.Duration
	MaxMessageSize   int64
}

type dialer struct {
	cfg    Config
	ws     *websocket.Dialer
	logger log.Logger
}

// New returns a connection.Dialer that opens websocket sessions.
func New(cfg Config, logger log.Logger) connection.Dialer {
	if cfg.PongWait <= 0 {
		cfg.PongWait = defaultPongWait
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongWait {
		cfg.PingInterval = min(defaultPingInterval, cfg.PongWait*9/10)
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = defaultWriteWait
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}

	ws := *websocket.DefaultDialer
	if cfg.HandshakeTimeout > 0 {
		ws.HandshakeTimeout = cfg.HandshakeTimeout
	}
	return &dialer{cfg: cfg, ws: &ws, logger: logger}
}

// Dial opens the socket, sending token as a Bearer credential.
func (d *dialer) Dial(ctx context.Context, token string) (connection.Session, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := d.ws.DialContext(ctx, d.cfg.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", d.cfg.URL, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", d.cfg.URL, err)
	}

	s := newSession(conn, d.cfg, d.logger)
	s.start()
	d.logger.Infof(ctx, "websocket: connected to %s", d.cfg.URL)
	return s, nil
}
