// Package redis is a Redis pub/sub transport for the connection manager,
// used for local bridges and integration runs. Channel keys map to Redis
// channels <prefix><key>.
package redis

import (
	"context"
	"fmt"

	"realtime-sync/internal/connection"
	"realtime-sync/pkg/log"
	pkgRedis "realtime-sync/pkg/redis"
)

const frameBuffer = 256

type dialer struct {
	redis  pkgRedis.IRedis
	prefix string
	logger log.Logger
}

// New returns a connection.Dialer over an existing Redis client. The token
// is not used; Redis authenticates at the client level.
func New(redis pkgRedis.IRedis, prefix string, logger log.Logger) connection.Dialer {
	return &dialer{redis: redis, prefix: prefix, logger: logger}
}

func (d *dialer) Dial(ctx context.Context, _ string) (connection.Session, error) {
	if _, err := d.redis.Ping(ctx); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ps := d.redis.Subscribe(ctx)
	s := &session{
		redis:  d.redis,
		pubsub: ps,
		prefix: d.prefix,
		logger: d.logger,
		frames: make(chan connection.Frame, frameBuffer),
		done:   make(chan struct{}),
	}
	go s.listen()
	d.logger.Infof(ctx, "redis transport: connected, channel prefix %q", d.prefix)
	return s, nil
}
