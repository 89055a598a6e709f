package redis

import (
	"context"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"realtime-sync/internal/connection"
	"realtime-sync/pkg/log"
	pkgRedis "realtime-sync/pkg/redis"
)

const opTimeout = 5 * time.Second

type session struct {
	redis  pkgRedis.IRedis
	pubsub *goredis.PubSub
	prefix string
	logger log.Logger

	frames    chan connection.Frame
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

// RedisChannel maps a channel key to its Redis channel.
func RedisChannel(prefix, key string) string {
	return prefix + key
}

// ChannelKey maps a Redis channel back to its key.
func ChannelKey(prefix, redisChannel string) (string, bool) {
	return strings.CutPrefix(redisChannel, prefix)
}

func (s *session) Subscribe(channel string) error {
	if s.closed() {
		return connection.ErrSessionClosed
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return s.pubsub.Subscribe(ctx, RedisChannel(s.prefix, channel))
}

func (s *session) Unsubscribe(channel string) error {
	if s.closed() {
		return connection.ErrSessionClosed
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return s.pubsub.Unsubscribe(ctx, RedisChannel(s.prefix, channel))
}

func (s *session) Publish(channel string, payload []byte) error {
	if s.closed() {
		return connection.ErrSessionClosed
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return s.redis.Publish(ctx, RedisChannel(s.prefix, channel), payload)
}

func (s *session) Frames() <-chan connection.Frame {
	return s.frames
}

func (s *session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}

func (s *session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// listen forwards pub/sub messages until the PubSub is closed.
func (s *session) listen() {
	defer close(s.frames)

	ch := s.pubsub.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-ch:
			if !ok {
				s.mu.Lock()
				if s.err == nil && !s.closed() {
					s.err = connection.ErrSessionClosed
				}
				s.mu.Unlock()
				s.logger.Warnf(context.Background(), "redis transport: pubsub channel closed")
				return
			}
			key, ok := ChannelKey(s.prefix, msg.Channel)
			if !ok {
				continue
			}
			select {
			case s.frames <- connection.Frame{Channel: key, Payload: []byte(msg.Payload)}:
			case <-s.done:
				return
			}
		}
	}
}
