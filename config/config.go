package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

// Transport kinds accepted in TRANSPORT_KIND.
const (
	TransportWebSocket = "websocket"
	TransportRedis     = "redis"
)

type Config struct {
	// Status Server Configuration
	Server ServerConfig
	Logger LoggerConfig

	// Connection Configuration
	Transport TransportConfig
	Redis     RedisConfig
	Auth      AuthConfig

	// Engine Configuration
	Sync         SyncConfig
	Notification NotificationConfig

	// Operator Alerts
	Alert AlertConfig
}

// ServerConfig is the configuration for the local status server (/health, /metrics)
type ServerConfig struct {
	Host string `env:"STATUS_HOST" envDefault:"127.0.0.1"`
	Port int    `env:"STATUS_PORT" envDefault:"8090"`
	Mode string `env:"STATUS_MODE" envDefault:"release"`
}

// LoggerConfig is the configuration for the logger
type LoggerConfig struct {
	Level        string `env:"LOGGER_LEVEL" envDefault:"info"`
	Mode         string `env:"LOGGER_MODE" envDefault:"production"`
	Encoding     string `env:"LOGGER_ENCODING" envDefault:"json"`
	ColorEnabled bool   `env:"LOGGER_COLOR_ENABLED" envDefault:"true"`
}

// TransportConfig selects and tunes the push connection
type TransportConfig struct {
	Kind             string        `env:"TRANSPORT_KIND" envDefault:"websocket"`
	URL              string        `env:"WS_URL" envDefault:"ws://localhost:8081/ws"`
	PingInterval     time.Duration `env:"WS_PING_INTERVAL" envDefault:"30s"`
	PongWait         time.Duration `env:"WS_PONG_WAIT" envDefault:"60s"`
	WriteWait        time.Duration `env:"WS_WRITE_WAIT" envDefault:"10s"`
	HandshakeTimeout time.Duration `env:"WS_HANDSHAKE_TIMEOUT" envDefault:"10s"`
	MaxMessageSize   int64         `env:"WS_MAX_MESSAGE_SIZE" envDefault:"65536"`
	ChannelPrefix    string        `env:"REDIS_CHANNEL_PREFIX" envDefault:"sync:"`
}

// RedisConfig is the configuration for Redis
// Note: Only standalone mode is supported
type RedisConfig struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	UseTLS   bool   `env:"REDIS_USE_TLS" envDefault:"false"`
	Enabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`

	// Connection pool settings
	MaxRetries      int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	MinIdleConns    int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	PoolSize        int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	PoolTimeout     time.Duration `env:"REDIS_POOL_TIMEOUT" envDefault:"4s"`
	ConnMaxIdleTime time.Duration `env:"REDIS_CONN_MAX_IDLE_TIME" envDefault:"5m"`
	ConnMaxLifetime time.Duration `env:"REDIS_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// AuthConfig holds the credential handed to the connection manager
type AuthConfig struct {
	AccessToken string `env:"AUTH_ACCESS_TOKEN"`
}

// SyncConfig tunes dedup, optimistic sends and reconnects
type SyncConfig struct {
	SeenCapacity               int           `env:"SYNC_SEEN_CAPACITY" envDefault:"300"`
	PendingTimeout             time.Duration `env:"SYNC_PENDING_TIMEOUT" envDefault:"30s"`
	MaxMessagesPerConversation int           `env:"SYNC_MAX_MESSAGES_PER_CONVERSATION" envDefault:"200"`
	ReconnectBase              time.Duration `env:"SYNC_RECONNECT_BASE" envDefault:"1s"`
	ReconnectCap               time.Duration `env:"SYNC_RECONNECT_CAP" envDefault:"30s"`
	ReconnectJitterPercent     int           `env:"SYNC_RECONNECT_JITTER_PERCENT" envDefault:"25"`
	OutboxSize                 int           `env:"SYNC_OUTBOX_SIZE" envDefault:"100"`
	ActiveConversationID       string        `env:"SYNC_ACTIVE_CONVERSATION"`
}

// NotificationConfig tunes the notification gate side effects
type NotificationConfig struct {
	OSEnabled       bool          `env:"NOTIFY_OS_ENABLED" envDefault:"true"`
	OSRate          float64       `env:"NOTIFY_OS_RATE" envDefault:"1"`
	OSBurst         int           `env:"NOTIFY_OS_BURST" envDefault:"3"`
	LogoutCountdown time.Duration `env:"NOTIFY_LOGOUT_COUNTDOWN" envDefault:"5s"`
	CacheKeyPrefix  string        `env:"NOTIFY_CACHE_KEY_PREFIX" envDefault:"notifications:"`
}

// AlertConfig enables operator alerts through a Discord webhook
type AlertConfig struct {
	DiscordWebhookURL string        `env:"DISCORD_WEBHOOK_URL"`
	Timeout           time.Duration `env:"DISCORD_TIMEOUT" envDefault:"10s"`
	RetryCount        int           `env:"DISCORD_RETRY_COUNT" envDefault:"2"`
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.Transport.Kind {
	case TransportWebSocket:
		if cfg.Transport.URL == "" {
			return fmt.Errorf("WS_URL is required for the websocket transport")
		}
	case TransportRedis:
		if !cfg.Redis.Enabled {
			return fmt.Errorf("REDIS_ENABLED must be true for the redis transport")
		}
	default:
		return fmt.Errorf("unknown TRANSPORT_KIND %q", cfg.Transport.Kind)
	}

	if cfg.Redis.Enabled {
		if cfg.Redis.Host == "" {
			return fmt.Errorf("REDIS_HOST is required")
		}
		if cfg.Redis.Port <= 0 || cfg.Redis.Port > 65535 {
			return fmt.Errorf("REDIS_PORT is invalid")
		}
	}

	if cfg.Sync.SeenCapacity <= 0 {
		return fmt.Errorf("SYNC_SEEN_CAPACITY must be positive")
	}
	if cfg.Sync.PendingTimeout < 0 {
		return fmt.Errorf("SYNC_PENDING_TIMEOUT must not be negative")
	}
	if cfg.Sync.ReconnectBase <= 0 || cfg.Sync.ReconnectCap < cfg.Sync.ReconnectBase {
		return fmt.Errorf("SYNC_RECONNECT_CAP must be >= SYNC_RECONNECT_BASE > 0")
	}

	return nil
}
