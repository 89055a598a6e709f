package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"realtime-sync/config"
	redisConfig "realtime-sync/config/redis"
	"realtime-sync/internal/alert"
	alertUC "realtime-sync/internal/alert/usecase"
	"realtime-sync/internal/connection"
	"realtime-sync/internal/notification"
	"realtime-sync/internal/notification/cache"
	"realtime-sync/internal/realtime"
	wsDelivery "realtime-sync/internal/realtime/delivery/websocket"
	redisDelivery "realtime-sync/internal/realtime/delivery/redis"
	"realtime-sync/internal/realtime/usecase"
	"realtime-sync/internal/server"
	"realtime-sync/pkg/discord"
	"realtime-sync/pkg/jwt"
	"realtime-sync/pkg/log"
	pkgRedis "realtime-sync/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Failed to load config:", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := log.Init(log.ZapConfig{
		Level:        cfg.Logger.Level,
		Mode:         cfg.Logger.Mode,
		Encoding:     cfg.Logger.Encoding,
		ColorEnabled: cfg.Logger.ColorEnabled,
	})

	ctx := context.Background()
	logger.Info(ctx, "Starting realtime sync daemon...")

	if err := run(ctx, cfg, logger); err != nil {
		logger.Errorf(ctx, "Realtime sync daemon failed: %v", err)
		os.Exit(1)
	}
}

// run owns every resource with a deferred cleanup, so startup failures
// return through it instead of exiting past the defers.
func run(ctx context.Context, cfg *config.Config, logger log.Logger) error {
	var err error

	// Redis backs the notification cache and, optionally, the transport
	var redisClient pkgRedis.IRedis
	if cfg.Redis.Enabled {
		redisClient, err = redisConfig.Connect(cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer func() {
			if err := redisConfig.Disconnect(redisClient); err != nil {
				logger.Warnf(ctx, "Failed to close Redis: %v", err)
			}
		}()
		logger.Infof(ctx, "Redis connected successfully to %s:%d", cfg.Redis.Host, cfg.Redis.Port)
	}

	// Select transport
	var dialer connection.Dialer
	switch cfg.Transport.Kind {
	case config.TransportRedis:
		dialer = redisDelivery.New(redisClient, cfg.Transport.ChannelPrefix, logger)
	default:
		dialer = wsDelivery.New(wsDelivery.Config{
			URL:              cfg.Transport.URL,
			PingInterval:     cfg.Transport.PingInterval,
			PongWait:         cfg.Transport.PongWait,
			WriteWait:        cfg.Transport.WriteWait,
			HandshakeTimeout: cfg.Transport.HandshakeTimeout,
			MaxMessageSize:   cfg.Transport.MaxMessageSize,
		}, logger)
	}
	logger.Infof(ctx, "Using %s transport", cfg.Transport.Kind)

	token := cfg.Auth.AccessToken
	auth := connection.AuthFunc(func(ctx context.Context) (string, bool) {
		if _, err := jwt.SubjectOf(token, time.Now()); err != nil {
			if !errors.Is(err, jwt.ErrMissingToken) {
				logger.Warnf(ctx, "Access token unusable: %v", err)
			}
			return "", false
		}
		return token, true
	})
	identity := notification.IdentityFunc(func(context.Context) (string, bool) {
		sub, err := jwt.SubjectOf(token, time.Now())
		return sub, err == nil
	})

	var notifCache notification.Cache
	if redisClient != nil {
		notifCache = cache.NewRedisInvalidator(redisClient, cfg.Notification.CacheKeyPrefix, logger)
	}

	// Operator alerts are optional
	var alerts alert.UseCase
	if cfg.Alert.DiscordWebhookURL != "" {
		discordClient, err := discord.New(logger, discord.Config{
			WebhookURL: cfg.Alert.DiscordWebhookURL,
			Timeout:    cfg.Alert.Timeout,
			RetryCount: cfg.Alert.RetryCount,
		})
		if err != nil {
			return fmt.Errorf("init discord webhook: %w", err)
		}
		defer discordClient.Close()
		alerts = alertUC.New(logger, discordClient)
		logger.Info(ctx, "Discord alerts enabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	engine := usecase.New(logger, usecase.Deps{
		Dialer:     dialer,
		Auth:       auth,
		Identity:   identity,
		Cache:      notifCache,
		Notifier:   newLogNotifier(logger, cfg.Notification.OSEnabled),
		Registerer: registry,
	}, realtime.Options{
		SeenCapacity:               cfg.Sync.SeenCapacity,
		PendingTimeout:             cfg.Sync.PendingTimeout,
		MaxMessagesPerConversation: cfg.Sync.MaxMessagesPerConversation,
		ActiveConversationID:       cfg.Sync.ActiveConversationID,
		Connection: connection.Options{
			ReconnectBase: cfg.Sync.ReconnectBase,
			ReconnectCap:  cfg.Sync.ReconnectCap,
			JitterPercent: cfg.Sync.ReconnectJitterPercent,
			OutboxSize:    cfg.Sync.OutboxSize,
		},
		Notification: notification.Options{
			OSEnabled:       cfg.Notification.OSEnabled,
			OSRate:          cfg.Notification.OSRate,
			OSBurst:         cfg.Notification.OSBurst,
			LogoutCountdown: cfg.Notification.LogoutCountdown,
		},
	}, logCallbacks(logger, alerts, identity))

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	engineDone := make(chan error, 1)
	go func() { engineDone <- engine.Run(runCtx) }()
	logger.Info(ctx, "Realtime engine running")

	// Setup status server
	srv := server.New(server.Config{
		Host:     cfg.Server.Host,
		Port:     cfg.Server.Port,
		Mode:     cfg.Server.Mode,
		Logger:   logger,
		Engine:   engine,
		Gatherer: registry,
		Alerts:   alerts,
	})
	go func() {
		if err := srv.Start(); err != nil {
			logger.Errorf(ctx, "Status server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-engineDone:
		logger.Errorf(ctx, "Realtime engine exited: %v", err)
	}

	logger.Info(ctx, "Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := engine.Shutdown(shutdownCtx); err != nil {
		logger.Errorf(ctx, "Error shutting down engine: %v", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf(ctx, "Error shutting down status server: %v", err)
	}

	logger.Info(ctx, "Shutdown complete")
	return nil
}
