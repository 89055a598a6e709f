package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"realtime-sync/internal/alert"
	"realtime-sync/internal/realtime"
	"realtime-sync/pkg/log"
)

// Server is the local status server.
type Server struct {
	config Config
	server *http.Server
}

// Config holds server configuration
type Config struct {
	Host     string
	Port     int
	Mode     string
	Logger   log.Logger
	Engine   realtime.UseCase
	Gatherer prometheus.Gatherer
	Alerts   alert.UseCase
}

// New creates a new Server instance
func New(cfg Config) *Server {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	router := gin.New()
	router.Use(Recovery(cfg.Logger, cfg.Alerts))
	setupRoutes(router, cfg)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	return &Server{
		config: cfg,
		server: server,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until Shutdown. http.ErrServerClosed is not an error.
func (s *Server) Start() error {
	s.config.Logger.Infof(context.Background(), "Starting status server on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.config.Logger.Info(ctx, "Shutting down status server...")
	return s.server.Shutdown(ctx)
}

func setupRoutes(router *gin.Engine, cfg Config) {
	router.GET("/health", func(c *gin.Context) {
		healthHandler(c, cfg.Logger, cfg.Engine)
	})

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}
