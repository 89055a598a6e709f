package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"realtime-sync/internal/connection"
	"realtime-sync/internal/realtime"
	"realtime-sync/pkg/log"
)

const statsTimeout = 2 * time.Second

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string          `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Uptime    int64           `json:"uptime_seconds"`
	Engine    *realtime.Stats `json:"engine,omitempty"`
	Error     string          `json:"error,omitempty"`
}

var startTime = time.Now()

// healthHandler reports "healthy" while connected, "degraded" while the
// connection is down or recovering, and 503 when the engine cannot answer.
func healthHandler(c *gin.Context, logger log.Logger, engine realtime.UseCase) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), statsTimeout)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Uptime:    int64(time.Since(startTime).Seconds()),
	}

	stats, err := engine.Stats(ctx)
	if err != nil {
		logger.Errorf(ctx, "Engine health check failed: %v", err)
		response.Status = "unavailable"
		response.Error = err.Error()
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	response.Engine = &stats
	if stats.Status != connection.StatusConnected.String() {
		response.Status = "degraded"
	}

	c.JSON(http.StatusOK, response)
}
