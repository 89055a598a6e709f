package server

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"

	"realtime-sync/internal/alert"
	"realtime-sync/pkg/log"
)

// Recovery turns a handler panic into a 500 and reports it when alerts is set.
func Recovery(logger log.Logger, alerts alert.UseCase) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				ctx := c.Request.Context()
				logger.Errorf(ctx, "Panic recovered: %v | Method: %s | Path: %s",
					err, c.Request.Method, c.Request.URL.Path)

				if alerts != nil {
					input := alert.PanicInput{
						Method: c.Request.Method,
						Path:   c.Request.URL.Path,
						Value:  err,
						Stack:  string(debug.Stack()),
						At:     time.Now(),
					}
					go func() {
						ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
						defer cancel()
						_ = alerts.DispatchPanic(ctx, input)
					}()
				}

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}
