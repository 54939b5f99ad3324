package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/gigboard/internal/models"
)

// Database is what the health endpoints inspect.
type Database interface {
	Ping(ctx context.Context) error
	DatabaseName() string
	CountCollections(ctx context.Context) (int, error)
}

func Health(db Database, environment string, startedAt time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status, dbState, code := "OK", "connected", http.StatusOK
		if err := db.Ping(ctx); err != nil {
			status, dbState, code = "DEGRADED", "disconnected", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":      status,
			"service":     "gigboard-api",
			"environment": environment,
			"uptime":      time.Since(startedAt).Round(time.Second).String(),
			"timestamp":   time.Now().UTC(),
			"database":    dbState,
		})
	}
}

func DatabaseHealth(db Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, models.ErrorResponse("Database connection failed", err.Error()))
			return
		}
		count, err := db.CountCollections(ctx)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, models.ErrorResponse("Database connection failed", err.Error()))
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{
			"database":    db.DatabaseName(),
			"collections": count,
		}, "Database connection healthy"))
	}
}
