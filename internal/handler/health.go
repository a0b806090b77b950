package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health reports liveness of the service and its two backing stores.
// Degraded dependencies flip the status code to 503 so load balancers can
// react; no credentials or internals ever appear in the body.
func Health(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		postgres := "up"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			postgres = "down"
		}

		redisState := "up"
		if rdb.Ping(ctx).Err() != nil {
			redisState = "down"
		}

		status := http.StatusOK
		overall := "ok"
		if postgres != "up" || redisState != "up" {
			status = http.StatusServiceUnavailable
			overall = "degraded"
		}

		c.JSON(status, gin.H{
			"status":   overall,
			"postgres": postgres,
			"redis":    redisState,
		})
	}
}
