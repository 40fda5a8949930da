package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sendeeapp/sendee-backend/internal/models"
	"github.com/sendeeapp/sendee-backend/internal/services"
	"gorm.io/gorm"
)

func Home() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service": "sendee-backend",
			"status":  "running",
		})
	}
}

func HealthCheck(db *gorm.DB, cache *services.ProjectionCache, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		dbStatus := "ok"
		sqlDB, err := db.DB()
		if err != nil {
			dbStatus = "error: " + err.Error()
		} else if err := sqlDB.PingContext(ctx); err != nil {
			dbStatus = "error: " + err.Error()
		}

		status := 200
		if dbStatus != "ok" {
			status = 503
		}

		storage := "local"
		if services.IsUsingS3() {
			storage = "s3"
		}

		c.JSON(status, gin.H{
			"database":         dbStatus,
			"cache":            cache.Stats(ctx),
			"websocketClients": hub.GetConnectedClients(),
			"storage":          storage,
		})
	}
}

// LocationHealthCheck probes the pieces the live-tracking path depends on:
// the rider_locations table and the Redis copy of the fixes.
func LocationHealthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var activeRiders int64
		if err := db.WithContext(ctx).Model(&models.RiderLocation{}).Count(&activeRiders).Error; err != nil {
			c.JSON(503, gin.H{
				"status":  "unhealthy",
				"service": "location",
				"error":   err.Error(),
			})
			return
		}

		if err := services.RedisClient.Ping(ctx).Err(); err != nil {
			c.JSON(503, gin.H{
				"status":  "unhealthy",
				"service": "location",
				"error":   err.Error(),
			})
			return
		}

		c.JSON(200, gin.H{
			"status":       "healthy",
			"service":      "location",
			"activeRiders": activeRiders,
		})
	}
}
