package routes

import (
	"context"
	"net/http"
	"time"

	"listings-cms/internal/logger"
	"listings-cms/utils"

	"github.com/gin-gonic/gin"
)

// PingFunc checks one backing service.
type PingFunc func(ctx context.Context) error

// SetupSystemRoutes mounts /health and the /api/test connectivity check.
func SetupSystemRoutes(router *gin.Engine, api *gin.RouterGroup, mongoPing PingFunc, checks map[string]PingFunc) {
	router.GET("/health", handleHealth(checks))
	api.GET("/test", handleMongoPing(mongoPing))
}

func handleHealth(checks map[string]PingFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithShortTimeout(c.Request.Context())
		defer cancel()

		components := gin.H{}
		healthy := true
		for name, ping := range checks {
			if err := ping(ctx); err != nil {
				components[name] = "unavailable"
				healthy = false
				continue
			}
			components[name] = "ok"
		}

		status := "healthy"
		if !healthy {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     status,
			"timestamp":  time.Now().UTC(),
			"components": components,
		})
	}
}

func handleMongoPing(ping PingFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		if err := ping(ctx); err != nil {
			logger.Error("MongoDB connection error", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Failed to connect to MongoDB",
				"details": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Successfully connected to MongoDB!",
		})
	}
}
