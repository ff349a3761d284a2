package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/faresight/faresight-go/internal/api/handlers"
	"github.com/faresight/faresight-go/internal/config"
	"github.com/faresight/faresight-go/internal/logging"
)

// Handlers bundles the endpoint handlers wired by SetupRoutes.
type Handlers struct {
	Health       *handlers.HealthHandler
	Prediction   *handlers.PredictionHandler
	Segmentation *handlers.SegmentationHandler
	Cache        *handlers.CacheHandler
}

// SetupRoutes registers middleware and every route on the router.
func SetupRoutes(router *gin.Engine, cfg config.ServerConfig, logger logging.Logger, h Handlers) {
	router.Use(cors.New(corsConfig(cfg)))
	router.Use(requestLogger(logger))

	router.GET("/health", h.Health.Health)

	v1 := router.Group("/api/v1")
	{
		predictions := v1.Group("/predictions")
		{
			predictions.GET("", h.Prediction.GetPredictions)
		}

		segmentation := v1.Group("/segmentation")
		{
			segmentation.POST("/classify", h.Segmentation.Classify)
		}

		cacheGroup := v1.Group("/cache")
		{
			cacheGroup.GET("/stats", h.Cache.GetStats)
			cacheGroup.GET("/metrics", h.Cache.GetMetrics)
			cacheGroup.DELETE("", h.Cache.Clear)
		}
	}
}

func corsConfig(cfg config.ServerConfig) cors.Config {
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}
	return cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           86400,
	}
}

// requestLogger emits one structured line per request.
func requestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.LogAPIRequest(
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start).Milliseconds(),
		)
	}
}
