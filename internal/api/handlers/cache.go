package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/faresight/faresight-go/internal/cache"
	"github.com/faresight/faresight-go/internal/services"
)

// CacheAnalyticsInterface defines the interface for cache analytics operations
type CacheAnalyticsInterface interface {
	GetStats(category string) services.CacheStats
	GetAllStats() map[string]services.CacheStats
	GetMetrics(ctx context.Context) (*services.CacheMetrics, error)
	ResetStats()
}

// ResponseCacheInterface is the slice of the response cache the handler uses.
type ResponseCacheInterface interface {
	Stats() cache.Stats
	Clear(ctx context.Context) int
	ClearExpired(ctx context.Context) int
}

// CacheHandler serves cache monitoring and maintenance endpoints.
type CacheHandler struct {
	analytics     CacheAnalyticsInterface
	responseCache ResponseCacheInterface
}

// NewCacheHandler creates a cache handler.
func NewCacheHandler(analytics CacheAnalyticsInterface, responseCache ResponseCacheInterface) *CacheHandler {
	return &CacheHandler{
		analytics:     analytics,
		responseCache: responseCache,
	}
}

// GetStats returns counters from the response cache plus per-category
// analytics.
func (h *CacheHandler) GetStats(c *gin.Context) {
	stats := h.responseCache.Stats()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"cache":       stats,
			"bytes_human": services.FormatBytes(stats.Bytes),
			"by_category": h.analytics.GetAllStats(),
		},
	})
}

// GetMetrics returns comprehensive metrics including Redis keyspace details
// when Redis backs the cache.
func (h *CacheHandler) GetMetrics(c *gin.Context) {
	metrics, err := h.analytics.GetMetrics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to get cache metrics: " + err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    metrics,
	})
}

// Clear removes all cached responses. With ?expired_only=true only stale
// entries are swept.
func (h *CacheHandler) Clear(c *gin.Context) {
	var removed int
	if c.Query("expired_only") == "true" {
		removed = h.responseCache.ClearExpired(c.Request.Context())
	} else {
		removed = h.responseCache.Clear(c.Request.Context())
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"removed": removed,
	})
}
