package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStats represents cache statistics for one category
type CacheStats struct {
	Hits        int64     `json:"hits"`
	Misses      int64     `json:"misses"`
	HitRate     float64   `json:"hit_rate"`
	TotalOps    int64     `json:"total_ops"`
	LastUpdated time.Time `json:"last_updated"`
}

// CacheMetrics represents detailed cache metrics by category
type CacheMetrics struct {
	Overall          CacheStats            `json:"overall"`
	ByCategory       map[string]CacheStats `json:"by_category"`
	RedisInfo        map[string]string     `json:"redis_info,omitempty"`
	MemoryUsage      int64                 `json:"memory_usage_bytes"`
	MemoryUsageHuman string                `json:"memory_usage_human"`
	ConnectedClients int64                 `json:"connected_clients"`
	KeyCount         int64                 `json:"key_count"`
}

// CacheAnalyticsService tracks fare cache performance by category. It
// implements the cache package's Recorder interface so the response cache
// can report hits and misses without importing this package. The Redis
// client is optional; without it metrics cover counters only.
type CacheAnalyticsService struct {
	redisClient *redis.Client
	stats       map[string]*CacheStats
	mu          sync.RWMutex
	now         func() time.Time
}

// NewCacheAnalyticsService creates a new cache analytics service. redisClient
// may be nil when the cache runs on the in-memory store.
func NewCacheAnalyticsService(redisClient *redis.Client) *CacheAnalyticsService {
	return &CacheAnalyticsService{
		redisClient: redisClient,
		stats:       make(map[string]*CacheStats),
		now:         time.Now,
	}
}

// WithClock overrides the time source for tests.
func (c *CacheAnalyticsService) WithClock(now func() time.Time) *CacheAnalyticsService {
	c.now = now
	return c
}

// RecordHit records a cache hit for the given category
func (c *CacheAnalyticsService) RecordHit(category string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(category, true)
	c.record("overall", true)
}

// RecordMiss records a cache miss for the given category
func (c *CacheAnalyticsService) RecordMiss(category string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(category, false)
	c.record("overall", false)
}

// record updates one category's counters. Caller holds the lock.
func (c *CacheAnalyticsService) record(category string, hit bool) {
	stats := c.stats[category]
	if stats == nil {
		stats = &CacheStats{}
		c.stats[category] = stats
	}
	if hit {
		stats.Hits++
	} else {
		stats.Misses++
	}
	stats.TotalOps++
	stats.HitRate = float64(stats.Hits) / float64(stats.TotalOps)
	stats.LastUpdated = c.now()
}

// GetStats returns cache statistics for a specific category
func (c *CacheAnalyticsService) GetStats(category string) CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if stats, exists := c.stats[category]; exists {
		return *stats
	}
	return CacheStats{}
}

// GetAllStats returns all cache statistics
func (c *CacheAnalyticsService) GetAllStats() map[string]CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]CacheStats)
	for category, stats := range c.stats {
		result[category] = *stats
	}
	return result
}

// GetMetrics returns comprehensive cache metrics, including Redis keyspace
// details when a Redis client is configured.
func (c *CacheAnalyticsService) GetMetrics(ctx context.Context) (*CacheMetrics, error) {
	allStats := c.GetAllStats()

	metrics := &CacheMetrics{
		ByCategory: allStats,
	}
	if overall, exists := allStats["overall"]; exists {
		metrics.Overall = overall
	}

	if c.redisClient != nil {
		redisInfo, err := c.redisClient.Info(ctx, "memory", "clients", "keyspace").Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read redis info: %w", err)
		}
		metrics.RedisInfo = parseRedisInfo(redisInfo)

		memoryUsage, _ := c.redisClient.MemoryUsage(ctx, "*").Result()
		metrics.MemoryUsage = memoryUsage

		clientList, _ := c.redisClient.ClientList(ctx).Result()
		metrics.ConnectedClients = int64(len(clientList))

		keyCount, _ := c.redisClient.DBSize(ctx).Result()
		metrics.KeyCount = keyCount
	}
	metrics.MemoryUsageHuman = FormatBytes(metrics.MemoryUsage)

	return metrics, nil
}

// parseRedisInfo parses Redis INFO command output
func parseRedisInfo(info string) map[string]string {
	result := make(map[string]string)

	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) == 2 {
			result[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return result
}

// FormatBytes renders a byte count as a human readable string.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// ResetStats resets all cache statistics
func (c *CacheAnalyticsService) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = make(map[string]*CacheStats)
}

// StartPeriodicReporting snapshots cache stats to Redis on an interval so
// hit rates survive restarts. No-op without a Redis client.
func (c *CacheAnalyticsService) StartPeriodicReporting(ctx context.Context, interval time.Duration) {
	if c.redisClient == nil {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.reportStats(ctx)
			}
		}
	}()
}

// reportStats reports current stats to Redis for persistence
func (c *CacheAnalyticsService) reportStats(ctx context.Context) {
	allStats := c.GetAllStats()
	statsJSON, err := json.Marshal(allStats)
	if err != nil {
		return
	}

	c.redisClient.Set(ctx, "fare_cache:analytics:stats", statsJSON, 24*time.Hour)
}
