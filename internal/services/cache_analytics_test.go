package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheAnalytics_RecordHitAndMiss(t *testing.T) {
	analytics := NewCacheAnalyticsService(nil)

	analytics.RecordHit("fare_history")
	analytics.RecordHit("fare_history")
	analytics.RecordMiss("fare_history")

	stats := analytics.GetStats("fare_history")
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(3), stats.TotalOps)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 1e-9)
	assert.False(t, stats.LastUpdated.IsZero())

	overall := analytics.GetStats("overall")
	assert.Equal(t, int64(3), overall.TotalOps)
}

func TestCacheAnalytics_CategoriesIsolated(t *testing.T) {
	analytics := NewCacheAnalyticsService(nil)

	analytics.RecordHit("fare_history")
	analytics.RecordMiss("predictions")

	assert.Equal(t, int64(1), analytics.GetStats("fare_history").Hits)
	assert.Equal(t, int64(0), analytics.GetStats("fare_history").Misses)
	assert.Equal(t, int64(1), analytics.GetStats("predictions").Misses)
	assert.Equal(t, int64(2), analytics.GetStats("overall").TotalOps)

	all := analytics.GetAllStats()
	assert.Len(t, all, 3)
}

func TestCacheAnalytics_UnknownCategory(t *testing.T) {
	analytics := NewCacheAnalyticsService(nil)

	stats := analytics.GetStats("never_seen")
	assert.Equal(t, CacheStats{}, stats)
}

func TestCacheAnalytics_ResetStats(t *testing.T) {
	analytics := NewCacheAnalyticsService(nil)

	analytics.RecordHit("fare_history")
	analytics.ResetStats()

	assert.Empty(t, analytics.GetAllStats())
}

func TestCacheAnalytics_MetricsWithoutRedis(t *testing.T) {
	analytics := NewCacheAnalyticsService(nil).WithClock(func() time.Time { return fixedNow })

	analytics.RecordHit("fare_history")

	metrics, err := analytics.GetMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), metrics.Overall.Hits)
	assert.Contains(t, metrics.ByCategory, "fare_history")
	assert.Empty(t, metrics.RedisInfo)
	assert.Equal(t, "0 B", metrics.MemoryUsageHuman)
}

func TestParseRedisInfo(t *testing.T) {
	info := "# Memory\r\nused_memory:1024\r\nused_memory_human:1.00K\r\n\r\nconnected_clients:3\n"

	parsed := parseRedisInfo(info)
	assert.Equal(t, "1024", parsed["used_memory"])
	assert.Equal(t, "1.00K", parsed["used_memory_human"])
	assert.Equal(t, "3", parsed["connected_clients"])
	assert.NotContains(t, parsed, "# Memory")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 B", FormatBytes(0))
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.0 KB", FormatBytes(1024))
	assert.Equal(t, "1.5 KB", FormatBytes(1536))
	assert.Equal(t, "2.0 MB", FormatBytes(2*1024*1024))
	assert.Equal(t, "3.0 GB", FormatBytes(3*1024*1024*1024))
}
