package services

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/faresight/faresight-go/internal/logging"
)

// ResourceSnapshot captures host and process resource usage at one instant.
type ResourceSnapshot struct {
	Timestamp     time.Time `json:"timestamp"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	MemoryUsed    uint64    `json:"memory_used_bytes"`
	Goroutines    int       `json:"goroutines"`
}

// ResourceMonitor samples CPU, memory and goroutine counts for the health
// endpoint and periodic log reporting.
type ResourceMonitor struct {
	logger logging.Logger
	mu     sync.RWMutex
	latest ResourceSnapshot
}

// NewResourceMonitor creates a resource monitor.
func NewResourceMonitor(logger logging.Logger) *ResourceMonitor {
	return &ResourceMonitor{logger: logger}
}

// Sample collects a fresh snapshot and stores it as the latest reading.
func (m *ResourceMonitor) Sample(ctx context.Context) (ResourceSnapshot, error) {
	snapshot := ResourceSnapshot{
		Timestamp:  time.Now(),
		Goroutines: runtime.NumGoroutine(),
	}

	cpuPercent, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return snapshot, fmt.Errorf("failed to get CPU usage: %w", err)
	}
	if len(cpuPercent) > 0 {
		snapshot.CPUPercent = cpuPercent[0]
	}

	memInfo, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return snapshot, fmt.Errorf("failed to get memory usage: %w", err)
	}
	snapshot.MemoryPercent = memInfo.UsedPercent
	snapshot.MemoryUsed = memInfo.Used

	m.mu.Lock()
	m.latest = snapshot
	m.mu.Unlock()
	return snapshot, nil
}

// Latest returns the most recent snapshot. Zero value until the first Sample.
func (m *ResourceMonitor) Latest() ResourceSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

// Start samples on an interval and logs each reading until the context ends.
func (m *ResourceMonitor) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				snapshot, err := m.Sample(ctx)
				if err != nil {
					m.logger.WithError(err).Warn("Resource sampling failed")
					continue
				}
				m.logger.LogResourceStats("faresight", map[string]interface{}{
					"cpu_percent":       snapshot.CPUPercent,
					"memory_percent":    snapshot.MemoryPercent,
					"memory_used_bytes": snapshot.MemoryUsed,
					"goroutines":        snapshot.Goroutines,
				})
			}
		}
	}()
}
