package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/faresight/faresight-go/internal/services"
)

// Pinger is anything that can report reachability, such as the Redis client
// or the fare aggregator client.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// HealthResponse reports overall service health and per-dependency status.
type HealthResponse struct {
	Status    string                    `json:"status"`
	Timestamp time.Time                 `json:"timestamp"`
	Version   string                    `json:"version"`
	Services  map[string]string         `json:"services"`
	Resources services.ResourceSnapshot `json:"resources"`
}

// HealthHandler serves the liveness and dependency health endpoint.
type HealthHandler struct {
	version      string
	dependencies map[string]Pinger
	monitor      *services.ResourceMonitor
}

// NewHealthHandler creates a health handler. dependencies maps a display name
// to its checker; nil checkers are skipped.
func NewHealthHandler(version string, dependencies map[string]Pinger, monitor *services.ResourceMonitor) *HealthHandler {
	return &HealthHandler{
		version:      version,
		dependencies: dependencies,
		monitor:      monitor,
	}
}

// Health returns 200 when every dependency responds, 503 when degraded.
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.version,
		Services:  make(map[string]string),
	}

	for name, dependency := range h.dependencies {
		if dependency == nil {
			continue
		}
		if err := dependency.HealthCheck(c.Request.Context()); err != nil {
			response.Services[name] = "error"
			response.Status = "degraded"
			continue
		}
		response.Services[name] = "ok"
	}

	if h.monitor != nil {
		response.Resources = h.monitor.Latest()
	}

	statusCode := http.StatusOK
	if response.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, response)
}
