package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is anything the health check can probe
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// HealthHandler reports database and cache health
type HealthHandler struct {
	db      Pinger
	cache   Pinger
	version string
}

// NewHealthHandler creates a new HealthHandler. cache may be nil when Redis is not configured.
func NewHealthHandler(db Pinger, cache Pinger, version string) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, version: version}
}

// Health pings the dependencies with a short timeout
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{
		"status":    "healthy",
		"database":  "healthy",
		"cache":     "disabled",
		"version":   h.version,
		"timestamp": time.Now().Unix(),
	}

	if err := h.db.PingContext(ctx); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "unhealthy"
		body["database"] = "unhealthy"
	}

	if h.cache != nil {
		body["cache"] = "healthy"
		if err := h.cache.PingContext(ctx); err != nil {
			// the cache is advisory, so a Redis outage only degrades
			body["cache"] = "unhealthy"
			if status == http.StatusOK {
				body["status"] = "degraded"
			}
		}
	}

	c.JSON(status, body)
}
