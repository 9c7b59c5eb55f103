package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dailymirror/mirror-go/internal/infrastructure/caching/manager"
	"github.com/dailymirror/mirror-go/internal/infrastructure/observability/logging"
)

// SystemHandlers contains health, metrics, and image optimization handlers.
type SystemHandlers struct {
	cache  *manager.Manager
	logger *logging.ChanneledLogger
}

// NewSystemHandlers creates system handlers with injected dependencies.
func NewSystemHandlers(cache *manager.Manager, logger *logging.ChanneledLogger) *SystemHandlers {
	return &SystemHandlers{
		cache:  cache,
		logger: logger,
	}
}

// GetHealth handles GET /api/v1/health
func (h *SystemHandlers) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"pending":   h.cache.QueuedCount(),
	})
}

// GetMetrics handles GET /api/v1/metrics
func (h *SystemHandlers) GetMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.cache.Metrics())
}

// GetOptimizedImage handles GET /api/v1/images/optimize?uri=
func (h *SystemHandlers) GetOptimizedImage(c *gin.Context) {
	uri := c.Query("uri")
	if uri == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uri query parameter is required"})
		return
	}

	optimized := h.cache.OptimizeImage(c.Request.Context(), uri)
	c.JSON(http.StatusOK, gin.H{
		"uri":       uri,
		"optimized": optimized,
	})
}
