// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dailymirror/mirror-go/internal/application/services"
	"github.com/dailymirror/mirror-go/internal/infrastructure/caching/manager"
	"github.com/dailymirror/mirror-go/internal/infrastructure/observability/logging"
)

// RecommendationHandlers contains the daily-ritual HTTP handlers.
type RecommendationHandlers struct {
	service *services.RecommendationService
	cache   *manager.Manager
	logger  *logging.ChanneledLogger
}

// NewRecommendationHandlers creates recommendation handlers with injected dependencies.
func NewRecommendationHandlers(service *services.RecommendationService, cache *manager.Manager, logger *logging.ChanneledLogger) *RecommendationHandlers {
	return &RecommendationHandlers{
		service: service,
		cache:   cache,
		logger:  logger,
	}
}

// GetToday handles GET /api/v1/users/:userId/recommendations/today
func (h *RecommendationHandlers) GetToday(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user ID is required"})
		return
	}

	start := time.Now()
	rec := h.service.Today(c.Request.Context(), userID)

	h.logger.System().Debug("Recommendations request served",
		"userId", userID, "source", string(rec.Source), "duration", time.Since(start))
	c.JSON(http.StatusOK, rec)
}

// PostPreGenerate handles POST /api/v1/users/:userId/recommendations/pregenerate
func (h *RecommendationHandlers) PostPreGenerate(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user ID is required"})
		return
	}

	if err := h.cache.PreGenerate(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "pre-generation failed"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "cached"})
}

// PostWorn handles POST /api/v1/users/:userId/outfits/:outfitId/worn
func (h *RecommendationHandlers) PostWorn(c *gin.Context) {
	userID := c.Param("userId")
	outfitID := c.Param("outfitId")
	if userID == "" || outfitID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user ID and outfit ID are required"})
		return
	}

	if err := h.service.MarkWorn(c.Request.Context(), userID, outfitID); err != nil {
		h.logger.System().Error("Failed to mark outfit as worn",
			"userId", userID, "outfitId", outfitID, "error", err.Error())
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to log outfit as worn"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "worn"})
}

// PostFavorite handles POST /api/v1/users/:userId/outfits/:outfitId/favorite
func (h *RecommendationHandlers) PostFavorite(c *gin.Context) {
	userID := c.Param("userId")
	outfitID := c.Param("outfitId")
	if userID == "" || outfitID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user ID and outfit ID are required"})
		return
	}

	if err := h.service.SaveFavorite(c.Request.Context(), userID, outfitID); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to save favorite"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "favorited"})
}
