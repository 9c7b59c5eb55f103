package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appservices "github.com/dailymirror/mirror-go/internal/application/services"
	"github.com/dailymirror/mirror-go/internal/domain/entities/feedback"
	"github.com/dailymirror/mirror-go/internal/infrastructure/observability/logging"
)

// FeedbackHandlers contains the feedback submission handlers.
type FeedbackHandlers struct {
	service *appservices.FeedbackService
	logger  *logging.ChanneledLogger
}

// NewFeedbackHandlers creates feedback handlers with injected dependencies.
func NewFeedbackHandlers(service *appservices.FeedbackService, logger *logging.ChanneledLogger) *FeedbackHandlers {
	return &FeedbackHandlers{
		service: service,
		logger:  logger,
	}
}

// SubmitFeedbackRequest is the POST body for outfit feedback.
type SubmitFeedbackRequest struct {
	OutfitID     string   `json:"outfitId" binding:"required"`
	ItemIDs      []string `json:"itemIds"`
	Rating       int      `json:"rating" binding:"required"`
	Reaction     string   `json:"reaction"`
	Comment      string   `json:"comment"`
	VoiceNoteURL string   `json:"voiceNoteUrl"`
}

// PostFeedback handles POST /api/v1/users/:userId/feedback
func (h *FeedbackHandlers) PostFeedback(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user ID is required"})
		return
	}

	var req SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Feedback().Warn("Invalid feedback request", "userId", userID, "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	item := &feedback.QueueItem{
		UserID:       userID,
		OutfitID:     req.OutfitID,
		ItemIDs:      req.ItemIDs,
		Rating:       req.Rating,
		Reaction:     req.Reaction,
		Comment:      req.Comment,
		VoiceNoteURL: req.VoiceNoteURL,
	}

	if err := h.service.Submit(c.Request.Context(), item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Queued, not yet processed.
	c.JSON(http.StatusAccepted, gin.H{
		"status":  "queued",
		"pending": h.service.QueuedCount(),
	})
}
