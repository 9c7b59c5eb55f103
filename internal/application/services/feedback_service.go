package services

import (
	"context"
	"fmt"

	"github.com/dailymirror/mirror-go/internal/domain/entities/feedback"
	"github.com/dailymirror/mirror-go/internal/infrastructure/caching/manager"
	"github.com/dailymirror/mirror-go/internal/infrastructure/observability/logging"
)

// FeedbackService accepts outfit feedback and hands it to the queue for
// background processing. Submission never blocks on preference updates.
type FeedbackService struct {
	cache  *manager.Manager
	logger *logging.ChanneledLogger
}

// NewFeedbackService creates the feedback application service.
func NewFeedbackService(cache *manager.Manager, logger *logging.ChanneledLogger) *FeedbackService {
	return &FeedbackService{
		cache:  cache,
		logger: logger,
	}
}

// Submit validates and enqueues a feedback item.
func (s *FeedbackService) Submit(ctx context.Context, item *feedback.QueueItem) error {
	if item == nil {
		return fmt.Errorf("feedback item cannot be nil")
	}
	if item.UserID == "" {
		return fmt.Errorf("feedback user ID cannot be empty")
	}
	if item.OutfitID == "" {
		return fmt.Errorf("feedback outfit ID cannot be empty")
	}
	if item.Rating < 1 || item.Rating > 5 {
		return fmt.Errorf("feedback rating must be between 1 and 5, got %d", item.Rating)
	}

	if err := s.cache.QueueFeedback(ctx, item); err != nil {
		return fmt.Errorf("queueing feedback for outfit %s: %w", item.OutfitID, err)
	}

	s.logger.Feedback().Info("Feedback queued",
		"userId", item.UserID, "outfitId", item.OutfitID, "rating", item.Rating)
	return nil
}

// QueuedCount reports how many feedback items await processing.
func (s *FeedbackService) QueuedCount() int {
	return s.cache.QueuedCount()
}
