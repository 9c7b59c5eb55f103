package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dailymirror/mirror-go/internal/domain/entities/recommendation"
	"github.com/dailymirror/mirror-go/internal/domain/services"
	"github.com/dailymirror/mirror-go/internal/infrastructure/caching/manager"
	"github.com/dailymirror/mirror-go/internal/infrastructure/observability/logging"
	"github.com/dailymirror/mirror-go/internal/infrastructure/resilience"
)

// RecommendationService is the application entry point for the daily ritual:
// fetching today's outfits, logging wear decisions, and the nightly
// pre-generation sweep.
type RecommendationService struct {
	coordinator  *resilience.Coordinator
	cache        *manager.Manager
	provider     services.RecommendationProvider
	notification *NotificationService
	logger       *logging.ChanneledLogger
}

// NewRecommendationService creates the recommendation application service.
func NewRecommendationService(
	coordinator *resilience.Coordinator,
	cache *manager.Manager,
	provider services.RecommendationProvider,
	notification *NotificationService,
	logger *logging.ChanneledLogger,
) *RecommendationService {
	return &RecommendationService{
		coordinator:  coordinator,
		cache:        cache,
		provider:     provider,
		notification: notification,
		logger:       logger,
	}
}

// Today returns today's recommendations for the user. The degradation ladder
// guarantees a non-empty result whenever the user has any wardrobe history.
// Photo URIs are swapped for their optimized variants before returning.
func (s *RecommendationService) Today(ctx context.Context, userID string) *recommendation.DailyRecommendations {
	start := time.Now()
	rec := s.coordinator.TodaysRecommendations(ctx, userID)

	for i := range rec.Outfits {
		for j := range rec.Outfits[i].Items {
			item := &rec.Outfits[i].Items[j]
			if item.PhotoURI != "" {
				item.PhotoURI = s.cache.OptimizeImage(ctx, item.PhotoURI)
			}
		}
	}

	s.logger.Recommend().Info("Served daily recommendations",
		"userId", userID, "source", string(rec.Source),
		"outfits", len(rec.Outfits), "duration", time.Since(start))
	return rec
}

// MarkWorn logs an outfit as worn, records the interaction for timing
// optimization, and schedules the evening feedback prompt.
func (s *RecommendationService) MarkWorn(ctx context.Context, userID, outfitID string) error {
	if err := s.provider.LogOutfitAsWorn(ctx, userID, outfitID); err != nil {
		return fmt.Errorf("logging outfit %s as worn: %w", outfitID, err)
	}

	if err := s.cache.RecordInteraction(ctx, userID, outfitID, "worn"); err != nil {
		s.logger.Recommend().Warn("Failed to record wear interaction",
			"userId", userID, "outfitId", outfitID, "error", err.Error())
	}

	if _, err := s.notification.ScheduleFeedbackPrompt(ctx, userID, outfitID); err != nil {
		s.logger.Notify().Warn("Feedback prompt not scheduled",
			"userId", userID, "outfitId", outfitID, "error", err.Error())
	}
	return nil
}

// SaveFavorite stores an outfit in the user's favorites.
func (s *RecommendationService) SaveFavorite(ctx context.Context, userID, outfitID string) error {
	if err := s.provider.SaveOutfitToFavorites(ctx, userID, outfitID); err != nil {
		return fmt.Errorf("saving outfit %s to favorites: %w", outfitID, err)
	}
	if err := s.cache.RecordInteraction(ctx, userID, outfitID, "favorited"); err != nil {
		s.logger.Recommend().Warn("Failed to record favorite interaction",
			"userId", userID, "outfitId", outfitID, "error", err.Error())
	}
	return nil
}

// PreGenerateFor runs the nightly pre-generation sweep for the given users so
// tomorrow morning is a cache hit.
func (s *RecommendationService) PreGenerateFor(ctx context.Context, userIDs []string) {
	start := time.Now()
	generated := 0
	for _, userID := range userIDs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := s.cache.PreGenerate(ctx, userID); err != nil {
			s.logger.Recommend().Warn("Pre-generation failed",
				"userId", userID, "error", err.Error())
			continue
		}
		generated++
	}
	s.logger.Recommend().Info("Pre-generation sweep finished",
		"users", len(userIDs), "generated", generated, "duration", time.Since(start))
}
