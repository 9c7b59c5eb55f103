// Package services defines the capability interfaces for the external
// collaborators this layer sits in front of. The resilience coordinator and
// the cache manager depend only on these interfaces; concrete implementations
// are wired at startup, which keeps the coordinator/generator dependency
// acyclic.
package services

import (
	"context"

	"github.com/dailymirror/mirror-go/internal/domain/entities/feedback"
	"github.com/dailymirror/mirror-go/internal/domain/entities/notification"
	"github.com/dailymirror/mirror-go/internal/domain/entities/recommendation"
)

// RecommendationProvider is the opaque AI styling collaborator. It may fail
// or hang; callers must tolerate and fall back.
type RecommendationProvider interface {
	GenerateDailyRecommendations(ctx context.Context, userID string) (*recommendation.DailyRecommendations, error)
	LogOutfitAsWorn(ctx context.Context, userID, outfitID string) error
	SaveOutfitToFavorites(ctx context.Context, userID, outfitID string) error
}

// WeatherProvider supplies current conditions for a user's location.
type WeatherProvider interface {
	CurrentWeather(ctx context.Context, userID string) (*recommendation.WeatherContext, error)
}

// WardrobeProvider supplies the user's wardrobe snapshot for the rule tier.
type WardrobeProvider interface {
	Wardrobe(ctx context.Context, userID string) ([]recommendation.WardrobeItem, error)
}

// StyleIntelligence adjusts future preference weighting from user feedback
// and owns the resulting style profile. The feedback drain pushes updates in
// and refreshes the cached profile the rule tier personalizes from.
type StyleIntelligence interface {
	UpdateStylePreferences(ctx context.Context, userID string, item *feedback.QueueItem) error
	RecordConfidencePattern(ctx context.Context, userID, outfitID string, rating int) error
	StyleProfile(ctx context.Context, userID string) (*recommendation.StyleProfile, error)
}

// DeliveryPlatform is the external push-notification transport. This layer
// owns scheduling decisions only.
type DeliveryPlatform interface {
	Schedule(ctx context.Context, n *notification.Scheduled) error
	Cancel(ctx context.Context, notificationID string) error
	RequestPermission(ctx context.Context) (bool, error)
	// PushToken acquires the device push token. Implementations return
	// ErrPushUnsupported in environments without remote-push capability.
	PushToken(ctx context.Context) (string, error)
}

// Transcriber turns a feedback voice note into text before preference updates.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string) (string, error)
}

// InAppNotifier delivers a message over the in-app channel, the fallback used
// when push delivery fails.
type InAppNotifier interface {
	Notify(userID string, payload map[string]string) error
}

