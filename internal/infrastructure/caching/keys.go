package caching

import (
	"fmt"
	"time"

	"github.com/dailymirror/mirror-go/pkg/config"
)

// Key prefixes for each logical data class. Cleanup scans by prefix.
const (
	PrefixRecommendations = "rec:"
	PrefixWardrobe        = "wardrobe:"
	PrefixWeather         = "weather:"
	PrefixStyleProfile    = "styleprofile:"
	PrefixImage           = "img:"
	PrefixInteraction     = "interaction:"
	PrefixPendingNotifs   = "notifpending:"
	PrefixSchedule        = "sched:"

	KeyMetrics       = "metrics"
	KeyFeedbackQueue = "feedbackq"
)

// DateKeyFormat is the calendar-day component of recommendation keys.
const DateKeyFormat = "2006-01-02"

func KeyRecommendations(userID string, date time.Time) string {
	return fmt.Sprintf("%s%s:%s", PrefixRecommendations, userID, date.Format(DateKeyFormat))
}

func KeyWardrobe(userID string) string     { return PrefixWardrobe + userID }
func KeyWeather(userID string) string      { return PrefixWeather + userID }
func KeyStyleProfile(userID string) string { return PrefixStyleProfile + userID }
func KeyImage(uriHash string) string       { return PrefixImage + uriHash }

func KeyInteraction(userID, id string) string {
	return fmt.Sprintf("%s%s:%s", PrefixInteraction, userID, id)
}

func KeyPendingNotifications(userID string) string { return PrefixPendingNotifs + userID }
func KeySchedule(userID string) string             { return PrefixSchedule + userID }

// HashURI derives a stable, order-preserving cache key component from a URI.
func HashURI(uri string) string {
	var h uint32
	for _, r := range uri {
		h = h*31 + uint32(r)
	}
	return fmt.Sprintf("%08x", h)
}

// TTLRecommendations and friends read the per-class TTL policy from config.
func TTLRecommendations() time.Duration { return config.RecommendationTTL }
func TTLWardrobe() time.Duration        { return config.WardrobeTTL }
func TTLWeather() time.Duration         { return config.WeatherTTL }
func TTLStyleProfile() time.Duration    { return config.StyleProfileTTL }
func TTLOptimizedImage() time.Duration  { return config.OptimizedImageTTL }
func TTLMetrics() time.Duration         { return config.MetricsTTL }
