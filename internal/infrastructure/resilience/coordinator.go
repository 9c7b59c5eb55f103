// Package resilience implements the 3-tier degradation ladder that keeps the
// daily ritual producing usable output when upstream providers are slow,
// down, or rate-limited: cached result, then rule-based generation, then an
// emergency set. Total failure is avoided by construction.
package resilience

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dailymirror/mirror-go/internal/domain/entities/recommendation"
	"github.com/dailymirror/mirror-go/internal/domain/services"
	"github.com/dailymirror/mirror-go/internal/infrastructure/caching/manager"
	"github.com/dailymirror/mirror-go/internal/infrastructure/observability/logging"
	"github.com/dailymirror/mirror-go/internal/infrastructure/retry"
	"github.com/dailymirror/mirror-go/pkg/config"
)

const maxRuleCombinations = 3

// Style-profile personalization of the rule tier: a pooled color at or above
// the affinity threshold lifts the outfit's confidence by the boost.
const (
	affinityThreshold = 0.7
	affinityBoost     = 0.1
)

// colorClashes lists color pairings a rule-based outfit must never pool.
var colorClashes = [][2]string{
	{"red", "pink"},
	{"red", "orange"},
	{"green", "pink"},
	{"purple", "yellow"},
}

// seasonDefault is the fixed month-to-season weather fallback.
type seasonDefault struct {
	temperatureF float64
	condition    string
}

var seasonDefaults = map[time.Month]seasonDefault{
	time.December: {40, "cloudy"}, time.January: {40, "cloudy"}, time.February: {40, "cloudy"},
	time.March: {60, "partly cloudy"}, time.April: {60, "partly cloudy"}, time.May: {60, "partly cloudy"},
	time.June: {85, "sunny"}, time.July: {85, "sunny"}, time.August: {85, "sunny"},
	time.September: {55, "cloudy"}, time.October: {55, "cloudy"}, time.November: {55, "cloudy"},
}

// Coordinator walks the degradation ladder for weather and outfit
// recommendations. It depends only on the provider capability interfaces.
type Coordinator struct {
	cache    *manager.Manager
	executor *retry.Executor
	provider services.RecommendationProvider
	weather  services.WeatherProvider
	wardrobe services.WardrobeProvider
	inApp    services.InAppNotifier
	logger   *logging.ChanneledLogger
}

func NewCoordinator(
	cache *manager.Manager,
	executor *retry.Executor,
	provider services.RecommendationProvider,
	weather services.WeatherProvider,
	wardrobe services.WardrobeProvider,
	inApp services.InAppNotifier,
	logger *logging.ChanneledLogger,
) *Coordinator {
	return &Coordinator{
		cache:    cache,
		executor: executor,
		provider: provider,
		weather:  weather,
		wardrobe: wardrobe,
		inApp:    inApp,
		logger:   logger,
	}
}

// TodaysRecommendations always yields a recommendation set: a still-valid
// cached result, a freshly generated one, a rule-based set, or the emergency
// tier, in that order of preference.
func (c *Coordinator) TodaysRecommendations(ctx context.Context, userID string) *recommendation.DailyRecommendations {
	today := time.Now().UTC()

	// Tier 1: cache.
	if cached, found := c.cache.GetCachedRecommendations(ctx, userID, today); found {
		cached.Source = recommendation.SourceCache
		return cached
	}

	// The external generator, wrapped by the retry executor.
	rec, err := retry.Do(ctx, c.executor, retry.OperationContext{
		Service:   "recommendation-generator",
		Operation: "generateDaily",
		UserID:    userID,
	}, nil, func(ctx context.Context) (*recommendation.DailyRecommendations, error) {
		return c.provider.GenerateDailyRecommendations(ctx, userID)
	})
	if err == nil && rec != nil && len(rec.Outfits) > 0 {
		rec.Source = recommendation.SourceGenerated
		rec.Date = today
		if cacheErr := c.cache.CacheRecommendations(ctx, rec); cacheErr != nil && c.logger != nil {
			c.logger.Recommend().Warn("Failed to cache generated recommendations",
				"userId", userID, "error", cacheErr.Error())
		}
		return rec
	}

	if c.logger != nil && err != nil {
		c.logger.Recommend().Warn("Generator unavailable, degrading to rule-based tier",
			"userId", userID, "error", err.Error())
	}

	// Tier 2: rule-based generation from weather + wardrobe, personalized by
	// the cached style profile when one exists.
	weather := c.ResolveWeather(ctx, userID)
	wardrobe := c.resolveWardrobe(ctx, userID)
	profile, _ := c.cache.GetCachedStyleProfile(ctx, userID)

	outfits := BuildRuleBasedOutfits(weather, wardrobe, profile)
	source := recommendation.SourceRules

	// Tier 3: emergency set.
	if len(outfits) == 0 {
		outfits = EmergencyOutfits(wardrobe)
		source = recommendation.SourceEmergency
		if c.logger != nil {
			c.logger.Recommend().Warn("Rule tier produced nothing, using emergency set", "userId", userID)
		}
	}

	return &recommendation.DailyRecommendations{
		UserID:      userID,
		Date:        today,
		Weather:     weather,
		Outfits:     outfits,
		GeneratedAt: time.Now().UTC(),
		Source:      source,
	}
}

// ResolveWeather returns cached conditions, freshly fetched conditions, or
// the season-appropriate default, in that order.
func (c *Coordinator) ResolveWeather(ctx context.Context, userID string) recommendation.WeatherContext {
	if cached, found := c.cache.GetCachedWeather(ctx, userID); found {
		return cached
	}
	if c.weather == nil {
		return DefaultWeather(time.Now().UTC())
	}

	weather, err := retry.Do(ctx, c.executor, retry.OperationContext{
		Service:   "weather-provider",
		Operation: "currentWeather",
		UserID:    userID,
	}, nil, func(ctx context.Context) (*recommendation.WeatherContext, error) {
		return c.weather.CurrentWeather(ctx, userID)
	})
	if err == nil && weather != nil {
		if cacheErr := c.cache.CacheWeather(ctx, userID, *weather); cacheErr != nil && c.logger != nil {
			c.logger.Recommend().Warn("Failed to cache weather", "userId", userID, "error", cacheErr.Error())
		}
		return *weather
	}

	if c.logger != nil {
		c.logger.Recommend().Info("Weather provider unavailable, using seasonal default", "userId", userID)
	}
	return DefaultWeather(time.Now().UTC())
}

func (c *Coordinator) resolveWardrobe(ctx context.Context, userID string) []recommendation.WardrobeItem {
	if cached, found := c.cache.GetCachedWardrobe(ctx, userID); found {
		return cached
	}

	items, err := c.wardrobe.Wardrobe(ctx, userID)
	if err != nil {
		if c.logger != nil {
			c.logger.Recommend().Warn("Wardrobe unavailable", "userId", userID, "error", err.Error())
		}
		return nil
	}
	if cacheErr := c.cache.CacheWardrobe(ctx, userID, items); cacheErr != nil && c.logger != nil {
		c.logger.Recommend().Warn("Failed to cache wardrobe", "userId", userID, "error", cacheErr.Error())
	}
	return items
}

// DefaultWeather returns the fixed season-appropriate context for the given
// moment.
func DefaultWeather(now time.Time) recommendation.WeatherContext {
	def := seasonDefaults[now.Month()]
	return recommendation.WeatherContext{
		TemperatureF: def.temperatureF,
		Condition:    def.condition,
		Timestamp:    now,
	}
}

// BuildRuleBasedOutfits filters the wardrobe by temperature-appropriateness,
// pairs tops with bottoms up to three combinations skipping color clashes,
// and falls back to single-item recommendations when no valid pair exists.
// A non-nil profile boosts outfits featuring high-affinity colors.
func BuildRuleBasedOutfits(weather recommendation.WeatherContext, wardrobe []recommendation.WardrobeItem, profile *recommendation.StyleProfile) []recommendation.Outfit {
	suitable := filterByTemperature(weather.TemperatureF, wardrobe)
	if len(suitable) == 0 {
		return nil
	}

	var tops, bottoms []recommendation.WardrobeItem
	for _, item := range suitable {
		switch item.Category {
		case recommendation.CategoryTop:
			tops = append(tops, item)
		case recommendation.CategoryBottom:
			bottoms = append(bottoms, item)
		}
	}

	var outfits []recommendation.Outfit
	for _, top := range tops {
		if len(outfits) == maxRuleCombinations {
			break
		}
		for _, bottom := range bottoms {
			if len(outfits) == maxRuleCombinations {
				break
			}
			if poolClashes(top.Colors, bottom.Colors) {
				continue
			}
			outfits = append(outfits, recommendation.Outfit{
				ID:              ulid.Make().String(),
				Items:           []recommendation.WardrobeItem{top, bottom},
				ConfidenceScore: 0.6 - 0.05*float64(len(outfits)),
				Reasoning: []string{
					fmt.Sprintf("Suited to %.0f°F and %s conditions", weather.TemperatureF, weather.Condition),
					"Colors coordinate",
				},
			})
		}
	}

	if len(outfits) == 0 {
		// No valid pair: single-item recommendations.
		for i, item := range suitable {
			if i == maxRuleCombinations {
				break
			}
			outfits = append(outfits, recommendation.Outfit{
				ID:              ulid.Make().String(),
				Items:           []recommendation.WardrobeItem{item},
				ConfidenceScore: 0.4,
				Reasoning: []string{
					fmt.Sprintf("Suited to %.0f°F and %s conditions", weather.TemperatureF, weather.Condition),
				},
			})
		}
	}

	applyColorAffinity(outfits, profile)
	markQuickOption(outfits)
	return outfits
}

// applyColorAffinity lifts the confidence of outfits whose colors the user
// has rated highly in their style profile.
func applyColorAffinity(outfits []recommendation.Outfit, profile *recommendation.StyleProfile) {
	if profile == nil || len(profile.ColorAffinity) == 0 {
		return
	}
	for i := range outfits {
		boosted := false
		for _, item := range outfits[i].Items {
			for _, color := range item.Colors {
				if profile.ColorAffinity[color] >= affinityThreshold {
					boosted = true
				}
			}
		}
		if boosted {
			outfits[i].ConfidenceScore += affinityBoost
			outfits[i].Reasoning = append(outfits[i].Reasoning, "Features colors you rate highly")
		}
	}
}

// EmergencyOutfits returns up to three single-item outfits built from the
// most-recently-worn wardrobe items.
func EmergencyOutfits(wardrobe []recommendation.WardrobeItem) []recommendation.Outfit {
	worn := make([]recommendation.WardrobeItem, 0, len(wardrobe))
	for _, item := range wardrobe {
		if item.LastWornAt != nil {
			worn = append(worn, item)
		}
	}
	sort.SliceStable(worn, func(i, j int) bool {
		return worn[i].LastWornAt.After(*worn[j].LastWornAt)
	})

	var outfits []recommendation.Outfit
	for i, item := range worn {
		if i == maxRuleCombinations {
			break
		}
		outfits = append(outfits, recommendation.Outfit{
			ID:              ulid.Make().String(),
			Items:           []recommendation.WardrobeItem{item},
			ConfidenceScore: 0.3,
			Reasoning:       []string{"Recently worn favorite"},
		})
	}

	markQuickOption(outfits)
	return outfits
}

func markQuickOption(outfits []recommendation.Outfit) {
	if len(outfits) > 0 {
		outfits[0].IsQuickOption = true
	}
}

func filterByTemperature(tempF float64, wardrobe []recommendation.WardrobeItem) []recommendation.WardrobeItem {
	var suitable []recommendation.WardrobeItem
	for _, item := range wardrobe {
		if tempF < config.ColdThresholdF {
			if item.Warmth == recommendation.WarmthSleeveless || item.Warmth == recommendation.WarmthLight {
				continue
			}
		}
		if tempF > config.HotThresholdF {
			if item.Warmth == recommendation.WarmthHeavy || item.Category == recommendation.CategoryOuterwear {
				continue
			}
		}
		suitable = append(suitable, item)
	}
	return suitable
}

func poolClashes(a, b []string) bool {
	pooled := make(map[string]bool, len(a)+len(b))
	for _, color := range a {
		pooled[color] = true
	}
	for _, color := range b {
		pooled[color] = true
	}
	for _, clash := range colorClashes {
		if pooled[clash[0]] && pooled[clash[1]] {
			return true
		}
	}
	return false
}
