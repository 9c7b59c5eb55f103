package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailymirror/mirror-go/internal/domain/entities/recommendation"
	"github.com/dailymirror/mirror-go/internal/infrastructure/caching"
	"github.com/dailymirror/mirror-go/internal/infrastructure/caching/manager"
	"github.com/dailymirror/mirror-go/internal/infrastructure/observability/performance"
	"github.com/dailymirror/mirror-go/internal/infrastructure/persistence"
	"github.com/dailymirror/mirror-go/internal/infrastructure/retry"
	"github.com/dailymirror/mirror-go/pkg/config"
)

type fakeGenerator struct {
	calls int
	rec   *recommendation.DailyRecommendations
	err   error
}

func (f *fakeGenerator) GenerateDailyRecommendations(ctx context.Context, userID string) (*recommendation.DailyRecommendations, error) {
	f.calls++
	return f.rec, f.err
}

func (f *fakeGenerator) LogOutfitAsWorn(ctx context.Context, userID, outfitID string) error {
	return nil
}

func (f *fakeGenerator) SaveOutfitToFavorites(ctx context.Context, userID, outfitID string) error {
	return nil
}

type fakeWeatherProvider struct {
	calls   int
	weather *recommendation.WeatherContext
	err     error
}

func (f *fakeWeatherProvider) CurrentWeather(ctx context.Context, userID string) (*recommendation.WeatherContext, error) {
	f.calls++
	return f.weather, f.err
}

type fakeWardrobeProvider struct {
	items []recommendation.WardrobeItem
	err   error
}

func (f *fakeWardrobeProvider) Wardrobe(ctx context.Context, userID string) ([]recommendation.WardrobeItem, error) {
	return f.items, f.err
}

func newTestManager(t *testing.T, gen *fakeGenerator) (*manager.Manager, *retry.Executor) {
	t.Helper()

	// Retry waits must not slow the suite down.
	config.RetryMaxAttempts = 2
	config.RetryBaseDelay = time.Millisecond
	config.RetryMaxDelay = 2 * time.Millisecond
	config.RetryJitterMax = time.Millisecond

	store := caching.NewStore(persistence.NewMemoryStore(), nil, performance.NewTracker(nil))
	executor := retry.NewExecutor(nil)
	m := manager.NewManager(store, executor, performance.NewTracker(nil), nil, gen, nil, nil, nil)
	return m, executor
}

func wornAt(t time.Time) *time.Time { return &t }

func TestTodaysRecommendationsPrefersCache(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{err: errors.New("must not be called")}
	cache, executor := newTestManager(t, gen)

	cached := &recommendation.DailyRecommendations{
		UserID: "u1",
		Date:   time.Now().UTC(),
		Outfits: []recommendation.Outfit{
			{ID: "o1", ConfidenceScore: 0.9},
		},
		GeneratedAt: time.Now().UTC(),
		Source:      recommendation.SourceGenerated,
	}
	require.NoError(t, cache.CacheRecommendations(ctx, cached))

	c := NewCoordinator(cache, executor, gen, nil, &fakeWardrobeProvider{}, nil, nil)
	got := c.TodaysRecommendations(ctx, "u1")

	require.NotNil(t, got)
	assert.Equal(t, recommendation.SourceCache, got.Source)
	assert.Equal(t, "o1", got.Outfits[0].ID)
	assert.Zero(t, gen.calls)
}

func TestTodaysRecommendationsGeneratorTier(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{
		rec: &recommendation.DailyRecommendations{
			UserID:      "u1",
			Outfits:     []recommendation.Outfit{{ID: "fresh"}},
			GeneratedAt: time.Now().UTC(),
		},
	}
	cache, executor := newTestManager(t, gen)

	c := NewCoordinator(cache, executor, gen, nil, &fakeWardrobeProvider{}, nil, nil)
	got := c.TodaysRecommendations(ctx, "u1")

	require.NotNil(t, got)
	assert.Equal(t, recommendation.SourceGenerated, got.Source)
	assert.Equal(t, 1, gen.calls)

	// The generated set must be cached for the next request.
	cachedAgain := c.TodaysRecommendations(ctx, "u1")
	assert.Equal(t, recommendation.SourceCache, cachedAgain.Source)
	assert.Equal(t, 1, gen.calls)
}

func TestTodaysRecommendationsRuleTier(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{err: errors.New("generator down")}
	cache, executor := newTestManager(t, gen)

	weather := &fakeWeatherProvider{weather: &recommendation.WeatherContext{
		TemperatureF: 70, Condition: "sunny", Timestamp: time.Now().UTC(),
	}}
	wardrobe := &fakeWardrobeProvider{items: []recommendation.WardrobeItem{
		{ID: "top-1", Category: recommendation.CategoryTop, Colors: []string{"blue"}, Warmth: recommendation.WarmthLight},
		{ID: "bot-1", Category: recommendation.CategoryBottom, Colors: []string{"black"}, Warmth: recommendation.WarmthMedium},
	}}

	c := NewCoordinator(cache, executor, gen, weather, wardrobe, nil, nil)
	got := c.TodaysRecommendations(ctx, "u1")

	require.NotNil(t, got)
	assert.Equal(t, recommendation.SourceRules, got.Source)
	// Every retry attempt hit the generator before degrading.
	assert.Equal(t, 3, gen.calls)
	require.Len(t, got.Outfits, 1)
	assert.Len(t, got.Outfits[0].Items, 2)
	assert.True(t, got.Outfits[0].IsQuickOption)
	assert.Equal(t, 70.0, got.Weather.TemperatureF)
}

func TestTodaysRecommendationsEmergencyTier(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{err: errors.New("generator down")}
	cache, executor := newTestManager(t, gen)

	// Freezing conditions filter out the entire light wardrobe, so the rule
	// tier produces nothing and the most-recently-worn set takes over.
	require.NoError(t, cache.CacheWeather(ctx, "u1", recommendation.WeatherContext{
		TemperatureF: 30, Condition: "snow", Timestamp: time.Now().UTC(),
	}))

	now := time.Now().UTC()
	wardrobe := &fakeWardrobeProvider{items: []recommendation.WardrobeItem{
		{ID: "a", Warmth: recommendation.WarmthLight, Category: recommendation.CategoryTop, LastWornAt: wornAt(now.Add(-3 * 24 * time.Hour))},
		{ID: "b", Warmth: recommendation.WarmthSleeveless, Category: recommendation.CategoryTop, LastWornAt: wornAt(now.Add(-1 * 24 * time.Hour))},
		{ID: "c", Warmth: recommendation.WarmthLight, Category: recommendation.CategoryBottom, LastWornAt: wornAt(now.Add(-2 * 24 * time.Hour))},
		{ID: "d", Warmth: recommendation.WarmthLight, Category: recommendation.CategoryBottom, LastWornAt: wornAt(now.Add(-4 * 24 * time.Hour))},
		{ID: "never-worn", Warmth: recommendation.WarmthLight, Category: recommendation.CategoryTop},
	}}

	c := NewCoordinator(cache, executor, gen, nil, wardrobe, nil, nil)
	got := c.TodaysRecommendations(ctx, "u1")

	require.NotNil(t, got)
	assert.Equal(t, recommendation.SourceEmergency, got.Source)
	require.Len(t, got.Outfits, 3)

	// Most recently worn first, never-worn items excluded.
	assert.Equal(t, "b", got.Outfits[0].Items[0].ID)
	assert.Equal(t, "c", got.Outfits[1].Items[0].ID)
	assert.Equal(t, "a", got.Outfits[2].Items[0].ID)
	for _, outfit := range got.Outfits {
		assert.Equal(t, 0.3, outfit.ConfidenceScore)
	}
	assert.True(t, got.Outfits[0].IsQuickOption)
}

func TestResolveWeatherUsesCacheBeforeProvider(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{}
	cache, executor := newTestManager(t, gen)

	require.NoError(t, cache.CacheWeather(ctx, "u1", recommendation.WeatherContext{
		TemperatureF: 65, Condition: "overcast", Timestamp: time.Now().UTC(),
	}))

	provider := &fakeWeatherProvider{weather: &recommendation.WeatherContext{TemperatureF: 99}}
	c := NewCoordinator(cache, executor, gen, provider, &fakeWardrobeProvider{}, nil, nil)

	got := c.ResolveWeather(ctx, "u1")
	assert.Equal(t, 65.0, got.TemperatureF)
	assert.Zero(t, provider.calls)
}

func TestResolveWeatherFallsBackToSeasonalDefault(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{}
	cache, executor := newTestManager(t, gen)

	provider := &fakeWeatherProvider{err: errors.New("weather api down")}
	c := NewCoordinator(cache, executor, gen, provider, &fakeWardrobeProvider{}, nil, nil)

	got := c.ResolveWeather(ctx, "u1")
	want := DefaultWeather(time.Now().UTC())
	assert.Equal(t, want.TemperatureF, got.TemperatureF)
	assert.Equal(t, want.Condition, got.Condition)
	assert.Greater(t, provider.calls, 1)
}

func TestResolveWeatherWithoutProviderConfigured(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{}
	cache, executor := newTestManager(t, gen)

	c := NewCoordinator(cache, executor, gen, nil, &fakeWardrobeProvider{}, nil, nil)
	got := c.ResolveWeather(ctx, "u1")
	assert.Equal(t, DefaultWeather(time.Now().UTC()).Condition, got.Condition)
}

func TestDefaultWeatherSeasons(t *testing.T) {
	cases := []struct {
		month     time.Month
		tempF     float64
		condition string
	}{
		{time.January, 40, "cloudy"},
		{time.February, 40, "cloudy"},
		{time.April, 60, "partly cloudy"},
		{time.July, 85, "sunny"},
		{time.October, 55, "cloudy"},
		{time.December, 40, "cloudy"},
	}

	for _, tc := range cases {
		now := time.Date(2026, tc.month, 15, 8, 0, 0, 0, time.UTC)
		got := DefaultWeather(now)
		assert.Equal(t, tc.tempF, got.TemperatureF, tc.month.String())
		assert.Equal(t, tc.condition, got.Condition, tc.month.String())
		assert.Equal(t, now, got.Timestamp)
	}
}

func TestBuildRuleBasedOutfitsColdFilter(t *testing.T) {
	weather := recommendation.WeatherContext{TemperatureF: 35, Condition: "snow"}
	wardrobe := []recommendation.WardrobeItem{
		{ID: "tank", Category: recommendation.CategoryTop, Warmth: recommendation.WarmthSleeveless},
		{ID: "tee", Category: recommendation.CategoryTop, Warmth: recommendation.WarmthLight},
		{ID: "sweater", Category: recommendation.CategoryTop, Warmth: recommendation.WarmthHeavy, Colors: []string{"gray"}},
		{ID: "wool-pants", Category: recommendation.CategoryBottom, Warmth: recommendation.WarmthMedium, Colors: []string{"black"}},
	}

	outfits := BuildRuleBasedOutfits(weather, wardrobe, nil)
	require.Len(t, outfits, 1)
	assert.Equal(t, "sweater", outfits[0].Items[0].ID)
	assert.Equal(t, "wool-pants", outfits[0].Items[1].ID)
}

func TestBuildRuleBasedOutfitsHotFilter(t *testing.T) {
	weather := recommendation.WeatherContext{TemperatureF: 92, Condition: "sunny"}
	wardrobe := []recommendation.WardrobeItem{
		{ID: "parka", Category: recommendation.CategoryOuterwear, Warmth: recommendation.WarmthHeavy},
		{ID: "windbreaker", Category: recommendation.CategoryOuterwear, Warmth: recommendation.WarmthLight},
		{ID: "hoodie", Category: recommendation.CategoryTop, Warmth: recommendation.WarmthHeavy},
		{ID: "tank", Category: recommendation.CategoryTop, Warmth: recommendation.WarmthSleeveless},
		{ID: "shorts", Category: recommendation.CategoryBottom, Warmth: recommendation.WarmthLight},
	}

	outfits := BuildRuleBasedOutfits(weather, wardrobe, nil)
	require.Len(t, outfits, 1)
	assert.Equal(t, "tank", outfits[0].Items[0].ID)
	assert.Equal(t, "shorts", outfits[0].Items[1].ID)
}

func TestBuildRuleBasedOutfitsSkipsColorClashes(t *testing.T) {
	weather := recommendation.WeatherContext{TemperatureF: 70, Condition: "sunny"}
	wardrobe := []recommendation.WardrobeItem{
		{ID: "red-top", Category: recommendation.CategoryTop, Colors: []string{"red"}, Warmth: recommendation.WarmthLight},
		{ID: "pink-skirt", Category: recommendation.CategoryBottom, Colors: []string{"pink"}, Warmth: recommendation.WarmthLight},
		{ID: "jeans", Category: recommendation.CategoryBottom, Colors: []string{"blue"}, Warmth: recommendation.WarmthMedium},
	}

	outfits := BuildRuleBasedOutfits(weather, wardrobe, nil)
	require.Len(t, outfits, 1)
	assert.Equal(t, "red-top", outfits[0].Items[0].ID)
	assert.Equal(t, "jeans", outfits[0].Items[1].ID)
}

func TestBuildRuleBasedOutfitsCapsPairsAndDecrementsConfidence(t *testing.T) {
	weather := recommendation.WeatherContext{TemperatureF: 70, Condition: "sunny"}
	wardrobe := []recommendation.WardrobeItem{
		{ID: "t1", Category: recommendation.CategoryTop, Colors: []string{"white"}, Warmth: recommendation.WarmthLight},
		{ID: "t2", Category: recommendation.CategoryTop, Colors: []string{"gray"}, Warmth: recommendation.WarmthLight},
		{ID: "b1", Category: recommendation.CategoryBottom, Colors: []string{"blue"}, Warmth: recommendation.WarmthLight},
		{ID: "b2", Category: recommendation.CategoryBottom, Colors: []string{"black"}, Warmth: recommendation.WarmthLight},
	}

	outfits := BuildRuleBasedOutfits(weather, wardrobe, nil)
	require.Len(t, outfits, 3)
	assert.InDelta(t, 0.60, outfits[0].ConfidenceScore, 1e-9)
	assert.InDelta(t, 0.55, outfits[1].ConfidenceScore, 1e-9)
	assert.InDelta(t, 0.50, outfits[2].ConfidenceScore, 1e-9)
	assert.True(t, outfits[0].IsQuickOption)
	assert.False(t, outfits[1].IsQuickOption)
}

func TestBuildRuleBasedOutfitsSingleItemFallback(t *testing.T) {
	weather := recommendation.WeatherContext{TemperatureF: 70, Condition: "sunny"}
	wardrobe := []recommendation.WardrobeItem{
		{ID: "dress", Category: recommendation.CategoryDress, Warmth: recommendation.WarmthLight},
		{ID: "shoes", Category: recommendation.CategoryShoes, Warmth: recommendation.WarmthLight},
	}

	outfits := BuildRuleBasedOutfits(weather, wardrobe, nil)
	require.Len(t, outfits, 2)
	for _, outfit := range outfits {
		assert.Len(t, outfit.Items, 1)
		assert.Equal(t, 0.4, outfit.ConfidenceScore)
	}
}

func TestBuildRuleBasedOutfitsEmptyWardrobe(t *testing.T) {
	weather := recommendation.WeatherContext{TemperatureF: 70, Condition: "sunny"}
	assert.Nil(t, BuildRuleBasedOutfits(weather, nil, nil))
}

func TestEmergencyOutfitsEmptyWhenNothingWorn(t *testing.T) {
	wardrobe := []recommendation.WardrobeItem{
		{ID: "a"}, {ID: "b"},
	}
	assert.Empty(t, EmergencyOutfits(wardrobe))
}

func TestBuildRuleBasedOutfitsBoostsPreferredColors(t *testing.T) {
	weather := recommendation.WeatherContext{TemperatureF: 70, Condition: "sunny"}
	wardrobe := []recommendation.WardrobeItem{
		{ID: "blue-top", Category: recommendation.CategoryTop, Colors: []string{"blue"}, Warmth: recommendation.WarmthLight},
		{ID: "gray-top", Category: recommendation.CategoryTop, Colors: []string{"gray"}, Warmth: recommendation.WarmthLight},
		{ID: "black-pants", Category: recommendation.CategoryBottom, Colors: []string{"black"}, Warmth: recommendation.WarmthLight},
	}
	profile := &recommendation.StyleProfile{
		UserID:        "u1",
		ColorAffinity: map[string]float64{"blue": 0.9, "gray": 0.2},
	}

	outfits := BuildRuleBasedOutfits(weather, wardrobe, profile)
	require.Len(t, outfits, 2)
	assert.InDelta(t, 0.70, outfits[0].ConfidenceScore, 1e-9)
	assert.Contains(t, outfits[0].Reasoning, "Features colors you rate highly")
	// Low-affinity colors stay at the plain pair baseline.
	assert.InDelta(t, 0.55, outfits[1].ConfidenceScore, 1e-9)
}

func TestRuleTierPersonalizedByCachedProfile(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{err: errors.New("generator down")}
	cache, executor := newTestManager(t, gen)

	require.NoError(t, cache.CacheStyleProfile(ctx, &recommendation.StyleProfile{
		UserID:        "u1",
		ColorAffinity: map[string]float64{"blue": 0.9},
	}))

	weather := &fakeWeatherProvider{weather: &recommendation.WeatherContext{
		TemperatureF: 70, Condition: "sunny", Timestamp: time.Now().UTC(),
	}}
	wardrobe := &fakeWardrobeProvider{items: []recommendation.WardrobeItem{
		{ID: "blue-top", Category: recommendation.CategoryTop, Colors: []string{"blue"}, Warmth: recommendation.WarmthLight},
		{ID: "black-pants", Category: recommendation.CategoryBottom, Colors: []string{"black"}, Warmth: recommendation.WarmthLight},
	}}

	c := NewCoordinator(cache, executor, gen, weather, wardrobe, nil, nil)
	got := c.TodaysRecommendations(ctx, "u1")

	require.NotNil(t, got)
	assert.Equal(t, recommendation.SourceRules, got.Source)
	require.Len(t, got.Outfits, 1)
	assert.InDelta(t, 0.70, got.Outfits[0].ConfidenceScore, 1e-9)
}
