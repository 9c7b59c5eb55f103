package caching

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailymirror/mirror-go/internal/domain/entities/recommendation"
)

func TestRecommendationsCodecRoundTrip(t *testing.T) {
	worn := time.Date(2026, 8, 20, 7, 30, 0, 0, time.UTC)
	rec := &recommendation.DailyRecommendations{
		UserID: "u1",
		Date:   time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		Weather: recommendation.WeatherContext{
			TemperatureF: 71,
			Condition:    "sunny",
			Timestamp:    time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC),
		},
		Outfits: []recommendation.Outfit{
			{
				ID: "outfit-1",
				Items: []recommendation.WardrobeItem{
					{
						ID:         "item-1",
						Name:       "Blue tee",
						Category:   recommendation.CategoryTop,
						Colors:     []string{"blue"},
						Warmth:     recommendation.WarmthLight,
						TimesWorn:  4,
						LastWornAt: &worn,
					},
					{
						ID:       "item-2",
						Name:     "Jeans",
						Category: recommendation.CategoryBottom,
						Colors:   []string{"blue"},
						Warmth:   recommendation.WarmthMedium,
					},
				},
				ConfidenceScore: 0.85,
				Reasoning:       []string{"Light layers for warm weather"},
				IsQuickOption:   true,
			},
		},
		GeneratedAt: time.Date(2026, 8, 28, 6, 0, 5, 0, time.UTC),
		Source:      recommendation.SourceGenerated,
	}

	raw, err := EncodeDailyRecommendations(rec)
	require.NoError(t, err)

	got, err := DecodeDailyRecommendations(raw)
	require.NoError(t, err)

	assert.Equal(t, rec.UserID, got.UserID)
	assert.True(t, rec.Date.Equal(got.Date))
	assert.True(t, rec.GeneratedAt.Equal(got.GeneratedAt))
	assert.Equal(t, rec.Source, got.Source)
	assert.Equal(t, rec.Weather.TemperatureF, got.Weather.TemperatureF)
	assert.True(t, rec.Weather.Timestamp.Equal(got.Weather.Timestamp))

	require.Len(t, got.Outfits, 1)
	outfit := got.Outfits[0]
	assert.Equal(t, 0.85, outfit.ConfidenceScore)
	assert.True(t, outfit.IsQuickOption)
	require.Len(t, outfit.Items, 2)

	// Nested item timestamps must be rehydrated, not left as zero values.
	require.NotNil(t, outfit.Items[0].LastWornAt)
	assert.True(t, worn.Equal(*outfit.Items[0].LastWornAt))
	assert.Nil(t, outfit.Items[1].LastWornAt)
}

func TestRecommendationsCodecToleratesMalformedTimestamps(t *testing.T) {
	raw := json.RawMessage(`{
		"userId": "u1",
		"date": "not-a-date",
		"weather": {"temperatureF": 60, "condition": "cloudy", "timestamp": ""},
		"outfits": [{"id": "o1", "items": [{"id": "i1", "lastWornAt": "garbage"}]}],
		"generatedAt": "",
		"source": "cache"
	}`)

	got, err := DecodeDailyRecommendations(raw)
	require.NoError(t, err)
	assert.True(t, got.Date.IsZero())
	assert.True(t, got.GeneratedAt.IsZero())
	assert.True(t, got.Weather.Timestamp.IsZero())
	require.Len(t, got.Outfits, 1)
	require.Len(t, got.Outfits[0].Items, 1)
	assert.Nil(t, got.Outfits[0].Items[0].LastWornAt)
}

func TestWardrobeCodecRoundTrip(t *testing.T) {
	worn := time.Date(2026, 8, 25, 19, 0, 0, 0, time.UTC)
	items := []recommendation.WardrobeItem{
		{ID: "a", Name: "Parka", Category: recommendation.CategoryOuterwear, Warmth: recommendation.WarmthHeavy, TimesWorn: 12, LastWornAt: &worn},
		{ID: "b", Name: "Tank top", Category: recommendation.CategoryTop, Colors: []string{"white"}, Warmth: recommendation.WarmthSleeveless},
	}

	raw, err := EncodeWardrobe(items)
	require.NoError(t, err)

	got, err := DecodeWardrobe(raw)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, recommendation.WarmthHeavy, got[0].Warmth)
	require.NotNil(t, got[0].LastWornAt)
	assert.True(t, worn.Equal(*got[0].LastWornAt))
	assert.Nil(t, got[1].LastWornAt)
}

func TestWeatherCodecRoundTrip(t *testing.T) {
	w := recommendation.WeatherContext{
		TemperatureF: 38.5,
		Condition:    "snow",
		Timestamp:    time.Date(2026, 1, 15, 6, 0, 0, 0, time.UTC),
	}

	raw, err := EncodeWeather(w)
	require.NoError(t, err)

	got, err := DecodeWeather(raw)
	require.NoError(t, err)
	assert.Equal(t, w.TemperatureF, got.TemperatureF)
	assert.Equal(t, w.Condition, got.Condition)
	assert.True(t, w.Timestamp.Equal(got.Timestamp))
}

func TestDecodeRejectsInvalidJSON(t *testing.T) {
	_, err := DecodeDailyRecommendations(json.RawMessage(`{broken`))
	assert.Error(t, err)

	_, err = DecodeWardrobe(json.RawMessage(`"not an array"`))
	assert.Error(t, err)
}
