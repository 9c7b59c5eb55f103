package caching

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dailymirror/mirror-go/internal/domain/entities/recommendation"
)

// Cached entities with date/time fields cross the text boundary through the
// codecs below. Timestamps are encoded as RFC3339 strings and rehydrated to
// time.Time on read in exactly one place per entity type; nested wardrobe
// item timestamps are reconstructed too.

const wireTimeFormat = time.RFC3339

type wireWeather struct {
	TemperatureF float64 `json:"temperatureF"`
	Condition    string  `json:"condition"`
	Timestamp    string  `json:"timestamp"`
}

type wireWardrobeItem struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Category   string   `json:"category"`
	Colors     []string `json:"colors"`
	Warmth     string   `json:"warmth"`
	PhotoURI   string   `json:"photoUri,omitempty"`
	TimesWorn  int      `json:"timesWorn"`
	LastWornAt string   `json:"lastWornAt,omitempty"`
}

type wireOutfit struct {
	ID              string             `json:"id"`
	Items           []wireWardrobeItem `json:"items"`
	ConfidenceScore float64            `json:"confidenceScore"`
	Reasoning       []string           `json:"reasoning"`
	IsQuickOption   bool               `json:"isQuickOption"`
}

type wireDailyRecommendations struct {
	UserID      string       `json:"userId"`
	Date        string       `json:"date"`
	Weather     wireWeather  `json:"weather"`
	Outfits     []wireOutfit `json:"outfits"`
	GeneratedAt string       `json:"generatedAt"`
	Source      string       `json:"source"`
}

// EncodeDailyRecommendations serializes a recommendation set for caching.
func EncodeDailyRecommendations(rec *recommendation.DailyRecommendations) (json.RawMessage, error) {
	wire := wireDailyRecommendations{
		UserID:      rec.UserID,
		Date:        rec.Date.Format(wireTimeFormat),
		Weather:     encodeWeather(rec.Weather),
		GeneratedAt: rec.GeneratedAt.Format(wireTimeFormat),
		Source:      string(rec.Source),
	}
	for _, outfit := range rec.Outfits {
		wire.Outfits = append(wire.Outfits, encodeOutfit(outfit))
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to encode recommendations: %w", err)
	}
	return data, nil
}

// DecodeDailyRecommendations rehydrates a cached recommendation set,
// reconstructing every time field including nested wardrobe item timestamps.
func DecodeDailyRecommendations(raw json.RawMessage) (*recommendation.DailyRecommendations, error) {
	var wire wireDailyRecommendations
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode recommendations: %w", err)
	}

	rec := &recommendation.DailyRecommendations{
		UserID:      wire.UserID,
		Date:        parseWireTime(wire.Date),
		Weather:     decodeWeather(wire.Weather),
		GeneratedAt: parseWireTime(wire.GeneratedAt),
		Source:      recommendation.Source(wire.Source),
	}
	for _, outfit := range wire.Outfits {
		rec.Outfits = append(rec.Outfits, decodeOutfit(outfit))
	}
	return rec, nil
}

// EncodeWardrobe serializes a wardrobe snapshot for caching.
func EncodeWardrobe(items []recommendation.WardrobeItem) (json.RawMessage, error) {
	wire := make([]wireWardrobeItem, 0, len(items))
	for _, item := range items {
		wire = append(wire, encodeWardrobeItem(item))
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to encode wardrobe: %w", err)
	}
	return data, nil
}

// DecodeWardrobe rehydrates a cached wardrobe snapshot.
func DecodeWardrobe(raw json.RawMessage) ([]recommendation.WardrobeItem, error) {
	var wire []wireWardrobeItem
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode wardrobe: %w", err)
	}
	items := make([]recommendation.WardrobeItem, 0, len(wire))
	for _, w := range wire {
		items = append(items, decodeWardrobeItem(w))
	}
	return items, nil
}

// EncodeWeather serializes a weather context for caching.
func EncodeWeather(w recommendation.WeatherContext) (json.RawMessage, error) {
	data, err := json.Marshal(encodeWeather(w))
	if err != nil {
		return nil, fmt.Errorf("failed to encode weather: %w", err)
	}
	return data, nil
}

// DecodeWeather rehydrates a cached weather context.
func DecodeWeather(raw json.RawMessage) (recommendation.WeatherContext, error) {
	var wire wireWeather
	if err := json.Unmarshal(raw, &wire); err != nil {
		return recommendation.WeatherContext{}, fmt.Errorf("failed to decode weather: %w", err)
	}
	return decodeWeather(wire), nil
}

func encodeWeather(w recommendation.WeatherContext) wireWeather {
	return wireWeather{
		TemperatureF: w.TemperatureF,
		Condition:    w.Condition,
		Timestamp:    w.Timestamp.Format(wireTimeFormat),
	}
}

func decodeWeather(w wireWeather) recommendation.WeatherContext {
	return recommendation.WeatherContext{
		TemperatureF: w.TemperatureF,
		Condition:    w.Condition,
		Timestamp:    parseWireTime(w.Timestamp),
	}
}

func encodeOutfit(o recommendation.Outfit) wireOutfit {
	wire := wireOutfit{
		ID:              o.ID,
		ConfidenceScore: o.ConfidenceScore,
		Reasoning:       o.Reasoning,
		IsQuickOption:   o.IsQuickOption,
	}
	for _, item := range o.Items {
		wire.Items = append(wire.Items, encodeWardrobeItem(item))
	}
	return wire
}

func decodeOutfit(o wireOutfit) recommendation.Outfit {
	outfit := recommendation.Outfit{
		ID:              o.ID,
		ConfidenceScore: o.ConfidenceScore,
		Reasoning:       o.Reasoning,
		IsQuickOption:   o.IsQuickOption,
	}
	for _, item := range o.Items {
		outfit.Items = append(outfit.Items, decodeWardrobeItem(item))
	}
	return outfit
}

func encodeWardrobeItem(item recommendation.WardrobeItem) wireWardrobeItem {
	wire := wireWardrobeItem{
		ID:        item.ID,
		Name:      item.Name,
		Category:  string(item.Category),
		Colors:    item.Colors,
		Warmth:    string(item.Warmth),
		PhotoURI:  item.PhotoURI,
		TimesWorn: item.TimesWorn,
	}
	if item.LastWornAt != nil {
		wire.LastWornAt = item.LastWornAt.Format(wireTimeFormat)
	}
	return wire
}

func decodeWardrobeItem(w wireWardrobeItem) recommendation.WardrobeItem {
	item := recommendation.WardrobeItem{
		ID:        w.ID,
		Name:      w.Name,
		Category:  recommendation.Category(w.Category),
		Colors:    w.Colors,
		Warmth:    recommendation.Warmth(w.Warmth),
		PhotoURI:  w.PhotoURI,
		TimesWorn: w.TimesWorn,
	}
	if w.LastWornAt != "" {
		if t, err := time.Parse(wireTimeFormat, w.LastWornAt); err == nil {
			item.LastWornAt = &t
		}
	}
	return item
}

// parseWireTime tolerates missing or malformed timestamps, returning the zero
// time rather than failing the whole decode.
func parseWireTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(wireTimeFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
