// Package recommendation defines the application's core recommendation domain entities.
package recommendation

import "time"

// Source identifies which tier of the degradation ladder produced a result.
type Source string

const (
	SourceGenerated Source = "generated" // external AI generator
	SourceCache     Source = "cache"     // previously cached, still-valid result
	SourceRules     Source = "rules"     // season/temperature rule tier
	SourceEmergency Source = "emergency" // most-recently-worn fallback
)

// Category classifies a wardrobe item for pairing rules.
type Category string

const (
	CategoryTop       Category = "top"
	CategoryBottom    Category = "bottom"
	CategoryDress     Category = "dress"
	CategoryOuterwear Category = "outerwear"
	CategoryShoes     Category = "shoes"
	CategoryAccessory Category = "accessory"
)

// Warmth classifies an item for temperature-appropriateness filtering.
type Warmth string

const (
	WarmthSleeveless Warmth = "sleeveless"
	WarmthLight      Warmth = "light"
	WarmthMedium     Warmth = "medium"
	WarmthHeavy      Warmth = "heavy"
)

type WeatherContext struct {
	TemperatureF float64   `json:"temperatureF"`
	Condition    string    `json:"condition"`
	Timestamp    time.Time `json:"timestamp"`
}

type WardrobeItem struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Category   Category   `json:"category"`
	Colors     []string   `json:"colors"`
	Warmth     Warmth     `json:"warmth"`
	PhotoURI   string     `json:"photoUri,omitempty"`
	TimesWorn  int        `json:"timesWorn"`
	LastWornAt *time.Time `json:"lastWornAt,omitempty"`
}

type Outfit struct {
	ID              string         `json:"id"`
	Items           []WardrobeItem `json:"items"`
	ConfidenceScore float64        `json:"confidenceScore"`
	Reasoning       []string       `json:"reasoning"`
	IsQuickOption   bool           `json:"isQuickOption"`
}

type DailyRecommendations struct {
	UserID      string         `json:"userId"`
	Date        time.Time      `json:"date"`
	Weather     WeatherContext `json:"weather"`
	Outfits     []Outfit       `json:"outfits"`
	GeneratedAt time.Time      `json:"generatedAt"`
	Source      Source         `json:"source"`
}

// StyleProfile carries the preference weights the style-intelligence
// collaborator maintains; cached here, owned there.
type StyleProfile struct {
	UserID           string             `json:"userId"`
	ColorAffinity    map[string]float64 `json:"colorAffinity,omitempty"`
	CategoryAffinity map[string]float64 `json:"categoryAffinity,omitempty"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}
