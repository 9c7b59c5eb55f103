package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dailymirror/mirror-go/internal/domain/entities/recommendation"
	"github.com/dailymirror/mirror-go/internal/domain/services"
	"github.com/dailymirror/mirror-go/pkg/config"
)

// WeatherClient fetches current conditions for a user's stored location. It
// implements services.WeatherProvider.
type WeatherClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewWeatherClient creates the weather service client from configuration.
func NewWeatherClient() (*WeatherClient, error) {
	if config.WeatherAPIURL == "" {
		return nil, fmt.Errorf("WEATHER_API_URL environment variable is required")
	}
	return &WeatherClient{
		baseURL:    config.WeatherAPIURL,
		apiKey:     config.WeatherAPIKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (c *WeatherClient) CurrentWeather(ctx context.Context, userID string) (*recommendation.WeatherContext, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/current?user="+userID, nil)
	if err != nil {
		return nil, fmt.Errorf("building weather request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather fetch for user %s: %w", userID, services.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather service returned %d: %w", resp.StatusCode, services.ErrProviderUnavailable)
	}

	var payload struct {
		TemperatureF float64 `json:"temperatureF"`
		Condition    string  `json:"condition"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding weather response: %w", err)
	}

	return &recommendation.WeatherContext{
		TemperatureF: payload.TemperatureF,
		Condition:    payload.Condition,
		Timestamp:    time.Now().UTC(),
	}, nil
}
