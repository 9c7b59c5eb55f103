// Package providers contains the HTTP clients for the external collaborators:
// the styling engine and the weather service. Both are unreliable by
// assumption; retries and fallbacks are the caller's job.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dailymirror/mirror-go/internal/domain/entities/feedback"
	"github.com/dailymirror/mirror-go/internal/domain/entities/recommendation"
	"github.com/dailymirror/mirror-go/internal/domain/services"
	"github.com/dailymirror/mirror-go/internal/infrastructure/observability/logging"
	"github.com/dailymirror/mirror-go/pkg/config"
)

// StyleAPIClient talks to the styling engine. It implements
// services.RecommendationProvider, services.WardrobeProvider, and
// services.StyleIntelligence.
type StyleAPIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.ChanneledLogger
}

// NewStyleAPIClient creates the styling engine client from configuration.
func NewStyleAPIClient(logger *logging.ChanneledLogger) (*StyleAPIClient, error) {
	if config.StyleAPIURL == "" {
		return nil, fmt.Errorf("STYLE_API_URL environment variable is required")
	}
	return &StyleAPIClient{
		baseURL:    config.StyleAPIURL,
		apiKey:     config.StyleAPIKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}, nil
}

func (c *StyleAPIClient) GenerateDailyRecommendations(ctx context.Context, userID string) (*recommendation.DailyRecommendations, error) {
	var rec recommendation.DailyRecommendations
	err := c.do(ctx, http.MethodPost, "/v1/users/"+userID+"/recommendations", nil, &rec)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *StyleAPIClient) LogOutfitAsWorn(ctx context.Context, userID, outfitID string) error {
	body := map[string]string{"outfitId": outfitID}
	return c.do(ctx, http.MethodPost, "/v1/users/"+userID+"/worn", body, nil)
}

func (c *StyleAPIClient) SaveOutfitToFavorites(ctx context.Context, userID, outfitID string) error {
	body := map[string]string{"outfitId": outfitID}
	return c.do(ctx, http.MethodPost, "/v1/users/"+userID+"/favorites", body, nil)
}

func (c *StyleAPIClient) Wardrobe(ctx context.Context, userID string) ([]recommendation.WardrobeItem, error) {
	var items []recommendation.WardrobeItem
	if err := c.do(ctx, http.MethodGet, "/v1/users/"+userID+"/wardrobe", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *StyleAPIClient) UpdateStylePreferences(ctx context.Context, userID string, item *feedback.QueueItem) error {
	return c.do(ctx, http.MethodPost, "/v1/users/"+userID+"/preferences", item, nil)
}

func (c *StyleAPIClient) RecordConfidencePattern(ctx context.Context, userID, outfitID string, rating int) error {
	body := map[string]any{"outfitId": outfitID, "rating": rating}
	return c.do(ctx, http.MethodPost, "/v1/users/"+userID+"/confidence", body, nil)
}

func (c *StyleAPIClient) StyleProfile(ctx context.Context, userID string) (*recommendation.StyleProfile, error) {
	var profile recommendation.StyleProfile
	if err := c.do(ctx, http.MethodGet, "/v1/users/"+userID+"/style-profile", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *StyleAPIClient) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding style API request: %w", err)
		}
		payload = encoded
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building style API request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("style API %s %s: %w", method, path, services.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("style API %s %s returned %d: %w", method, path, resp.StatusCode, services.ErrProviderUnavailable)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("style API %s %s returned %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding style API response: %w", err)
		}
	}
	return nil
}
