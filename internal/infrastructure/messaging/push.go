package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dailymirror/mirror-go/internal/domain/entities/notification"
	"github.com/dailymirror/mirror-go/internal/domain/services"
	"github.com/dailymirror/mirror-go/internal/infrastructure/observability/logging"
	"github.com/dailymirror/mirror-go/pkg/config"
)

// PushClient schedules notifications through the mobile push gateway. It
// implements services.DeliveryPlatform.
type PushClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.ChanneledLogger
}

// NewPushClient creates a push gateway client from configuration. Returns an
// error when no gateway is configured; callers should then fall back to the
// sandbox platform.
func NewPushClient(logger *logging.ChanneledLogger) (*PushClient, error) {
	if config.PushGatewayURL == "" {
		return nil, fmt.Errorf("PUSH_GATEWAY_URL environment variable is required")
	}
	return &PushClient{
		baseURL:    config.PushGatewayURL,
		apiKey:     config.PushGatewayAPIKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}, nil
}

type scheduleRequest struct {
	ID            string            `json:"id"`
	UserID        string            `json:"userId"`
	Type          string            `json:"type"`
	ScheduledTime string            `json:"scheduledTime"`
	Timezone      string            `json:"timezone"`
	Payload       map[string]string `json:"payload,omitempty"`
	DeviceToken   string            `json:"deviceToken,omitempty"`
}

func (p *PushClient) Schedule(ctx context.Context, n *notification.Scheduled) error {
	body := scheduleRequest{
		ID:            n.ID,
		UserID:        n.UserID,
		Type:          string(n.Type),
		ScheduledTime: n.ScheduledTime.Format(time.RFC3339),
		Timezone:      n.Timezone,
		Payload:       n.Payload,
		DeviceToken:   n.DeviceToken,
	}
	return p.do(ctx, http.MethodPost, "/v1/notifications", body, nil)
}

func (p *PushClient) Cancel(ctx context.Context, notificationID string) error {
	return p.do(ctx, http.MethodDelete, "/v1/notifications/"+notificationID, nil, nil)
}

func (p *PushClient) RequestPermission(ctx context.Context) (bool, error) {
	var resp struct {
		Granted bool `json:"granted"`
	}
	if err := p.do(ctx, http.MethodPost, "/v1/permissions", nil, &resp); err != nil {
		return false, err
	}
	return resp.Granted, nil
}

func (p *PushClient) PushToken(ctx context.Context) (string, error) {
	var resp struct {
		Token     string `json:"token"`
		Supported bool   `json:"supported"`
	}
	if err := p.do(ctx, http.MethodGet, "/v1/token", nil, &resp); err != nil {
		return "", err
	}
	if !resp.Supported {
		return "", services.ErrPushUnsupported
	}
	return resp.Token, nil
}

func (p *PushClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding push gateway request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building push gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push gateway %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push gateway %s %s returned %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding push gateway response: %w", err)
		}
	}
	return nil
}

// SandboxPlatform is the no-push development platform. Scheduling is a
// logged no-op and token acquisition reports the environment as unsupported.
type SandboxPlatform struct {
	logger *logging.ChanneledLogger
}

func NewSandboxPlatform(logger *logging.ChanneledLogger) *SandboxPlatform {
	return &SandboxPlatform{logger: logger}
}

func (s *SandboxPlatform) Schedule(ctx context.Context, n *notification.Scheduled) error {
	if s.logger != nil {
		s.logger.Notify().Debug("Sandbox: notification not scheduled",
			"notificationId", n.ID, "type", string(n.Type))
	}
	return nil
}

func (s *SandboxPlatform) Cancel(ctx context.Context, notificationID string) error {
	return nil
}

func (s *SandboxPlatform) RequestPermission(ctx context.Context) (bool, error) {
	return false, nil
}

func (s *SandboxPlatform) PushToken(ctx context.Context) (string, error) {
	return "", services.ErrPushUnsupported
}

// AcquirePushToken fetches the device push token with linear backoff between
// attempts. An unsupported environment is permanent and skips remaining
// attempts immediately.
func AcquirePushToken(ctx context.Context, platform services.DeliveryPlatform, logger *logging.ChanneledLogger) (string, error) {
	var lastErr error
	for attempt := 0; attempt < config.PushTokenMaxAttempts; attempt++ {
		token, err := platform.PushToken(ctx)
		if err == nil {
			return token, nil
		}
		if errors.Is(err, services.ErrPushUnsupported) {
			if logger != nil {
				logger.Notify().Info("Push unsupported in this environment, skipping token acquisition")
			}
			return "", err
		}
		lastErr = err
		if logger != nil {
			logger.Notify().Warn("Push token acquisition failed",
				"attempt", attempt+1, "error", err.Error())
		}

		delay := time.Duration(attempt+1) * config.PushTokenBackoffStep
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("push token unavailable after %d attempts: %w", config.PushTokenMaxAttempts, lastErr)
}
