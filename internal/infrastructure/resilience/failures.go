package resilience

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dailymirror/mirror-go/internal/infrastructure/caching"
)

// PendingNotification is a notification that could not be delivered through
// the platform scheduler and is parked for the next app open.
type PendingNotification struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	Payload  map[string]string `json:"payload"`
	FailedAt time.Time         `json:"failedAt"`
}

// HandleNotificationFailure parks the undelivered notification for pickup on
// next app open and attempts in-app delivery as a best effort. The pending
// record is the durable path, so a failed in-app attempt only logs.
func (c *Coordinator) HandleNotificationFailure(ctx context.Context, userID, notifType string, payload map[string]string) {
	pending := PendingNotification{
		ID:       ulid.Make().String(),
		Type:     notifType,
		Payload:  payload,
		FailedAt: time.Now().UTC(),
	}

	store := c.cache.Store()
	key := caching.KeyPendingNotifications(userID)

	var list []PendingNotification
	if raw, found := store.Get(ctx, key); found {
		if err := json.Unmarshal(raw, &list); err != nil {
			list = nil
		}
	}
	list = append(list, pending)

	persistErr := store.Set(ctx, key, list, caching.TTLWardrobe())
	if persistErr != nil && c.logger != nil {
		c.logger.Notify().Error("Failed to persist pending notification",
			"userId", userID, "type", notifType, "error", persistErr.Error())
	}

	var inAppErr error
	if c.inApp != nil {
		inAppErr = c.inApp.Notify(userID, payload)
	}

	if persistErr != nil && inAppErr != nil && c.logger != nil {
		c.logger.LogCritical("notification delivery", userID, inAppErr)
	}
}

// PendingNotifications drains the parked notifications for a user, returning
// them and clearing the list.
func (c *Coordinator) PendingNotifications(ctx context.Context, userID string) []PendingNotification {
	store := c.cache.Store()
	key := caching.KeyPendingNotifications(userID)

	raw, found := store.Get(ctx, key)
	if !found {
		return nil
	}
	var list []PendingNotification
	if err := json.Unmarshal(raw, &list); err != nil {
		_ = store.Remove(ctx, key)
		return nil
	}
	if err := store.Remove(ctx, key); err != nil && c.logger != nil {
		c.logger.Cache().Warn("Failed to clear pending notifications", "userId", userID, "error", err.Error())
	}
	return list
}
