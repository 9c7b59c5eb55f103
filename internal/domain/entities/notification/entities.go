// Package notification defines scheduled-notification domain entities.
package notification

import "time"

// Type identifies the kind of notification being scheduled.
type Type string

const (
	TypeDailyMirror    Type = "daily_mirror"
	TypeFeedbackPrompt Type = "feedback_prompt"
	TypeReEngagement   Type = "re_engagement"
)

// Status tracks the per-user lifecycle: Unscheduled -> Scheduled -> (Fired | Cancelled).
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusFired     Status = "fired"
	StatusCancelled Status = "cancelled"
)

type Scheduled struct {
	ID            string            `json:"id"`
	UserID        string            `json:"userId"`
	Type          Type              `json:"type"`
	ScheduledTime time.Time         `json:"scheduledTime"`
	Timezone      string            `json:"timezone"`
	Payload       map[string]string `json:"payload,omitempty"`
	DeviceToken   string            `json:"deviceToken,omitempty"`
	Status        Status            `json:"status"`
}

// Preferences holds the user's reminder settings.
type Preferences struct {
	PreferredHour   int    `json:"preferredHour"`
	PreferredMinute int    `json:"preferredMinute"`
	EnableWeekends  bool   `json:"enableWeekends"`
	Timezone        string `json:"timezone"`
	Email           string `json:"email,omitempty"`
}
