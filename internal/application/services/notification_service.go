// Package services provides application-level services that orchestrate
// business logic and coordinate between the cache manager, the resilience
// coordinator, and the delivery platforms.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dailymirror/mirror-go/internal/domain/entities/notification"
	"github.com/dailymirror/mirror-go/internal/domain/services"
	"github.com/dailymirror/mirror-go/internal/infrastructure/caching"
	"github.com/dailymirror/mirror-go/internal/infrastructure/email"
	"github.com/dailymirror/mirror-go/internal/infrastructure/messaging"
	"github.com/dailymirror/mirror-go/internal/infrastructure/observability/logging"
	"github.com/dailymirror/mirror-go/internal/infrastructure/resilience"
	"github.com/dailymirror/mirror-go/pkg/config"
)

// pushState tracks the once-per-process push capability resolution.
type pushState int

const (
	pushUnknown pushState = iota
	pushReady
	pushUnsupported
	pushDenied
)

// NotificationService owns reminder scheduling: the morning daily mirror
// notification, the afternoon feedback prompt, and re-engagement outreach.
type NotificationService struct {
	store       *caching.Store
	platform    services.DeliveryPlatform
	coordinator *resilience.Coordinator
	mailer      email.Service
	logger      *logging.ChanneledLogger

	pushMu    sync.Mutex
	pushState pushState
	pushToken string
}

// NewNotificationService creates the notification application service.
// mailer may be nil when no email provider is configured.
func NewNotificationService(
	store *caching.Store,
	platform services.DeliveryPlatform,
	coordinator *resilience.Coordinator,
	mailer email.Service,
	logger *logging.ChanneledLogger,
) *NotificationService {
	return &NotificationService{
		store:       store,
		platform:    platform,
		coordinator: coordinator,
		mailer:      mailer,
		logger:      logger,
	}
}

// NextReminderTime computes the next occurrence of the preferred reminder
// time in the user's timezone. Weekend days are skipped unless the user has
// opted into weekend reminders, so a Friday evening always lands on Monday.
func NextReminderTime(now time.Time, prefs notification.Preferences) time.Time {
	loc := userLocation(prefs.Timezone)
	local := now.In(loc)

	candidate := time.Date(local.Year(), local.Month(), local.Day(),
		prefs.PreferredHour, prefs.PreferredMinute, 0, 0, loc)
	if !candidate.After(local) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	for !prefs.EnableWeekends && isWeekend(candidate) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

// OptimizeTiming derives the reminder time from when the user actually
// interacts with the app: the mean minutes-since-midnight across the sampled
// interactions, in local wall-clock terms. With no samples the default
// reminder time applies.
func OptimizeTiming(interactions []time.Time) (hour, minute int) {
	if len(interactions) == 0 {
		return config.DefaultReminderHour, config.DefaultReminderMinute
	}

	totalMinutes := 0
	for _, t := range interactions {
		totalMinutes += t.Hour()*60 + t.Minute()
	}
	mean := totalMinutes / len(interactions)
	return mean / 60, mean % 60
}

// ScheduleDailyMirror schedules the next morning reminder for the user. Any
// pending daily mirror notification is cancelled first so the user never
// holds two.
func (s *NotificationService) ScheduleDailyMirror(ctx context.Context, userID string, prefs notification.Preferences) (*notification.Scheduled, error) {
	if err := s.cancelType(ctx, userID, notification.TypeDailyMirror); err != nil {
		return nil, err
	}

	scheduled := &notification.Scheduled{
		ID:            ulid.Make().String(),
		UserID:        userID,
		Type:          notification.TypeDailyMirror,
		ScheduledTime: NextReminderTime(time.Now(), prefs),
		Timezone:      prefs.Timezone,
		Payload: map[string]string{
			"title": "Your mirror is ready",
			"body":  "Today's outfits are picked out. Take a look before you get dressed.",
		},
		Status: notification.StatusScheduled,
	}
	return s.schedule(ctx, scheduled)
}

// ScheduleFeedbackPrompt schedules the "how did it go" prompt a few hours
// after the user logs an outfit as worn.
func (s *NotificationService) ScheduleFeedbackPrompt(ctx context.Context, userID, outfitID string) (*notification.Scheduled, error) {
	scheduled := &notification.Scheduled{
		ID:            ulid.Make().String(),
		UserID:        userID,
		Type:          notification.TypeFeedbackPrompt,
		ScheduledTime: time.Now().Add(config.FeedbackPromptDelay),
		Timezone:      "",
		Payload: map[string]string{
			"title":    "How did today's outfit work out?",
			"body":     "A quick rating keeps tomorrow's picks sharp.",
			"outfitId": outfitID,
		},
		Status: notification.StatusScheduled,
	}
	return s.schedule(ctx, scheduled)
}

// ensurePushCapability resolves the device push capability before the first
// platform registration: up to the configured attempts of token acquisition
// with linear backoff, then permission. Unsupported environments are a
// permanent skip, a denied permission is terminal, and transient acquisition
// failures leave the state unresolved so the next scheduling call retries.
func (s *NotificationService) ensurePushCapability(ctx context.Context) error {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	switch s.pushState {
	case pushReady, pushUnsupported:
		return nil
	case pushDenied:
		return services.ErrPermissionDenied
	}

	token, err := messaging.AcquirePushToken(ctx, s.platform, s.logger)
	if err != nil {
		if errors.Is(err, services.ErrPushUnsupported) {
			s.pushState = pushUnsupported
			return nil
		}
		s.logger.Notify().Warn("Push token unavailable, scheduling without it", "error", err.Error())
		return nil
	}

	granted, err := s.platform.RequestPermission(ctx)
	if err != nil {
		s.logger.Notify().Warn("Push permission request failed", "error", err.Error())
		return nil
	}
	if !granted {
		s.pushState = pushDenied
		return services.ErrPermissionDenied
	}

	s.pushState = pushReady
	s.pushToken = token
	s.logger.Notify().Info("Push capability ready")
	return nil
}

func (s *NotificationService) deviceToken() string {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()
	return s.pushToken
}

func (s *NotificationService) schedule(ctx context.Context, scheduled *notification.Scheduled) (*notification.Scheduled, error) {
	if err := s.ensurePushCapability(ctx); err != nil {
		s.logger.Notify().Warn("Push capability unavailable, parking for in-app delivery",
			"userId", scheduled.UserID, "type", string(scheduled.Type), "error", err.Error())
		s.coordinator.HandleNotificationFailure(ctx, scheduled.UserID, string(scheduled.Type), scheduled.Payload)
		return nil, fmt.Errorf("scheduling %s notification: %w", scheduled.Type, err)
	}
	scheduled.DeviceToken = s.deviceToken()

	if err := s.platform.Schedule(ctx, scheduled); err != nil {
		s.logger.Notify().Error("Platform scheduling failed, parking for in-app delivery",
			"userId", scheduled.UserID, "type", string(scheduled.Type), "error", err.Error())
		s.coordinator.HandleNotificationFailure(ctx, scheduled.UserID, string(scheduled.Type), scheduled.Payload)
		return nil, fmt.Errorf("scheduling %s notification: %w", scheduled.Type, err)
	}

	if err := s.persist(ctx, scheduled); err != nil {
		return nil, err
	}

	s.logger.Notify().Info("Notification scheduled",
		"userId", scheduled.UserID, "type", string(scheduled.Type),
		"scheduledTime", scheduled.ScheduledTime.Format(time.RFC3339))
	return scheduled, nil
}

// SendReEngagement reaches out to a user who has been away. Push is
// preferred; users without push capability get the email variant when an
// address is on file.
func (s *NotificationService) SendReEngagement(ctx context.Context, userID string, prefs notification.Preferences, lastOpenAt time.Time) error {
	daysInactive := int(time.Since(lastOpenAt).Hours() / 24)
	if daysInactive < 1 {
		return nil
	}

	title, body := reEngagementCopy(daysInactive)
	scheduled := &notification.Scheduled{
		ID:            ulid.Make().String(),
		UserID:        userID,
		Type:          notification.TypeReEngagement,
		ScheduledTime: time.Now(),
		Timezone:      prefs.Timezone,
		Payload: map[string]string{
			"title": title,
			"body":  body,
		},
		Status: notification.StatusScheduled,
	}

	pushErr := s.ensurePushCapability(ctx)
	if pushErr == nil {
		scheduled.DeviceToken = s.deviceToken()
		pushErr = s.platform.Schedule(ctx, scheduled)
	}
	if pushErr == nil {
		return s.persist(ctx, scheduled)
	}

	if s.mailer != nil && prefs.Email != "" {
		s.logger.Notify().Info("Push re-engagement failed, falling back to email",
			"userId", userID, "daysInactive", daysInactive)
		if emailErr := s.mailer.SendReEngagementEmail(prefs.Email, "", daysInactive); emailErr != nil {
			return fmt.Errorf("re-engagement email after push failure (%v): %w", pushErr, emailErr)
		}
		return nil
	}

	s.coordinator.HandleNotificationFailure(ctx, userID, string(notification.TypeReEngagement), scheduled.Payload)
	return fmt.Errorf("re-engagement push failed with no email fallback: %w", pushErr)
}

// HandleTimezoneChange reschedules every pending notification so it fires at
// the same wall-clock time in the user's new timezone.
func (s *NotificationService) HandleTimezoneChange(ctx context.Context, userID, newTimezone string) error {
	schedules := s.loadSchedules(ctx, userID)
	if len(schedules) == 0 {
		return nil
	}

	newLoc := userLocation(newTimezone)
	rescheduled := 0

	for _, scheduled := range schedules {
		if scheduled.Status != notification.StatusScheduled {
			continue
		}

		if err := s.platform.Cancel(ctx, scheduled.ID); err != nil {
			s.logger.Notify().Warn("Failed to cancel notification during timezone change",
				"userId", userID, "notificationId", scheduled.ID, "error", err.Error())
		}

		old := scheduled.ScheduledTime.In(userLocation(scheduled.Timezone))
		scheduled.ScheduledTime = time.Date(old.Year(), old.Month(), old.Day(),
			old.Hour(), old.Minute(), 0, 0, newLoc)
		if !scheduled.ScheduledTime.After(time.Now()) {
			scheduled.ScheduledTime = scheduled.ScheduledTime.AddDate(0, 0, 1)
		}
		scheduled.Timezone = newTimezone

		if err := s.platform.Schedule(ctx, scheduled); err != nil {
			s.logger.Notify().Error("Failed to reschedule after timezone change",
				"userId", userID, "notificationId", scheduled.ID, "error", err.Error())
			scheduled.Status = notification.StatusCancelled
			continue
		}
		rescheduled++
	}

	if err := s.persistAll(ctx, userID, schedules); err != nil {
		return err
	}

	s.logger.Notify().Info("Timezone change handled",
		"userId", userID, "newTimezone", newTimezone, "rescheduled", rescheduled)
	return nil
}

func (s *NotificationService) cancelType(ctx context.Context, userID string, kind notification.Type) error {
	schedules := s.loadSchedules(ctx, userID)
	changed := false
	for _, scheduled := range schedules {
		if scheduled.Type != kind || scheduled.Status != notification.StatusScheduled {
			continue
		}
		if err := s.platform.Cancel(ctx, scheduled.ID); err != nil {
			s.logger.Notify().Warn("Failed to cancel superseded notification",
				"userId", userID, "notificationId", scheduled.ID, "error", err.Error())
		}
		scheduled.Status = notification.StatusCancelled
		changed = true
	}
	if !changed {
		return nil
	}
	return s.persistAll(ctx, userID, schedules)
}

// CancelAll cancels every pending notification for the user.
func (s *NotificationService) CancelAll(ctx context.Context, userID string) error {
	schedules := s.loadSchedules(ctx, userID)
	for _, scheduled := range schedules {
		if scheduled.Status != notification.StatusScheduled {
			continue
		}
		if err := s.platform.Cancel(ctx, scheduled.ID); err != nil {
			s.logger.Notify().Warn("Failed to cancel notification",
				"userId", userID, "notificationId", scheduled.ID, "error", err.Error())
		}
		scheduled.Status = notification.StatusCancelled
	}
	return s.persistAll(ctx, userID, schedules)
}

// MarkFired records platform delivery of a scheduled notification.
func (s *NotificationService) MarkFired(ctx context.Context, userID, notificationID string) error {
	schedules := s.loadSchedules(ctx, userID)
	for _, scheduled := range schedules {
		if scheduled.ID == notificationID {
			scheduled.Status = notification.StatusFired
			return s.persistAll(ctx, userID, schedules)
		}
	}
	return fmt.Errorf("notification %s not found for user %s", notificationID, userID)
}

// Pending returns the user's scheduled-but-unfired notifications.
func (s *NotificationService) Pending(ctx context.Context, userID string) []*notification.Scheduled {
	var pending []*notification.Scheduled
	for _, scheduled := range s.loadSchedules(ctx, userID) {
		if scheduled.Status == notification.StatusScheduled {
			pending = append(pending, scheduled)
		}
	}
	return pending
}

func (s *NotificationService) persist(ctx context.Context, scheduled *notification.Scheduled) error {
	schedules := s.loadSchedules(ctx, scheduled.UserID)
	schedules = append(schedules, scheduled)
	return s.persistAll(ctx, scheduled.UserID, schedules)
}

func (s *NotificationService) persistAll(ctx context.Context, userID string, schedules []*notification.Scheduled) error {
	// Fired and cancelled records are dropped on rewrite.
	live := make([]*notification.Scheduled, 0, len(schedules))
	for _, scheduled := range schedules {
		if scheduled.Status == notification.StatusScheduled {
			live = append(live, scheduled)
		}
	}
	if err := s.store.Set(ctx, caching.KeySchedule(userID), live, caching.TTLWardrobe()); err != nil {
		return fmt.Errorf("persisting schedule for user %s: %w", userID, err)
	}
	return nil
}

func (s *NotificationService) loadSchedules(ctx context.Context, userID string) []*notification.Scheduled {
	var schedules []*notification.Scheduled
	if !s.store.GetJSON(ctx, caching.KeySchedule(userID), &schedules) {
		return nil
	}
	return schedules
}

func reEngagementCopy(daysInactive int) (title, body string) {
	switch {
	case daysInactive <= 3:
		return "Your mirror missed you this morning",
			"Tomorrow's outfit is already picked out."
	case daysInactive <= 7:
		return "A week of outfits, ready when you are",
			"Your style profile is exactly where you left it."
	default:
		return "Come back and see what's new in your wardrobe",
			"One tap and tomorrow morning is planned for you again."
	}
}

func userLocation(timezone string) *time.Location {
	if timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}
