package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailymirror/mirror-go/internal/domain/entities/notification"
	"github.com/dailymirror/mirror-go/internal/domain/entities/recommendation"
	"github.com/dailymirror/mirror-go/internal/domain/services"
	"github.com/dailymirror/mirror-go/internal/infrastructure/caching"
	"github.com/dailymirror/mirror-go/internal/infrastructure/caching/manager"
	"github.com/dailymirror/mirror-go/internal/infrastructure/observability/logging"
	"github.com/dailymirror/mirror-go/internal/infrastructure/observability/performance"
	"github.com/dailymirror/mirror-go/internal/infrastructure/persistence"
	"github.com/dailymirror/mirror-go/internal/infrastructure/resilience"
	"github.com/dailymirror/mirror-go/internal/infrastructure/retry"
	"github.com/dailymirror/mirror-go/pkg/config"
)

// quietLogger returns a logger with every channel gated above any level the
// code under test emits.
func quietLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToFile:    false,
		OutputToConsole: false,
		DefaultLevel:    slog.Level(12),
	})
	require.NoError(t, err)
	return logger
}

type fakePlatform struct {
	scheduled      []*notification.Scheduled
	cancelled      []string
	scheduleErr    error
	cancelErr      error
	tokenCalls     int
	tokenErrs      []error
	denyPermission bool
}

func (f *fakePlatform) Schedule(ctx context.Context, n *notification.Scheduled) error {
	if f.scheduleErr != nil {
		return f.scheduleErr
	}
	copied := *n
	f.scheduled = append(f.scheduled, &copied)
	return nil
}

func (f *fakePlatform) Cancel(ctx context.Context, notificationID string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, notificationID)
	return nil
}

func (f *fakePlatform) RequestPermission(ctx context.Context) (bool, error) {
	return !f.denyPermission, nil
}

func (f *fakePlatform) PushToken(ctx context.Context) (string, error) {
	f.tokenCalls++
	if len(f.tokenErrs) > 0 {
		err := f.tokenErrs[0]
		f.tokenErrs = f.tokenErrs[1:]
		return "", err
	}
	return "token", nil
}

type fakeMailer struct {
	sent []string
	err  error
}

func (f *fakeMailer) Send(toEmail, subject, htmlBody string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, toEmail)
	return nil
}

func (f *fakeMailer) SendReEngagementEmail(toEmail, userName string, daysInactive int) error {
	return f.Send(toEmail, "", "")
}

type nullGenerator struct{}

func (nullGenerator) GenerateDailyRecommendations(ctx context.Context, userID string) (*recommendation.DailyRecommendations, error) {
	return nil, errors.New("not in use")
}
func (nullGenerator) LogOutfitAsWorn(ctx context.Context, userID, outfitID string) error { return nil }
func (nullGenerator) SaveOutfitToFavorites(ctx context.Context, userID, outfitID string) error {
	return nil
}

type nullWardrobe struct{}

func (nullWardrobe) Wardrobe(ctx context.Context, userID string) ([]recommendation.WardrobeItem, error) {
	return nil, nil
}

func newNotificationFixture(t *testing.T, platform services.DeliveryPlatform, mailer *fakeMailer) (*NotificationService, *resilience.Coordinator, *caching.Store) {
	t.Helper()

	logger := quietLogger(t)
	store := caching.NewStore(persistence.NewMemoryStore(), nil, nil)
	executor := retry.NewExecutor(nil)
	cache := manager.NewManager(store, executor, performance.NewTracker(nil), nil, nullGenerator{}, nil, nil, nil)
	coordinator := resilience.NewCoordinator(cache, executor, nullGenerator{}, nil, nullWardrobe{}, nil, nil)

	var svc *NotificationService
	if mailer != nil {
		svc = NewNotificationService(store, platform, coordinator, mailer, logger)
	} else {
		svc = NewNotificationService(store, platform, coordinator, nil, logger)
	}
	return svc, coordinator, store
}

func TestNextReminderTimeSameDay(t *testing.T) {
	prefs := notification.Preferences{PreferredHour: 7, PreferredMinute: 30, Timezone: "UTC"}
	// Wednesday, before the preferred time.
	now := time.Date(2026, 8, 26, 5, 0, 0, 0, time.UTC)

	got := NextReminderTime(now, prefs)
	assert.Equal(t, time.Date(2026, 8, 26, 7, 30, 0, 0, time.UTC), got)
}

func TestNextReminderTimeRollsToNextDay(t *testing.T) {
	prefs := notification.Preferences{PreferredHour: 7, PreferredMinute: 0, Timezone: "UTC"}
	// Wednesday, past the preferred time.
	now := time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)

	got := NextReminderTime(now, prefs)
	assert.Equal(t, time.Date(2026, 8, 27, 7, 0, 0, 0, time.UTC), got)
}

func TestNextReminderTimeSkipsWeekend(t *testing.T) {
	prefs := notification.Preferences{PreferredHour: 7, PreferredMinute: 0, Timezone: "UTC"}
	// Friday evening: Saturday and Sunday are skipped.
	now := time.Date(2026, 8, 28, 20, 0, 0, 0, time.UTC)

	got := NextReminderTime(now, prefs)
	assert.Equal(t, time.Date(2026, 8, 31, 7, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.Monday, got.Weekday())
}

func TestNextReminderTimeWeekendsEnabled(t *testing.T) {
	prefs := notification.Preferences{PreferredHour: 7, EnableWeekends: true, Timezone: "UTC"}
	now := time.Date(2026, 8, 28, 20, 0, 0, 0, time.UTC) // Friday evening

	got := NextReminderTime(now, prefs)
	assert.Equal(t, time.Saturday, got.Weekday())
}

func TestNextReminderTimeHonorsTimezone(t *testing.T) {
	prefs := notification.Preferences{PreferredHour: 7, Timezone: "America/New_York"}
	// 13:00 UTC on a Wednesday is 09:00 in New York, past the preferred time.
	now := time.Date(2026, 8, 26, 13, 0, 0, 0, time.UTC)

	got := NextReminderTime(now, prefs)
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 27, 7, 0, 0, 0, loc), got)
}

func TestNextReminderTimeInvalidTimezoneFallsBackToUTC(t *testing.T) {
	prefs := notification.Preferences{PreferredHour: 7, Timezone: "Not/AZone"}
	now := time.Date(2026, 8, 26, 5, 0, 0, 0, time.UTC)

	got := NextReminderTime(now, prefs)
	assert.Equal(t, time.Date(2026, 8, 26, 7, 0, 0, 0, time.UTC), got)
}

func TestOptimizeTimingMeanOfInteractions(t *testing.T) {
	interactions := []time.Time{
		time.Date(2026, 8, 24, 6, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 25, 8, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 26, 7, 30, 0, 0, time.UTC),
	}

	hour, minute := OptimizeTiming(interactions)
	assert.Equal(t, 7, hour)
	assert.Equal(t, 10, minute)
}

func TestOptimizeTimingDefaultsWhenNoSamples(t *testing.T) {
	hour, minute := OptimizeTiming(nil)
	assert.Equal(t, 6, hour)
	assert.Equal(t, 0, minute)
}

func TestScheduleDailyMirror(t *testing.T) {
	ctx := context.Background()
	platform := &fakePlatform{}
	svc, _, _ := newNotificationFixture(t, platform, nil)

	prefs := notification.Preferences{PreferredHour: 7, Timezone: "UTC"}
	scheduled, err := svc.ScheduleDailyMirror(ctx, "u1", prefs)
	require.NoError(t, err)
	assert.Equal(t, notification.TypeDailyMirror, scheduled.Type)
	assert.Equal(t, notification.StatusScheduled, scheduled.Status)
	assert.NotEmpty(t, scheduled.Payload["title"])
	require.Len(t, platform.scheduled, 1)

	assert.Len(t, svc.Pending(ctx, "u1"), 1)
}

func TestScheduleDailyMirrorCancelsSuperseded(t *testing.T) {
	ctx := context.Background()
	platform := &fakePlatform{}
	svc, _, _ := newNotificationFixture(t, platform, nil)

	prefs := notification.Preferences{PreferredHour: 7, Timezone: "UTC"}
	first, err := svc.ScheduleDailyMirror(ctx, "u1", prefs)
	require.NoError(t, err)

	second, err := svc.ScheduleDailyMirror(ctx, "u1", prefs)
	require.NoError(t, err)

	assert.Contains(t, platform.cancelled, first.ID)

	pending := svc.Pending(ctx, "u1")
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)
}

func TestScheduleFeedbackPromptDelay(t *testing.T) {
	ctx := context.Background()
	platform := &fakePlatform{}
	svc, _, _ := newNotificationFixture(t, platform, nil)

	before := time.Now()
	scheduled, err := svc.ScheduleFeedbackPrompt(ctx, "u1", "outfit-9")
	require.NoError(t, err)

	assert.Equal(t, notification.TypeFeedbackPrompt, scheduled.Type)
	assert.Equal(t, "outfit-9", scheduled.Payload["outfitId"])
	assert.WithinDuration(t, before.Add(3*time.Hour), scheduled.ScheduledTime, time.Minute)
}

func TestScheduleFailureParksForInApp(t *testing.T) {
	ctx := context.Background()
	platform := &fakePlatform{scheduleErr: errors.New("platform down")}
	svc, coordinator, _ := newNotificationFixture(t, platform, nil)

	_, err := svc.ScheduleDailyMirror(ctx, "u1", notification.Preferences{PreferredHour: 7})
	require.Error(t, err)

	parked := coordinator.PendingNotifications(ctx, "u1")
	require.Len(t, parked, 1)
	assert.Equal(t, string(notification.TypeDailyMirror), parked[0].Type)

	// Drained once; second read is empty.
	assert.Empty(t, coordinator.PendingNotifications(ctx, "u1"))
}

func TestSendReEngagementPushPreferred(t *testing.T) {
	ctx := context.Background()
	platform := &fakePlatform{}
	mailer := &fakeMailer{}
	svc, _, _ := newNotificationFixture(t, platform, mailer)

	lastOpen := time.Now().Add(-5 * 24 * time.Hour)
	err := svc.SendReEngagement(ctx, "u1", notification.Preferences{Email: "u@example.com"}, lastOpen)
	require.NoError(t, err)

	require.Len(t, platform.scheduled, 1)
	assert.Equal(t, notification.TypeReEngagement, platform.scheduled[0].Type)
	assert.Empty(t, mailer.sent)
}

func TestSendReEngagementEmailFallback(t *testing.T) {
	ctx := context.Background()
	platform := &fakePlatform{scheduleErr: errors.New("no push token")}
	mailer := &fakeMailer{}
	svc, _, _ := newNotificationFixture(t, platform, mailer)

	lastOpen := time.Now().Add(-5 * 24 * time.Hour)
	err := svc.SendReEngagement(ctx, "u1", notification.Preferences{Email: "u@example.com"}, lastOpen)
	require.NoError(t, err)

	assert.Equal(t, []string{"u@example.com"}, mailer.sent)
}

func TestSendReEngagementNoFallbackAvailable(t *testing.T) {
	ctx := context.Background()
	platform := &fakePlatform{scheduleErr: errors.New("no push token")}
	svc, coordinator, _ := newNotificationFixture(t, platform, nil)

	lastOpen := time.Now().Add(-2 * 24 * time.Hour)
	err := svc.SendReEngagement(ctx, "u1", notification.Preferences{}, lastOpen)
	require.Error(t, err)

	assert.Len(t, coordinator.PendingNotifications(ctx, "u1"), 1)
}

func TestSendReEngagementSkipsRecentlyActiveUser(t *testing.T) {
	ctx := context.Background()
	platform := &fakePlatform{}
	svc, _, _ := newNotificationFixture(t, platform, nil)

	err := svc.SendReEngagement(ctx, "u1", notification.Preferences{}, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, platform.scheduled)
}

func TestHandleTimezoneChangePreservesWallClock(t *testing.T) {
	ctx := context.Background()
	platform := &fakePlatform{}
	svc, _, _ := newNotificationFixture(t, platform, nil)

	prefs := notification.Preferences{PreferredHour: 7, Timezone: "America/New_York"}
	original, err := svc.ScheduleDailyMirror(ctx, "u1", prefs)
	require.NoError(t, err)

	require.NoError(t, svc.HandleTimezoneChange(ctx, "u1", "Asia/Tokyo"))

	pending := svc.Pending(ctx, "u1")
	require.Len(t, pending, 1)
	moved := pending[0]

	assert.Equal(t, "Asia/Tokyo", moved.Timezone)
	assert.Equal(t, original.ScheduledTime.Hour(), moved.ScheduledTime.Hour())
	assert.Equal(t, original.ScheduledTime.Minute(), moved.ScheduledTime.Minute())
	assert.True(t, moved.ScheduledTime.After(time.Now()))

	assert.Contains(t, platform.cancelled, original.ID)
}

func TestMarkFiredRemovesFromPending(t *testing.T) {
	ctx := context.Background()
	platform := &fakePlatform{}
	svc, _, _ := newNotificationFixture(t, platform, nil)

	scheduled, err := svc.ScheduleDailyMirror(ctx, "u1", notification.Preferences{PreferredHour: 7})
	require.NoError(t, err)

	require.NoError(t, svc.MarkFired(ctx, "u1", scheduled.ID))
	assert.Empty(t, svc.Pending(ctx, "u1"))

	assert.Error(t, svc.MarkFired(ctx, "u1", "unknown-id"))
}

func TestCancelAll(t *testing.T) {
	ctx := context.Background()
	platform := &fakePlatform{}
	svc, _, _ := newNotificationFixture(t, platform, nil)

	_, err := svc.ScheduleDailyMirror(ctx, "u1", notification.Preferences{PreferredHour: 7})
	require.NoError(t, err)
	_, err = svc.ScheduleFeedbackPrompt(ctx, "u1", "o1")
	require.NoError(t, err)

	require.NoError(t, svc.CancelAll(ctx, "u1"))
	assert.Empty(t, svc.Pending(ctx, "u1"))
	assert.Len(t, platform.cancelled, 2)
}

func TestScheduleAcquiresPushCapabilityOnce(t *testing.T) {
	ctx := context.Background()
	platform := &fakePlatform{}
	svc, _, _ := newNotificationFixture(t, platform, nil)
	prefs := notification.Preferences{PreferredHour: 7, Timezone: "UTC", EnableWeekends: true}

	_, err := svc.ScheduleDailyMirror(ctx, "u1", prefs)
	require.NoError(t, err)
	_, err = svc.ScheduleDailyMirror(ctx, "u1", prefs)
	require.NoError(t, err)

	assert.Equal(t, 1, platform.tokenCalls)
	require.NotEmpty(t, platform.scheduled)
	assert.Equal(t, "token", platform.scheduled[0].DeviceToken)
}

func TestSchedulePermissionDeniedParksForInApp(t *testing.T) {
	ctx := context.Background()
	platform := &fakePlatform{denyPermission: true}
	svc, coordinator, _ := newNotificationFixture(t, platform, nil)

	_, err := svc.ScheduleDailyMirror(ctx, "u1", notification.Preferences{PreferredHour: 7, Timezone: "UTC", EnableWeekends: true})
	require.ErrorIs(t, err, services.ErrPermissionDenied)
	assert.Empty(t, platform.scheduled)

	parked := coordinator.PendingNotifications(ctx, "u1")
	require.Len(t, parked, 1)
	assert.Equal(t, string(notification.TypeDailyMirror), parked[0].Type)
}

func TestScheduleUnsupportedEnvironmentSkipsPermanently(t *testing.T) {
	ctx := context.Background()
	platform := &fakePlatform{tokenErrs: []error{services.ErrPushUnsupported, services.ErrPushUnsupported}}
	svc, _, _ := newNotificationFixture(t, platform, nil)
	prefs := notification.Preferences{PreferredHour: 7, Timezone: "UTC", EnableWeekends: true}

	_, err := svc.ScheduleDailyMirror(ctx, "u1", prefs)
	require.NoError(t, err)
	_, err = svc.ScheduleFeedbackPrompt(ctx, "u1", "o1")
	require.NoError(t, err)

	// The unsupported environment is remembered; no second token attempt.
	assert.Equal(t, 1, platform.tokenCalls)
	require.Len(t, platform.scheduled, 2)
	assert.Empty(t, platform.scheduled[0].DeviceToken)
}

func TestScheduleRetriesTokenAfterTransientFailure(t *testing.T) {
	ctx := context.Background()
	config.PushTokenMaxAttempts = 1
	config.PushTokenBackoffStep = time.Millisecond

	platform := &fakePlatform{tokenErrs: []error{errors.New("gateway flake")}}
	svc, _, _ := newNotificationFixture(t, platform, nil)
	prefs := notification.Preferences{PreferredHour: 7, Timezone: "UTC", EnableWeekends: true}

	// First call exhausts its single attempt and schedules without a token.
	_, err := svc.ScheduleDailyMirror(ctx, "u1", prefs)
	require.NoError(t, err)
	require.Len(t, platform.scheduled, 1)
	assert.Empty(t, platform.scheduled[0].DeviceToken)

	// The unresolved state retries and lands the token this time.
	_, err = svc.ScheduleDailyMirror(ctx, "u1", prefs)
	require.NoError(t, err)
	assert.Equal(t, 2, platform.tokenCalls)
	require.Len(t, platform.scheduled, 2)
	assert.Equal(t, "token", platform.scheduled[1].DeviceToken)
}

func TestReEngagementPermissionDeniedFallsBackToEmail(t *testing.T) {
	ctx := context.Background()
	platform := &fakePlatform{denyPermission: true}
	mailer := &fakeMailer{}
	svc, _, _ := newNotificationFixture(t, platform, mailer)

	err := svc.SendReEngagement(ctx, "u1", notification.Preferences{Email: "sam@example.com"},
		time.Now().Add(-5*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"sam@example.com"}, mailer.sent)
	assert.Empty(t, platform.scheduled)
}
