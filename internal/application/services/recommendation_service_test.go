package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailymirror/mirror-go/internal/domain/entities/feedback"
	"github.com/dailymirror/mirror-go/internal/domain/entities/notification"
	"github.com/dailymirror/mirror-go/internal/domain/entities/recommendation"
	"github.com/dailymirror/mirror-go/internal/infrastructure/caching"
	"github.com/dailymirror/mirror-go/internal/infrastructure/caching/manager"
	"github.com/dailymirror/mirror-go/internal/infrastructure/observability/performance"
	"github.com/dailymirror/mirror-go/internal/infrastructure/persistence"
	"github.com/dailymirror/mirror-go/internal/infrastructure/resilience"
	"github.com/dailymirror/mirror-go/internal/infrastructure/retry"
)

type recordingProvider struct {
	rec       *recommendation.DailyRecommendations
	genErr    error
	wornErr   error
	worn      []string
	favorites []string
}

func (p *recordingProvider) GenerateDailyRecommendations(ctx context.Context, userID string) (*recommendation.DailyRecommendations, error) {
	if p.genErr != nil {
		return nil, p.genErr
	}
	rec := *p.rec
	rec.UserID = userID
	return &rec, nil
}

func (p *recordingProvider) LogOutfitAsWorn(ctx context.Context, userID, outfitID string) error {
	if p.wornErr != nil {
		return p.wornErr
	}
	p.worn = append(p.worn, outfitID)
	return nil
}

func (p *recordingProvider) SaveOutfitToFavorites(ctx context.Context, userID, outfitID string) error {
	p.favorites = append(p.favorites, outfitID)
	return nil
}

type passthroughOptimizer struct{ calls int }

func (o *passthroughOptimizer) Optimize(uri string) (string, error) {
	o.calls++
	return "opt://" + uri, nil
}

type recordingIntel struct{ updated int }

func (r *recordingIntel) UpdateStylePreferences(ctx context.Context, userID string, item *feedback.QueueItem) error {
	r.updated++
	return nil
}

func (r *recordingIntel) RecordConfidencePattern(ctx context.Context, userID, outfitID string, rating int) error {
	return nil
}

func (r *recordingIntel) StyleProfile(ctx context.Context, userID string) (*recommendation.StyleProfile, error) {
	return nil, nil
}

func newRecommendationFixture(t *testing.T, provider *recordingProvider) (*RecommendationService, *manager.Manager, *fakePlatform) {
	t.Helper()

	logger := quietLogger(t)
	store := caching.NewStore(persistence.NewMemoryStore(), nil, nil)
	executor := retry.NewExecutor(nil)
	cache := manager.NewManager(store, executor, performance.NewTracker(nil), nil,
		provider, &recordingIntel{}, nil, &passthroughOptimizer{})
	coordinator := resilience.NewCoordinator(cache, executor, provider, nil, nullWardrobe{}, nil, nil)

	platform := &fakePlatform{}
	notifications := NewNotificationService(store, platform, coordinator, nil, logger)
	svc := NewRecommendationService(coordinator, cache, provider, notifications, logger)
	return svc, cache, platform
}

func TestTodayOptimizesPhotoURIs(t *testing.T) {
	ctx := context.Background()
	provider := &recordingProvider{rec: &recommendation.DailyRecommendations{
		Outfits: []recommendation.Outfit{
			{ID: "o1", Items: []recommendation.WardrobeItem{
				{ID: "i1", PhotoURI: "photos/top.jpg"},
				{ID: "i2"},
			}},
		},
		GeneratedAt: time.Now().UTC(),
	}}
	svc, _, _ := newRecommendationFixture(t, provider)

	got := svc.Today(ctx, "u1")
	require.NotNil(t, got)
	assert.Equal(t, recommendation.SourceGenerated, got.Source)
	assert.Equal(t, "opt://photos/top.jpg", got.Outfits[0].Items[0].PhotoURI)
	assert.Empty(t, got.Outfits[0].Items[1].PhotoURI)
}

func TestMarkWornSchedulesFeedbackPrompt(t *testing.T) {
	ctx := context.Background()
	provider := &recordingProvider{}
	svc, cache, platform := newRecommendationFixture(t, provider)

	require.NoError(t, svc.MarkWorn(ctx, "u1", "outfit-1"))

	assert.Equal(t, []string{"outfit-1"}, provider.worn)
	require.Len(t, platform.scheduled, 1)
	assert.Equal(t, notification.TypeFeedbackPrompt, platform.scheduled[0].Type)
	assert.Equal(t, "outfit-1", platform.scheduled[0].Payload["outfitId"])

	// The wear interaction is persisted for timing optimization.
	keys, err := cache.Store().ListKeys(ctx, caching.PrefixInteraction)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestMarkWornProviderFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	provider := &recordingProvider{wornErr: errors.New("style api down")}
	svc, _, platform := newRecommendationFixture(t, provider)

	require.Error(t, svc.MarkWorn(ctx, "u1", "outfit-1"))
	assert.Empty(t, platform.scheduled)
}

func TestSaveFavorite(t *testing.T) {
	ctx := context.Background()
	provider := &recordingProvider{}
	svc, _, _ := newRecommendationFixture(t, provider)

	require.NoError(t, svc.SaveFavorite(ctx, "u1", "outfit-7"))
	assert.Equal(t, []string{"outfit-7"}, provider.favorites)
}

func TestPreGenerateForSweepsUsers(t *testing.T) {
	ctx := context.Background()
	provider := &recordingProvider{rec: &recommendation.DailyRecommendations{
		Outfits:     []recommendation.Outfit{{ID: "o1"}},
		GeneratedAt: time.Now().UTC(),
	}}
	svc, cache, _ := newRecommendationFixture(t, provider)

	svc.PreGenerateFor(ctx, []string{"alice", "bob"})

	tomorrow := time.Now().UTC().AddDate(0, 0, 1)
	_, found := cache.GetCachedRecommendations(ctx, "alice", tomorrow)
	assert.True(t, found)
	_, found = cache.GetCachedRecommendations(ctx, "bob", tomorrow)
	assert.True(t, found)
}

func TestPreGenerateForStopsOnCancelledContext(t *testing.T) {
	provider := &recordingProvider{rec: &recommendation.DailyRecommendations{
		Outfits:     []recommendation.Outfit{{ID: "o1"}},
		GeneratedAt: time.Now().UTC(),
	}}
	svc, cache, _ := newRecommendationFixture(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.PreGenerateFor(ctx, []string{"alice"})

	tomorrow := time.Now().UTC().AddDate(0, 0, 1)
	_, found := cache.GetCachedRecommendations(context.Background(), "alice", tomorrow)
	assert.False(t, found)
}
