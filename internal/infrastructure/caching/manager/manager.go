// Package manager provides centralized cache operations for the Daily Mirror
// backend: recommendation pre-generation, date-keyed recommendation caching,
// image optimization mapping, the feedback queue, a generic query cache, and
// rolling performance metrics.
package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dailymirror/mirror-go/internal/domain/entities/feedback"
	"github.com/dailymirror/mirror-go/internal/domain/entities/recommendation"
	"github.com/dailymirror/mirror-go/internal/domain/services"
	"github.com/dailymirror/mirror-go/internal/infrastructure/caching"
	"github.com/dailymirror/mirror-go/internal/infrastructure/observability/logging"
	"github.com/dailymirror/mirror-go/internal/infrastructure/observability/performance"
	"github.com/dailymirror/mirror-go/internal/infrastructure/retry"
	"github.com/dailymirror/mirror-go/pkg/config"
)

// URIOptimizer produces an optimized form of an image URI.
type URIOptimizer interface {
	Optimize(uri string) (string, error)
}

// Manager owns the in-memory feedback queue and the process-wide metrics
// state, and is solely responsible for persisting and reloading both.
type Manager struct {
	store     *caching.Store
	executor  *retry.Executor
	tracker   *performance.Tracker
	logger    *logging.ChanneledLogger
	provider  services.RecommendationProvider
	intel     services.StyleIntelligence
	scribe    services.Transcriber
	optimizer URIOptimizer

	mu           sync.Mutex
	queue        []*feedback.QueueItem
	isProcessing bool
	drainDone    chan struct{}
}

// NewManager wires the cache manager. The transcriber may be nil; voice notes
// are then processed without transcription.
func NewManager(
	store *caching.Store,
	executor *retry.Executor,
	tracker *performance.Tracker,
	logger *logging.ChanneledLogger,
	provider services.RecommendationProvider,
	intel services.StyleIntelligence,
	scribe services.Transcriber,
	optimizer URIOptimizer,
) *Manager {
	m := &Manager{
		store:     store,
		executor:  executor,
		tracker:   tracker,
		logger:    logger,
		provider:  provider,
		intel:     intel,
		scribe:    scribe,
		optimizer: optimizer,
	}

	// Metrics snapshots are persisted after every update.
	tracker.OnUpdate(func(snapshot performance.Metrics) {
		m.persistMetrics(snapshot)
	})

	if logger != nil {
		logger.Cache().Info("Cache manager initialized")
	}
	return m
}

// Store exposes the underlying TTL store to collaborating components.
func (m *Manager) Store() *caching.Store { return m.store }

// RestoreState reloads the persisted feedback queue and, when fresh enough,
// the metrics snapshot. Called once at startup.
func (m *Manager) RestoreState(ctx context.Context) {
	var queued []*feedback.QueueItem
	if m.store.GetJSON(ctx, caching.KeyFeedbackQueue, &queued) && len(queued) > 0 {
		m.mu.Lock()
		m.queue = queued
		m.mu.Unlock()
		if m.logger != nil {
			m.logger.Feedback().Info("Feedback queue restored", "pending", len(queued))
		}
	}

	var metrics performance.Metrics
	if m.store.GetJSON(ctx, caching.KeyMetrics, &metrics) {
		if m.tracker.Restore(metrics, config.MetricsReloadWindow) {
			if m.logger != nil {
				m.logger.Perf().Info("Performance metrics restored", "lastUpdated", metrics.LastUpdated)
			}
		}
	}
}

// PreGenerate populates the next calendar day's recommendation cache.
// Idempotent: if the entry already exists the generator is not invoked.
func (m *Manager) PreGenerate(ctx context.Context, userID string) error {
	tomorrow := time.Now().UTC().AddDate(0, 0, 1)
	key := caching.KeyRecommendations(userID, tomorrow)

	if m.store.Contains(ctx, key) {
		if m.logger != nil {
			m.logger.Cache().Debug("Pre-generation skipped, cache populated", "key", key)
		}
		return nil
	}

	start := time.Now()
	rec, err := retry.Do(ctx, m.executor, retry.OperationContext{
		Service:   "recommendation-generator",
		Operation: "preGenerate",
		UserID:    userID,
	}, nil, func(ctx context.Context) (*recommendation.DailyRecommendations, error) {
		return m.provider.GenerateDailyRecommendations(ctx, userID)
	})
	if err != nil {
		m.tracker.RecordOutcome(true)
		return fmt.Errorf("pre-generation failed for user %s: %w", userID, err)
	}

	rec.Date = tomorrow
	if err := m.CacheRecommendations(ctx, rec); err != nil {
		return err
	}

	m.tracker.RecordGenerationLatency(time.Since(start))
	m.tracker.RecordOutcome(false)
	return nil
}

// CacheRecommendations stores a recommendation set under its date key.
func (m *Manager) CacheRecommendations(ctx context.Context, rec *recommendation.DailyRecommendations) error {
	encoded, err := caching.EncodeDailyRecommendations(rec)
	if err != nil {
		return err
	}
	key := caching.KeyRecommendations(rec.UserID, rec.Date)
	return m.store.Set(ctx, key, json.RawMessage(encoded), caching.TTLRecommendations())
}

// GetCachedRecommendations returns the cached set for the given day,
// rehydrating every time field through the entity codec.
func (m *Manager) GetCachedRecommendations(ctx context.Context, userID string, date time.Time) (*recommendation.DailyRecommendations, bool) {
	data, found := m.store.Get(ctx, caching.KeyRecommendations(userID, date))
	if !found {
		return nil, false
	}
	rec, err := caching.DecodeDailyRecommendations(data)
	if err != nil {
		if m.logger != nil {
			m.logger.Cache().Warn("Cached recommendations undecodable", "userId", userID, "error", err.Error())
		}
		return nil, false
	}
	return rec, true
}

// CacheWardrobe stores the user's wardrobe snapshot.
func (m *Manager) CacheWardrobe(ctx context.Context, userID string, items []recommendation.WardrobeItem) error {
	encoded, err := caching.EncodeWardrobe(items)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, caching.KeyWardrobe(userID), json.RawMessage(encoded), caching.TTLWardrobe())
}

// GetCachedWardrobe returns the cached wardrobe snapshot.
func (m *Manager) GetCachedWardrobe(ctx context.Context, userID string) ([]recommendation.WardrobeItem, bool) {
	data, found := m.store.Get(ctx, caching.KeyWardrobe(userID))
	if !found {
		return nil, false
	}
	items, err := caching.DecodeWardrobe(data)
	if err != nil {
		return nil, false
	}
	return items, true
}

// CacheStyleProfile stores the preference profile the rule tier reads.
func (m *Manager) CacheStyleProfile(ctx context.Context, profile *recommendation.StyleProfile) error {
	return m.store.Set(ctx, caching.KeyStyleProfile(profile.UserID), profile, caching.TTLStyleProfile())
}

// GetCachedStyleProfile returns the cached preference profile.
func (m *Manager) GetCachedStyleProfile(ctx context.Context, userID string) (*recommendation.StyleProfile, bool) {
	var profile recommendation.StyleProfile
	if !m.store.GetJSON(ctx, caching.KeyStyleProfile(userID), &profile) {
		return nil, false
	}
	return &profile, true
}

// CacheWeather stores the current weather context for a user.
func (m *Manager) CacheWeather(ctx context.Context, userID string, weather recommendation.WeatherContext) error {
	encoded, err := caching.EncodeWeather(weather)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, caching.KeyWeather(userID), json.RawMessage(encoded), caching.TTLWeather())
}

// GetCachedWeather returns the cached weather context.
func (m *Manager) GetCachedWeather(ctx context.Context, userID string) (recommendation.WeatherContext, bool) {
	data, found := m.store.Get(ctx, caching.KeyWeather(userID))
	if !found {
		return recommendation.WeatherContext{}, false
	}
	weather, err := caching.DecodeWeather(data)
	if err != nil {
		return recommendation.WeatherContext{}, false
	}
	return weather, true
}

// OptimizeImage returns the optimized URI for uri, producing and caching the
// mapping on first use.
func (m *Manager) OptimizeImage(ctx context.Context, uri string) string {
	key := caching.KeyImage(caching.HashURI(uri))

	var cached string
	if m.store.GetJSON(ctx, key, &cached) {
		return cached
	}

	start := time.Now()
	optimized, err := m.optimizer.Optimize(uri)
	if err != nil {
		if m.logger != nil {
			m.logger.Media().Warn("Image optimization failed, using original", "error", err.Error())
		}
		return uri
	}

	if err := m.store.Set(ctx, key, optimized, caching.TTLOptimizedImage()); err != nil && m.logger != nil {
		m.logger.Cache().Warn("Failed to cache image mapping", "error", err.Error())
	}
	m.tracker.RecordImageLatency(time.Since(start))
	return optimized
}

// RecordInteraction persists a worn/favorite event for later analysis; these
// records age out after the interaction retention window.
func (m *Manager) RecordInteraction(ctx context.Context, userID, outfitID, action string) error {
	record := map[string]string{
		"outfitId": outfitID,
		"action":   action,
		"at":       time.Now().UTC().Format(time.RFC3339),
	}
	key := caching.KeyInteraction(userID, ulid.Make().String())
	return m.store.Set(ctx, key, record, config.InteractionRetention)
}

// Query is the cache-aside wrapper: a hit returns immediately; a miss invokes
// fn through the retry executor, caches the result, and returns it.
func Query[T any](ctx context.Context, m *Manager, cacheKey string, ttl time.Duration, opCtx retry.OperationContext, fn func(context.Context) (T, error)) (T, error) {
	var cached T
	if cacheKey != "" && m.store.GetJSON(ctx, cacheKey, &cached) {
		return cached, nil
	}

	start := time.Now()
	result, err := retry.Do(ctx, m.executor, opCtx, nil, fn)
	if err != nil {
		m.tracker.RecordOutcome(true)
		var zero T
		return zero, err
	}
	m.tracker.RecordQueryLatency(time.Since(start))
	m.tracker.RecordOutcome(false)

	if cacheKey != "" {
		if ttl <= 0 {
			ttl = caching.TTLRecommendations()
		}
		if err := m.store.Set(ctx, cacheKey, result, ttl); err != nil && m.logger != nil {
			m.logger.Cache().Warn("Failed to cache query result", "key", cacheKey, "error", err.Error())
		}
	}
	return result, nil
}

func (m *Manager) persistMetrics(snapshot performance.Metrics) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.store.Set(ctx, caching.KeyMetrics, snapshot, caching.TTLMetrics()); err != nil && m.logger != nil {
		m.logger.Perf().Warn("Failed to persist metrics snapshot", "error", err.Error())
	}
}

// Metrics returns the current metrics snapshot.
func (m *Manager) Metrics() performance.Metrics {
	return m.tracker.Snapshot()
}

// FlushMetrics writes the current metrics snapshot through to the store.
// Called during shutdown.
func (m *Manager) FlushMetrics() {
	m.persistMetrics(m.tracker.Snapshot())
}

// ActiveUserIDs lists the users with a cached wardrobe, the population the
// nightly pre-generation sweep covers.
func (m *Manager) ActiveUserIDs(ctx context.Context) []string {
	keys, err := m.store.ListKeys(ctx, caching.PrefixWardrobe)
	if err != nil {
		if m.logger != nil {
			m.logger.Cache().Warn("Failed to list active users", "error", err.Error())
		}
		return nil
	}
	userIDs := make([]string, 0, len(keys))
	for _, key := range keys {
		userIDs = append(userIDs, strings.TrimPrefix(key, caching.PrefixWardrobe))
	}
	return userIDs
}
