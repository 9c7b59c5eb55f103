// Package cleanup provides the background retention worker that ages out
// expired cache envelopes and stale interaction records.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/dailymirror/mirror-go/internal/infrastructure/caching"
)

// Worker performs periodic store maintenance: purging expired entries and
// enforcing the retention windows long-lived data must not outlive.
type Worker struct {
	store  *caching.Store
	config *Config
}

// NewWorker creates a new cleanup worker with injected configuration.
func NewWorker(store *caching.Store, config *Config) *Worker {
	return &Worker{
		store:  store,
		config: config,
	}
}

// Start begins the cleanup routine. The first sweep runs shortly after boot
// to clear anything that expired while the process was down, then the
// configured interval takes over.
func (w *Worker) Start(ctx context.Context) {
	reporter := NewReporter(w.store)
	reporter.LogInfo("Cleanup worker started (interval: %v, verbose: %v)",
		w.config.CleanupInterval, w.config.VerboseReporting)

	select {
	case <-ctx.Done():
		return
	case <-time.After(w.config.FirstRunDelay):
		w.RunOnce(ctx)
	}

	ticker := time.NewTicker(w.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			reporter.LogInfo("Cleanup worker stopping...")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single full sweep.
func (w *Worker) RunOnce(ctx context.Context) {
	start := time.Now()
	reporter := NewReporter(w.store)

	if w.config.VerboseReporting {
		reporter.LogStage("PERIODIC STORE CLEANUP")
		fmt.Print(reporter.GenerateStoreReport(ctx))
	}

	totalCleaned := 0
	totalCleaned += w.purgeExpired(ctx, reporter)
	totalCleaned += w.enforceRetention(ctx, reporter, caching.PrefixRecommendations, w.config.RecommendationRetention)
	totalCleaned += w.enforceRetention(ctx, reporter, caching.PrefixInteraction, w.config.InteractionRetention)

	duration := time.Since(start)
	if totalCleaned > 0 {
		reporter.LogSuccess("Store cleanup finished: %d entries removed in %v", totalCleaned, duration)
	} else if w.config.VerboseReporting {
		reporter.LogInfo("Store cleanup completed - nothing to remove (%v)", duration)
	}
}

// purgeExpired removes entries whose TTL has lapsed across every namespace.
func (w *Worker) purgeExpired(ctx context.Context, reporter *Reporter) int {
	prefixes := []string{
		caching.PrefixRecommendations,
		caching.PrefixWardrobe,
		caching.PrefixWeather,
		caching.PrefixStyleProfile,
		caching.PrefixImage,
		caching.PrefixInteraction,
	}

	total := 0
	for _, prefix := range prefixes {
		select {
		case <-ctx.Done():
			return total
		default:
		}

		purged, err := w.store.PurgeExpired(ctx, prefix)
		if err != nil {
			reporter.LogError("Expired-entry purge failed for namespace "+prefix, err)
			continue
		}
		total += purged
	}
	return total
}

// enforceRetention removes entries written before the retention cutoff
// regardless of their TTL.
func (w *Worker) enforceRetention(ctx context.Context, reporter *Reporter, prefix string, retention time.Duration) int {
	cutoff := time.Now().UTC().Add(-retention)

	keys, err := w.store.ListKeys(ctx, prefix)
	if err != nil {
		reporter.LogError("Retention sweep failed to list namespace "+prefix, err)
		return 0
	}

	removed := 0
	for _, key := range keys {
		select {
		case <-ctx.Done():
			return removed
		default:
		}

		if !w.store.WrittenBefore(ctx, key, cutoff) {
			continue
		}
		if err := w.store.Remove(ctx, key); err != nil {
			reporter.LogError("Retention sweep failed to remove "+key, err)
			continue
		}
		removed++
	}
	return removed
}
