package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dailymirror/mirror-go/internal/domain/entities/feedback"
	"github.com/dailymirror/mirror-go/internal/infrastructure/caching"
)

// QueueFeedback appends an item to the queue, persists the full snapshot, and
// triggers the background drain if one is not already running. Concurrent
// enqueues during an active drain are honored without reordering because the
// drain re-checks queue length each iteration.
func (m *Manager) QueueFeedback(ctx context.Context, item *feedback.QueueItem) error {
	if item.ID == "" {
		item.ID = ulid.Make().String()
	}
	if item.QueuedAt.IsZero() {
		item.QueuedAt = time.Now().UTC()
	}

	m.mu.Lock()
	m.queue = append(m.queue, item)
	snapshot := m.snapshotLocked()
	startDrain := !m.isProcessing
	if startDrain {
		m.isProcessing = true
		m.drainDone = make(chan struct{})
	}
	m.mu.Unlock()

	if err := m.persistQueue(ctx, snapshot); err != nil {
		if m.logger != nil {
			m.logger.Feedback().Warn("Failed to persist feedback queue", "error", err.Error())
		}
	}

	if m.logger != nil {
		m.logger.Feedback().Debug("Feedback queued", "itemId", item.ID, "userId", item.UserID)
	}

	if startDrain {
		go m.drain(context.WithoutCancel(ctx))
	}
	return nil
}

// DrainPending processes every queued item synchronously. Used during
// shutdown, after any running background drain has finished.
func (m *Manager) DrainPending(ctx context.Context) {
	m.mu.Lock()
	for m.isProcessing {
		done := m.drainDone
		m.mu.Unlock()
		<-done
		m.mu.Lock()
	}
	m.isProcessing = true
	m.drainDone = make(chan struct{})
	m.mu.Unlock()

	m.drain(ctx)
}

// QueuedCount returns the number of items awaiting processing.
func (m *Manager) QueuedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// drain processes items strictly FIFO. At most one drain runs at a time,
// guarded by the isProcessing flag. The persisted snapshot is rewritten after
// each successfully processed item so a crash mid-drain re-delivers at most
// the item that was in flight.
func (m *Manager) drain(ctx context.Context) {
	consecutiveFailures := 0
	for {
		m.mu.Lock()
		if len(m.queue) == 0 || consecutiveFailures >= len(m.queue) {
			// The stop decision and the flag drop share one critical
			// section; an enqueue never observes a drain that is about to
			// exit.
			snapshot := m.snapshotLocked()
			m.isProcessing = false
			close(m.drainDone)
			m.mu.Unlock()
			if err := m.persistQueue(ctx, snapshot); err != nil && m.logger != nil {
				m.logger.Feedback().Warn("Failed to persist feedback queue", "error", err.Error())
			}
			return
		}
		item := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()

		if err := m.processFeedbackItem(ctx, item); err != nil {
			// The item stays in the queue (at the back) until it processes;
			// a full pass of failures stops the drain rather than spinning.
			consecutiveFailures++
			m.mu.Lock()
			m.queue = append(m.queue, item)
			m.mu.Unlock()
			if m.logger != nil {
				m.logger.Feedback().Error("Feedback processing failed, item requeued",
					"itemId", item.ID, "error", err.Error())
			}
			continue
		}
		consecutiveFailures = 0

		m.mu.Lock()
		snapshot := m.snapshotLocked()
		m.mu.Unlock()
		if err := m.persistQueue(ctx, snapshot); err != nil && m.logger != nil {
			m.logger.Feedback().Warn("Failed to persist feedback queue", "error", err.Error())
		}

		if m.logger != nil {
			m.logger.Feedback().Debug("Feedback processed", "itemId", item.ID, "userId", item.UserID)
		}
	}
}

// processFeedbackItem performs the per-item steps in order: transcribe any
// voice note, update the style-preference model, increment wear counters, and
// record a confidence-pattern data point. The item counts as processed only
// after all succeed.
func (m *Manager) processFeedbackItem(ctx context.Context, item *feedback.QueueItem) error {
	if item.VoiceNoteURL != "" && item.Comment == "" && m.scribe != nil {
		text, err := m.scribe.Transcribe(ctx, item.VoiceNoteURL)
		if err != nil {
			if m.logger != nil {
				m.logger.Feedback().Warn("Voice note transcription failed",
					"itemId", item.ID, "error", err.Error())
			}
		} else {
			item.Comment = text
		}
	}

	if err := m.intel.UpdateStylePreferences(ctx, item.UserID, item); err != nil {
		return fmt.Errorf("style preference update failed: %w", err)
	}
	m.refreshStyleProfile(ctx, item.UserID)

	if err := m.incrementWearCounters(ctx, item); err != nil {
		return fmt.Errorf("wear counter update failed: %w", err)
	}

	if err := m.intel.RecordConfidencePattern(ctx, item.UserID, item.OutfitID, item.Rating); err != nil {
		return fmt.Errorf("confidence pattern recording failed: %w", err)
	}

	return nil
}

// refreshStyleProfile re-caches the preference profile after an update has
// landed. Best effort; a fetch failure leaves the prior cached profile.
func (m *Manager) refreshStyleProfile(ctx context.Context, userID string) {
	profile, err := m.intel.StyleProfile(ctx, userID)
	if err != nil || profile == nil {
		return
	}
	profile.UserID = userID
	if cacheErr := m.CacheStyleProfile(ctx, profile); cacheErr != nil && m.logger != nil {
		m.logger.Cache().Warn("Failed to cache style profile", "userId", userID, "error", cacheErr.Error())
	}
}

// incrementWearCounters bumps usage counts on the cached wardrobe snapshot
// for the items referenced by the feedback.
func (m *Manager) incrementWearCounters(ctx context.Context, item *feedback.QueueItem) error {
	if len(item.ItemIDs) == 0 {
		return nil
	}

	wardrobe, found := m.GetCachedWardrobe(ctx, item.UserID)
	if !found {
		return nil
	}

	referenced := make(map[string]bool, len(item.ItemIDs))
	for _, id := range item.ItemIDs {
		referenced[id] = true
	}

	now := time.Now().UTC()
	for i := range wardrobe {
		if referenced[wardrobe[i].ID] {
			wardrobe[i].TimesWorn++
			wardrobe[i].LastWornAt = &now
		}
	}

	return m.CacheWardrobe(ctx, item.UserID, wardrobe)
}

func (m *Manager) snapshotLocked() []*feedback.QueueItem {
	return append([]*feedback.QueueItem(nil), m.queue...)
}

func (m *Manager) persistQueue(ctx context.Context, snapshot []*feedback.QueueItem) error {
	// The queue snapshot must survive restarts; the generous TTL only matters
	// for abandoned installs.
	return m.store.Set(ctx, caching.KeyFeedbackQueue, snapshot, caching.TTLWardrobe())
}
