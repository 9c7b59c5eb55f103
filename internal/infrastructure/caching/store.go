// Package caching provides the TTL-tagged envelope store layered over the
// persistent text key/value contract, plus the typed codecs that move time
// values across the serialization boundary.
package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dailymirror/mirror-go/internal/infrastructure/observability/logging"
	"github.com/dailymirror/mirror-go/internal/infrastructure/observability/performance"
	"github.com/dailymirror/mirror-go/internal/infrastructure/persistence"
)

// Entry is the wire envelope for every cached value. Legacy entries written
// before the envelope was introduced store the bare payload; readers accept
// both shapes.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	WrittenAt time.Time       `json:"writtenAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// Store wraps a persistence.Store with TTL envelopes. Reads past expiry evict
// and miss; corrupt entries evict, log, and miss — a parse failure never
// reaches the caller. Every Get feeds the rolling hit-rate.
type Store struct {
	backend persistence.Store
	logger  *logging.ChanneledLogger
	tracker *performance.Tracker
}

// NewStore creates a TTL cache store over the given backend. The tracker may
// be nil in contexts that do not report metrics.
func NewStore(backend persistence.Store, logger *logging.ChanneledLogger, tracker *performance.Tracker) *Store {
	return &Store{backend: backend, logger: logger, tracker: tracker}
}

// Get returns the payload for key, or found=false on miss, expiry, or
// corruption.
func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	start := time.Now()
	data, found := s.lookup(ctx, key)

	if s.tracker != nil {
		s.tracker.RecordCacheAccess(found)
	}
	if s.logger != nil {
		s.logger.LogCacheOperation("get", key, found, time.Since(start))
	}
	return data, found
}

func (s *Store) lookup(ctx context.Context, key string) (json.RawMessage, bool) {
	raw, found, err := s.backend.Get(ctx, key)
	if err != nil {
		if s.logger != nil {
			s.logger.Cache().Error("Cache backend read failed", "key", key, "error", err.Error())
		}
		return nil, false
	}
	if !found {
		return nil, false
	}

	entry, legacy, err := decodeEnvelope([]byte(raw))
	if err != nil {
		// Corrupt entry: evict silently and treat as a miss.
		s.evict(ctx, key, "corrupt", err)
		return nil, false
	}
	if legacy {
		// Bare payload without an envelope; age unknown, treat as valid.
		return json.RawMessage(raw), true
	}
	if time.Now().After(entry.ExpiresAt) {
		s.evict(ctx, key, "expired", nil)
		return nil, false
	}
	return entry.Data, true
}

// Set writes value under key with the given TTL.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive for key %s", key)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value for key %s: %w", key, err)
	}

	now := time.Now().UTC()
	entry := Entry{
		Data:      data,
		WrittenAt: now,
		ExpiresAt: now.Add(ttl),
	}

	encoded, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache envelope for key %s: %w", key, err)
	}

	if err := s.backend.Set(ctx, key, string(encoded)); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}

	if s.logger != nil {
		s.logger.Cache().Debug("Cache entry written", "key", key, "ttl", ttl)
	}
	return nil
}

// GetJSON decodes the cached payload for key into out. A payload that does
// not decode into the expected shape gets the corruption treatment: evicted
// and counted as a miss.
func (s *Store) GetJSON(ctx context.Context, key string, out any) bool {
	start := time.Now()
	data, found := s.lookup(ctx, key)
	if found {
		if err := json.Unmarshal(data, out); err != nil {
			s.evict(ctx, key, "undecodable", err)
			found = false
		}
	}

	if s.tracker != nil {
		s.tracker.RecordCacheAccess(found)
	}
	if s.logger != nil {
		s.logger.LogCacheOperation("getJson", key, found, time.Since(start))
	}
	return found
}

// Remove deletes the entry for key.
func (s *Store) Remove(ctx context.Context, key string) error {
	return s.backend.Remove(ctx, key)
}

// ListKeys returns all cache keys with the given prefix.
func (s *Store) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	return s.backend.ListKeys(ctx, prefix)
}

// Contains reports whether a valid, unexpired entry exists without counting
// toward the hit rate.
func (s *Store) Contains(ctx context.Context, key string) bool {
	data, found := s.lookup(ctx, key)
	return found && data != nil
}

// PurgeExpired scans keys under prefix and removes entries past their expiry.
// Returns the number of entries removed.
func (s *Store) PurgeExpired(ctx context.Context, prefix string) (int, error) {
	keys, err := s.backend.ListKeys(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to scan prefix %s: %w", prefix, err)
	}

	var removed int
	now := time.Now()
	for _, key := range keys {
		raw, found, err := s.backend.Get(ctx, key)
		if err != nil || !found {
			continue
		}
		entry, legacy, err := decodeEnvelope([]byte(raw))
		if err != nil {
			s.evict(ctx, key, "corrupt", err)
			removed++
			continue
		}
		if legacy {
			continue
		}
		if now.After(entry.ExpiresAt) {
			if err := s.backend.Remove(ctx, key); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// WrittenBefore reports whether the entry under key was written before cutoff.
// Legacy entries have no write timestamp and report false.
func (s *Store) WrittenBefore(ctx context.Context, key string, cutoff time.Time) bool {
	raw, found, err := s.backend.Get(ctx, key)
	if err != nil || !found {
		return false
	}
	entry, legacy, err := decodeEnvelope([]byte(raw))
	if err != nil || legacy {
		return false
	}
	return entry.WrittenAt.Before(cutoff)
}

func (s *Store) evict(ctx context.Context, key, reason string, cause error) {
	if err := s.backend.Remove(ctx, key); err != nil && s.logger != nil {
		s.logger.Cache().Error("Failed to evict cache entry", "key", key, "reason", reason, "error", err.Error())
		return
	}
	if s.logger != nil {
		attrs := []any{"key", key, "reason", reason}
		if cause != nil {
			attrs = append(attrs, "cause", cause.Error())
		}
		s.logger.Cache().Debug("Cache entry evicted", attrs...)
	}
}

// decodeEnvelope parses raw as an Entry, falling back to the legacy bare
// shape when no envelope fields are present. The error return means the bytes
// are not valid JSON at all.
func decodeEnvelope(raw []byte) (Entry, bool, error) {
	var shape struct {
		Data      json.RawMessage `json:"data"`
		WrittenAt *time.Time      `json:"writtenAt"`
		ExpiresAt *time.Time      `json:"expiresAt"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		// Not an object; could still be a legacy bare array or scalar.
		var anything any
		if jsonErr := json.Unmarshal(raw, &anything); jsonErr != nil {
			return Entry{}, false, fmt.Errorf("invalid cache entry: %w", jsonErr)
		}
		return Entry{}, true, nil
	}
	if shape.ExpiresAt == nil || shape.Data == nil {
		return Entry{}, true, nil
	}

	entry := Entry{Data: shape.Data, ExpiresAt: *shape.ExpiresAt}
	if shape.WrittenAt != nil {
		entry.WrittenAt = *shape.WrittenAt
	}
	return entry, false, nil
}
