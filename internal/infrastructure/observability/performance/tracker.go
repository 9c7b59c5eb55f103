// Package performance provides rolling performance metrics for Daily Mirror
// operations: bounded latency samples plus smoothed hit and error rates.
package performance

import (
	"sync"
	"time"
)

// Metrics is the persisted snapshot of the tracker's state.
type Metrics struct {
	GenerationLatencies []float64 `json:"generationLatencies"` // milliseconds
	ImageLoadLatencies  []float64 `json:"imageLoadLatencies"`  // milliseconds
	QueryLatencies      []float64 `json:"queryLatencies"`      // milliseconds
	CacheHitRate        float64   `json:"cacheHitRate"`
	ErrorRate           float64   `json:"errorRate"`
	LastUpdated         time.Time `json:"lastUpdated"`
}

// TrackerConfig contains configuration options for the performance tracker
type TrackerConfig struct {
	SampleCap int     `json:"sampleCap"` // Maximum samples retained per latency series
	EMAAlpha  float64 `json:"emaAlpha"`  // Smoothing weight for hit/error rates
}

// DefaultTrackerConfig returns a sensible default configuration
func DefaultTrackerConfig() *TrackerConfig {
	return &TrackerConfig{
		SampleCap: 100,
		EMAAlpha:  0.1,
	}
}

// Tracker manages rolling performance metrics. An optional onUpdate hook
// receives a snapshot after every mutation; the cache manager uses it to
// persist the metrics record.
type Tracker struct {
	mu       sync.Mutex
	metrics  Metrics
	config   *TrackerConfig
	onUpdate func(Metrics)
}

// NewTracker creates a tracker with the given configuration.
func NewTracker(config *TrackerConfig) *Tracker {
	if config == nil {
		config = DefaultTrackerConfig()
	}
	if config.SampleCap <= 0 {
		config.SampleCap = 100
	}
	return &Tracker{
		metrics: Metrics{
			GenerationLatencies: make([]float64, 0, config.SampleCap),
			ImageLoadLatencies:  make([]float64, 0, config.SampleCap),
			QueryLatencies:      make([]float64, 0, config.SampleCap),
		},
		config: config,
	}
}

// OnUpdate registers the hook invoked with a snapshot after every update.
func (t *Tracker) OnUpdate(fn func(Metrics)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onUpdate = fn
}

// Restore replaces the tracker state with a persisted snapshot, provided the
// snapshot is younger than the staleness window.
func (t *Tracker) Restore(m Metrics, window time.Duration) bool {
	if time.Since(m.LastUpdated) > window {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics = m
	t.trimLocked()
	return true
}

// RecordGenerationLatency pushes one recommendation-generation sample.
func (t *Tracker) RecordGenerationLatency(d time.Duration) {
	t.record(func(m *Metrics) {
		m.GenerationLatencies = pushCapped(m.GenerationLatencies, float64(d.Milliseconds()), t.config.SampleCap)
	})
}

// RecordImageLatency pushes one image-optimization sample.
func (t *Tracker) RecordImageLatency(d time.Duration) {
	t.record(func(m *Metrics) {
		m.ImageLoadLatencies = pushCapped(m.ImageLoadLatencies, float64(d.Milliseconds()), t.config.SampleCap)
	})
}

// RecordQueryLatency pushes one cached-query sample.
func (t *Tracker) RecordQueryLatency(d time.Duration) {
	t.record(func(m *Metrics) {
		m.QueryLatencies = pushCapped(m.QueryLatencies, float64(d.Milliseconds()), t.config.SampleCap)
	})
}

// RecordCacheAccess blends one hit or miss into the hit-rate EMA.
func (t *Tracker) RecordCacheAccess(hit bool) {
	target := 0.0
	if hit {
		target = 1.0
	}
	t.record(func(m *Metrics) {
		m.CacheHitRate = t.blend(m.CacheHitRate, target)
	})
}

// RecordOutcome blends one success or failure into the error-rate EMA.
func (t *Tracker) RecordOutcome(failed bool) {
	target := 0.0
	if failed {
		target = 1.0
	}
	t.record(func(m *Metrics) {
		m.ErrorRate = t.blend(m.ErrorRate, target)
	})
}

// Snapshot returns a copy of the current metrics.
func (t *Tracker) Snapshot() Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.copyLocked()
}

func (t *Tracker) record(mutate func(*Metrics)) {
	t.mu.Lock()
	mutate(&t.metrics)
	t.metrics.LastUpdated = time.Now().UTC()
	snapshot := t.copyLocked()
	hook := t.onUpdate
	t.mu.Unlock()

	if hook != nil {
		hook(snapshot)
	}
}

func (t *Tracker) blend(current, target float64) float64 {
	alpha := t.config.EMAAlpha
	return current*(1-alpha) + target*alpha
}

func (t *Tracker) copyLocked() Metrics {
	out := t.metrics
	out.GenerationLatencies = append([]float64(nil), t.metrics.GenerationLatencies...)
	out.ImageLoadLatencies = append([]float64(nil), t.metrics.ImageLoadLatencies...)
	out.QueryLatencies = append([]float64(nil), t.metrics.QueryLatencies...)
	return out
}

func (t *Tracker) trimLocked() {
	limit := t.config.SampleCap
	t.metrics.GenerationLatencies = tail(t.metrics.GenerationLatencies, limit)
	t.metrics.ImageLoadLatencies = tail(t.metrics.ImageLoadLatencies, limit)
	t.metrics.QueryLatencies = tail(t.metrics.QueryLatencies, limit)
}

// pushCapped appends a sample, dropping the oldest once the cap is reached.
func pushCapped(samples []float64, v float64, limit int) []float64 {
	samples = append(samples, v)
	return tail(samples, limit)
}

func tail(samples []float64, n int) []float64 {
	if len(samples) <= n {
		return samples
	}
	return samples[len(samples)-n:]
}
