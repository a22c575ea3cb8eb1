// backpressure.go: adaptive batch-size/flush-interval tuning under load
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"sync"
	"time"
)

// AdaptiveBackpressureConfig bounds an AdaptiveBackpressure controller.
type AdaptiveBackpressureConfig struct {
	MinBatchSize, MaxBatchSize         int64
	MinFlushInterval, MaxFlushInterval time.Duration

	// HighWatermark/LowWatermark are queue fraction-full thresholds, each
	// in [0,1]. At or above HighWatermark the controller grows batch size
	// and shrinks flush interval; at or below LowWatermark it does the
	// inverse.
	HighWatermark, LowWatermark float64

	// AdaptationRate is the fraction of the gap to the bound closed on each
	// adjustment, in (0,1]. Smaller values adapt more gradually.
	AdaptationRate float64

	// MinAdjustInterval rate-limits how often an adjustment can occur,
	// regardless of how frequently Observe is called.
	MinAdjustInterval time.Duration
}

// AdaptiveBackpressure tunes a drain loop's batch size and flush interval
// from observed queue pressure, the way §4.10 describes: batch size up and
// flush interval down when load exceeds the high watermark, the inverse
// below the low watermark, rate-limited, with all state behind one mutex.
// Unlike internal/zephyroslite's idle strategy (CPU spin/sleep idling when
// the ring is empty), this observes queue fullness to decide how eagerly a
// consumer should drain, so it is a new component rather than an
// adaptation of teacher code. Per-batch duration is accepted by Observe but
// does not influence any adjustment.
type AdaptiveBackpressure struct {
	mu  sync.Mutex
	cfg AdaptiveBackpressureConfig

	batchSize     int64
	flushInterval time.Duration
	lastAdjust    time.Time
}

// NewAdaptiveBackpressure builds a controller per cfg, filling in sane
// defaults for any zero-valued bound.
func NewAdaptiveBackpressure(cfg AdaptiveBackpressureConfig) *AdaptiveBackpressure {
	if cfg.MinBatchSize <= 0 {
		cfg.MinBatchSize = 1
	}
	if cfg.MaxBatchSize < cfg.MinBatchSize {
		cfg.MaxBatchSize = cfg.MinBatchSize * 16
	}
	if cfg.MinFlushInterval <= 0 {
		cfg.MinFlushInterval = 5 * time.Millisecond
	}
	if cfg.MaxFlushInterval < cfg.MinFlushInterval {
		cfg.MaxFlushInterval = cfg.MinFlushInterval * 20
	}
	if cfg.HighWatermark <= 0 {
		cfg.HighWatermark = 0.8
	}
	if cfg.LowWatermark <= 0 {
		cfg.LowWatermark = 0.2
	}
	if cfg.AdaptationRate <= 0 || cfg.AdaptationRate > 1 {
		cfg.AdaptationRate = 0.25
	}
	if cfg.MinAdjustInterval <= 0 {
		cfg.MinAdjustInterval = 50 * time.Millisecond
	}
	return &AdaptiveBackpressure{
		cfg:           cfg,
		batchSize:     cfg.MinBatchSize,
		flushInterval: cfg.MaxFlushInterval,
	}
}

func moveToward(cur, target, rate float64) float64 {
	return cur + (target-cur)*rate
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Observe takes one drain cycle's queue fraction-full (0..1) and how long
// the batch took to process, nudging batchSize/flushInterval toward their
// high- or low-load bound when fractionFull crosses a watermark. The batch
// duration is ignored; only fractionFull drives the adjustment. Calls
// within MinAdjustInterval of the last adjustment are no-ops, so a burst of
// drain cycles cannot thrash the controller.
func (a *AdaptiveBackpressure) Observe(fractionFull float64, _ time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if time.Since(a.lastAdjust) < a.cfg.MinAdjustInterval {
		return
	}

	switch {
	case fractionFull >= a.cfg.HighWatermark:
		a.batchSize = int64(clampFloat(
			moveToward(float64(a.batchSize), float64(a.cfg.MaxBatchSize), a.cfg.AdaptationRate),
			float64(a.cfg.MinBatchSize), float64(a.cfg.MaxBatchSize)))
		a.flushInterval = time.Duration(clampFloat(
			moveToward(float64(a.flushInterval), float64(a.cfg.MinFlushInterval), a.cfg.AdaptationRate),
			float64(a.cfg.MinFlushInterval), float64(a.cfg.MaxFlushInterval)))
		a.lastAdjust = time.Now()
	case fractionFull <= a.cfg.LowWatermark:
		a.batchSize = int64(clampFloat(
			moveToward(float64(a.batchSize), float64(a.cfg.MinBatchSize), a.cfg.AdaptationRate),
			float64(a.cfg.MinBatchSize), float64(a.cfg.MaxBatchSize)))
		a.flushInterval = time.Duration(clampFloat(
			moveToward(float64(a.flushInterval), float64(a.cfg.MaxFlushInterval), a.cfg.AdaptationRate),
			float64(a.cfg.MinFlushInterval), float64(a.cfg.MaxFlushInterval)))
		a.lastAdjust = time.Now()
	}
}

// BatchSize returns the controller's current tuned batch size.
func (a *AdaptiveBackpressure) BatchSize() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.batchSize
}

// FlushInterval returns the controller's current tuned flush interval.
func (a *AdaptiveBackpressure) FlushInterval() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.flushInterval
}
