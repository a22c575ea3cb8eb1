// sampler.go: log sampling strategies for high-volume record streams
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/agilira/go-timecache"
	"github.com/cespare/xxhash/v2"
)

// Sampler decides whether a record that has already cleared the level gate
// is retained or dropped. Allow is called on the hot path and must not
// allocate or block.
type Sampler interface {
	Allow(r *Record) bool
	Stats() SamplingStats
}

// SamplingStats reports sampling outcomes for metrics and diagnostics.
type SamplingStats struct {
	Sampled int64
	Dropped int64
}

func (s SamplingStats) Total() int64 { return s.Sampled + s.Dropped }

// SamplingRate returns the fraction (0..1) of records retained.
func (s SamplingStats) SamplingRate() float64 {
	if s.Total() == 0 {
		return 0
	}
	return float64(s.Sampled) / float64(s.Total())
}

// RandomSampler retains each record independently with probability Rate.
type RandomSampler struct {
	Rate    float64
	sampled int64
	dropped int64
}

// NewRandomSampler creates a RandomSampler retaining the given fraction
// (0.0-1.0) of records.
func NewRandomSampler(rate float64) *RandomSampler {
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	return &RandomSampler{Rate: rate}
}

func (s *RandomSampler) Allow(_ *Record) bool {
	if rand.Float64() < s.Rate {
		atomic.AddInt64(&s.sampled, 1)
		return true
	}
	atomic.AddInt64(&s.dropped, 1)
	return false
}

func (s *RandomSampler) Stats() SamplingStats {
	return SamplingStats{Sampled: atomic.LoadInt64(&s.sampled), Dropped: atomic.LoadInt64(&s.dropped)}
}

// RateLimitSampler caps throughput with a token bucket, using the cached
// monotonic clock (agilira/go-timecache) to avoid a syscall per record on
// the hot path.
type RateLimitSampler struct {
	capacity int64
	refill   int64
	every    time.Duration

	tokens  atomic.Int64
	last    atomic.Int64
	sampled int64
	dropped int64
}

// NewRateLimitSampler creates a token-bucket sampler: up to capacity
// records burst through immediately, then refill tokens are added every
// "every" duration.
func NewRateLimitSampler(capacity, refill int64, every time.Duration) *RateLimitSampler {
	if capacity <= 0 {
		capacity = 1
	}
	if refill <= 0 {
		refill = 1
	}
	if every <= 0 {
		every = time.Millisecond
	}
	s := &RateLimitSampler{capacity: capacity, refill: refill, every: every}
	s.tokens.Store(capacity)
	s.last.Store(timecache.CachedTimeNano())
	return s
}

func (s *RateLimitSampler) Allow(_ *Record) bool {
	now := timecache.CachedTimeNano()
	last := s.last.Load()

	elapsed := now - last
	toAdd := elapsed / s.every.Nanoseconds() * s.refill
	if toAdd > 0 && s.last.CompareAndSwap(last, now) {
		current := s.tokens.Load()
		next := current + toAdd
		if next > s.capacity {
			next = s.capacity
		}
		s.tokens.Store(next)
	}

	for {
		current := s.tokens.Load()
		if current <= 0 {
			atomic.AddInt64(&s.dropped, 1)
			return false
		}
		if s.tokens.CompareAndSwap(current, current-1) {
			atomic.AddInt64(&s.sampled, 1)
			return true
		}
	}
}

func (s *RateLimitSampler) Stats() SamplingStats {
	return SamplingStats{Sampled: atomic.LoadInt64(&s.sampled), Dropped: atomic.LoadInt64(&s.dropped)}
}

// AdaptiveSampler targets a steady-state retention rate over rolling ticks:
// every Tick it measures the observed volume and adjusts Thereafter so the
// next window retains roughly Initial+volume/Thereafter records, the same
// shape as the teacher's initial/thereafter sampler but with Thereafter
// recomputed instead of fixed.
type AdaptiveSampler struct {
	Initial    int64
	TargetRate int64 // desired number of retained records per Tick
	Tick       time.Duration

	counter    int64
	thereafter int64
	lastTick   int64
	sampled    int64
	dropped    int64
}

// NewAdaptiveSampler creates an AdaptiveSampler that always retains the
// first `initial` records per window, then adapts its thereafter-Nth rate
// so the window converges toward targetRate total retained records.
func NewAdaptiveSampler(initial, targetRate int64, tick time.Duration) *AdaptiveSampler {
	if initial <= 0 {
		initial = 10
	}
	if targetRate <= 0 {
		targetRate = 100
	}
	if tick <= 0 {
		tick = time.Second
	}
	return &AdaptiveSampler{
		Initial:    initial,
		TargetRate: targetRate,
		Tick:       tick,
		thereafter: 1,
		lastTick:   timecache.CachedTimeNano(),
	}
}

func (s *AdaptiveSampler) Allow(_ *Record) bool {
	n := atomic.AddInt64(&s.counter, 1)

	now := timecache.CachedTimeNano()
	lastTick := atomic.LoadInt64(&s.lastTick)
	if now-lastTick > int64(s.Tick) && atomic.CompareAndSwapInt64(&s.lastTick, lastTick, now) {
		observed := atomic.SwapInt64(&s.counter, 1)
		n = 1
		if observed > s.TargetRate {
			s.thereafter = observed / s.TargetRate
			if s.thereafter < 1 {
				s.thereafter = 1
			}
		} else {
			s.thereafter = 1
		}
	}

	if n <= s.Initial {
		atomic.AddInt64(&s.sampled, 1)
		return true
	}
	rest := n - s.Initial
	if s.thereafter <= 1 || rest%s.thereafter == 1 {
		atomic.AddInt64(&s.sampled, 1)
		return true
	}
	atomic.AddInt64(&s.dropped, 1)
	return false
}

func (s *AdaptiveSampler) Stats() SamplingStats {
	return SamplingStats{Sampled: atomic.LoadInt64(&s.sampled), Dropped: atomic.LoadInt64(&s.dropped)}
}

// HashSampler retains a deterministic subset of records selected by hashing
// a key (typically category or a correlation id field) with xxhash, so the
// same key is always sampled the same way across process restarts.
type HashSampler struct {
	KeyFunc func(r *Record) string
	Rate    float64 // fraction of the hash space retained

	sampled int64
	dropped int64
}

// NewHashSampler creates a HashSampler retaining the given fraction of
// distinct keys produced by keyFunc. If keyFunc is nil, Category is used.
func NewHashSampler(rate float64, keyFunc func(r *Record) string) *HashSampler {
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	if keyFunc == nil {
		keyFunc = func(r *Record) string { return r.Category }
	}
	return &HashSampler{KeyFunc: keyFunc, Rate: rate}
}

func (s *HashSampler) Allow(r *Record) bool {
	if s.Rate >= 1 {
		atomic.AddInt64(&s.sampled, 1)
		return true
	}
	h := xxhash.Sum64String(s.KeyFunc(r))
	threshold := uint64(s.Rate * float64(^uint64(0)))
	if h <= threshold {
		atomic.AddInt64(&s.sampled, 1)
		return true
	}
	atomic.AddInt64(&s.dropped, 1)
	return false
}

func (s *HashSampler) Stats() SamplingStats {
	return SamplingStats{Sampled: atomic.LoadInt64(&s.sampled), Dropped: atomic.LoadInt64(&s.dropped)}
}

// ErrorBypassSampler wraps another Sampler so records at or above Threshold
// always bypass sampling, per the spec's default-on error bypass.
type ErrorBypassSampler struct {
	Inner     Sampler
	Threshold Level
}

// NewErrorBypassSampler wraps inner so records >= threshold always pass.
func NewErrorBypassSampler(inner Sampler, threshold Level) *ErrorBypassSampler {
	return &ErrorBypassSampler{Inner: inner, Threshold: threshold}
}

func (s *ErrorBypassSampler) Allow(r *Record) bool {
	if r.Level.Enabled(s.Threshold) {
		return true
	}
	if s.Inner == nil {
		return true
	}
	return s.Inner.Allow(r)
}

func (s *ErrorBypassSampler) Stats() SamplingStats {
	if s.Inner == nil {
		return SamplingStats{}
	}
	return s.Inner.Stats()
}
