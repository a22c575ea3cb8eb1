// sampler_test.go: random/rate-limit/adaptive/hash sampler behavior
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRandomSamplerBounds(t *testing.T) {
	zero := NewRandomSampler(0)
	for i := 0; i < 50; i++ {
		assert.False(t, zero.Allow(&Record{}))
	}
	assert.Equal(t, int64(50), zero.Stats().Dropped)

	one := NewRandomSampler(1)
	for i := 0; i < 50; i++ {
		assert.True(t, one.Allow(&Record{}))
	}
	assert.Equal(t, int64(50), one.Stats().Sampled)
}

func TestRateLimitSamplerCapsBurst(t *testing.T) {
	s := NewRateLimitSampler(4, 4, time.Hour)

	allowed := 0
	for i := 0; i < 10; i++ {
		if s.Allow(&Record{}) {
			allowed++
		}
	}
	assert.Equal(t, 4, allowed)
	assert.Equal(t, int64(6), s.Stats().Dropped)
}

func TestRateLimitSamplerRefills(t *testing.T) {
	s := NewRateLimitSampler(1, 1, time.Millisecond)
	assert.True(t, s.Allow(&Record{}))
	assert.False(t, s.Allow(&Record{}))

	time.Sleep(5 * time.Millisecond)
	assert.True(t, s.Allow(&Record{}))
}

func TestAdaptiveSamplerRetainsInitialBurst(t *testing.T) {
	s := NewAdaptiveSampler(5, 100, time.Hour)
	for i := 0; i < 5; i++ {
		assert.True(t, s.Allow(&Record{}))
	}
}

func TestHashSamplerDeterministic(t *testing.T) {
	s := NewHashSampler(0.5, func(r *Record) string { return r.Trace.TraceID })
	r := &Record{Trace: TraceContext{TraceID: "0af7651916cd43dd8448eb211c80319c"}}

	first := s.Allow(r)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, s.Allow(r))
	}
}

func TestHashSamplerZeroRateDropsAll(t *testing.T) {
	s := NewHashSampler(0, nil)
	for i := 0; i < 20; i++ {
		assert.False(t, s.Allow(&Record{Category: "x"}))
	}
}

func TestHashSamplerFullRateKeepsAll(t *testing.T) {
	s := NewHashSampler(1, nil)
	for i := 0; i < 20; i++ {
		assert.True(t, s.Allow(&Record{Category: "x"}))
	}
}

func TestSamplingStatsRate(t *testing.T) {
	stats := SamplingStats{Sampled: 3, Dropped: 1}
	assert.InDelta(t, 0.75, stats.SamplingRate(), 0.0001)
	assert.Equal(t, int64(4), stats.Total())

	empty := SamplingStats{}
	assert.Equal(t, float64(0), empty.SamplingRate())
}
