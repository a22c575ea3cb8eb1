// metrics_test.go: Prometheus counters/gauge wiring for Metrics
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegisterAndIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics()
	require.NoError(t, m.Register(reg))

	m.incGated()
	m.incGated()
	m.incSampled()
	m.incDropped()
	m.incWriterError("console")
	m.setQueueDepth(42)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.gated))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.sampled))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.dropped))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.writeErr.WithLabelValues("console")))
	assert.Equal(t, float64(42), testutil.ToFloat64(m.queue))
}

func TestMetricsRegisterTwiceFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics()
	require.NoError(t, m.Register(reg))
	assert.Error(t, m.Register(reg))
}

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.incGated()
		m.incSampled()
		m.incDropped()
		m.incWriterError("x")
		m.setQueueDepth(1)
	})
}
