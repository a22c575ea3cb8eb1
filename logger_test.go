// logger_test.go: core Logger lifecycle, gating, and dispatch tests
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"bytes"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// memorySink is a minimal in-memory Sink used across the core package's
// tests in place of a real file or network endpoint.
type memorySink struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (m *memorySink) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.Write(p)
}

func (m *memorySink) Sync() error                  { return nil }
func (m *memorySink) Close() error                  { return nil }
func (m *memorySink) Capabilities() SinkCapability  { return CapSynchronous }
func (m *memorySink) Name() string                  { return "memory" }
func (m *memorySink) IsHealthy() bool               { return true }

func (m *memorySink) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.String()
}

func newTestLogger(t *testing.T, sink Sink, cfg LoggerConfig) *Logger {
	t.Helper()
	router := NewRouter("main")
	collector := NewCollector(router)
	collector.AddWriter("main", NewFormattedWriter(NewLogfmtFormatter(), sink))
	cfg.Collector = collector
	logger, err := New(cfg)
	require.NoError(t, err)
	return logger
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLoggerLevelGate(t *testing.T) {
	sink := &memorySink{}
	logger := newTestLogger(t, sink, LoggerConfig{Level: Warn})
	defer logger.Close()

	logger.Info("should be gated out")
	logger.Warn("should pass")
	require.NoError(t, logger.Flush())

	out := sink.String()
	assert.NotContains(t, out, "should be gated out")
	assert.Contains(t, out, "should pass")
}

// denyAllSampler rejects every record, used to prove Fatal records bypass
// the sampler check entirely.
type denyAllSampler struct{}

func (denyAllSampler) Allow(*Record) bool  { return false }
func (denyAllSampler) Stats() SamplingStats { return SamplingStats{} }

func TestLoggerFatalBypassesSampler(t *testing.T) {
	sink := &memorySink{}
	logger := newTestLogger(t, sink, LoggerConfig{
		Level:   Trace,
		Sampler: denyAllSampler{},
	})
	defer func() {
		_ = logger.Flush()
		_ = logger.Close()
	}()

	logger.Info("sampled out")
	// log directly through the shared hot path rather than Fatal (which
	// would exit the test process) to exercise the same bypass branch.
	logger.log(Fatal, "fatal bypasses sampling", nil)
	require.NoError(t, logger.Flush())

	out := sink.String()
	assert.NotContains(t, out, "sampled out")
	assert.Contains(t, out, "fatal bypasses sampling")
}

func TestLoggerWithFields(t *testing.T) {
	sink := &memorySink{}
	logger := newTestLogger(t, sink, LoggerConfig{Level: Trace})
	defer logger.Close()

	child := logger.With(Str("component", "auth"))
	child.Info("login ok", Int("user_id", 42))
	require.NoError(t, logger.Flush())

	out := sink.String()
	assert.Contains(t, out, "component=auth")
	assert.Contains(t, out, "user_id=42")
}

func TestLoggerCloseIsIdempotent(t *testing.T) {
	sink := &memorySink{}
	logger := newTestLogger(t, sink, LoggerConfig{Level: Info})

	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())

	logger.Info("dropped after close")
	assert.NotContains(t, sink.String(), "dropped after close")
}

func TestLoggerMetricsWiring(t *testing.T) {
	sink := &memorySink{}
	metrics := NewMetrics()
	router := NewRouter("main")
	collector := NewCollector(router)
	collector.AddWriter("main", NewFormattedWriter(NewLogfmtFormatter(), sink))
	collector.SetMetrics(metrics)

	logger, err := New(LoggerConfig{Level: Warn, Collector: collector, Metrics: metrics})
	require.NoError(t, err)
	defer logger.Close()

	logger.Debug("gated, counted")
	require.NoError(t, logger.Flush())

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.gated))
}
