// collector_test.go: named-writer registry and dispatch tests
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingWriter always errors, used to exercise Collector's error-reporting
// and metrics path without a real sink.
type failingWriter struct{}

func (failingWriter) WriteRecord(*Record) (int, error) {
	return 0, errors.New("boom")
}

func TestCollectorDispatchRoutesToNamedWriters(t *testing.T) {
	router := NewRouter()
	router.AddRoute(Route{Name: "errors-only", Filter: &LevelFilter{Min: Error}, Writers: []string{"errlog"}})

	collector := NewCollector(router)
	sink := &memorySink{}
	collector.AddWriter("errlog", NewFormattedWriter(NewLogfmtFormatter(), sink))

	collector.Dispatch(&Record{Level: Info, Message: "ignored"})
	collector.Dispatch(&Record{Level: Error, Message: "routed"})

	assert.NotContains(t, sink.String(), "ignored")
	assert.Contains(t, sink.String(), "routed")
}

func TestCollectorReportsWriterErrorsAndMetrics(t *testing.T) {
	router := NewRouter("main")
	collector := NewCollector(router)
	collector.AddWriter("main", failingWriter{})

	metrics := NewMetrics()
	collector.SetMetrics(metrics)

	var gotName string
	var gotErr error
	collector.SetErrorHandler(func(name string, err error) {
		gotName = name
		gotErr = err
	})

	collector.Dispatch(&Record{Level: Info, Message: "x"})

	require.Error(t, gotErr)
	assert.Equal(t, "main", gotName)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.writeErr.WithLabelValues("main")))
}

func TestCollectorRemoveWriter(t *testing.T) {
	collector := NewCollector(NewRouter("main"))
	sink := &memorySink{}
	collector.AddWriter("main", NewFormattedWriter(NewLogfmtFormatter(), sink))

	_, ok := collector.Writer("main")
	require.True(t, ok)

	removed := collector.RemoveWriter("main")
	assert.True(t, removed)

	_, ok = collector.Writer("main")
	assert.False(t, ok)

	assert.False(t, collector.RemoveWriter("main"), "removing an absent writer reports false")
}
