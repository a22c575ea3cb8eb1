// config_test.go: Config.Build end-to-end assembly of outputs, routes and
// the resulting Logger (spec.md S1/S2-equivalent using a file sink in
// place of stdout, which isn't capturable without a pipe fixture).
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigBuildJSONFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	cfg := Config{
		Level: Info,
		Outputs: []OutputConfig{
			{Name: "main", Type: OutputFile, Format: FormatJSON, Path: path},
		},
		DefaultWriters: []string{"main"},
	}

	logger, err := cfg.Build()
	require.NoError(t, err)
	defer logger.Close()

	logger.Info("hello")
	require.NoError(t, logger.Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "INFO", decoded["level"])
	assert.Equal(t, "hello", decoded["message"])
}

func TestConfigBuildRoutesErrorsToDedicatedOutput(t *testing.T) {
	errPath := filepath.Join(t.TempDir(), "errors.log")
	mainPath := filepath.Join(t.TempDir(), "main.log")

	cfg := Config{
		Level: Info,
		Outputs: []OutputConfig{
			{Name: "errors", Type: OutputFile, Format: FormatLogfmt, Path: errPath},
			{Name: "main", Type: OutputFile, Format: FormatLogfmt, Path: mainPath},
		},
		Routes: []RouteConfig{
			{Name: "errors-only", Filter: NewLevelFilter(Error), Writers: []string{"errors"}, StopPropagation: true},
		},
		DefaultWriters: []string{"main"},
	}

	logger, err := cfg.Build()
	require.NoError(t, err)
	defer logger.Close()

	logger.Error("boom")
	logger.Info("routine")
	require.NoError(t, logger.Flush())

	errData, err := os.ReadFile(errPath)
	require.NoError(t, err)
	mainData, err := os.ReadFile(mainPath)
	require.NoError(t, err)

	assert.Contains(t, string(errData), "boom")
	assert.NotContains(t, string(errData), "routine")
	assert.Contains(t, string(mainData), "routine")
	assert.NotContains(t, string(mainData), "boom")
}

func TestConfigBuildAsyncOutputHonorsDropOldestPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "async.log")
	cfg := Config{
		Level: Info,
		Outputs: []OutputConfig{
			{
				Name: "main", Type: OutputFile, Format: FormatLogfmt, Path: path,
				Async: true, AsyncCapacity: 4, AsyncPolicy: DropOldest,
			},
		},
		DefaultWriters: []string{"main"},
	}

	logger, err := cfg.Build()
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		logger.Info("async line")
	}
	require.NoError(t, logger.Flush())
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "async line")
}

func TestConfigBuildRejectsUnknownOutputType(t *testing.T) {
	cfg := Config{
		Outputs: []OutputConfig{{Name: "bogus", Type: OutputType("not-a-real-type")}},
	}
	_, err := cfg.Build()
	assert.Error(t, err)
}

func TestConfigBuildWithMetricsRegistersCounters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.log")
	reg := prometheus.NewRegistry()
	cfg := Config{
		Level:             Info,
		EnableMetrics:     true,
		MetricsRegisterer: reg,
		Outputs: []OutputConfig{
			{Name: "main", Type: OutputFile, Format: FormatLogfmt, Path: path},
		},
		DefaultWriters: []string{"main"},
	}

	logger, err := cfg.Build()
	require.NoError(t, err)
	defer logger.Close()

	logger.Info("counted")
	require.NoError(t, logger.Flush())

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "lumen_gated_total")
}
