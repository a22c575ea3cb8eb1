// config_loader_test.go: FileConfig YAML/JSON loading, env overrides, and
// the fsnotify-based level hot-reload watcher.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumen.yaml")
	yamlDoc := `
level: warn
ring_capacity: 2048
default_writers: ["main"]
outputs:
  - name: main
    type: file
    format: logfmt
    path: ` + filepath.Join(t.TempDir(), "out.log") + `
routes:
  - name: errors-only
    min_level: error
    writers: ["main"]
    stop_propagation: true
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, Warn, cfg.Level)
	assert.Equal(t, int64(2048), cfg.RingCapacity)
	require.Len(t, cfg.Outputs, 1)
	assert.Equal(t, OutputFile, cfg.Outputs[0].Type)
	assert.Equal(t, FormatLogfmt, cfg.Outputs[0].Format)
	require.Len(t, cfg.Routes, 1)
	assert.True(t, cfg.Routes[0].StopPropagation)
}

func TestLoadConfigFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumen.json")
	jsonDoc := `{"level":"debug","outputs":[{"name":"console","type":"console","format":"json"}]}`
	require.NoError(t, os.WriteFile(path, []byte(jsonDoc), 0o644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, Debug, cfg.Level)
	require.Len(t, cfg.Outputs, 1)
	assert.Equal(t, OutputConsole, cfg.Outputs[0].Type)
	assert.Equal(t, FormatJSON, cfg.Outputs[0].Format)
}

func TestLoadConfigFileMissingFileErrors(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestApplyEnvOverridesLogEnvSelectsPreset(t *testing.T) {
	t.Setenv("LOG_ENV", "production")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_RING_CAPACITY", "")

	cfg := ApplyEnvOverrides(Config{})
	assert.Equal(t, Info, cfg.Level)
	assert.Equal(t, int64(8192), cfg.RingCapacity)
}

func TestApplyEnvOverridesLogLevelWins(t *testing.T) {
	t.Setenv("LOG_ENV", "production")
	t.Setenv("LOG_LEVEL", "trace")
	t.Setenv("LOG_RING_CAPACITY", "")

	cfg := ApplyEnvOverrides(Config{})
	assert.Equal(t, Trace, cfg.Level)
}

func TestApplyEnvOverridesRingCapacity(t *testing.T) {
	t.Setenv("LOG_ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_RING_CAPACITY", "99")

	cfg := ApplyEnvOverrides(Config{})
	assert.Equal(t, int64(99), cfg.RingCapacity)
}

func TestConfigWatcherReloadsLevelOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumen.yaml")
	require.NoError(t, os.WriteFile(path, []byte("level: info\n"), 0o644))

	al := NewAtomicLevel(Info)
	watcher, err := NewConfigWatcher(path, al, nil)
	require.NoError(t, err)
	require.NoError(t, watcher.Start())
	defer watcher.Stop()

	require.NoError(t, os.WriteFile(path, []byte("level: error\n"), 0o644))

	assert.Eventually(t, func() bool {
		return al.Level() == Error
	}, 2*time.Second, 20*time.Millisecond)
}

func TestConfigWatcherDoubleStartErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumen.yaml")
	require.NoError(t, os.WriteFile(path, []byte("level: info\n"), 0o644))

	al := NewAtomicLevel(Info)
	watcher, err := NewConfigWatcher(path, al, nil)
	require.NoError(t, err)
	require.NoError(t, watcher.Start())
	defer watcher.Stop()

	assert.Error(t, watcher.Start())
}

func TestConfigWatcherMissingFileErrors(t *testing.T) {
	al := NewAtomicLevel(Info)
	_, err := NewConfigWatcher(filepath.Join(t.TempDir(), "nope.yaml"), al, nil)
	assert.Error(t, err)
}
