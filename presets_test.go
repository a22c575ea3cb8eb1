// presets_test.go: smoke tests for the bundled Config presets
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPresetsBuildAndClose(t *testing.T) {
	logger, err := NewExample()
	require.NoError(t, err)
	require.NoError(t, logger.Flush())
	require.NoError(t, logger.Close())
}

func TestHighThroughputPresetWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "throughput.log")
	logger, err := NewHighThroughput(path)
	require.NoError(t, err)

	logger.Info("high throughput record")
	require.NoError(t, logger.Flush())
	require.NoError(t, logger.Close())
}

func TestAuditedPresetWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audited.log")
	logger, err := NewAudited(path)
	require.NoError(t, err)

	logger.Info("audited record")
	require.NoError(t, logger.Flush())
	require.NoError(t, logger.Close())
}
