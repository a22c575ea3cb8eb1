// sink_test.go: console/file/rotating sink + MultiWriter behavior
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleSinkWritesAndNeverCloses(t *testing.T) {
	tmp, err := os.CreateTemp(t.TempDir(), "console")
	require.NoError(t, err)
	defer tmp.Close()

	sink := NewConsoleSink(tmp)
	n, err := sink.Write([]byte("hello\n"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.NoError(t, sink.Sync())
	assert.NoError(t, sink.Close())
	assert.Equal(t, CapSynchronous, sink.Capabilities())

	// Close is a no-op: the underlying file descriptor still works.
	_, err = tmp.Write([]byte("still open"))
	assert.NoError(t, err)
}

func TestFileSinkAppendsAndSyncs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	sink, err := NewFileSink(path)
	require.NoError(t, err)

	_, err = sink.Write([]byte("line one\n"))
	require.NoError(t, err)
	require.NoError(t, sink.Sync())
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line one\n", string(data))
}

func TestRotatingFileSinkRotatesBySize(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewRotatingFileSink(RotatingFileConfig{
		Directory:     dir,
		Prefix:        "app",
		Mode:          RotateBySize,
		MaxBytes:      1024,
		MaxFiles:      3,
		CheckInterval: 1,
	})
	require.NoError(t, err)
	defer sink.Close()

	line := bytes.Repeat([]byte("x"), 100)
	line = append(line, '\n')
	for i := 0; i < 200; i++ {
		_, err := sink.Write(line)
		require.NoError(t, err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "app.*.log"))
	require.NoError(t, err)
	assert.LessOrEqual(t, len(matches), 3)
	assert.Greater(t, len(matches), 0)

	_, err = os.Stat(filepath.Join(dir, "app.log"))
	assert.NoError(t, err)
}

func TestRotatingFileSinkPrunesOldestBackups(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewRotatingFileSink(RotatingFileConfig{
		Directory:     dir,
		Prefix:        "svc",
		Mode:          RotateBySize,
		MaxBytes:      64,
		MaxFiles:      2,
		CheckInterval: 1,
	})
	require.NoError(t, err)
	defer sink.Close()

	line := append(bytes.Repeat([]byte("y"), 32), '\n')
	for i := 0; i < 50; i++ {
		_, err := sink.Write(line)
		require.NoError(t, err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "svc.*.log"))
	require.NoError(t, err)
	assert.Equal(t, 2, len(matches))
}

func TestMultiWriterFansOutToAll(t *testing.T) {
	var a, b bytes.Buffer
	mw := NewMultiWriter(WrapWriter(&a), WrapWriter(&b))

	n, err := mw.Write([]byte("fan-out"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, "fan-out", a.String())
	assert.Equal(t, "fan-out", b.String())
	assert.NoError(t, mw.Sync())
}

func TestMultiWriterAddRemove(t *testing.T) {
	var a bytes.Buffer
	mw := NewMultiWriter()
	assert.Equal(t, 0, mw.Count())

	w := WrapWriter(&a)
	mw.AddWriter(w)
	assert.Equal(t, 1, mw.Count())

	_, _ = mw.Write([]byte("x"))
	assert.Equal(t, "x", a.String())

	require.True(t, mw.RemoveWriter(w))
	assert.Equal(t, 0, mw.Count())
	assert.False(t, mw.RemoveWriter(w))
}

func TestConsoleSinkAlwaysHealthy(t *testing.T) {
	tmp, err := os.CreateTemp(t.TempDir(), "console")
	require.NoError(t, err)
	defer tmp.Close()

	sink := NewConsoleSink(tmp)
	assert.True(t, sink.IsHealthy())
	assert.Equal(t, "console", sink.Name())
}

func TestFileSinkReportsUnhealthyAfterWriteFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	sink, err := NewFileSink(path)
	require.NoError(t, err)
	assert.True(t, sink.IsHealthy())
	assert.Equal(t, "file:"+path, sink.Name())

	require.NoError(t, sink.Close())
	_, err = sink.Write([]byte("after close"))
	assert.Error(t, err)
	assert.False(t, sink.IsHealthy())
}

func TestRotatingFileSinkReportsHealthAcrossRotation(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewRotatingFileSink(RotatingFileConfig{
		Directory:     dir,
		Prefix:        "health",
		Mode:          RotateBySize,
		MaxBytes:      256,
		MaxFiles:      2,
		CheckInterval: 1,
	})
	require.NoError(t, err)
	defer sink.Close()

	assert.True(t, sink.IsHealthy())
	assert.Equal(t, "rotating_file:"+filepath.Join(dir, "health"), sink.Name())

	line := append(bytes.Repeat([]byte("z"), 64), '\n')
	for i := 0; i < 20; i++ {
		_, err := sink.Write(line)
		require.NoError(t, err)
	}
	assert.True(t, sink.IsHealthy())
}
