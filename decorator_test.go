// decorator_test.go: filtered/formatted/buffered/async writer decorators
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRecordWriter counts WriteRecord calls, used to prove a
// FilteredWriter short-circuits without delegating on reject.
type countingRecordWriter struct {
	mu    sync.Mutex
	calls int
}

func (w *countingRecordWriter) WriteRecord(r *Record) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	return 0, nil
}

func (w *countingRecordWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

func TestFilteredWriterShortCircuitsOnReject(t *testing.T) {
	inner := &countingRecordWriter{}
	w := NewFilteredWriter(NewLevelFilter(Error), inner)

	_, err := w.WriteRecord(&Record{Level: Info})
	require.NoError(t, err)
	assert.Equal(t, 0, inner.count())

	_, err = w.WriteRecord(&Record{Level: Error})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.count())
}

func TestFilteredWriterNilFilterAllowsEverything(t *testing.T) {
	inner := &countingRecordWriter{}
	w := NewFilteredWriter(nil, inner)

	_, _ = w.WriteRecord(&Record{Level: Trace})
	assert.Equal(t, 1, inner.count())
}

func TestFormattedWriterAppliesFormatterAndDelegates(t *testing.T) {
	var buf bytes.Buffer
	w := NewFormattedWriter(NewLogfmtFormatter(), WrapWriter(&buf))

	_, err := w.WriteRecord(&Record{Level: Info, Message: "hi"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "message=hi")
}

type syncCountWriter struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	syncs int
}

func (s *syncCountWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}
func (s *syncCountWriter) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncs++
	return nil
}
func (s *syncCountWriter) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestBufferedWriterFlushesOnSync(t *testing.T) {
	inner := &syncCountWriter{}
	w := NewBufferedWriter(inner, 4096, 0)

	_, err := w.Write([]byte("buffered"))
	require.NoError(t, err)
	assert.Empty(t, inner.String())

	require.NoError(t, w.Sync())
	assert.Equal(t, "buffered", inner.String())
	assert.Equal(t, 1, inner.syncs)
}

func TestBufferedWriterFlushesOnTimer(t *testing.T) {
	inner := &syncCountWriter{}
	w := NewBufferedWriter(inner, 4096, 10*time.Millisecond)
	defer w.Close()

	_, err := w.Write([]byte("ticked"))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return inner.String() == "ticked"
	}, time.Second, 5*time.Millisecond)
}

func TestBufferedWriterCloseFlushesAndStopsTimer(t *testing.T) {
	inner := &syncCountWriter{}
	w := NewBufferedWriter(inner, 4096, time.Hour)

	_, err := w.Write([]byte("on-close"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, "on-close", inner.String())
}

type asyncCapture struct {
	mu   sync.Mutex
	got  [][]byte
	done chan struct{}
	want int
}

func (a *asyncCapture) Write(p []byte) (int, error) {
	a.mu.Lock()
	cp := append([]byte(nil), p...)
	a.got = append(a.got, cp)
	n := len(a.got)
	a.mu.Unlock()
	if n == a.want {
		close(a.done)
	}
	return len(p), nil
}
func (a *asyncCapture) Sync() error { return nil }

func (a *asyncCapture) snapshot() [][]byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([][]byte(nil), a.got...)
}

func TestAsyncWriterPreservesSubmissionOrder(t *testing.T) {
	inner := &asyncCapture{done: make(chan struct{}), want: 100}
	w, err := NewAsyncWriter(inner, AsyncWriterConfig{Capacity: 256})
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 100; i++ {
		_, err := w.Write([]byte{byte(i)})
		require.NoError(t, err)
	}

	select {
	case <-inner.done:
	case <-time.After(2 * time.Second):
		t.Fatal("async writer did not drain in time")
	}

	got := inner.snapshot()
	require.Len(t, got, 100)
	for i, b := range got {
		assert.Equal(t, byte(i), b[0])
	}
}

func TestAsyncWriterCloseIsIdempotent(t *testing.T) {
	inner := &asyncCapture{done: make(chan struct{}), want: 1}
	w, err := NewAsyncWriter(inner, AsyncWriterConfig{Capacity: 8})
	require.NoError(t, err)

	_, _ = w.Write([]byte("x"))
	<-inner.done

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestAsyncWriterReportsDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	inner := &blockingWriter{block: block}
	w, err := NewAsyncWriter(inner, AsyncWriterConfig{Capacity: 2})
	require.NoError(t, err)
	defer func() {
		close(block)
		w.Close()
	}()

	dropped := false
	for i := 0; i < 50; i++ {
		if _, err := w.Write([]byte("x")); err != nil {
			dropped = true
			break
		}
	}
	assert.True(t, dropped, "expected the ring to report full at some point under a blocked consumer")
}

type blockingWriter struct {
	block chan struct{}
}

func (b *blockingWriter) Write(p []byte) (int, error) {
	<-b.block
	return len(p), nil
}
func (b *blockingWriter) Sync() error { return nil }

func TestAsyncWriterDropOldestPolicyEvictsInsteadOfRejecting(t *testing.T) {
	block := make(chan struct{})
	inner := &blockingWriter{block: block}
	w, err := NewAsyncWriter(inner, AsyncWriterConfig{Capacity: 2, Policy: DropOldest})
	require.NoError(t, err)
	defer func() {
		close(block)
		w.Close()
	}()

	for i := 0; i < 20; i++ {
		n, err := w.Write([]byte("x"))
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}
}

func TestAsyncWriterBlockPolicyAppliesBackpressure(t *testing.T) {
	inner := &asyncCapture{done: make(chan struct{}), want: 5}
	w, err := NewAsyncWriter(inner, AsyncWriterConfig{
		Capacity:     2,
		Policy:       Block,
		BlockTimeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 5; i++ {
		_, err := w.Write([]byte{byte(i)})
		require.NoError(t, err)
	}

	select {
	case <-inner.done:
	case <-time.After(2 * time.Second):
		t.Fatal("async writer did not drain in time")
	}
}

func TestAsyncWriterAdaptiveBackpressureDrainsAllWrites(t *testing.T) {
	inner := &asyncCapture{done: make(chan struct{}), want: 64}
	w, err := NewAsyncWriter(inner, AsyncWriterConfig{
		Capacity: 256,
		Policy:   DropOldest,
		Adaptive: &AdaptiveBackpressureConfig{
			MinBatchSize:      1,
			MaxBatchSize:      32,
			MinFlushInterval:  time.Millisecond,
			MaxFlushInterval:  50 * time.Millisecond,
			HighWatermark:     0.8,
			LowWatermark:      0.2,
			AdaptationRate:    0.5,
			MinAdjustInterval: 0,
		},
	})
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 64; i++ {
		_, err := w.Write([]byte{byte(i)})
		require.NoError(t, err)
	}

	select {
	case <-inner.done:
	case <-time.After(2 * time.Second):
		t.Fatal("async writer did not drain in time")
	}
}

func TestDecoratorNamesFollowPrefixConvention(t *testing.T) {
	var buf bytes.Buffer
	console := NewStdoutSink()

	bw := NewBufferedWriter(console, 4096, 0)
	assert.Equal(t, "buffered(4096)_console:stdout", bw.Name())

	fw := NewFormattedWriter(NewJSONFormatter(), WrapWriter(&buf))
	assert.Equal(t, "formatted(json)_writer", fw.Name())

	filtered := NewFilteredWriter(nil, &countingRecordWriter{})
	assert.Equal(t, "filtered_writer", filtered.Name())

	aw, err := NewAsyncWriter(console, AsyncWriterConfig{Capacity: 8})
	require.NoError(t, err)
	defer aw.Close()
	assert.Equal(t, "async(8)_console:stdout", aw.Name())
}
