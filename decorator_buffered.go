// decorator_buffered.go: bufio-backed write coalescing decorator
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"bufio"
	"fmt"
	"sync"
	"time"
)

// BufferedWriter coalesces small writes through a bufio.Writer and flushes
// on a timer so records aren't held indefinitely when traffic is low.
type BufferedWriter struct {
	mu     sync.Mutex
	bw     *bufio.Writer
	inner  WriteSyncer
	size   int
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

// NewBufferedWriter wraps inner with a bufio.Writer of the given size and
// starts a background goroutine flushing at least every flushInterval. A
// non-positive flushInterval disables the timer; callers must then flush
// explicitly via Sync.
func NewBufferedWriter(inner WriteSyncer, size int, flushInterval time.Duration) *BufferedWriter {
	if size <= 0 {
		size = 4096
	}
	w := &BufferedWriter{
		bw:    bufio.NewWriterSize(inner, size),
		inner: inner,
		size:  size,
		done:  make(chan struct{}),
	}
	if flushInterval > 0 {
		w.ticker = time.NewTicker(flushInterval)
		go w.flushLoop()
	}
	return w
}

func (w *BufferedWriter) flushLoop() {
	for {
		select {
		case <-w.ticker.C:
			w.mu.Lock()
			_ = w.bw.Flush()
			w.mu.Unlock()
		case <-w.done:
			return
		}
	}
}

func (w *BufferedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bw.Write(p)
}

// Sync flushes buffered bytes to the inner writer and syncs it.
func (w *BufferedWriter) Sync() error {
	w.mu.Lock()
	err := w.bw.Flush()
	w.mu.Unlock()
	if err != nil {
		return err
	}
	return w.inner.Sync()
}

// Close stops the flush timer, flushes remaining bytes, and closes inner if
// it implements io.Closer.
func (w *BufferedWriter) Close() error {
	w.once.Do(func() {
		if w.ticker != nil {
			w.ticker.Stop()
			close(w.done)
		}
	})
	if err := w.Sync(); err != nil {
		return err
	}
	if closer, ok := w.inner.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// Name returns "buffered(<size>)_<inner_name>".
func (w *BufferedWriter) Name() string {
	return fmt.Sprintf("buffered(%d)_%s", w.size, innerName(w.inner))
}

// IsHealthy reports whether Inner is healthy, if it exposes a health check.
func (w *BufferedWriter) IsHealthy() bool {
	return innerHealthy(w.inner)
}
