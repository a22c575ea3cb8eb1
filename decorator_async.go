// decorator_async.go: asynchronous writer decorator over a selectable
// overflow policy
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"fmt"
	"sync"
	"time"

	"github.com/agilira/lumen/internal/notus"
)

// asyncSlot holds one queued write; buf is reused across ring-buffer wraps
// so steady-state traffic doesn't allocate once the backing array is warm.
type asyncSlot struct {
	buf []byte
}

// AsyncWriter decouples the caller from Inner's write latency by queuing
// formatted bytes and draining them from one dedicated goroutine. It
// assumes a single producer goroutine for its ring fast path; callers
// writing from multiple goroutines must serialize at the Logger or
// collector fan-out level before reaching an AsyncWriter, matching Notus's
// SPSC contract. Any policy other than the default DropNewest instead
// backs the queue with a generic OverflowQueue, which tolerates multiple
// producers at the cost of the ring's lock-free throughput.
type AsyncWriter struct {
	inner   WriteSyncer
	onDrop  func(n int)
	policy  OverflowPolicyType
	capacity int64

	ring  *notus.Notus[asyncSlot]
	queue *OverflowQueue[asyncSlot]

	adaptive *AdaptiveBackpressure

	wg      sync.WaitGroup
	closeMu sync.Mutex
	closed  bool
}

// AsyncWriterConfig configures an AsyncWriter.
type AsyncWriterConfig struct {
	// Capacity must be a power of two when Policy == DropNewest (the
	// lock-free ring path); any other policy accepts any positive size.
	Capacity int64
	// OnDrop, if set, is invoked with the number of dropped bytes each time
	// a write cannot be queued.
	OnDrop func(n int)

	// Policy selects the behavior once the queue reaches Capacity. The
	// zero value, DropNewest, rejects the incoming write and keeps what's
	// already queued; it runs over the lock-free SPSC ring for maximum
	// throughput. Any other policy (DropOldest, Block, Grow, Custom) routes
	// through a mutex/condvar-backed OverflowQueue instead, trading some
	// throughput for the overflow semantics the ring can't express.
	Policy OverflowPolicyType
	// BlockTimeout, GrowCeiling and CustomHandler are forwarded to the
	// OverflowQueue backing non-default policies; see OverflowQueueConfig.
	BlockTimeout  time.Duration
	GrowCeiling   int
	CustomHandler CustomOverflowHandler[asyncSlot]

	// Adaptive, if set, tunes the OverflowQueue-backed drain loop's batch
	// size and poll interval from observed queue pressure (§4.10). Only
	// consulted when Policy != DropNewest.
	Adaptive *AdaptiveBackpressureConfig
}

// NewAsyncWriter builds an AsyncWriter over inner and starts its drain
// goroutine.
func NewAsyncWriter(inner WriteSyncer, cfg AsyncWriterConfig) (*AsyncWriter, error) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1024
	}

	w := &AsyncWriter{inner: inner, onDrop: cfg.OnDrop, policy: cfg.Policy, capacity: cfg.Capacity}

	if cfg.Policy == DropNewest {
		ring, err := notus.NewBuilder[asyncSlot](cfg.Capacity).
			WithProcessor(func(slot *asyncSlot) {
				if len(slot.buf) == 0 {
					return
				}
				_, _ = w.inner.Write(slot.buf)
			}).
			Build()
		if err != nil {
			return nil, WrapLoggerError(err, ErrCodeRingInvalidCapacity, "failed to build async writer ring")
		}
		w.ring = ring

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.ring.LoopProcess()
		}()
		return w, nil
	}

	w.queue = NewOverflowQueue(OverflowQueueConfig[asyncSlot]{
		MaxSize:       int(cfg.Capacity),
		Policy:        cfg.Policy,
		BlockTimeout:  cfg.BlockTimeout,
		GrowCeiling:   cfg.GrowCeiling,
		CustomHandler: cfg.CustomHandler,
	})
	if cfg.Adaptive != nil {
		w.adaptive = NewAdaptiveBackpressure(*cfg.Adaptive)
	}

	w.wg.Add(1)
	go w.drainQueue()

	return w, nil
}

// Write queues p for asynchronous delivery to Inner, copying it so the
// caller's buffer (often borrowed from a pool) can be reused immediately.
// If the queue is full the behavior follows the configured Policy: under
// the default DropNewest it is dropped and OnDrop is invoked; other
// policies may instead evict, block briefly, or grow per their own rules.
func (w *AsyncWriter) Write(p []byte) (int, error) {
	if w.queue != nil {
		slot := asyncSlot{buf: append([]byte(nil), p...)}
		if !w.queue.Push(slot) {
			if w.onDrop != nil {
				w.onDrop(len(p))
			}
			return 0, NewLoggerError(ErrCodeQueueFull, "async writer queue rejected write")
		}
		return len(p), nil
	}

	ok := w.ring.Write(func(slot *asyncSlot) {
		if cap(slot.buf) >= len(p) {
			slot.buf = slot.buf[:len(p)]
		} else {
			slot.buf = make([]byte, len(p))
		}
		copy(slot.buf, p)
	})
	if !ok {
		if w.onDrop != nil {
			w.onDrop(len(p))
		}
		return 0, NewLoggerError(ErrCodeQueueFull, "async writer ring is full")
	}
	return len(p), nil
}

// drainQueue is the OverflowQueue-backed consumer loop: it pops up to the
// adaptive controller's current batch size per cycle (or one item at a time
// with no controller attached), delivering each to Inner, then reports the
// queue's fraction-full and this cycle's duration back to the controller.
func (w *AsyncWriter) drainQueue() {
	defer w.wg.Done()

	timeout := 100 * time.Millisecond
	for {
		if w.adaptive != nil {
			timeout = w.adaptive.FlushInterval()
		}

		batchLimit := int64(1)
		if w.adaptive != nil {
			batchLimit = w.adaptive.BatchSize()
		}

		start := time.Now()
		drained := int64(0)
		popTimeout := timeout
		for drained < batchLimit {
			slot, ok := w.queue.Pop(popTimeout)
			if !ok {
				break
			}
			if len(slot.buf) > 0 {
				_, _ = w.inner.Write(slot.buf)
			}
			drained++
			popTimeout = time.Millisecond // don't re-wait the full timeout mid-batch
		}

		if drained == 0 {
			w.closeMu.Lock()
			closed := w.closed
			w.closeMu.Unlock()
			if closed {
				return
			}
			continue
		}

		if w.adaptive != nil {
			fraction := float64(w.queue.Len()) / float64(w.capacity)
			w.adaptive.Observe(fraction, time.Since(start))
		}
	}
}

// Sync flushes all currently queued entries to the inner writer and syncs
// it. It does not wait for concurrent producers still enqueuing.
func (w *AsyncWriter) Sync() error {
	if w.queue != nil {
		for w.queue.Len() > 0 {
			slot, ok := w.queue.Pop(10 * time.Millisecond)
			if !ok {
				break
			}
			if len(slot.buf) > 0 {
				_, _ = w.inner.Write(slot.buf)
			}
		}
		return w.inner.Sync()
	}
	w.ring.Flush()
	return w.inner.Sync()
}

// Close stops accepting new writes, drains remaining queued items, and
// closes Inner if it implements io.Closer.
func (w *AsyncWriter) Close() error {
	w.closeMu.Lock()
	if w.closed {
		w.closeMu.Unlock()
		return nil
	}
	w.closed = true
	w.closeMu.Unlock()

	if w.queue != nil {
		w.queue.Stop()
	} else {
		w.ring.Close()
	}
	w.wg.Wait()

	if closer, ok := w.inner.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// Name reports this decorator's diagnostic name per the
// "<decorator>[(<param>)]_<inner_name>" convention.
func (w *AsyncWriter) Name() string {
	return fmt.Sprintf("async(%d)_%s", w.capacity, innerName(w.inner))
}

// IsHealthy reports whether Inner is healthy, if it exposes a health check.
func (w *AsyncWriter) IsHealthy() bool {
	return innerHealthy(w.inner)
}
