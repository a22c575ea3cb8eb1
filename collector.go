// collector.go: named-writer registry and router-driven fan-out
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"sync"
	"sync/atomic"
	"unsafe"

	goerrors "github.com/agilira/go-errors"
)

// Collector owns the set of named writer pipelines a Logger can route
// records to. Dispatch reads from an atomically-swapped snapshot so a
// successful emit never takes Collector's mutex; AddWriter/RemoveWriter take
// it for the rare structural change, and a failed write takes it briefly to
// read the error handler and metrics.
type Collector struct {
	router  *Router
	mu      sync.Mutex
	writers unsafe.Pointer // *map[string]RecordWriter
	onError func(name string, err error)
	metrics *Metrics
}

// NewCollector builds a Collector dispatching through router.
func NewCollector(router *Router) *Collector {
	c := &Collector{router: router}
	empty := map[string]RecordWriter{}
	atomic.StorePointer(&c.writers, unsafe.Pointer(&empty))
	return c
}

// SetErrorHandler installs a callback invoked when a named writer's
// WriteRecord fails; nil disables error reporting.
func (c *Collector) SetErrorHandler(fn func(name string, err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = fn
}

// SetMetrics attaches m so every writer error increments its
// writer_errors_total counter, labeled by writer name. Pass nil to detach.
func (c *Collector) SetMetrics(m *Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = m
}

func (c *Collector) load() map[string]RecordWriter {
	return *(*map[string]RecordWriter)(atomic.LoadPointer(&c.writers))
}

// AddWriter registers w under name, replacing any writer previously
// registered under the same name.
func (c *Collector) AddWriter(name string, w RecordWriter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current := c.load()
	next := make(map[string]RecordWriter, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	next[name] = w
	atomic.StorePointer(&c.writers, unsafe.Pointer(&next))
}

// RemoveWriter unregisters the writer under name, reporting whether it was present.
func (c *Collector) RemoveWriter(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	current := c.load()
	if _, ok := current[name]; !ok {
		return false
	}
	next := make(map[string]RecordWriter, len(current)-1)
	for k, v := range current {
		if k != name {
			next[k] = v
		}
	}
	atomic.StorePointer(&c.writers, unsafe.Pointer(&next))
	return true
}

// Writer returns the writer registered under name, if any.
func (c *Collector) Writer(name string) (RecordWriter, bool) {
	w, ok := c.load()[name]
	return w, ok
}

// Dispatch routes r to every named writer the Router selects for it,
// invoking the error handler (if set) for any write that fails. Dispatch
// takes Collector's mutex only while reporting a failed write.
func (c *Collector) Dispatch(r *Record) {
	names := c.router.Dispatch(r)
	if len(names) == 0 {
		return
	}
	writers := c.load()
	for _, name := range names {
		w, ok := writers[name]
		if !ok {
			continue
		}
		if _, err := w.WriteRecord(r); err != nil {
			c.reportError(name, err)
		}
	}
}

func (c *Collector) reportError(name string, err error) {
	c.mu.Lock()
	handler := c.onError
	metrics := c.metrics
	c.mu.Unlock()
	metrics.incWriterError(name)
	if handler != nil {
		handler(name, err)
		return
	}
	if lerr, ok := err.(*goerrors.Error); ok {
		handleError(lerr)
		return
	}
	handleError(WrapLoggerError(err, ErrCodeWriteFailed, "writer pipeline failed"))
}

// Close closes every registered writer that implements io.Closer, returning
// the first error encountered while continuing to close the rest.
func (c *Collector) Close() error {
	var firstErr error
	for _, w := range c.load() {
		if closer, ok := w.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
