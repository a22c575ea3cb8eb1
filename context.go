// context.go: per-thread unified context propagation for Lumen
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/agilira/lumen/internal/tlocal"
)

// ContextCategory tags a context entry with the subsystem that owns it,
// matching the spec's custom/trace/request/otel taxonomy.
type ContextCategory uint8

const (
	CategoryCustom ContextCategory = iota
	CategoryTrace
	CategoryRequest
	CategoryOTel
)

func (c ContextCategory) String() string {
	switch c {
	case CategoryCustom:
		return "custom"
	case CategoryTrace:
		return "trace"
	case CategoryRequest:
		return "request"
	case CategoryOTel:
		return "otel"
	default:
		return "unknown"
	}
}

type contextEntry struct {
	value    interface{}
	category ContextCategory
}

// UnifiedContext is the per-goroutine bag of key/value metadata merged into
// every record emitted from that goroutine. It is private to its owning
// goroutine by contract: Logger.Context() always returns the calling
// goroutine's own instance, never another's.
type UnifiedContext struct {
	mu      sync.RWMutex
	entries map[string]contextEntry
	trace   TraceContext
}

func newUnifiedContext() *UnifiedContext {
	return &UnifiedContext{entries: make(map[string]contextEntry)}
}

// Set stores a key/value pair tagged with CategoryCustom.
func (c *UnifiedContext) Set(key string, value interface{}) {
	c.SetCategory(key, value, CategoryCustom)
}

// SetCategory stores a key/value pair tagged with the given category.
func (c *UnifiedContext) SetCategory(key string, value interface{}, category ContextCategory) {
	c.mu.Lock()
	c.entries[key] = contextEntry{value: value, category: category}
	c.mu.Unlock()
}

// SetTrace records the OTel-compatible trace correlation fields and tags
// them CategoryTrace for snapshotting.
func (c *UnifiedContext) SetTrace(trace TraceContext) {
	c.mu.Lock()
	c.trace = trace
	c.mu.Unlock()
}

// SetRequest is a convenience wrapper around SetCategory with CategoryRequest.
func (c *UnifiedContext) SetRequest(key string, value interface{}) {
	c.SetCategory(key, value, CategoryRequest)
}

// SetOTel is a convenience wrapper around SetCategory with CategoryOTel.
func (c *UnifiedContext) SetOTel(key string, value interface{}) {
	c.SetCategory(key, value, CategoryOTel)
}

// Get retrieves a value by key, reporting whether it was present.
func (c *UnifiedContext) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Remove deletes a single key.
func (c *UnifiedContext) Remove(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes every entry and the trace context, regardless of category.
func (c *UnifiedContext) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]contextEntry)
	c.trace = TraceContext{}
	c.mu.Unlock()
}

// ClearCategory removes only the entries tagged with the given category.
func (c *UnifiedContext) ClearCategory(category ContextCategory) {
	c.mu.Lock()
	for k, e := range c.entries {
		if e.category == category {
			delete(c.entries, k)
		}
	}
	if category == CategoryTrace {
		c.trace = TraceContext{}
	}
	c.mu.Unlock()
}

// Merge copies every entry from other into c, overwriting on key collision.
func (c *UnifiedContext) Merge(other *UnifiedContext) {
	other.mu.RLock()
	snapshot := make(map[string]contextEntry, len(other.entries))
	for k, v := range other.entries {
		snapshot[k] = v
	}
	trace := other.trace
	other.mu.RUnlock()

	c.mu.Lock()
	for k, v := range snapshot {
		c.entries[k] = v
	}
	if trace.Valid {
		c.trace = trace
	}
	c.mu.Unlock()
}

// Snapshot copies the current context into a field slice and a trace
// context, suitable for attaching to a Record. This is the only point at
// which context state crosses from thread-local storage into a value that
// may travel to another goroutine (the collector/async worker).
func (c *UnifiedContext) Snapshot() ([]Field, TraceContext) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	fields := make([]Field, 0, len(c.entries))
	for k, e := range c.entries {
		fields = append(fields, fieldFromAny(k, e.value))
	}
	return fields, c.trace
}

func fieldFromAny(key string, v interface{}) Field {
	switch val := v.(type) {
	case string:
		return Str(key, val)
	case int:
		return Int(key, val)
	case int64:
		return Int64(key, val)
	case uint64:
		return Uint64(key, val)
	case float64:
		return Float64(key, val)
	case bool:
		return Bool(key, val)
	case error:
		return NamedErr(key, val)
	case fmt_Stringer:
		return Stringer(key, val)
	default:
		return Object(key, val)
	}
}

// fmt_Stringer avoids importing "fmt" solely for the Stringer interface
// shape used by fieldFromAny's type switch.
type fmt_Stringer interface {
	String() string
}

var contextStore = tlocal.NewStore(newUnifiedContext)

// Context returns the calling goroutine's UnifiedContext, creating it on
// first access. Every logger shares the same goroutine-local store, so
// context set on one logger is visible to another logger used on the same
// goroutine, matching the spec's thread-global (not logger-scoped) context.
func Context() *UnifiedContext {
	return contextStore.Get()
}

// ClearContext releases the calling goroutine's context slot entirely.
// Call this at the end of a request/job to avoid retaining memory for
// goroutines that are reused from a pool.
func ClearContext() {
	contextStore.Clear()
}

// ContextKey names a context.Context value that WithStdContext extracts.
type ContextKey string

// Common context keys for bridging net/context-based request pipelines into
// the unified context store.
const (
	RequestIDKey ContextKey = "request_id"
	TraceIDKey   ContextKey = "trace_id"
	SpanIDKey    ContextKey = "span_id"
	UserIDKey    ContextKey = "user_id"
	SessionIDKey ContextKey = "session_id"
)

// ContextExtractor configures which context.Context keys are copied into the
// unified context store by WithStdContext, avoiding a full scan of the
// context chain on every request.
type ContextExtractor struct {
	Keys map[ContextKey]string
}

// DefaultContextExtractor copies the common request/trace/user keys.
var DefaultContextExtractor = &ContextExtractor{
	Keys: map[ContextKey]string{
		RequestIDKey: "request_id",
		TraceIDKey:   "trace_id",
		SpanIDKey:    "span_id",
		UserIDKey:    "user_id",
		SessionIDKey: "session_id",
	},
}

// NewRequestID generates a random request identifier suitable for
// EnsureRequestID and for callers that mint their own correlation IDs
// before a UnifiedContext exists.
func NewRequestID() string {
	return uuid.NewString()
}

// EnsureRequestID returns the context's current request_id, generating and
// storing a new one via NewRequestID if none is set yet. This is the helper
// request-scoped middleware call at the start of a request so every record
// emitted downstream carries a correlation ID even when the caller supplied
// none.
func (c *UnifiedContext) EnsureRequestID() string {
	if v, ok := c.Get("request_id"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	id := NewRequestID()
	c.SetRequest("request_id", id)
	return id
}

// WithStdContext copies the configured keys out of a standard
// context.Context into the calling goroutine's UnifiedContext, tagged
// CategoryRequest. This is the bridge used by HTTP/RPC middleware that
// already thread a context.Context through the call stack.
func WithStdContext(ctx context.Context, extractor *ContextExtractor) {
	if extractor == nil {
		extractor = DefaultContextExtractor
	}
	uc := Context()
	for key, fieldName := range extractor.Keys {
		if v := ctx.Value(key); v != nil {
			if s, ok := v.(string); ok && s != "" {
				uc.SetCategory(fieldName, s, CategoryRequest)
			}
		}
	}
}
