// record.go: Log record data model for Lumen
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import "time"

// Caller describes the call site that produced a record.
type Caller struct {
	File     string
	Line     int
	Function string
	Valid    bool
}

// TraceContext carries the OpenTelemetry-compatible correlation fields that
// may be attached to a record, per the spec's trace_context shape.
type TraceContext struct {
	TraceID      string // 32 hex chars
	SpanID       string // 16 hex chars
	ParentSpanID string // 16 hex chars
	TraceFlags   byte
	TraceState   string
	Valid        bool
}

// Record is a single immutable log entry traveling through the pipeline.
// Once materialized by the core logger's gate, no field is mutated; a
// Record that must outlive the producer's frame is copied explicitly by
// whichever decorator needs to retain it (the async decorator's enqueue).
type Record struct {
	Timestamp  time.Time
	Level      Level
	Message    string
	Category   string
	ThreadID   string // opaque per-goroutine identifier, small-string
	Caller     Caller
	StackTrace string
	Trace      TraceContext
	Fields     []Field

	// fieldBuf is inline storage for the common case (<=16 fields), avoiding
	// a heap allocation for the Fields slice on the hot path.
	fieldBuf [16]Field
}

// reset clears a pooled Record's references so large backing arrays and
// strings can be collected, mirroring the ring buffer's slot recycling.
func (r *Record) reset() {
	r.Message = ""
	r.StackTrace = ""
	r.Category = ""
	r.ThreadID = ""
	r.Caller = Caller{}
	r.Trace = TraceContext{}
	if cap(r.Fields) > len(r.fieldBuf) {
		r.Fields = nil
	} else {
		r.Fields = r.fieldBuf[:0]
	}
}
