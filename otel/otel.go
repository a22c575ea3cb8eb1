// otel.go: OpenTelemetry trace correlation bridge for Lumen
//
// This package bridges an incoming context.Context carrying an
// OpenTelemetry span into Lumen's goroutine-local UnifiedContext, so every
// record logged on that goroutine picks up trace_id/span_id automatically
// once the logger is built with CaptureContext enabled, plus a convenience
// child logger pre-populated with baggage and resource fields for the
// common case of logging through the returned *lumen.Logger directly.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package otel

import (
	"context"
	"os"
	"runtime/debug"
	"strings"

	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/trace"

	"github.com/agilira/lumen"
)

const maxBaggageFields = 10

// WithTracing extracts the active span from ctx into the calling
// goroutine's UnifiedContext (so CaptureContext-enabled records pick up
// trace_id/span_id without further calls) and returns a child logger with
// baggage and detected resource fields pre-attached.
func WithTracing(logger *lumen.Logger, ctx context.Context) *lumen.Logger {
	if tc := traceContextFrom(ctx); tc.Valid {
		lumen.Context().SetTrace(tc)
	}

	out := logger
	if fields := baggageFields(ctx); len(fields) > 0 {
		out = out.With(fields...)
	}
	if fields := resourceFields(); len(fields) > 0 {
		out = out.With(fields...)
	}
	return out
}

// traceContextFrom builds a lumen.TraceContext from the span recorded in ctx.
func traceContextFrom(ctx context.Context) lumen.TraceContext {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return lumen.TraceContext{}
	}
	sc := span.SpanContext()
	if !sc.IsValid() {
		return lumen.TraceContext{}
	}

	tc := lumen.TraceContext{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
		Valid:   true,
	}
	if sc.IsSampled() {
		tc.TraceFlags = 1
	}
	if state := sc.TraceState().String(); state != "" {
		tc.TraceState = state
	}
	return tc
}

// baggageFields reads up to maxBaggageFields OpenTelemetry baggage members
// out of ctx as "baggage.<key>" string fields.
func baggageFields(ctx context.Context) []lumen.Field {
	bag := baggage.FromContext(ctx)
	if bag.Len() == 0 {
		return nil
	}

	members := bag.Members()
	fields := make([]lumen.Field, 0, minInt(len(members), maxBaggageFields))
	for i, member := range members {
		if i >= maxBaggageFields {
			break
		}
		fields = append(fields, lumen.Str("baggage."+member.Key(), member.Value()))
	}
	return fields
}

// resourceFields detects service.name, service.version and
// deployment.environment from the standard OpenTelemetry environment
// variables, falling back to Go build info where applicable.
func resourceFields() []lumen.Field {
	fields := make([]lumen.Field, 0, 3)
	if name := serviceName(); name != "" {
		fields = append(fields, lumen.Str("service.name", name))
	}
	if version := serviceVersion(); version != "" {
		fields = append(fields, lumen.Str("service.version", version))
	}
	if env := deploymentEnvironment(); env != "" {
		fields = append(fields, lumen.Str("deployment.environment", env))
	}
	return fields
}

func serviceName() string {
	if name := os.Getenv("OTEL_SERVICE_NAME"); name != "" {
		return name
	}
	if name := os.Getenv("SERVICE_NAME"); name != "" {
		return name
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Path != "" {
		parts := strings.Split(info.Main.Path, "/")
		return parts[len(parts)-1]
	}
	return ""
}

func serviceVersion() string {
	if version := os.Getenv("OTEL_SERVICE_VERSION"); version != "" {
		return version
	}
	if version := os.Getenv("SERVICE_VERSION"); version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return ""
}

func deploymentEnvironment() string {
	if attrs := os.Getenv("OTEL_RESOURCE_ATTRIBUTES"); strings.Contains(attrs, "deployment.environment=") {
		for _, part := range strings.Split(attrs, ",") {
			if v, ok := strings.CutPrefix(part, "deployment.environment="); ok {
				return v
			}
		}
	}
	return os.Getenv("ENVIRONMENT")
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
