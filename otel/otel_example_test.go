// otel_example_test.go: example usage of the OpenTelemetry trace bridge
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package otel_test

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/agilira/lumen"
	lumenotel "github.com/agilira/lumen/otel"
)

func ExampleWithTracing() {
	exporter := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(trace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)

	logger, _ := lumen.Config{
		Level:          lumen.InfoLevel,
		CaptureContext: true,
		DefaultWriters: []string{"stdout"},
		Outputs: []lumen.OutputConfig{
			{Name: "stdout", Type: lumen.OutputConsole, Format: lumen.FormatJSON},
		},
	}.Build()
	defer logger.Close()

	tracer := otel.Tracer("example")
	ctx, span := tracer.Start(context.Background(), "process_request")
	defer span.End()

	span.SetAttributes(
		attribute.String("user.id", "john_doe"),
		attribute.String("request.method", "POST"),
	)

	member, _ := baggage.NewMember("correlation.id", "abc123")
	bag, _ := baggage.New(member)
	ctx = baggage.ContextWithBaggage(ctx, bag)

	otelLogger := lumenotel.WithTracing(logger, ctx)

	otelLogger.Info("Processing user request",
		lumen.Str("endpoint", "/api/users"),
		lumen.Int("status", 200),
	)
	otelLogger.Info("Request completed successfully",
		lumen.Float64("duration_ms", 45.67),
	)

	// Output will include trace_id, span_id, baggage.correlation.id, and resource fields
}
