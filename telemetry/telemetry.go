//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

// Package telemetry provides tracing helpers for tool invocation.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentName identifies this library to the tracer provider.
const InstrumentName = "github.com/toolmesh/toolmesh"

// Attribute keys used on tool invocation spans.
const (
	KeyToolName    = "tool.name"
	KeyToolRemote  = "tool.remote"
	KeyToolSuccess = "tool.success"
	KeyServerName  = "remote.server"
)

// Tracer is the tracer used for all toolmesh spans. It resolves against the
// globally registered tracer provider, so applications control the exporter.
var Tracer = otel.Tracer(InstrumentName)

// StartToolSpan starts a span covering one tool invocation.
func StartToolSpan(ctx context.Context, toolName string, remote bool) (context.Context, trace.Span) {
	return Tracer.Start(ctx, "invoke_tool",
		trace.WithAttributes(
			attribute.String(KeyToolName, toolName),
			attribute.Bool(KeyToolRemote, remote),
		),
	)
}

// EndToolSpan records the invocation outcome and ends the span.
func EndToolSpan(span trace.Span, success bool) {
	span.SetAttributes(attribute.Bool(KeyToolSuccess, success))
	span.End()
}
