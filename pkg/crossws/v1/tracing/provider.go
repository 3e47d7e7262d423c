package tracing

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// TracerProvider is a trace destination: a tracer source whose spans all end
// up in one project of one backend workspace.
type TracerProvider interface {
	// GetTracer returns a Tracer instance with the specified name and options.
	GetTracer(name string, opts ...trace.TracerOption) trace.Tracer

	// Shutdown flushes buffered spans and releases the exporter. The context
	// should carry a deadline. No-op destinations return nil.
	Shutdown(ctx context.Context) error
}
