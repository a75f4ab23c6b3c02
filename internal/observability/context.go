package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// DetachTraceContext returns a context that keeps the span context of
// ctx but none of its cancellation. Work that outlives a tool call,
// like preparing the coaching report after end_session returns, runs
// on a detached context so its spans still link to the request trace.
func DetachTraceContext(ctx context.Context) context.Context {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return context.Background()
	}
	return trace.ContextWithRemoteSpanContext(context.Background(), sc)
}
