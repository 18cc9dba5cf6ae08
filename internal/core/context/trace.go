package context

import "context"

// TraceContext carries request correlation IDs. The HTTP trace middleware
// fills it from X-Request-ID / X-Trace-ID headers (or generates fresh IDs),
// and the logger attaches it to every entry.
type TraceContext struct {
	TraceID   string
	SpanID    string
	RequestID string
}

type traceContextKey struct{}

// WithTrace stores trace information in ctx.
func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// GetTrace returns trace information from ctx, or nil outside a request.
func GetTrace(ctx context.Context) *TraceContext {
	if v, ok := ctx.Value(traceContextKey{}).(*TraceContext); ok {
		return v
	}
	return nil
}
