// Package trace carries the request trace id through contexts.
package trace

import "context"

type ctxKey string

const idKey ctxKey = "trace_id"

func WithID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, idKey, traceID)
}

// FromContext returns the trace id of ctx, or "" when none was set.
func FromContext(ctx context.Context) string {
	if s, ok := ctx.Value(idKey).(string); ok {
		return s
	}
	return ""
}
