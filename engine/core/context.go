package core

import "context"

type contextKey string

const (
	traceIDContextKey    contextKey = "miniflow:trace_id"
	workspaceIDContextKey contextKey = "miniflow:workspace_id"
)

// WithTraceID attaches the request trace id to ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDContextKey, traceID)
}

// TraceIDFromContext returns the trace id stored in ctx, or "" if absent.
func TraceIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(traceIDContextKey).(string)
	return v
}

// WithWorkspaceID attaches the active workspace id to ctx.
func WithWorkspaceID(ctx context.Context, id ID) context.Context {
	return context.WithValue(ctx, workspaceIDContextKey, id)
}

// WorkspaceIDFromContext returns the workspace id stored in ctx, or "" if absent.
func WorkspaceIDFromContext(ctx context.Context) ID {
	v, _ := ctx.Value(workspaceIDContextKey).(ID)
	return v
}
