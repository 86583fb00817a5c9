package logging

import "context"

// contextKey is a private type so logging's context keys never collide with
// keys set by other packages.
type contextKey int

const (
	sessionIDKey contextKey = iota
	parentSessionIDKey
	toolCallIDKey
	componentKey
	agentKey
)

// WithSession records a session id on the context. An existing session id,
// if present, is preserved as the parent — used when a subagent session is
// nested under the session that spawned it.
func WithSession(ctx context.Context, sessionID string) context.Context {
	if existing := SessionID(ctx); existing != "" && existing != sessionID {
		ctx = context.WithValue(ctx, parentSessionIDKey, existing)
	}
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// WithToolCall records the tool-call id a log line is associated with.
func WithToolCall(ctx context.Context, toolCallID string) context.Context {
	return context.WithValue(ctx, toolCallIDKey, toolCallID)
}

// WithComponent records which subsystem is producing a log line (e.g.
// "hooks", "finalizer", "sync").
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// WithAgent records the name of the coding agent driving the current
// session (e.g. "claude-code", "cursor").
func WithAgent(ctx context.Context, agent string) context.Context {
	return context.WithValue(ctx, agentKey, agent)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// SessionID extracts the session id from the context, or "" if unset.
func SessionID(ctx context.Context) string { return stringValue(ctx, sessionIDKey) }

// ParentSessionID extracts the parent session id from the context.
func ParentSessionID(ctx context.Context) string { return stringValue(ctx, parentSessionIDKey) }

// ToolCallID extracts the tool-call id from the context.
func ToolCallID(ctx context.Context) string { return stringValue(ctx, toolCallIDKey) }

// Component extracts the component name from the context.
func Component(ctx context.Context) string { return stringValue(ctx, componentKey) }

// Agent extracts the agent name from the context.
func Agent(ctx context.Context) string { return stringValue(ctx, agentKey) }
