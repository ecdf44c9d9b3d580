package core

import "context"

type contextKey string

const (
	ctxKeyActor contextKey = "audit_actor"
	ctxKeyWrite contextKey = "write_read"
)

// ContextWithActor records who is making the request for stock-change auditing.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ctxKeyActor, actor)
}

// ActorFromContext returns the actor set by ContextWithActor, or "".
func ActorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyActor).(string); ok {
		return v
	}
	return ""
}

// ContextForWrite marks reads made with ctx as the baseline of a write.
// Stores that cache reads must answer them from the source of truth.
func ContextForWrite(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKeyWrite, true)
}

// IsWriteContext reports whether ctx was marked by ContextForWrite.
func IsWriteContext(ctx context.Context) bool {
	v, _ := ctx.Value(ctxKeyWrite).(bool)
	return v
}
