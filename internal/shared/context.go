package shared

import "context"

type actorContextKey struct{}

// ContextWithActor stores the acting user id in the context. Terminal
// authentication lives outside this service; the middleware trusts the
// upstream-provided identity header.
func ContextWithActor(ctx context.Context, actorID int64) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actorID)
}

// ActorFromContext extracts the acting user id, zero when absent.
func ActorFromContext(ctx context.Context) int64 {
	actorID, _ := ctx.Value(actorContextKey{}).(int64)
	return actorID
}
