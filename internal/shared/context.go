package shared

import "context"

type scopeContextKey struct{}

// ContextWithScope stores the caller scope in context.
func ContextWithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// ScopeFromContext extracts the caller scope from context. The zero Scope is
// returned for unauthenticated requests.
func ScopeFromContext(ctx context.Context) Scope {
	scope, _ := ctx.Value(scopeContextKey{}).(Scope)
	return scope
}
