package oracle

import "context"

// Scope identifies which session and stage issued an oracle call. The engine
// attaches it to the context so middleware can label metrics and logs without
// threading labels through every signature.
type Scope struct {
	SessionID string
	Stage     string
}

type scopeKey struct{}

// WithScope returns a context carrying the call scope.
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFrom extracts the call scope from the context. The zero Scope is
// returned when none was attached.
func ScopeFrom(ctx context.Context) Scope {
	scope, _ := ctx.Value(scopeKey{}).(Scope)
	return scope
}
