package tools

import (
	"context"

	"github.com/google/uuid"
)

// CallScope identifies who a tool call runs for.
type CallScope struct {
	ThreadID   string
	ActorID    string
	SessionKey string // unique per tool call; isolates browser sessions
}

type scopeKey struct{}

// WithScope attaches the call scope to ctx.
func WithScope(ctx context.Context, s CallScope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFrom returns the call scope in ctx, if any.
func ScopeFrom(ctx context.Context) (CallScope, bool) {
	s, ok := ctx.Value(scopeKey{}).(CallScope)
	return s, ok
}

// sessionKeyFrom returns the per-call session key, minting one when the
// tool runs outside the executor.
func sessionKeyFrom(ctx context.Context) string {
	if s, ok := ScopeFrom(ctx); ok && s.SessionKey != "" {
		return s.SessionKey
	}
	return uuid.NewString()
}
