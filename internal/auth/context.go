// ABOUTME: Per-request authentication state carried in context.Context
// ABOUTME: Either a resolved principal or an explicit anonymous marker, attached exactly once

package auth

import (
	"context"
)

// requestState is what the gate attaches: a principal, or anonymous when ok is false.
type requestState struct {
	principal     Principal
	authenticated bool
}

// authStateKey is the key type for storing requestState in context.Context.
type authStateKey struct{}

func withState(ctx context.Context, st requestState) context.Context {
	return context.WithValue(ctx, authStateKey{}, st)
}

func stateFromContext(ctx context.Context) (requestState, bool) {
	st, ok := ctx.Value(authStateKey{}).(requestState)
	return st, ok
}

// WithPrincipal returns a context carrying p as the authenticated principal.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return withState(ctx, requestState{principal: p, authenticated: true})
}

// WithAnonymous returns a context explicitly marked as unauthenticated.
func WithAnonymous(ctx context.Context) context.Context {
	return withState(ctx, requestState{})
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	st, ok := stateFromContext(ctx)
	if !ok || !st.authenticated {
		return Principal{}, false
	}
	return st.principal, true
}

// MustPrincipal returns the authenticated principal, panicking if there is none.
// Only for handlers mounted behind an authenticated or role rule.
func MustPrincipal(ctx context.Context) Principal {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		panic("auth: no authenticated principal in context")
	}
	return p
}

// Established reports whether the gate has already run for this context.
func Established(ctx context.Context) bool {
	_, ok := stateFromContext(ctx)
	return ok
}
