// ABOUTME: Authentication gate that turns a candidate token into a principal or anonymous
// ABOUTME: Shared by the HTTP middleware and the gRPC interceptors; failures never propagate

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Gate resolution errors
var (
	ErrPrincipalUnusable = errors.New("principal is not usable")
	ErrRoleMismatch      = errors.New("token role does not match stored role")
)

// GateConfig configures a Gate.
type GateConfig struct {
	Tokens      TokenVerifier
	Credentials CredentialStore
	// CookieName is the fallback token cookie; defaults to "jwt".
	CookieName string
	Logger     *slog.Logger
}

// Gate establishes exactly one authentication state per request.
type Gate struct {
	tokens     TokenVerifier
	creds      CredentialStore
	cookieName string
	logger     *slog.Logger
}

// NewGate creates a Gate.
func NewGate(cfg GateConfig) *Gate {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cookie := cfg.CookieName
	if cookie == "" {
		cookie = "jwt"
	}
	return &Gate{
		tokens:     cfg.Tokens,
		creds:      cfg.Credentials,
		cookieName: cookie,
		logger:     logger.With("component", "auth_gate"),
	}
}

// CookieName returns the cookie the gate reads tokens from.
func (g *Gate) CookieName() string {
	return g.cookieName
}

// Resolve verifies token and resolves its subject to a usable principal whose
// stored role still equals the role claim.
func (g *Gate) Resolve(ctx context.Context, token string) (Principal, error) {
	claims, err := g.tokens.Verify(token)
	if err != nil {
		return Principal{}, err
	}

	p, err := g.creds.LookupPrincipal(ctx, claims.Subject)
	if err != nil {
		return Principal{}, err
	}
	if !p.Usable() {
		return Principal{}, fmt.Errorf("%w: %s", ErrPrincipalUnusable, p.Status.Reason())
	}
	if p.Role != claims.Role {
		return Principal{}, ErrRoleMismatch
	}
	return p, nil
}

// Establish attaches the authentication state for token to ctx. An empty
// token, or any resolution failure, yields anonymous. A context that already
// carries state is returned unchanged. attrs are added to failure logs.
func (g *Gate) Establish(ctx context.Context, token string, attrs ...any) context.Context {
	if Established(ctx) {
		return ctx
	}
	if token == "" {
		return WithAnonymous(ctx)
	}

	p, err := g.Resolve(ctx, token)
	if err != nil {
		g.logFailure(err, attrs...)
		return WithAnonymous(ctx)
	}
	return WithPrincipal(ctx, p)
}

// logFailure logs why a presented token did not yield a principal. The token itself is never logged.
func (g *Gate) logFailure(err error, attrs ...any) {
	var (
		level  = slog.LevelWarn
		reason string
		vErr   *VerificationError
	)
	switch {
	case errors.As(err, &vErr):
		reason = "token_" + vErr.Reason.String()
		if vErr.Reason == ReasonExpired {
			level = slog.LevelDebug
		}
	case errors.Is(err, ErrPrincipalNotFound):
		reason = "principal_not_found"
	case errors.Is(err, ErrPrincipalUnusable):
		reason = "principal_unusable"
		level = slog.LevelInfo
	case errors.Is(err, ErrRoleMismatch):
		reason = "role_mismatch"
	default:
		reason = "lookup_failed"
		level = slog.LevelError
	}
	g.logger.Log(context.Background(), level, "auth failure", append([]any{"reason", reason, "error", err}, attrs...)...)
}
