// ABOUTME: HTTP side of the authentication gate and access policy
// ABOUTME: Extracts the token from the Authorization header or cookie and enforces rules per request

package auth

import (
	"net/http"
	"strings"
)

// extractBearerToken returns the token from an Authorization header value, or "".
func extractBearerToken(authHeader string) string {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

// ExtractToken returns the candidate token for r: the bearer header wins,
// then the named cookie. Returns "" when neither carries one.
func ExtractToken(r *http.Request, cookieName string) string {
	if token := extractBearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

// Middleware runs the gate for every request before anything else sees it.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Established(r.Context()) {
			next.ServeHTTP(w, r)
			return
		}
		ctx := g.Establish(r.Context(), ExtractToken(r, g.cookieName),
			"path", r.URL.Path, "remote_addr", r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Middleware enforces the policy using the state the gate attached. Requests
// that reach it without gate state are treated as anonymous.
func (p *Policy) Middleware(outcomes OutcomeHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, authenticated := PrincipalFromContext(r.Context())
			switch p.Decide(r.Method, r.URL.Path, principal, authenticated) {
			case Allow:
				next.ServeHTTP(w, r)
			case DenyUnauthenticated:
				outcomes.Unauthenticated(w, r)
			default:
				outcomes.Forbidden(w, r)
			}
		})
	}
}
