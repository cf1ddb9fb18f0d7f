// Package auth is the authentication and authorization core of records-gateway.
//
// # Request Flow
//
//	request -> Gate -> Policy -> (Outcomes on denial) -> handler
//
// The Gate runs once per request. It takes a candidate token from the
// Authorization header (Bearer) or, failing that, the jwt cookie, verifies it
// with the TokenService, and resolves the subject through a CredentialStore.
// The resolved principal must still be usable and still hold the role the
// token claims. Any failure leaves the request anonymous; the Gate itself
// never rejects.
//
// The Policy then picks the most specific AccessRule for the cleaned path and
// decides:
//
//   - public: allow
//   - authenticated: allow with a principal, otherwise DenyUnauthenticated
//   - role: DenyUnauthenticated without a principal, DenyForbidden with the
//     wrong role
//
// Paths no rule matches require authentication.
//
// # Tokens
//
// HS256 JWTs with sub, role, iat and exp. The signing key and TTL are fixed
// when the TokenService is built. Verification failures are
// *VerificationError values matching ErrMalformedToken, ErrExpiredToken, or
// ErrUnverifiableToken.
//
// # Principal
//
// Principals travel in context.Context:
//
//	p, ok := auth.PrincipalFromContext(r.Context())
//
// # gRPC
//
// UnaryInterceptor and StreamInterceptor run the same Gate and a Policy keyed
// by full method name (/package.Service/Method) and answer with
// codes.Unauthenticated or codes.PermissionDenied.
package auth
