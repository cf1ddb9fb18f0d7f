// ABOUTME: Signed identity tokens carrying subject and role claims
// ABOUTME: HS256 JWTs with a fixed TTL, typed verification failures, and an injectable clock

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the minimum signing key length in bytes.
const MinSecretLength = 32

// TokenType is reported to clients alongside issued tokens.
const TokenType = "Bearer"

// Token errors. VerificationError matches these with errors.Is.
var (
	ErrMalformedToken    = errors.New("malformed token")
	ErrExpiredToken      = errors.New("token expired")
	ErrUnverifiableToken = errors.New("unverifiable token")
)

// VerificationReason classifies a failed verification.
type VerificationReason int

const (
	// ReasonMalformed covers bad encoding, a bad signature, and a wrong algorithm.
	ReasonMalformed VerificationReason = iota
	// ReasonExpired means the signature verified but now >= exp.
	ReasonExpired
	// ReasonUnverifiable means a signed token lacks usable sub or role claims.
	ReasonUnverifiable
)

func (r VerificationReason) String() string {
	switch r {
	case ReasonExpired:
		return "expired"
	case ReasonUnverifiable:
		return "unverifiable"
	default:
		return "malformed"
	}
}

// VerificationError is returned by TokenService.Verify.
type VerificationError struct {
	Reason VerificationReason
	Err    error
}

func (e *VerificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token %s: %v", e.Reason, e.Err)
	}
	return "token " + e.Reason.String()
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the reason.
func (e *VerificationError) Is(target error) bool {
	switch e.Reason {
	case ReasonExpired:
		return target == ErrExpiredToken
	case ReasonUnverifiable:
		return target == ErrUnverifiableToken
	default:
		return target == ErrMalformedToken
	}
}

// Claims are the verified contents of a token.
type Claims struct {
	Subject   string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// tokenClaims is the wire shape: registered claims plus role.
type tokenClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenConfig configures a TokenService.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// TokenVerifier is the part of TokenService the gate needs.
type TokenVerifier interface {
	Verify(tokenString string) (Claims, error)
}

// TokenService issues and verifies tokens. The key and TTL are fixed at construction.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

var _ TokenVerifier = (*TokenService)(nil)

// NewTokenService validates the config and returns a ready service.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("signing key must be at least %d bytes, got %d", MinSecretLength, len(cfg.Secret))
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("token TTL must be positive")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	return &TokenService{
		secret: secret,
		ttl:    cfg.TTL,
		now:    now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithTimeFunc(now),
		),
	}, nil
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for p valid from now until now+TTL.
func (s *TokenService) Issue(p Principal) (string, error) {
	if p.ID == "" {
		return "", fmt.Errorf("cannot issue token without subject")
	}
	if !p.Role.Valid() {
		return "", fmt.Errorf("cannot issue token for role %q", p.Role)
	}

	now := s.now()
	claims := tokenClaims{
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature first, then expiry, then the sub and role claims.
func (s *TokenService) Verify(tokenString string) (Claims, error) {
	var tc tokenClaims
	token, err := s.parser.ParseWithClaims(tokenString, &tc, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return Claims{}, classifyParseError(err)
	}
	if !token.Valid {
		return Claims{}, &VerificationError{Reason: ReasonMalformed}
	}

	if tc.Subject == "" {
		return Claims{}, &VerificationError{Reason: ReasonUnverifiable, Err: errors.New("missing sub claim")}
	}
	if tc.IssuedAt == nil {
		return Claims{}, &VerificationError{Reason: ReasonUnverifiable, Err: errors.New("missing iat claim")}
	}
	role := Role(tc.Role)
	if !role.Valid() {
		return Claims{}, &VerificationError{Reason: ReasonUnverifiable, Err: fmt.Errorf("invalid role claim %q", tc.Role)}
	}

	return Claims{
		Subject:   tc.Subject,
		Role:      role,
		IssuedAt:  tc.IssuedAt.Time,
		ExpiresAt: tc.ExpiresAt.Time,
	}, nil
}

// classifyParseError maps jwt parser errors onto verification reasons. The
// parser checks the signature before any claim, so an expiry error implies a
// valid signature.
func classifyParseError(err error) *VerificationError {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return &VerificationError{Reason: ReasonMalformed, Err: err}
	case errors.Is(err, jwt.ErrTokenExpired):
		return &VerificationError{Reason: ReasonExpired, Err: err}
	case errors.Is(err, jwt.ErrTokenInvalidClaims):
		return &VerificationError{Reason: ReasonUnverifiable, Err: err}
	default:
		return &VerificationError{Reason: ReasonMalformed, Err: err}
	}
}
