// ABOUTME: Tests for token issuance and verification
// ABOUTME: Covers round trips, expiry boundaries, tampering, algorithms, and claim validation

package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenService_Validation(t *testing.T) {
	_, err := NewTokenService(TokenConfig{Secret: []byte("short"), TTL: time.Hour})
	assert.Error(t, err)

	_, err = NewTokenService(TokenConfig{Secret: testSecret})
	assert.Error(t, err)

	tokens, err := NewTokenService(TokenConfig{Secret: testSecret, TTL: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, tokens.TTL())
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	clock := newTestClock()
	tokens := newTestTokens(t, clock)

	token := issue(t, tokens, student)
	assert.Equal(t, 2, strings.Count(token, "."), "compact JWS has three segments")

	claims, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "john@example.com", claims.Subject)
	assert.Equal(t, RoleStudent, claims.Role)
	assert.True(t, claims.IssuedAt.Equal(testEpoch))
	assert.True(t, claims.ExpiresAt.Equal(testEpoch.Add(3*time.Hour)))
}

func TestIssue_RejectsIncompletePrincipal(t *testing.T) {
	tokens := newTestTokens(t, newTestClock())

	_, err := tokens.Issue(Principal{Role: RoleStudent})
	assert.Error(t, err)

	_, err = tokens.Issue(Principal{ID: "x@example.com", Role: "ROLE_ADMIN"})
	assert.Error(t, err)
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	clock := newTestClock()
	tokens := newTestTokens(t, clock)
	token := issue(t, tokens, student)

	clock.Advance(3*time.Hour - time.Second)
	_, err := tokens.Verify(token)
	require.NoError(t, err, "token is valid until the last second before exp")

	clock.Advance(time.Second)
	_, err = tokens.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken, "token is invalid at exp")

	clock.Advance(time.Second)
	_, err = tokens.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)

	var vErr *VerificationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, ReasonExpired, vErr.Reason)
}

func tamperSignature(token string) string {
	parts := strings.Split(token, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	parts[2] = string(sig)
	return strings.Join(parts, ".")
}

func TestVerify_TamperedSignature(t *testing.T) {
	tokens := newTestTokens(t, newTestClock())
	token := issue(t, tokens, student)

	_, err := tokens.Verify(tamperSignature(token))
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestVerify_EscalatedRoleClaim(t *testing.T) {
	tokens := newTestTokens(t, newTestClock())
	token := issue(t, tokens, student)

	parts := strings.Split(token, ".")
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)

	var claims map[string]any
	require.NoError(t, json.Unmarshal(payload, &claims))
	claims["role"] = string(RoleTeacher)
	forged, err := json.Marshal(claims)
	require.NoError(t, err)
	parts[1] = base64.RawURLEncoding.EncodeToString(forged)

	_, err = tokens.Verify(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestVerify_SignatureCheckedBeforeExpiry(t *testing.T) {
	clock := newTestClock()
	tokens := newTestTokens(t, clock)
	token := issue(t, tokens, student)

	clock.Advance(4 * time.Hour)
	_, err := tokens.Verify(tamperSignature(token))
	assert.ErrorIs(t, err, ErrMalformedToken)
	assert.NotErrorIs(t, err, ErrExpiredToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	clock := newTestClock()
	other, err := NewTokenService(TokenConfig{Secret: []byte("another-secret-that-is-32-bytes!"), TTL: time.Hour, Now: clock.Now})
	require.NoError(t, err)

	_, err = newTestTokens(t, clock).Verify(issue(t, other, student))
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func signRaw(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims, key any) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	tokens := newTestTokens(t, newTestClock())
	claims := jwt.MapClaims{
		"sub":  "john@example.com",
		"role": string(RoleStudent),
		"iat":  testEpoch.Unix(),
		"exp":  testEpoch.Add(time.Hour).Unix(),
	}

	_, err := tokens.Verify(signRaw(t, jwt.SigningMethodHS512, claims, testSecret))
	assert.ErrorIs(t, err, ErrMalformedToken, "HS512")

	_, err = tokens.Verify(signRaw(t, jwt.SigningMethodNone, claims, jwt.UnsafeAllowNoneSignatureType))
	assert.ErrorIs(t, err, ErrMalformedToken, "alg none")
}

func TestVerify_Unverifiable(t *testing.T) {
	tokens := newTestTokens(t, newTestClock())
	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub":  "john@example.com",
			"role": string(RoleStudent),
			"iat":  testEpoch.Unix(),
			"exp":  testEpoch.Add(time.Hour).Unix(),
		}
	}

	tests := []struct {
		name   string
		mutate func(jwt.MapClaims)
	}{
		{"missing role", func(c jwt.MapClaims) { delete(c, "role") }},
		{"unknown role", func(c jwt.MapClaims) { c["role"] = "ROLE_ADMIN" }},
		{"missing sub", func(c jwt.MapClaims) { delete(c, "sub") }},
		{"missing iat", func(c jwt.MapClaims) { delete(c, "iat") }},
		{"missing exp", func(c jwt.MapClaims) { delete(c, "exp") }},
		{"issued in the future", func(c jwt.MapClaims) { c["iat"] = testEpoch.Add(time.Minute).Unix() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := base()
			tt.mutate(claims)
			_, err := tokens.Verify(signRaw(t, jwt.SigningMethodHS256, claims, testSecret))
			assert.ErrorIs(t, err, ErrUnverifiableToken)
		})
	}
}

func TestVerify_Garbage(t *testing.T) {
	tokens := newTestTokens(t, newTestClock())
	for _, token := range []string{"", "not-a-jwt", "a.b.c", "eyJhbGciOiJIUzI1NiJ9..."} {
		_, err := tokens.Verify(token)
		assert.ErrorIs(t, err, ErrMalformedToken, "token %q", token)
	}
}

func TestVerificationError_IsOnlyItsReason(t *testing.T) {
	err := &VerificationError{Reason: ReasonExpired}
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.NotErrorIs(t, err, ErrMalformedToken)
	assert.NotErrorIs(t, err, ErrUnverifiableToken)
	assert.Equal(t, "token expired", err.Error())
}
