// ABOUTME: Credential check behind every login: lookup, bcrypt compare, status check
// ABOUTME: Every failure mode collapses into ErrInvalidCredentials with uniform effort

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrInvalidCredentials is the only failure a caller learns about a bad login.
var ErrInvalidCredentials = errors.New("invalid credentials")

// dummySecret is hashed at construction so unknown identifiers cost one real comparison.
const dummySecret = "records-gateway-timing-equalizer"

// Authenticator verifies an identifier and secret against a CredentialStore.
type Authenticator struct {
	creds     CredentialStore
	hasher    PasswordHasher
	dummyHash string
	logger    *slog.Logger
}

// NewAuthenticator creates an Authenticator. It hashes a throwaway secret with
// hasher so failed lookups take as long as failed comparisons.
func NewAuthenticator(creds CredentialStore, hasher PasswordHasher, logger *slog.Logger) (*Authenticator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dummy, err := hasher.Hash(dummySecret)
	if err != nil {
		return nil, fmt.Errorf("preparing dummy hash: %w", err)
	}
	return &Authenticator{
		creds:     creds,
		hasher:    hasher,
		dummyHash: dummy,
		logger:    logger.With("component", "authenticator"),
	}, nil
}

// Authenticate returns the principal for id when secret matches and the
// account is usable. Unknown id, wrong secret, and unusable accounts all
// return ErrInvalidCredentials. Store failures are returned wrapped.
func (a *Authenticator) Authenticate(ctx context.Context, id, secret string) (Principal, error) {
	creds, err := a.creds.LookupCredentials(ctx, id)
	if errors.Is(err, ErrPrincipalNotFound) {
		_ = a.hasher.Compare(a.dummyHash, secret)
		a.logger.Debug("login rejected", "reason", "unknown_principal")
		return Principal{}, ErrInvalidCredentials
	}
	if err != nil {
		return Principal{}, fmt.Errorf("looking up credentials: %w", err)
	}

	if err := a.hasher.Compare(creds.PasswordHash, secret); err != nil {
		if !errors.Is(err, ErrPasswordMismatch) {
			a.logger.Warn("stored password hash unusable", "error", err)
		}
		a.logger.Debug("login rejected", "reason", "password_mismatch")
		return Principal{}, ErrInvalidCredentials
	}

	if !creds.Principal.Usable() {
		a.logger.Info("login rejected", "reason", creds.Principal.Status.Reason())
		return Principal{}, ErrInvalidCredentials
	}

	return creds.Principal, nil
}
