// ABOUTME: Adapts persisted accounts to the auth core's CredentialStore
// ABOUTME: Builds a fresh immutable Principal from each Account lookup

package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/campusworks/records-gateway/internal/auth"
	"github.com/campusworks/records-gateway/internal/store"
)

// StoreCredentials implements auth.CredentialStore over a store.AccountStore.
type StoreCredentials struct {
	accounts store.AccountStore
}

var _ auth.CredentialStore = (*StoreCredentials)(nil)

// NewStoreCredentials creates a CredentialStore backed by accounts.
func NewStoreCredentials(accounts store.AccountStore) *StoreCredentials {
	return &StoreCredentials{accounts: accounts}
}

// LookupCredentials returns the principal and password hash for an email.
func (c *StoreCredentials) LookupCredentials(ctx context.Context, id string) (auth.Credentials, error) {
	acct, err := c.accounts.GetAccountByEmail(ctx, id)
	if errors.Is(err, store.ErrAccountNotFound) {
		return auth.Credentials{}, fmt.Errorf("%w: %v", auth.ErrPrincipalNotFound, err)
	}
	if err != nil {
		return auth.Credentials{}, err
	}

	p, err := principalFromAccount(acct)
	if err != nil {
		return auth.Credentials{}, err
	}
	return auth.Credentials{Principal: p, PasswordHash: acct.PasswordHash}, nil
}

// LookupPrincipal returns the principal for an email.
func (c *StoreCredentials) LookupPrincipal(ctx context.Context, id string) (auth.Principal, error) {
	creds, err := c.LookupCredentials(ctx, id)
	if err != nil {
		return auth.Principal{}, err
	}
	return creds.Principal, nil
}

func principalFromAccount(a *store.Account) (auth.Principal, error) {
	role := auth.Role(a.Role)
	if !role.Valid() {
		return auth.Principal{}, fmt.Errorf("account %s has unknown role %q", a.ID, a.Role)
	}
	name := a.DisplayName
	if name == "" {
		name = a.Email
	}
	return auth.Principal{
		ID:          a.Email,
		Role:        role,
		DisplayName: name,
		Status: auth.Status{
			Enabled:               a.Enabled,
			AccountNonExpired:     a.AccountNonExpired,
			AccountNonLocked:      a.AccountNonLocked,
			CredentialsNonExpired: a.CredentialsNonExpired,
		},
	}, nil
}
