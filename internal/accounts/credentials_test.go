// ABOUTME: Tests for the store-backed CredentialStore
// ABOUTME: Covers account-to-principal mapping and not-found translation

package accounts

import (
	"context"
	"testing"

	"github.com/campusworks/records-gateway/internal/auth"
	"github.com/campusworks/records-gateway/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreCredentials(t *testing.T) {
	ms := store.NewMockStore()
	ctx := context.Background()
	require.NoError(t, ms.CreateAccount(ctx, &store.Account{
		ID:                    "a1",
		Email:                 "ada@example.edu",
		PasswordHash:          "$2a$04$hash",
		Role:                  "ROLE_TEACHER",
		DisplayName:           "Ada Lovelace",
		Enabled:               true,
		AccountNonExpired:     true,
		AccountNonLocked:      false,
		CredentialsNonExpired: true,
	}))
	require.NoError(t, ms.CreateAccount(ctx, &store.Account{ID: "a2", Email: "noname@example.edu", Role: "ROLE_STUDENT", Enabled: true}))
	require.NoError(t, ms.CreateAccount(ctx, &store.Account{ID: "a3", Email: "weird@example.edu", Role: "ROLE_ADMIN"}))

	creds := NewStoreCredentials(ms)

	c, err := creds.LookupCredentials(ctx, "ada@example.edu")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.edu", c.Principal.ID)
	assert.Equal(t, auth.RoleTeacher, c.Principal.Role)
	assert.Equal(t, "Ada Lovelace", c.Principal.DisplayName)
	assert.Equal(t, "$2a$04$hash", c.PasswordHash)
	assert.False(t, c.Principal.Usable())
	assert.Equal(t, "locked", c.Principal.Status.Reason())

	p, err := creds.LookupPrincipal(ctx, "noname@example.edu")
	require.NoError(t, err)
	assert.Equal(t, "noname@example.edu", p.DisplayName)

	_, err = creds.LookupPrincipal(ctx, "missing@example.edu")
	assert.ErrorIs(t, err, auth.ErrPrincipalNotFound)

	_, err = creds.LookupPrincipal(ctx, "weird@example.edu")
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrPrincipalNotFound)
}
