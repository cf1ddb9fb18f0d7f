// ABOUTME: Tests for operator provisioning
// ABOUTME: Teacher accounts, departments, and enable/disable

package accounts

import (
	"context"
	"testing"

	"github.com/campusworks/records-gateway/internal/apperr"
	"github.com/campusworks/records-gateway/internal/auth"
	"github.com/campusworks/records-gateway/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestProvisioner(t *testing.T) {
	ms := store.NewMockStore()
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	p := NewProvisioner(ms, hasher, nil)
	ctx := context.Background()

	acct, err := p.CreateTeacher(ctx, TeacherRequest{Name: " Ada Lovelace ", Email: "ada@example.edu", Password: "analytical"})
	require.NoError(t, err)
	assert.Equal(t, "ROLE_TEACHER", acct.Role)
	assert.Equal(t, "Ada Lovelace", acct.DisplayName)
	assert.NoError(t, hasher.Compare(acct.PasswordHash, "analytical"))

	_, err = p.CreateTeacher(ctx, TeacherRequest{Name: "Ada", Email: "ada@example.edu", Password: "analytical"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = p.CreateTeacher(ctx, TeacherRequest{Name: "Bob", Email: "bob", Password: "x"})
	appErr := apperr.As(err)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	assert.Contains(t, appErr.Fields, "email")
	assert.Contains(t, appErr.Fields, "password")

	dept, err := p.CreateDepartment(ctx, " cs ", "Computer Science", "")
	require.NoError(t, err)
	assert.Equal(t, "CS", dept.Code)
	assert.NotZero(t, dept.ID)

	_, err = p.CreateDepartment(ctx, "CS", "Again", "")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = p.CreateDepartment(ctx, "", "", "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	require.NoError(t, p.SetEnabled(ctx, "ada@example.edu", false))
	got, err := ms.GetAccountByEmail(ctx, "ada@example.edu")
	require.NoError(t, err)
	assert.False(t, got.Enabled)

	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(p.SetEnabled(ctx, "nobody@example.edu", true)))
}
