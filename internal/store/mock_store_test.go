// ABOUTME: Tests for MockStore
// ABOUTME: Ensures the in-memory store matches SQL store semantics callers rely on

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStore_ReturnsCopies(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()
	require.NoError(t, m.CreateAccount(ctx, testAccount("a@example.com")))

	got, err := m.GetAccountByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	got.Role = "ROLE_TEACHER"

	again, err := m.GetAccountByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ROLE_STUDENT", again.Role)
}

func TestMockStore_StudentAccount(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	acct := testAccount("a@example.com")
	err := m.CreateStudentAccount(ctx, acct, &Student{ID: "s1", DepartmentID: 1}, studentNumber)
	assert.ErrorIs(t, err, ErrDepartmentNotFound)

	ok, _ := m.AccountExists(ctx, "a@example.com")
	assert.False(t, ok)

	require.NoError(t, m.CreateDepartment(ctx, &Department{Code: "CS", Name: "Computer Science"}))
	st := &Student{ID: "s1", DepartmentID: 1}
	require.NoError(t, m.CreateStudentAccount(ctx, acct, st, studentNumber))
	assert.Equal(t, "STU2026001", st.StudentNumber)
	assert.ErrorIs(t, m.CreateAccount(ctx, testAccount("a@example.com")), ErrEmailExists)
}
