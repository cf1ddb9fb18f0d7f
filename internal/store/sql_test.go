// ABOUTME: Tests for the SQL store on SQLite
// ABOUTME: Covers accounts, departments, transactional student creation, and rebinding

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testAccount(email string) *Account {
	return &Account{
		ID:                    "acct-" + email,
		Email:                 email,
		PasswordHash:          "$2a$04$hash",
		Role:                  "ROLE_STUDENT",
		DisplayName:           "Test User",
		Enabled:               true,
		AccountNonExpired:     true,
		AccountNonLocked:      true,
		CredentialsNonExpired: true,
	}
}

func studentNumber(seq int) string {
	return fmt.Sprintf("STU2026%03d", seq)
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")

	s, err := NewSQLiteStore(context.Background(), dbPath)
	require.NoError(t, err)
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "whatever")
	require.Error(t, err)
}

func TestAccounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	acct := testAccount("john@example.com")
	acct.CreatedAt = created
	require.NoError(t, s.CreateAccount(ctx, acct))

	got, err := s.GetAccountByEmail(ctx, "john@example.com")
	require.NoError(t, err)
	assert.Equal(t, acct.ID, got.ID)
	assert.Equal(t, "ROLE_STUDENT", got.Role)
	assert.True(t, got.Enabled)
	assert.True(t, got.CredentialsNonExpired)
	assert.True(t, created.Equal(got.CreatedAt))

	t.Run("email match is exact", func(t *testing.T) {
		_, err := s.GetAccountByEmail(ctx, "John@Example.com")
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("exists", func(t *testing.T) {
		ok, err := s.AccountExists(ctx, "john@example.com")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.AccountExists(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("duplicate email", func(t *testing.T) {
		dup := testAccount("john@example.com")
		dup.ID = "other"
		assert.ErrorIs(t, s.CreateAccount(ctx, dup), ErrEmailExists)
	})

	t.Run("disable", func(t *testing.T) {
		require.NoError(t, s.SetAccountEnabled(ctx, "john@example.com", false))
		got, err := s.GetAccountByEmail(ctx, "john@example.com")
		require.NoError(t, err)
		assert.False(t, got.Enabled)

		assert.ErrorIs(t, s.SetAccountEnabled(ctx, "nobody@example.com", false), ErrAccountNotFound)
	})
}

func TestDepartments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cs := &Department{Code: "CS", Name: "Computer Science"}
	require.NoError(t, s.CreateDepartment(ctx, cs))
	assert.NotZero(t, cs.ID)

	bio := &Department{Code: "BIO", Name: "Biology", Description: "Life sciences"}
	require.NoError(t, s.CreateDepartment(ctx, bio))

	got, err := s.GetDepartment(ctx, cs.ID)
	require.NoError(t, err)
	assert.Equal(t, "Computer Science", got.Name)

	_, err = s.GetDepartment(ctx, 999)
	assert.ErrorIs(t, err, ErrDepartmentNotFound)

	assert.ErrorIs(t, s.CreateDepartment(ctx, &Department{Code: "CS", Name: "Dup"}), ErrDepartmentExists)

	all, err := s.ListDepartments(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Biology", all[0].Name)
}

func TestCreateStudentAccount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	dept := &Department{Code: "CS", Name: "Computer Science"}
	require.NoError(t, s.CreateDepartment(ctx, dept))

	acct := testAccount("john@example.com")
	student := &Student{ID: "stu-1", Name: "John Doe", Email: acct.Email, DepartmentID: dept.ID}
	require.NoError(t, s.CreateStudentAccount(ctx, acct, student, studentNumber))
	assert.Equal(t, "STU2026001", student.StudentNumber)

	second := testAccount("jane@example.com")
	require.NoError(t, s.CreateStudentAccount(ctx, second,
		&Student{ID: "stu-2", Name: "Jane Doe", Email: second.Email, DepartmentID: dept.ID}, studentNumber))

	got, err := s.GetStudentByAccount(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "STU2026002", got.StudentNumber)
	assert.Equal(t, "Jane Doe", got.Name)

	_, err = s.GetStudentByAccount(ctx, "missing")
	assert.ErrorIs(t, err, ErrStudentNotFound)
}

func TestCreateStudentAccount_RollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acct := testAccount("orphan@example.com")
	// department 42 does not exist, so the profile insert violates the foreign key
	err := s.CreateStudentAccount(ctx, acct, &Student{ID: "stu-x", Name: "Orphan", Email: acct.Email, DepartmentID: 42}, studentNumber)
	require.Error(t, err)

	ok, err := s.AccountExists(ctx, "orphan@example.com")
	require.NoError(t, err)
	assert.False(t, ok, "account insert must be rolled back with the profile")
}

func TestCreateStudentAccount_DuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	dept := &Department{Code: "CS", Name: "Computer Science"}
	require.NoError(t, s.CreateDepartment(ctx, dept))
	require.NoError(t, s.CreateAccount(ctx, testAccount("taken@example.com")))

	dup := testAccount("taken@example.com")
	dup.ID = "another"
	err := s.CreateStudentAccount(ctx, dup, &Student{ID: "stu-d", Name: "Dup", Email: dup.Email, DepartmentID: dept.ID}, studentNumber)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{driver: DriverPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))

	lite := &SQLStore{driver: DriverSQLite}
	assert.Equal(t, "SELECT ? ", lite.rebind("SELECT ? "))
}

func TestIsUniqueConstraintError(t *testing.T) {
	assert.False(t, isUniqueConstraintError(nil))
	assert.True(t, isUniqueConstraintError(fmt.Errorf("UNIQUE constraint failed: accounts.email")))
	assert.False(t, isUniqueConstraintError(fmt.Errorf("database is locked")))
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
