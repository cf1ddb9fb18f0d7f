// ABOUTME: Store interfaces and data types for records-gateway persistence
// ABOUTME: Defines Account, Department, Student and the interfaces over them

package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAccountNotFound is returned when no account has the requested email
	ErrAccountNotFound = errors.New("account not found")

	// ErrEmailExists is returned when creating an account whose email is taken
	ErrEmailExists = errors.New("email already registered")

	// ErrDepartmentNotFound is returned when a department id does not exist
	ErrDepartmentNotFound = errors.New("department not found")

	// ErrDepartmentExists is returned when a department code is taken
	ErrDepartmentExists = errors.New("department code already exists")

	// ErrStudentNotFound is returned when an account has no student profile
	ErrStudentNotFound = errors.New("student not found")
)

// Account is the persisted login record. Role is stored as its wire name
// (ROLE_STUDENT, ROLE_TEACHER); the store does not interpret it.
type Account struct {
	ID                    string
	Email                 string
	PasswordHash          string
	Role                  string
	DisplayName           string
	Enabled               bool
	AccountNonExpired     bool
	AccountNonLocked      bool
	CredentialsNonExpired bool
	CreatedAt             time.Time
}

// Department is an academic department students register into
type Department struct {
	ID          int64
	Code        string
	Name        string
	Description string
}

// Student is the profile created alongside a self-registered account
type Student struct {
	ID            string
	AccountID     string
	StudentNumber string
	Name          string
	Email         string
	Phone         string
	DepartmentID  int64
	CreatedAt     time.Time
}

// AccountStore reads and writes login records
type AccountStore interface {
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	AccountExists(ctx context.Context, email string) (bool, error)
	CreateAccount(ctx context.Context, account *Account) error
	SetAccountEnabled(ctx context.Context, email string, enabled bool) error
}

// DepartmentStore reads and writes departments
type DepartmentStore interface {
	GetDepartment(ctx context.Context, id int64) (*Department, error)
	ListDepartments(ctx context.Context) ([]*Department, error)
	CreateDepartment(ctx context.Context, dept *Department) error
}

// StudentNumberFunc formats a student number from a 1-based sequence.
type StudentNumberFunc func(seq int) string

// StudentStore creates student accounts
type StudentStore interface {
	// CreateStudentAccount inserts the account and its student profile in one
	// transaction. The student number is assigned inside that transaction.
	CreateStudentAccount(ctx context.Context, account *Account, student *Student, number StudentNumberFunc) error
	GetStudentByAccount(ctx context.Context, accountID string) (*Student, error)
}

// Store is everything the gateway persists
type Store interface {
	AccountStore
	DepartmentStore
	StudentStore
	Ping(ctx context.Context) error
	Close() error
}
