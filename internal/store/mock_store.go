// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without a database

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu          sync.RWMutex
	accounts    map[string]*Account   // keyed by email
	departments map[int64]*Department // keyed by id
	students    map[string]*Student   // keyed by account id
	nextDeptID  int64

	// PingErr is returned by Ping when set.
	PingErr error
}

var _ Store = (*MockStore)(nil)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		accounts:    make(map[string]*Account),
		departments: make(map[int64]*Department),
		students:    make(map[string]*Student),
		nextDeptID:  1,
	}
}

// GetAccountByEmail returns a copy of the account with this email.
func (m *MockStore) GetAccountByEmail(ctx context.Context, email string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[email]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

// AccountExists reports whether the email is taken.
func (m *MockStore) AccountExists(ctx context.Context, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.accounts[email]
	return ok, nil
}

// CreateAccount stores a copy of the account.
func (m *MockStore) CreateAccount(ctx context.Context, account *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.createAccountLocked(account)
}

func (m *MockStore) createAccountLocked(account *Account) error {
	if _, ok := m.accounts[account.Email]; ok {
		return ErrEmailExists
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	cp := *account
	m.accounts[account.Email] = &cp
	return nil
}

// SetAccountEnabled flips the enabled flag.
func (m *MockStore) SetAccountEnabled(ctx context.Context, email string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[email]
	if !ok {
		return ErrAccountNotFound
	}
	a.Enabled = enabled
	return nil
}

// GetDepartment returns a copy of the department.
func (m *MockStore) GetDepartment(ctx context.Context, id int64) (*Department, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.departments[id]
	if !ok {
		return nil, ErrDepartmentNotFound
	}
	cp := *d
	return &cp, nil
}

// ListDepartments returns copies of all departments ordered by name.
func (m *MockStore) ListDepartments(ctx context.Context) ([]*Department, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	depts := make([]*Department, 0, len(m.departments))
	for _, d := range m.departments {
		cp := *d
		depts = append(depts, &cp)
	}
	sort.Slice(depts, func(i, j int) bool { return depts[i].Name < depts[j].Name })
	return depts, nil
}

// CreateDepartment stores the department and assigns its id.
func (m *MockStore) CreateDepartment(ctx context.Context, dept *Department) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range m.departments {
		if d.Code == dept.Code {
			return ErrDepartmentExists
		}
	}
	dept.ID = m.nextDeptID
	m.nextDeptID++
	cp := *dept
	m.departments[dept.ID] = &cp
	return nil
}

// CreateStudentAccount stores both records or neither.
func (m *MockStore) CreateStudentAccount(ctx context.Context, account *Account, student *Student, number StudentNumberFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.departments[student.DepartmentID]; !ok {
		return ErrDepartmentNotFound
	}
	if err := m.createAccountLocked(account); err != nil {
		return err
	}

	student.AccountID = account.ID
	student.StudentNumber = number(len(m.students) + 1)
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now()
	}
	cp := *student
	m.students[account.ID] = &cp
	return nil
}

// GetStudentByAccount returns a copy of the student profile.
func (m *MockStore) GetStudentByAccount(ctx context.Context, accountID string) (*Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.students[accountID]
	if !ok {
		return nil, ErrStudentNotFound
	}
	cp := *st
	return &cp, nil
}

// Ping returns PingErr.
func (m *MockStore) Ping(ctx context.Context) error {
	return m.PingErr
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}
