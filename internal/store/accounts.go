// ABOUTME: Account persistence for SQLStore
// ABOUTME: Lookup by exact email, existence checks, creation, and enable/disable

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const accountColumns = `id, email, password_hash, role, display_name, enabled,
	account_non_expired, account_non_locked, credentials_non_expired, created_at`

// GetAccountByEmail returns the account with exactly this email.
func (s *SQLStore) GetAccountByEmail(ctx context.Context, email string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+accountColumns+` FROM accounts WHERE email = ?`), email)

	var (
		a         Account
		createdAt string
	)
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &a.DisplayName, &a.Enabled,
		&a.AccountNonExpired, &a.AccountNonLocked, &a.CredentialsNonExpired, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying account: %w", err)
	}

	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// AccountExists reports whether an account with this email exists.
func (s *SQLStore) AccountExists(ctx context.Context, email string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM accounts WHERE email = ?`), email).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking account: %w", err)
	}
	return n > 0, nil
}

// CreateAccount inserts a new account. Returns ErrEmailExists if the email is taken.
func (s *SQLStore) CreateAccount(ctx context.Context, account *Account) error {
	if err := s.insertAccount(ctx, s.db, account); err != nil {
		return err
	}
	s.logger.Info("created account", "id", account.ID, "role", account.Role)
	return nil
}

// SetAccountEnabled flips the enabled flag. Returns ErrAccountNotFound for an unknown email.
func (s *SQLStore) SetAccountEnabled(ctx context.Context, email string, enabled bool) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE accounts SET enabled = ? WHERE email = ?`), enabled, email)
	if err != nil {
		return fmt.Errorf("updating account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating account: %w", err)
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	s.logger.Info("account enabled flag changed", "enabled", enabled)
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLStore) insertAccount(ctx context.Context, ex execer, a *Account) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := ex.ExecContext(ctx, s.rebind(`
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), a.ID, a.Email, a.PasswordHash, a.Role, a.DisplayName, a.Enabled,
		a.AccountNonExpired, a.AccountNonLocked, a.CredentialsNonExpired, formatTime(a.CreatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("inserting account: %w", err)
	}
	return nil
}
