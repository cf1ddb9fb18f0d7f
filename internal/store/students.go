// ABOUTME: Student profile persistence for SQLStore
// ABOUTME: Account and profile are written together in a single transaction

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateStudentAccount inserts the account and student profile atomically.
// If either insert fails nothing is written.
func (s *SQLStore) CreateStudentAccount(ctx context.Context, account *Account, student *Student, number StudentNumberFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := s.insertAccount(ctx, tx, account); err != nil {
		return err
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&count); err != nil {
		return fmt.Errorf("counting students: %w", err)
	}

	student.AccountID = account.ID
	student.StudentNumber = number(count + 1)
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now()
	}

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO students (id, account_id, student_number, name, email, phone, department_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), student.ID, student.AccountID, student.StudentNumber, student.Name, student.Email,
		student.Phone, student.DepartmentID, formatTime(student.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting student: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing student account: %w", err)
	}

	s.logger.Info("created student account", "id", account.ID, "student_number", student.StudentNumber)
	return nil
}

// GetStudentByAccount returns the profile attached to an account.
func (s *SQLStore) GetStudentByAccount(ctx context.Context, accountID string) (*Student, error) {
	var (
		st        Student
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, account_id, student_number, name, email, phone, department_id, created_at
		FROM students WHERE account_id = ?
	`), accountID).Scan(&st.ID, &st.AccountID, &st.StudentNumber, &st.Name, &st.Email,
		&st.Phone, &st.DepartmentID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying student: %w", err)
	}
	if st.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &st, nil
}
