// ABOUTME: Department persistence for SQLStore
// ABOUTME: Departments are provisioned out of band and referenced by registration

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetDepartment returns the department with the given id.
func (s *SQLStore) GetDepartment(ctx context.Context, id int64) (*Department, error) {
	var d Department
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT id, code, name, description FROM departments WHERE id = ?`), id).
		Scan(&d.ID, &d.Code, &d.Name, &d.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDepartmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying department: %w", err)
	}
	return &d, nil
}

// ListDepartments returns all departments ordered by name.
func (s *SQLStore) ListDepartments(ctx context.Context) ([]*Department, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, code, name, description FROM departments ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing departments: %w", err)
	}
	defer rows.Close()

	var depts []*Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Code, &d.Name, &d.Description); err != nil {
			return nil, fmt.Errorf("scanning department: %w", err)
		}
		depts = append(depts, &d)
	}
	return depts, rows.Err()
}

// CreateDepartment inserts a department and sets its generated id.
func (s *SQLStore) CreateDepartment(ctx context.Context, dept *Department) error {
	err := s.db.QueryRowContext(ctx, s.rebind(`
		INSERT INTO departments (code, name, description) VALUES (?, ?, ?) RETURNING id
	`), dept.Code, dept.Name, dept.Description).Scan(&dept.ID)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDepartmentExists
		}
		return fmt.Errorf("inserting department: %w", err)
	}
	s.logger.Info("created department", "id", dept.ID, "code", dept.Code)
	return nil
}
