// ABOUTME: Out-of-band provisioning of teacher accounts, departments, and account status
// ABOUTME: Elevated accounts are only ever created here, never through self-registration

package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/campusworks/records-gateway/internal/apperr"
	"github.com/campusworks/records-gateway/internal/auth"
	"github.com/campusworks/records-gateway/internal/store"
	"github.com/google/uuid"
)

// TeacherRequest describes a teacher account to provision.
type TeacherRequest struct {
	Name     string
	Email    string
	Password string
}

// Provisioner creates accounts and departments for operators.
type Provisioner struct {
	store  Store
	hasher auth.PasswordHasher
	logger *slog.Logger
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(st Store, hasher auth.PasswordHasher, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{store: st, hasher: hasher, logger: logger.With("component", "provisioning")}
}

// CreateTeacher creates a ROLE_TEACHER account.
func (p *Provisioner) CreateTeacher(ctx context.Context, req TeacherRequest) (*store.Account, error) {
	if fields := validateTeacher(req); len(fields) > 0 {
		return nil, apperr.Validation("Validation failed", fields)
	}

	hash, err := p.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	acct := &store.Account{
		ID:                    uuid.NewString(),
		Email:                 req.Email,
		PasswordHash:          hash,
		Role:                  string(auth.RoleTeacher),
		DisplayName:           strings.TrimSpace(req.Name),
		Enabled:               true,
		AccountNonExpired:     true,
		AccountNonLocked:      true,
		CredentialsNonExpired: true,
		CreatedAt:             time.Now(),
	}
	err = p.store.CreateAccount(ctx, acct)
	if errors.Is(err, store.ErrEmailExists) {
		return nil, apperr.Conflict("User", "email", req.Email)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	p.logger.Info("teacher provisioned", "account_id", acct.ID)
	return acct, nil
}

// CreateDepartment creates a department.
func (p *Provisioner) CreateDepartment(ctx context.Context, code, name, description string) (*store.Department, error) {
	fields := fieldErrors{}
	if blank(code) {
		fields.add("code", "Department code is required")
	}
	if blank(name) {
		fields.add("name", "Department name is required")
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("Validation failed", fields)
	}

	dept := &store.Department{
		Code:        strings.ToUpper(strings.TrimSpace(code)),
		Name:        strings.TrimSpace(name),
		Description: description,
	}
	err := p.store.CreateDepartment(ctx, dept)
	if errors.Is(err, store.ErrDepartmentExists) {
		return nil, apperr.Conflict("Department", "code", dept.Code)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return dept, nil
}

// SetEnabled enables or disables an account. Tokens already issued to a
// disabled account stop resolving on their next request.
func (p *Provisioner) SetEnabled(ctx context.Context, email string, enabled bool) error {
	err := p.store.SetAccountEnabled(ctx, email, enabled)
	if errors.Is(err, store.ErrAccountNotFound) {
		return apperr.NotFound("User", "email", email)
	}
	if err != nil {
		return apperr.Internal(fmt.Errorf("setting enabled=%t: %w", enabled, err))
	}
	return nil
}
