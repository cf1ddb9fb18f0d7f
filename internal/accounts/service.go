// ABOUTME: Login and self-registration orchestration over the store, hasher, and token service
// ABOUTME: Returns apperr failures; never writes transport responses

package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/campusworks/records-gateway/internal/apperr"
	"github.com/campusworks/records-gateway/internal/auth"
	"github.com/campusworks/records-gateway/internal/store"
	"github.com/google/uuid"
)

// Store is the persistence the service needs.
type Store interface {
	store.AccountStore
	store.DepartmentStore
	store.StudentStore
}

// Authenticator checks credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, id, secret string) (auth.Principal, error)
}

// TokenIssuer signs tokens for authenticated principals.
type TokenIssuer interface {
	Issue(p auth.Principal) (string, error)
	TTL() time.Duration
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is the self-registration payload. Role is accepted for
// compatibility and ignored: self-registration always yields ROLE_STUDENT.
type SignupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	DepartmentID    int64  `json:"departmentId"`
	Phone           string `json:"phone,omitempty"`
	Role            string `json:"role,omitempty"`
}

// AuthResponse is returned by a successful login or registration.
type AuthResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"tokenType"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Name      string `json:"name"`
	ExpiresIn int64  `json:"expiresIn"` // milliseconds
}

// Config configures a Service.
type Config struct {
	Store         Store
	Hasher        auth.PasswordHasher
	Authenticator Authenticator
	Tokens        TokenIssuer
	Logger        *slog.Logger
	// Now defaults to time.Now; it dates accounts and student numbers.
	Now func() time.Time
}

// Service implements login and registration.
type Service struct {
	store  Store
	hasher auth.PasswordHasher
	authn  Authenticator
	tokens TokenIssuer
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a Service.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:  cfg.Store,
		hasher: cfg.Hasher,
		authn:  cfg.Authenticator,
		tokens: cfg.Tokens,
		logger: logger.With("component", "accounts"),
		now:    now,
	}
}

// Login authenticates the caller and issues a token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if fields := validateLogin(req); len(fields) > 0 {
		return nil, apperr.Validation("Validation failed", fields)
	}

	p, err := s.authn.Authenticate(ctx, req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		return nil, apperr.InvalidCredentials()
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("authenticating: %w", err))
	}

	token, err := s.tokens.Issue(p)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	s.logger.Info("login succeeded", "principal", p.ID, "role", string(p.Role))
	return &AuthResponse{
		Token:     token,
		TokenType: auth.TokenType,
		Email:     p.ID,
		Role:      string(p.Role),
		Name:      p.DisplayName,
		ExpiresIn: s.tokens.TTL().Milliseconds(),
	}, nil
}

// Register creates a student account and logs it in. Checks run in order:
// fields, password confirmation, email uniqueness, department. Nothing is
// written unless all pass.
func (s *Service) Register(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	if fields := validateSignup(req); len(fields) > 0 {
		return nil, apperr.Validation("Validation failed", fields)
	}
	if req.Password != req.ConfirmPassword {
		return nil, apperr.Validation("Passwords do not match", nil)
	}

	exists, err := s.store.AccountExists(ctx, req.Email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if exists {
		return nil, apperr.Conflict("User", "email", req.Email)
	}

	dept, err := s.store.GetDepartment(ctx, req.DepartmentID)
	if errors.Is(err, store.ErrDepartmentNotFound) {
		return nil, apperr.Validation("Invalid department selected", nil)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	if req.Role != "" {
		if role, err := auth.ParseRole(req.Role); err != nil || role != auth.RoleStudent {
			s.logger.Warn("ignoring requested role on self-registration", "requested", req.Role)
		}
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	now := s.now()
	acct := &store.Account{
		ID:                    uuid.NewString(),
		Email:                 req.Email,
		PasswordHash:          hash,
		Role:                  string(auth.RoleStudent),
		DisplayName:           req.Name,
		Enabled:               true,
		AccountNonExpired:     true,
		AccountNonLocked:      true,
		CredentialsNonExpired: true,
		CreatedAt:             now,
	}
	student := &store.Student{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		DepartmentID: dept.ID,
		CreatedAt:    now,
	}

	err = s.store.CreateStudentAccount(ctx, acct, student, s.studentNumber)
	if errors.Is(err, store.ErrEmailExists) {
		return nil, apperr.Conflict("User", "email", req.Email)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	s.logger.Info("student registered", "account_id", acct.ID, "student_number", student.StudentNumber, "department", dept.Code)
	return s.Login(ctx, LoginRequest{Email: req.Email, Password: req.Password})
}

// Departments lists the departments a student may register into.
func (s *Service) Departments(ctx context.Context) ([]*store.Department, error) {
	depts, err := s.store.ListDepartments(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return depts, nil
}

// studentNumber formats STU<year><seq:03d>.
func (s *Service) studentNumber(seq int) string {
	return fmt.Sprintf("STU%d%03d", s.now().Year(), seq)
}

// StudentProfile returns the student record behind the account with the
// given email.
func (s *Service) StudentProfile(ctx context.Context, email string) (*store.Student, error) {
	acct, err := s.store.GetAccountByEmail(ctx, email)
	if errors.Is(err, store.ErrAccountNotFound) {
		return nil, apperr.NotFound("User", "email", email)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	student, err := s.store.GetStudentByAccount(ctx, acct.ID)
	if errors.Is(err, store.ErrStudentNotFound) {
		return nil, apperr.NotFound("Student", "email", email)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return student, nil
}
