// ABOUTME: Principal, Role and the CredentialStore interface the auth core resolves identities through
// ABOUTME: Principals are immutable values built fresh per lookup and never persisted

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Role is the single authority a principal holds.
type Role string

const (
	// RoleStudent is the base role; the only one available to self-registration.
	RoleStudent Role = "ROLE_STUDENT"
	// RoleTeacher is elevated and only ever provisioned out of band.
	RoleTeacher Role = "ROLE_TEACHER"
)

const rolePrefix = "ROLE_"

// ParseRole accepts a role by wire name (ROLE_TEACHER) or short name (teacher).
func ParseRole(s string) (Role, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if !strings.HasPrefix(name, rolePrefix) {
		name = rolePrefix + name
	}
	r := Role(name)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

// Short returns the role without its ROLE_ prefix, e.g. STUDENT.
func (r Role) Short() string {
	return strings.TrimPrefix(string(r), rolePrefix)
}

// Status holds the four account flags. A principal is usable only when all are true.
type Status struct {
	Enabled               bool
	AccountNonExpired     bool
	AccountNonLocked      bool
	CredentialsNonExpired bool
}

// ActiveStatus is the status of a fully usable account.
var ActiveStatus = Status{Enabled: true, AccountNonExpired: true, AccountNonLocked: true, CredentialsNonExpired: true}

// Usable reports whether every flag is set.
func (s Status) Usable() bool {
	return s.Enabled && s.AccountNonExpired && s.AccountNonLocked && s.CredentialsNonExpired
}

// Reason names the first unset flag, or "" when usable.
func (s Status) Reason() string {
	switch {
	case !s.Enabled:
		return "disabled"
	case !s.AccountNonExpired:
		return "account_expired"
	case !s.AccountNonLocked:
		return "locked"
	case !s.CredentialsNonExpired:
		return "credentials_expired"
	default:
		return ""
	}
}

// Principal is the resolved identity attached to a request. The identifier is
// the email used at login and matched exactly.
type Principal struct {
	ID          string
	Role        Role
	DisplayName string
	Status      Status
}

// Usable reports whether the principal may authenticate.
func (p Principal) Usable() bool {
	return p.Status.Usable()
}

// Credentials pairs a principal with its stored password hash.
type Credentials struct {
	Principal    Principal
	PasswordHash string
}

// ErrPrincipalNotFound is returned by a CredentialStore for an unknown identifier.
var ErrPrincipalNotFound = errors.New("principal not found")

// CredentialStore resolves identifiers to principals. Implementations must
// return ErrPrincipalNotFound (possibly wrapped) for unknown identifiers.
type CredentialStore interface {
	LookupPrincipal(ctx context.Context, id string) (Principal, error)
	LookupCredentials(ctx context.Context, id string) (Credentials, error)
}
