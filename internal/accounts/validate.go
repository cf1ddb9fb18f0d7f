// ABOUTME: Field validation for login, registration, and provisioning requests
// ABOUTME: Produces field -> message maps; never touches the store

package accounts

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	minNameLength     = 2
	maxNameLength     = 100
	minPasswordLength = 6
	// bcrypt only considers the first 72 bytes of a secret.
	maxPasswordBytes = 72
)

type fieldErrors map[string]string

func (f fieldErrors) add(field, message string) {
	if _, exists := f[field]; !exists {
		f[field] = message
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func checkEmail(f fieldErrors, email string) {
	switch {
	case blank(email):
		f.add("email", "Email is required")
	case !validEmail(email):
		f.add("email", "Please provide a valid email address")
	}
}

func checkName(f fieldErrors, name string) {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	switch {
	case n == 0:
		f.add("name", "Name is required")
	case n < minNameLength || n > maxNameLength:
		f.add("name", "Name must be between 2 and 100 characters")
	}
}

func checkPassword(f fieldErrors, password string) {
	switch {
	case blank(password):
		f.add("password", "Password is required")
	case utf8.RuneCountInString(password) < minPasswordLength:
		f.add("password", "Password must be at least 6 characters")
	case len(password) > maxPasswordBytes:
		f.add("password", "Password must be at most 72 bytes")
	}
}

func validateLogin(req LoginRequest) fieldErrors {
	f := fieldErrors{}
	checkEmail(f, req.Email)
	if blank(req.Password) {
		f.add("password", "Password is required")
	}
	return f
}

func validateSignup(req SignupRequest) fieldErrors {
	f := fieldErrors{}
	checkName(f, req.Name)
	checkEmail(f, req.Email)
	checkPassword(f, req.Password)
	if blank(req.ConfirmPassword) {
		f.add("confirmPassword", "Confirm password is required")
	}
	if req.DepartmentID <= 0 {
		f.add("departmentId", "Department is required")
	}
	return f
}

func validateTeacher(req TeacherRequest) fieldErrors {
	f := fieldErrors{}
	checkName(f, req.Name)
	checkEmail(f, req.Email)
	checkPassword(f, req.Password)
	return f
}
