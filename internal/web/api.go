// ABOUTME: JSON API handlers for login, self-registration, and the current principal
// ABOUTME: Every answer uses the apiResponse envelope; failures go through writeError

package web

import (
	"net/http"

	"github.com/campusworks/records-gateway/internal/accounts"
	"github.com/campusworks/records-gateway/internal/apperr"
	"github.com/campusworks/records-gateway/internal/auth"
)

// meResponse summarizes the calling principal.
type meResponse struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	Name  string `json:"name"`
}

// departmentView is the API shape of a department.
type departmentView struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (s *Server) handleAPILogin(w http.ResponseWriter, r *http.Request) {
	var req accounts.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, err := s.accounts.Login(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSuccess(w, "Login successful!", resp)
}

func (s *Server) handleAPISignup(w http.ResponseWriter, r *http.Request) {
	var req accounts.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, err := s.accounts.Register(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSuccess(w, "Registration successful! Welcome aboard!", resp)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p := auth.MustPrincipal(r.Context())
	s.writeSuccess(w, "Current user", meResponse{
		Email: p.ID,
		Role:  string(p.Role),
		Name:  p.DisplayName,
	})
}

func (s *Server) handleDepartments(w http.ResponseWriter, r *http.Request) {
	depts, err := s.accounts.Departments(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := make([]departmentView, 0, len(depts))
	for _, d := range depts {
		views = append(views, departmentView{ID: d.ID, Code: d.Code, Name: d.Name, Description: d.Description})
	}
	s.writeSuccess(w, "Departments retrieved successfully", views)
}

func (s *Server) handleAPINotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, apperr.NotFound("Resource", "path", r.URL.Path))
}

func (s *Server) handleAPIMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusMethodNotAllowed, apiResponse{Message: "Method " + r.Method + " is not supported for this endpoint"})
}
