// ABOUTME: Server-rendered page flows: login, signup, logout, dashboards, and info pages
// ABOUTME: Login and signup set the token cookie and redirect by role

package web

import (
	"bytes"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/campusworks/records-gateway/internal/accounts"
	"github.com/campusworks/records-gateway/internal/apperr"
	"github.com/campusworks/records-gateway/internal/auth"
	"github.com/campusworks/records-gateway/internal/store"
	"github.com/yuin/goldmark"
)

const (
	loginPath            = "/login"
	studentDashboardPath = "/student/dashboard"
	teacherDashboardPath = "/teacher/dashboard"
	loggedOutMessage     = "You have been logged out successfully"
)

// pageData is shared by every page template.
type pageData struct {
	Title       string
	Principal   *auth.Principal
	Error       string
	Message     string
	Fields      map[string]string
	Login       accounts.LoginRequest
	Signup      accounts.SignupRequest
	Departments []*store.Department
	Student     *store.Student
	Content     template.HTML
}

// render executes templates/<page> inside the base layout.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/"+page))

	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		data.Principal = &p
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		s.logger.Error("failed to render page", "page", page, "error", err)
		http.Error(w, apperr.InternalMessage, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// markdown renders content/<name>.md to HTML.
func (s *Server) markdown(name string) template.HTML {
	src, err := contentFS.ReadFile("content/" + name + ".md")
	if err != nil {
		s.logger.Error("failed to read page content", "name", name, "error", err)
		return ""
	}
	var buf bytes.Buffer
	if err := goldmark.Convert(src, &buf); err != nil {
		s.logger.Error("failed to convert markdown", "name", name, "error", err)
		return ""
	}
	return template.HTML(buf.String())
}

// dashboardFor returns the landing page for role.
func dashboardFor(role auth.Role) string {
	if role == auth.RoleTeacher {
		return teacherDashboardPath
	}
	return studentDashboardPath
}

// setTokenCookie stores the issued token in the session cookie for the
// lifetime of the token.
func (s *Server) setTokenCookie(w http.ResponseWriter, r *http.Request, resp *accounts.AuthResponse) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    resp.Token,
		Path:     "/",
		MaxAge:   int(resp.ExpiresIn / 1000),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearTokenCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		http.Redirect(w, r, dashboardFor(p.Role), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		http.Redirect(w, r, dashboardFor(p.Role), http.StatusSeeOther)
		return
	}

	q := r.URL.Query()
	data := pageData{Title: "Login", Error: q.Get("error")}
	if q.Has("logout") {
		data.Message = loggedOutMessage
	}
	s.render(w, r, http.StatusOK, "login.html", data)
}

func (s *Server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, loginPath+"?error="+url.QueryEscape(apperr.InvalidCredentials().Message), http.StatusSeeOther)
		return
	}

	resp, err := s.accounts.Login(r.Context(), accounts.LoginRequest{
		Email:    strings.TrimSpace(r.PostForm.Get("email")),
		Password: r.PostForm.Get("password"),
	})
	if err != nil {
		msg := apperr.InvalidCredentials().Message
		if appErr := apperr.As(err); appErr.Kind == apperr.KindInternal {
			s.logger.Error("page login failed", "error", err)
			msg = appErr.Message
		}
		http.Redirect(w, r, loginPath+"?error="+url.QueryEscape(msg), http.StatusSeeOther)
		return
	}

	s.setTokenCookie(w, r, resp)
	http.Redirect(w, r, dashboardFor(auth.Role(resp.Role)), http.StatusSeeOther)
}

func (s *Server) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	depts, err := s.accounts.Departments(r.Context())
	if err != nil {
		s.logger.Error("failed to list departments", "error", err)
		http.Redirect(w, r, "/error", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "signup.html", pageData{Title: "Register", Departments: depts})
}

func (s *Server) handleSignupSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderSignupError(w, r, accounts.SignupRequest{}, apperr.Validation("Invalid form submission", nil))
		return
	}

	req := accounts.SignupRequest{
		Name:            strings.TrimSpace(r.PostForm.Get("name")),
		Email:           strings.TrimSpace(r.PostForm.Get("email")),
		Password:        r.PostForm.Get("password"),
		ConfirmPassword: r.PostForm.Get("confirmPassword"),
		Phone:           strings.TrimSpace(r.PostForm.Get("phone")),
	}
	// An unparsable department is left at zero and reported as missing.
	if id, err := strconv.ParseInt(r.PostForm.Get("departmentId"), 10, 64); err == nil {
		req.DepartmentID = id
	}

	resp, err := s.accounts.Register(r.Context(), req)
	if err != nil {
		s.renderSignupError(w, r, req, err)
		return
	}

	s.setTokenCookie(w, r, resp)
	http.Redirect(w, r, studentDashboardPath, http.StatusSeeOther)
}

// renderSignupError re-renders the signup form with the failure and the
// submitted values, minus passwords.
func (s *Server) renderSignupError(w http.ResponseWriter, r *http.Request, req accounts.SignupRequest, err error) {
	appErr := apperr.As(err)
	if appErr.Kind == apperr.KindInternal {
		s.logger.Error("page signup failed", "error", err)
	}

	depts, listErr := s.accounts.Departments(r.Context())
	if listErr != nil {
		s.logger.Error("failed to list departments", "error", listErr)
	}

	req.Password = ""
	req.ConfirmPassword = ""
	s.render(w, r, statusFor(appErr.Kind), "signup.html", pageData{
		Title:       "Register",
		Error:       appErr.Message,
		Fields:      appErr.Fields,
		Signup:      req,
		Departments: depts,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearTokenCookie(w, r)
	http.Redirect(w, r, loginPath+"?logout", http.StatusSeeOther)
}

func (s *Server) handleAccessDenied(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusForbidden, "info.html", pageData{
		Title:   "Access Denied",
		Content: s.markdown("access-denied"),
	})
}

func (s *Server) handleErrorPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusInternalServerError, "info.html", pageData{
		Title:   "Error",
		Content: s.markdown("error"),
	})
}

func (s *Server) handleStudentDashboard(w http.ResponseWriter, r *http.Request) {
	p := auth.MustPrincipal(r.Context())

	student, err := s.accounts.StudentProfile(r.Context(), p.ID)
	if err != nil {
		if apperr.KindOf(err) != apperr.KindNotFound {
			s.logger.Error("failed to load student profile", "principal", p.ID, "error", err)
			http.Redirect(w, r, "/error", http.StatusSeeOther)
			return
		}
		s.logger.Warn("student account has no profile", "principal", p.ID)
	}

	s.render(w, r, http.StatusOK, "dashboard.html", pageData{
		Title:   "Student Dashboard",
		Student: student,
		Content: s.markdown("student-dashboard"),
	})
}

func (s *Server) handleTeacherDashboard(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "dashboard.html", pageData{
		Title:   "Teacher Dashboard",
		Content: s.markdown("teacher-dashboard"),
	})
}
