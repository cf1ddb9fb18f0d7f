// ABOUTME: Responses for requests the access policy denies
// ABOUTME: API calls get JSON 401/403 bodies; page loads are redirected to login or access-denied

package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client-facing denial messages.
const (
	UnauthenticatedMessage = "Unauthorized: Please login to access this resource"
	ForbiddenMessage       = "Access Denied: You don't have permission to access this resource"
	LoginPrompt            = "Please login to continue"
)

// OutcomeHandler answers a denied request.
type OutcomeHandler interface {
	Unauthenticated(w http.ResponseWriter, r *http.Request)
	Forbidden(w http.ResponseWriter, r *http.Request)
}

// OutcomesConfig configures Outcomes. Empty fields take the defaults shown.
type OutcomesConfig struct {
	APIPrefix        string // "/api/"
	LoginPath        string // "/login"
	AccessDeniedPath string // "/access-denied"
	Logger           *slog.Logger
	Now              func() time.Time
}

// Outcomes is the standard OutcomeHandler.
type Outcomes struct {
	apiPrefix        string
	loginPath        string
	accessDeniedPath string
	logger           *slog.Logger
	now              func() time.Time
}

var _ OutcomeHandler = (*Outcomes)(nil)

// NewOutcomes creates Outcomes.
func NewOutcomes(cfg OutcomesConfig) *Outcomes {
	o := &Outcomes{
		apiPrefix:        cfg.APIPrefix,
		loginPath:        cfg.LoginPath,
		accessDeniedPath: cfg.AccessDeniedPath,
		logger:           cfg.Logger,
		now:              cfg.Now,
	}
	if o.apiPrefix == "" {
		o.apiPrefix = "/api/"
	}
	if o.loginPath == "" {
		o.loginPath = "/login"
	}
	if o.accessDeniedPath == "" {
		o.accessDeniedPath = "/access-denied"
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	o.logger = o.logger.With("component", "access")
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// IsAPI reports whether r is an API call rather than a page navigation.
func (o *Outcomes) IsAPI(r *http.Request) bool {
	p := CleanPath(r.URL.Path)
	return strings.HasPrefix(p+"/", o.apiPrefix)
}

// Unauthenticated answers a request that carried no usable principal.
func (o *Outcomes) Unauthenticated(w http.ResponseWriter, r *http.Request) {
	o.logger.Debug("access denied", "reason", "unauthenticated", "method", r.Method, "path", r.URL.Path)
	if o.IsAPI(r) {
		o.writeJSON(w, http.StatusUnauthorized, UnauthenticatedMessage)
		return
	}
	http.Redirect(w, r, o.loginPath+"?error="+url.QueryEscape(LoginPrompt), http.StatusSeeOther)
}

// Forbidden answers an authenticated request whose role does not satisfy the rule.
func (o *Outcomes) Forbidden(w http.ResponseWriter, r *http.Request) {
	attrs := []any{"reason", "forbidden", "method", r.Method, "path", r.URL.Path}
	if p, ok := PrincipalFromContext(r.Context()); ok {
		attrs = append(attrs, "principal", p.ID, "role", string(p.Role))
	}
	o.logger.Info("access denied", attrs...)

	if o.IsAPI(r) {
		o.writeJSON(w, http.StatusForbidden, ForbiddenMessage)
		return
	}
	http.Redirect(w, r, o.accessDeniedPath, http.StatusSeeOther)
}

// denialBody mirrors the API's response envelope for failures.
type denialBody struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (o *Outcomes) writeJSON(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(denialBody{Message: message, Timestamp: o.now().UTC()}); err != nil {
		o.logger.Error("failed to encode denial", "error", err)
	}
}
