// ABOUTME: Builds the chi router: baseline middleware, gate, policy, then API and page routes
// ABOUTME: The gate runs once per request ahead of the policy; handlers sit behind both

package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/campusworks/records-gateway/internal/accounts"
	"github.com/campusworks/records-gateway/internal/auth"
	"github.com/campusworks/records-gateway/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// AccountService is what the handlers need from the accounts package.
type AccountService interface {
	Login(ctx context.Context, req accounts.LoginRequest) (*accounts.AuthResponse, error)
	Register(ctx context.Context, req accounts.SignupRequest) (*accounts.AuthResponse, error)
	Departments(ctx context.Context) ([]*store.Department, error)
	StudentProfile(ctx context.Context, email string) (*store.Student, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config configures the router. Accounts, Gate, Policy, and Outcomes are required.
type Config struct {
	Accounts AccountService
	Gate     *auth.Gate
	Policy   *auth.Policy
	Outcomes *auth.Outcomes
	// Store backs /health/ready. Nil reports ready unconditionally.
	Store Pinger
	// AllowedOrigins enables CORS for the listed origins. Empty disables CORS.
	AllowedOrigins []string
	Logger         *slog.Logger
	Now            func() time.Time
}

// Server holds the handler dependencies.
type Server struct {
	accounts   AccountService
	store      Pinger
	cookieName string
	logger     *slog.Logger
	now        func() time.Time
}

// NewRouter assembles the HTTP surface.
func NewRouter(cfg Config) chi.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	s := &Server{
		accounts:   cfg.Accounts,
		store:      cfg.Store,
		cookieName: cfg.Gate.CookieName(),
		logger:     logger.With("component", "web"),
		now:        now,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(corsOptions(cfg.AllowedOrigins)))
	}
	r.Use(cfg.Gate.Middleware)
	r.Use(cfg.Policy.Middleware(cfg.Outcomes))

	r.Handle("/css/*", staticHandler())

	r.Get("/health", s.handleHealth)
	r.Get("/health/ready", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleAPILogin)
		r.Post("/auth/signup", s.handleAPISignup)
		r.Get("/auth/me", s.handleMe)
		r.Get("/departments", s.handleDepartments)
		r.NotFound(s.handleAPINotFound)
		r.MethodNotAllowed(s.handleAPIMethodNotAllowed)
	})

	r.Get("/", s.handleHome)
	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLoginSubmit)
	r.Get("/signup", s.handleSignupPage)
	r.Post("/signup", s.handleSignupSubmit)
	r.Get("/logout", s.handleLogout)
	r.Get("/access-denied", s.handleAccessDenied)
	r.Get("/error", s.handleErrorPage)
	r.Get("/dashboard", s.handleHome)
	r.Get("/student/dashboard", s.handleStudentDashboard)
	r.Get("/teacher/dashboard", s.handleTeacherDashboard)

	return r
}

func corsOptions(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

// requestLogger logs one line per request at debug level.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
