// ABOUTME: Tests for the access policy
// ABOUTME: Covers the default table, specificity ordering, path cleaning, methods, and the 401/403 split

package auth

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPolicy(t *testing.T, rules []AccessRule, opts ...PolicyOption) *Policy {
	t.Helper()
	p, err := NewPolicy(rules, opts...)
	require.NoError(t, err)
	return p
}

type caller struct {
	name          string
	principal     Principal
	authenticated bool
}

var (
	anonymous    = caller{name: "anonymous"}
	asStudent    = caller{name: "student", principal: student, authenticated: true}
	asTeacher    = caller{name: "teacher", principal: teacher, authenticated: true}
	everyCallers = []caller{anonymous, asStudent, asTeacher}
)

func TestDefaultRules(t *testing.T) {
	policy := mustPolicy(t, DefaultRules())

	tests := []struct {
		method string
		path   string
		anon   Decision
		stu    Decision
		tea    Decision
	}{
		{"GET", "/", Allow, Allow, Allow},
		{"GET", "/login", Allow, Allow, Allow},
		{"POST", "/signup", Allow, Allow, Allow},
		{"POST", "/api/auth/login", Allow, Allow, Allow},
		{"POST", "/api/auth/signup", Allow, Allow, Allow},
		{"GET", "/api/auth/me", DenyUnauthenticated, Allow, Allow},
		{"GET", "/css/site.css", Allow, Allow, Allow},
		{"GET", "/health", Allow, Allow, Allow},
		{"GET", "/health/ready", Allow, Allow, Allow},
		{"GET", "/access-denied", Allow, Allow, Allow},
		{"GET", "/teacher/dashboard", DenyUnauthenticated, DenyForbidden, Allow},
		{"GET", "/teacher", DenyUnauthenticated, DenyForbidden, Allow},
		{"GET", "/student/dashboard", DenyUnauthenticated, Allow, DenyForbidden},
		{"POST", "/api/courses/create", DenyUnauthenticated, DenyForbidden, Allow},
		{"POST", "/api/courses/12/delete", DenyUnauthenticated, DenyForbidden, Allow},
		{"GET", "/api/courses/12", DenyUnauthenticated, Allow, Allow},
		{"GET", "/api/courses", DenyUnauthenticated, Allow, Allow},
		{"POST", "/api/students/7/delete", DenyUnauthenticated, DenyForbidden, Allow},
		{"GET", "/api/departments", DenyUnauthenticated, Allow, Allow},
		{"GET", "/profile/edit", DenyUnauthenticated, Allow, Allow},
		{"GET", "/reports/annual", DenyUnauthenticated, Allow, Allow},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.anon, policy.Decide(tt.method, tt.path, anonymous.principal, false), "anonymous")
			assert.Equal(t, tt.stu, policy.Decide(tt.method, tt.path, student, true), "student")
			assert.Equal(t, tt.tea, policy.Decide(tt.method, tt.path, teacher, true), "teacher")
		})
	}
}

func TestDecide_PathCleaning(t *testing.T) {
	policy := mustPolicy(t, DefaultRules())

	for _, p := range []string{
		"/login/../teacher/dashboard",
		"//teacher//dashboard",
		"/teacher/./dashboard",
		"/teacher/",
		"/css/../teacher/grades",
	} {
		assert.Equal(t, DenyForbidden, policy.Decide("GET", p, student, true), p)
		assert.Equal(t, DenyUnauthenticated, policy.Decide("GET", p, Principal{}, false), p)
	}

	assert.Equal(t, "/", CleanPath(""))
	assert.Equal(t, "/a", CleanPath("a"))
}

func TestDecide_AnonymousIsNeverForbidden(t *testing.T) {
	policy := mustPolicy(t, DefaultRules())
	paths := []string{"/", "/x", "/teacher/a", "/student/b", "/api/courses/create", "/api/students/1/delete", "/api/auth/me", "/grpc.reflection.v1.ServerReflection/X"}

	for _, p := range paths {
		for _, m := range []string{"GET", "POST", "DELETE"} {
			assert.NotEqual(t, DenyForbidden, policy.Decide(m, p, Principal{}, false), "%s %s", m, p)
		}
	}
}

func TestDecide_UnmatchedRequiresAuthentication(t *testing.T) {
	policy := mustPolicy(t, Public("/open/**"))

	rule, matched := policy.Match("GET", "/somewhere/else")
	assert.False(t, matched)
	assert.Equal(t, RequireAuthenticated, rule.Requirement)

	assert.Equal(t, DenyUnauthenticated, policy.Decide("GET", "/somewhere/else", Principal{}, false))
	assert.Equal(t, Allow, policy.Decide("GET", "/somewhere/else", student, true))

	empty := mustPolicy(t, nil)
	assert.Equal(t, DenyUnauthenticated, empty.Decide("GET", "/", Principal{}, false))
}

func TestSpecificity(t *testing.T) {
	t.Run("longest literal prefix wins regardless of declaration order", func(t *testing.T) {
		var rules []AccessRule
		rules = append(rules, HasRole(RoleTeacher, "/api/**")...)
		rules = append(rules, Public("/api/public/**")...)
		policy := mustPolicy(t, rules)

		assert.Equal(t, Allow, policy.Decide("GET", "/api/public/news", Principal{}, false))
		assert.Equal(t, DenyForbidden, policy.Decide("GET", "/api/private", student, true))
	})

	t.Run("more literal characters wins on equal prefix", func(t *testing.T) {
		var rules []AccessRule
		rules = append(rules, Authenticated("/api/courses/**")...)
		rules = append(rules, HasRole(RoleTeacher, "/api/courses/*/delete")...)
		policy := mustPolicy(t, rules)

		rule, matched := policy.Match("POST", "/api/courses/3/delete")
		require.True(t, matched)
		assert.Equal(t, "/api/courses/*/delete", rule.Pattern)
	})

	t.Run("fewer double stars wins", func(t *testing.T) {
		var rules []AccessRule
		rules = append(rules, Public("/a/**/b")...)
		rules = append(rules, HasRole(RoleTeacher, "/a/*/b")...)
		policy := mustPolicy(t, rules)

		assert.Equal(t, DenyUnauthenticated, policy.Decide("GET", "/a/x/b", Principal{}, false))
		assert.Equal(t, Allow, policy.Decide("GET", "/a/x/y/b", Principal{}, false))
	})

	t.Run("method restricted wins over unrestricted", func(t *testing.T) {
		rules := Authenticated("/m/**")
		rules = append(rules, AccessRule{Pattern: "/m/**", Requirement: RequirePublic, Methods: []string{"get"}})
		policy := mustPolicy(t, rules)

		assert.Equal(t, Allow, policy.Decide("GET", "/m/x", Principal{}, false))
		assert.Equal(t, DenyUnauthenticated, policy.Decide("POST", "/m/x", Principal{}, false))
	})

	t.Run("declaration order breaks full ties", func(t *testing.T) {
		var rules []AccessRule
		rules = append(rules, HasRole(RoleStudent, "/same/*")...)
		rules = append(rules, HasRole(RoleTeacher, "/same/*")...)
		policy := mustPolicy(t, rules)

		assert.Equal(t, Allow, policy.Decide("GET", "/same/x", student, true))
		assert.Equal(t, DenyForbidden, policy.Decide("GET", "/same/x", teacher, true))
	})
}

func TestPatterns(t *testing.T) {
	policy := mustPolicy(t, Public("/files/*.pdf", "/v?/status", "/deep/**"))

	tests := []struct {
		path string
		want bool
	}{
		{"/files/report.pdf", true},
		{"/files/sub/report.pdf", false},
		{"/v1/status", true},
		{"/v10/status", false},
		{"/deep", true},
		{"/deep/a/b/c", true},
		{"/deeper", false},
	}
	for _, tt := range tests {
		_, matched := policy.Match("GET", tt.path)
		assert.Equal(t, tt.want, matched, tt.path)
	}
}

func TestNewPolicy_Rejects(t *testing.T) {
	tests := []struct {
		name string
		rule AccessRule
	}{
		{"relative pattern", AccessRule{Pattern: "api/**"}},
		{"unclosed class", AccessRule{Pattern: "/a/[bc"}},
		{"role rule without role", AccessRule{Pattern: "/a", Requirement: RequireRole}},
		{"unknown role", AccessRule{Pattern: "/a", Requirement: RequireRole, Role: "ROLE_ADMIN"}},
		{"role on public rule", AccessRule{Pattern: "/a", Requirement: RequirePublic, Role: RoleTeacher}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPolicy([]AccessRule{tt.rule})
			assert.Error(t, err)
		})
	}
}

func TestPolicy_MemoMatchesUncached(t *testing.T) {
	cached := mustPolicy(t, DefaultRules(), WithCacheSize(4))
	uncached := mustPolicy(t, DefaultRules(), WithCacheSize(0))

	paths := []string{"/", "/teacher/a", "/student/b", "/api/courses/1/delete", "/api/auth/me", "/x/y"}
	for round := 0; round < 3; round++ {
		for i, p := range paths {
			for _, c := range everyCallers {
				method := []string{"GET", "POST"}[(i+round)%2]
				assert.Equal(t,
					uncached.Decide(method, p, c.principal, c.authenticated),
					cached.Decide(method, p, c.principal, c.authenticated),
					"%s %s as %s", method, p, c.name)
			}
		}
	}
}

func TestPolicy_ConcurrentDecisions(t *testing.T) {
	policy := mustPolicy(t, DefaultRules(), WithCacheSize(8))

	done := make(chan struct{})
	for g := 0; g < 8; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 200; i++ {
				p := fmt.Sprintf("/teacher/page-%d", (g*200+i)%37)
				if d := policy.Decide("GET", p, student, true); d != DenyForbidden {
					t.Errorf("Decide(%s) = %v, want forbidden", p, d)
				}
			}
		}(g)
	}
	for g := 0; g < 8; g++ {
		<-done
	}
}

func TestPolicyMiddleware(t *testing.T) {
	policy := mustPolicy(t, DefaultRules())
	outcomes := NewOutcomes(OutcomesConfig{})
	handler := policy.Middleware(outcomes)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	tests := []struct {
		name string
		ctx  func(*http.Request) *http.Request
		path string
		want int
	}{
		{"public", func(r *http.Request) *http.Request { return r }, "/login", http.StatusTeapot},
		{"no gate state is anonymous", func(r *http.Request) *http.Request { return r }, "/api/courses", http.StatusUnauthorized},
		{"wrong role", func(r *http.Request) *http.Request {
			return r.WithContext(WithPrincipal(r.Context(), student))
		}, "/api/courses/create", http.StatusForbidden},
		{"right role", func(r *http.Request) *http.Request {
			return r.WithContext(WithPrincipal(r.Context(), teacher))
		}, "/api/courses/create", http.StatusTeapot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, tt.ctx(httptest.NewRequest(http.MethodPost, tt.path, nil)))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
