// ABOUTME: Declarative access policy mapping path patterns to requirements
// ABOUTME: Most specific matching rule wins; unmatched paths require authentication

package auth

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the rule-selection memo.
const DefaultCacheSize = 1024

// Requirement is what a rule demands of the caller. The zero value is
// RequireAuthenticated.
type Requirement int

const (
	RequireAuthenticated Requirement = iota
	RequirePublic
	RequireRole
)

func (r Requirement) String() string {
	switch r {
	case RequirePublic:
		return "public"
	case RequireRole:
		return "role"
	default:
		return "authenticated"
	}
}

// ParseRequirement accepts public, authenticated, or role.
func ParseRequirement(s string) (Requirement, error) {
	switch s {
	case "public":
		return RequirePublic, nil
	case "authenticated":
		return RequireAuthenticated, nil
	case "role":
		return RequireRole, nil
	default:
		return 0, fmt.Errorf("unknown access requirement %q", s)
	}
}

// AccessRule binds a path pattern to a requirement. Patterns use * for part
// of one segment, ** for any number of segments, and ? for one character.
// A pattern ending in /** also matches the bare prefix. Methods, when set,
// restrict the rule to those HTTP methods.
type AccessRule struct {
	Pattern     string
	Requirement Requirement
	Role        Role
	Methods     []string
}

func (r AccessRule) String() string {
	s := r.Pattern + " -> " + r.Requirement.String()
	if r.Requirement == RequireRole {
		s += "(" + string(r.Role) + ")"
	}
	if len(r.Methods) > 0 {
		s += " " + strings.Join(r.Methods, ",")
	}
	return s
}

// Public builds public rules for the patterns.
func Public(patterns ...string) []AccessRule {
	return rulesFor(RequirePublic, "", patterns)
}

// Authenticated builds rules requiring any authenticated principal.
func Authenticated(patterns ...string) []AccessRule {
	return rulesFor(RequireAuthenticated, "", patterns)
}

// HasRole builds rules requiring role.
func HasRole(role Role, patterns ...string) []AccessRule {
	return rulesFor(RequireRole, role, patterns)
}

func rulesFor(req Requirement, role Role, patterns []string) []AccessRule {
	rules := make([]AccessRule, len(patterns))
	for i, p := range patterns {
		rules[i] = AccessRule{Pattern: p, Requirement: req, Role: role}
	}
	return rules
}

// Decision is the policy's verdict for one request.
type Decision int

const (
	Allow Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "unauthenticated"
	default:
		return "forbidden"
	}
}

type compiledRule struct {
	AccessRule
	bare          string // pattern without a trailing /**, matched in addition
	literalPrefix int
	literalChars  int
	doubleStars   int
	methods       map[string]struct{}
	order         int
}

// noRule marks a memoised miss.
const noRule = -1

// Policy evaluates requests against an ordered rule table. It is read-only
// after construction and safe for concurrent use.
type Policy struct {
	rules    []compiledRule // most specific first
	fallback AccessRule
	memo     *lru.Cache[string, int]
}

type policyOptions struct {
	cacheSize int
}

// PolicyOption configures NewPolicy.
type PolicyOption func(*policyOptions)

// WithCacheSize bounds the rule-selection memo; zero disables it.
func WithCacheSize(n int) PolicyOption {
	return func(o *policyOptions) { o.cacheSize = n }
}

// NewPolicy compiles rules. It fails on invalid patterns, unknown roles, and
// role rules without a role.
func NewPolicy(rules []AccessRule, opts ...PolicyOption) (*Policy, error) {
	o := policyOptions{cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(&o)
	}

	compiled := make([]compiledRule, 0, len(rules))
	for i, r := range rules {
		cr, err := compileRule(r, i)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, cr)
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		return moreSpecific(compiled[i], compiled[j])
	})

	p := &Policy{
		rules:    compiled,
		fallback: AccessRule{Pattern: "/**", Requirement: RequireAuthenticated},
	}
	if o.cacheSize > 0 {
		memo, err := lru.New[string, int](o.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating rule cache: %w", err)
		}
		p.memo = memo
	}
	return p, nil
}

func compileRule(r AccessRule, order int) (compiledRule, error) {
	if !strings.HasPrefix(r.Pattern, "/") {
		return compiledRule{}, fmt.Errorf("rule %d: pattern %q must start with /", order, r.Pattern)
	}
	if !doublestar.ValidatePattern(r.Pattern) {
		return compiledRule{}, fmt.Errorf("rule %d: invalid pattern %q", order, r.Pattern)
	}
	switch r.Requirement {
	case RequireRole:
		if !r.Role.Valid() {
			return compiledRule{}, fmt.Errorf("rule %d: pattern %q needs a known role, got %q", order, r.Pattern, r.Role)
		}
	case RequirePublic, RequireAuthenticated:
		if r.Role != "" {
			return compiledRule{}, fmt.Errorf("rule %d: pattern %q sets a role on a %s rule", order, r.Pattern, r.Requirement)
		}
	default:
		return compiledRule{}, fmt.Errorf("rule %d: unknown requirement %d", order, r.Requirement)
	}

	cr := compiledRule{
		AccessRule:    r,
		literalPrefix: literalPrefixLen(r.Pattern),
		literalChars:  literalCharCount(r.Pattern),
		doubleStars:   strings.Count(r.Pattern, "**"),
		order:         order,
	}
	if strings.HasSuffix(r.Pattern, "/**") && len(r.Pattern) > 3 {
		cr.bare = strings.TrimSuffix(r.Pattern, "/**")
	}
	if len(r.Methods) > 0 {
		cr.methods = make(map[string]struct{}, len(r.Methods))
		for _, m := range r.Methods {
			cr.methods[strings.ToUpper(m)] = struct{}{}
		}
	}
	return cr, nil
}

const patternMeta = "*?[{\\"

func literalPrefixLen(pattern string) int {
	if i := strings.IndexAny(pattern, patternMeta); i >= 0 {
		return i
	}
	return len(pattern)
}

func literalCharCount(pattern string) int {
	n, depth := 0, 0
	for _, c := range pattern {
		switch c {
		case '[', '{':
			depth++
		case ']', '}':
			if depth > 0 {
				depth--
			}
		case '*', '?', '\\':
		default:
			if depth == 0 {
				n++
			}
		}
	}
	return n
}

// moreSpecific orders rules: longer literal prefix, then more literal
// characters, then fewer **, then method-restricted, then declaration order.
func moreSpecific(a, b compiledRule) bool {
	if a.literalPrefix != b.literalPrefix {
		return a.literalPrefix > b.literalPrefix
	}
	if a.literalChars != b.literalChars {
		return a.literalChars > b.literalChars
	}
	if a.doubleStars != b.doubleStars {
		return a.doubleStars < b.doubleStars
	}
	if (a.methods != nil) != (b.methods != nil) {
		return a.methods != nil
	}
	return a.order < b.order
}

func (r *compiledRule) matches(method, cleanPath string) bool {
	if r.methods != nil {
		if _, ok := r.methods[method]; !ok {
			return false
		}
	}
	if ok, _ := doublestar.Match(r.Pattern, cleanPath); ok {
		return true
	}
	if r.bare != "" {
		ok, _ := doublestar.Match(r.bare, cleanPath)
		return ok
	}
	return false
}

// CleanPath normalises a request path before matching so duplicate slashes,
// dot segments, and trailing slashes cannot dodge a rule.
func CleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// Match returns the rule governing (method, path). matched is false when no
// rule applies and the fallback (authenticated) is returned.
func (p *Policy) Match(method, rawPath string) (rule AccessRule, matched bool) {
	idx := p.selectRule(strings.ToUpper(method), CleanPath(rawPath))
	if idx == noRule {
		return p.fallback, false
	}
	return p.rules[idx].AccessRule, true
}

func (p *Policy) selectRule(method, cleanPath string) int {
	key := method + " " + cleanPath
	if p.memo != nil {
		if idx, ok := p.memo.Get(key); ok {
			return idx
		}
	}

	idx := noRule
	for i := range p.rules {
		if p.rules[i].matches(method, cleanPath) {
			idx = i
			break
		}
	}

	if p.memo != nil {
		p.memo.Add(key, idx)
	}
	return idx
}

// Decide evaluates the governing rule against the caller. A caller without a
// principal is always denied as unauthenticated, never forbidden.
func (p *Policy) Decide(method, rawPath string, principal Principal, authenticated bool) Decision {
	rule, _ := p.Match(method, rawPath)
	switch rule.Requirement {
	case RequirePublic:
		return Allow
	case RequireRole:
		if !authenticated {
			return DenyUnauthenticated
		}
		if principal.Role != rule.Role {
			return DenyForbidden
		}
		return Allow
	default:
		if !authenticated {
			return DenyUnauthenticated
		}
		return Allow
	}
}

// Rules returns the compiled rules in evaluation order.
func (p *Policy) Rules() []AccessRule {
	out := make([]AccessRule, len(p.rules))
	for i, r := range p.rules {
		out[i] = r.AccessRule
	}
	return out
}
