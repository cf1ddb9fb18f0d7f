// ABOUTME: Converts configured access rules into auth.AccessRule tables
// ABOUTME: Falls back to the built-in tables when the config lists none

package gateway

import (
	"fmt"
	"strings"

	"github.com/campusworks/records-gateway/internal/auth"
	"github.com/campusworks/records-gateway/internal/config"
)

// accessRules returns the rules from configured, or defaults when configured is empty.
func accessRules(configured []config.RuleConfig, defaults func() []auth.AccessRule) ([]auth.AccessRule, error) {
	if len(configured) == 0 {
		return defaults(), nil
	}

	rules := make([]auth.AccessRule, 0, len(configured))
	for _, rc := range configured {
		r, err := ruleFromConfig(rc)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func ruleFromConfig(rc config.RuleConfig) (auth.AccessRule, error) {
	req, err := auth.ParseRequirement(rc.Access)
	if err != nil {
		return auth.AccessRule{}, fmt.Errorf("rule %q: %w", rc.Pattern, err)
	}

	r := auth.AccessRule{Pattern: rc.Pattern, Requirement: req}
	if req == auth.RequireRole {
		role, err := auth.ParseRole(rc.Role)
		if err != nil {
			return auth.AccessRule{}, fmt.Errorf("rule %q: %w", rc.Pattern, err)
		}
		r.Role = role
	}
	for _, m := range rc.Methods {
		r.Methods = append(r.Methods, strings.ToUpper(m))
	}
	return r, nil
}

// newPolicy builds a policy from configured rules or defaults.
func newPolicy(configured []config.RuleConfig, defaults func() []auth.AccessRule, cacheSize int) (*auth.Policy, error) {
	rules, err := accessRules(configured, defaults)
	if err != nil {
		return nil, err
	}
	return auth.NewPolicy(rules, auth.WithCacheSize(cacheSize))
}
