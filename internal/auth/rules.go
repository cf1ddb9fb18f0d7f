// ABOUTME: Built-in access rule tables for the HTTP and gRPC surfaces
// ABOUTME: Used unless the access section of the config replaces them

package auth

// DefaultRules is the HTTP rule table.
func DefaultRules() []AccessRule {
	var rules []AccessRule
	rules = append(rules, Public(
		"/",
		"/login",
		"/signup",
		"/logout",
		"/api/auth/**",
		"/css/**",
		"/js/**",
		"/images/**",
		"/error",
		"/access-denied",
		"/health/**",
	)...)
	rules = append(rules, HasRole(RoleTeacher,
		"/api/students/*/delete",
		"/api/courses/create",
		"/api/courses/*/delete",
		"/teacher/**",
	)...)
	rules = append(rules, HasRole(RoleStudent,
		"/student/**",
	)...)
	rules = append(rules, Authenticated(
		"/api/auth/me",
		"/api/courses/**",
		"/api/departments/**",
		"/api/teachers/**",
		"/dashboard/**",
		"/profile/**",
	)...)
	return rules
}

// DefaultGRPCRules is the gRPC rule table, matched against full method names.
func DefaultGRPCRules() []AccessRule {
	var rules []AccessRule
	rules = append(rules, Public("/grpc.health.v1.Health/*")...)
	rules = append(rules, HasRole(RoleTeacher, "/grpc.reflection.*.ServerReflection/*")...)
	return rules
}
