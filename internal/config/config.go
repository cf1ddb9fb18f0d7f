// ABOUTME: Configuration loading and parsing for records-gateway
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// MinSigningKeyLength is the minimum decoded length of auth.jwt_secret.
const MinSigningKeyLength = 32

// Default values applied before validation.
const (
	DefaultCookieName     = "jwt"
	DefaultAPIPrefix      = "/api/"
	DefaultRuleCacheSize  = 1024
	DefaultDatabaseDriver = "sqlite"
)

// Config represents the complete records-gateway configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale" toml:"tailscale"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
	Access    AccessConfig    `yaml:"access" toml:"access"`
	CORS      CORSConfig      `yaml:"cors" toml:"cors"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
	// GRPCAddr is optional; the gRPC surface is off when empty and tailscale is disabled.
	GRPCAddr string `yaml:"grpc_addr" toml:"grpc_addr"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
	// HTTPS serves :443 with the node's Tailscale certificate.
	HTTPS bool `yaml:"https" toml:"https"`
	// Funnel exposes :443 publicly; it takes precedence over HTTPS.
	Funnel bool `yaml:"funnel" toml:"funnel"`
}

// DatabaseConfig selects the account store backend
type DatabaseConfig struct {
	Driver string `yaml:"driver" toml:"driver"` // sqlite or postgres
	Path   string `yaml:"path" toml:"path"`     // sqlite file
	DSN    string `yaml:"dsn" toml:"dsn"`       // postgres connection string
}

// AuthConfig holds token and password settings
type AuthConfig struct {
	// JWTSecret is the base64-encoded HS256 signing key.
	JWTSecret  string `yaml:"jwt_secret" toml:"jwt_secret"`
	CookieName string `yaml:"cookie_name" toml:"cookie_name"`
	BcryptCost int    `yaml:"bcrypt_cost" toml:"bcrypt_cost"`
	APIPrefix  string `yaml:"api_prefix" toml:"api_prefix"`

	TokenTTL    time.Duration `yaml:"-" toml:"-"`
	TokenTTLRaw string        `yaml:"token_ttl" toml:"token_ttl"`
}

// SigningKey decodes JWTSecret.
func (a AuthConfig) SigningKey() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(a.JWTSecret)
	if err != nil {
		key, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(a.JWTSecret, "="))
		if err != nil {
			return nil, fmt.Errorf("auth.jwt_secret is not valid base64: %w", err)
		}
	}
	return key, nil
}

// AccessConfig overrides the built-in access rule tables. Empty lists keep the defaults.
type AccessConfig struct {
	Rules     []RuleConfig `yaml:"rules" toml:"rules"`
	GRPCRules []RuleConfig `yaml:"grpc_rules" toml:"grpc_rules"`
	CacheSize int          `yaml:"cache_size" toml:"cache_size"`
}

// RuleConfig is one access rule as written in the config file
type RuleConfig struct {
	Pattern string   `yaml:"pattern" toml:"pattern"`
	Access  string   `yaml:"access" toml:"access"` // public, authenticated, role
	Role    string   `yaml:"role" toml:"role"`
	Methods []string `yaml:"methods" toml:"methods"`
}

// CORSConfig holds cross-origin settings for the JSON API
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Files ending in .toml are decoded as TOML, everything else as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// ResolvePath picks the config file: explicit flag, then RECORDS_CONFIG, then the XDG location.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("RECORDS_CONFIG"); env != "" {
		return env
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml"
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "records-gateway", "config.yaml")
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DefaultDatabaseDriver
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = DefaultCookieName
	}
	if cfg.Auth.APIPrefix == "" {
		cfg.Auth.APIPrefix = DefaultAPIPrefix
	}
	if cfg.Access.CacheSize == 0 {
		cfg.Access.CacheSize = DefaultRuleCacheSize
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	key, err := c.Auth.SigningKey()
	if err != nil {
		return err
	}
	if len(key) < MinSigningKeyLength {
		return fmt.Errorf("auth.jwt_secret must decode to at least %d bytes, got %d", MinSigningKeyLength, len(key))
	}

	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl is required and must be positive")
	}

	if !strings.HasPrefix(c.Auth.APIPrefix, "/") {
		return fmt.Errorf("auth.api_prefix must start with /")
	}

	if c.Access.CacheSize < 0 {
		return fmt.Errorf("access.cache_size must not be negative")
	}

	for i, r := range append(append([]RuleConfig{}, c.Access.Rules...), c.Access.GRPCRules...) {
		if err := r.validate(); err != nil {
			return fmt.Errorf("access rule %d: %w", i, err)
		}
	}

	return nil
}

func (r RuleConfig) validate() error {
	if !strings.HasPrefix(r.Pattern, "/") {
		return fmt.Errorf("pattern %q must start with /", r.Pattern)
	}
	switch r.Access {
	case "public", "authenticated":
		if r.Role != "" {
			return fmt.Errorf("pattern %q: role is only allowed with access: role", r.Pattern)
		}
	case "role":
		if r.Role == "" {
			return fmt.Errorf("pattern %q: access: role needs a role", r.Pattern)
		}
	default:
		return fmt.Errorf("pattern %q: access must be public, authenticated or role, got %q", r.Pattern, r.Access)
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Auth.TokenTTLRaw != "" {
		ttl, err := time.ParseDuration(cfg.Auth.TokenTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing token_ttl %q: %w", cfg.Auth.TokenTTLRaw, err)
		}
		cfg.Auth.TokenTTL = ttl
	}
	return nil
}
