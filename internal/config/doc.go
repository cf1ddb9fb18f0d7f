// Package config handles configuration loading for records-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files (or TOML, by .toml extension) with
// environment variable expansion. Defaults are applied for optional values and
// the result is validated before the gateway starts.
//
// # Configuration File
//
// Locations (in order):
//
//  1. --config flag
//  2. Path from RECORDS_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/records-gateway/config.yaml (~/.config when unset)
//
// # Environment Variable Expansion
//
//	auth:
//	  jwt_secret: "${RECORDS_JWT_SECRET}"
//
// Unset variables expand to an empty string.
//
// # Configuration Sections
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	  grpc_addr: "0.0.0.0:50051"   # optional
//
//	database:
//	  driver: "sqlite"             # sqlite or postgres
//	  path: "/var/lib/records/records.db"
//	  dsn: "postgres://..."        # postgres only
//
//	auth:
//	  jwt_secret: "${RECORDS_JWT_SECRET}"   # base64, >= 32 bytes decoded
//	  token_ttl: "3h"
//	  cookie_name: "jwt"
//	  bcrypt_cost: 10
//	  api_prefix: "/api/"
//
//	access:
//	  cache_size: 1024
//	  rules:                       # replaces the built-in HTTP table
//	    - pattern: "/reports/**"
//	      access: role
//	      role: ROLE_TEACHER
//
//	cors:
//	  allowed_origins: ["https://records.example.edu"]
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Validation
//
// Load() refuses to return a config without a signing key, with a key shorter
// than 32 bytes after decoding, or without a positive token_ttl.
package config
