// Package store provides persistent storage for records-gateway.
//
// # Architecture
//
// Three narrow interfaces are composed into Store:
//
//   - AccountStore: login records (email, password hash, role, status flags)
//   - DepartmentStore: departments referenced by registration
//   - StudentStore: student profiles created with their account
//
// SQLStore implements all of them on database/sql and runs on either
// SQLite (modernc.org/sqlite, pure Go) or PostgreSQL (github.com/lib/pq).
// Queries use ? placeholders and are rebound to $n for PostgreSQL.
//
// The store knows nothing about authentication: roles are opaque strings and
// accounts are plain records. Mapping accounts to principals happens in the
// accounts package.
//
// # SQLite Configuration
//
// Every pooled connection is opened with:
//
//	journal_mode=WAL
//	foreign_keys=ON
//	busy_timeout=5000
//
// # Error Handling
//
//   - ErrAccountNotFound: no account with that exact email
//   - ErrEmailExists: unique violation on accounts.email
//   - ErrDepartmentNotFound / ErrDepartmentExists
//   - ErrStudentNotFound
//
// All methods accept context.Context for cancellation support.
//
// # Testing
//
// Use NewMockStore() for unit tests and NewSQLiteStore(ctx, t.TempDir()+"/x.db")
// for integration tests with real SQLite.
package store
