// ABOUTME: database/sql implementation of Store over SQLite (modernc) or PostgreSQL (lib/pq)
// ABOUTME: Handles connection setup, schema creation, and placeholder rebinding

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLStore implements Store on database/sql. Queries are written with ?
// placeholders and rebound for PostgreSQL.
type SQLStore struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

var _ Store = (*SQLStore)(nil)

// Open connects to the configured backend. target is a file path for sqlite
// and a connection string for postgres.
func Open(ctx context.Context, driver, target string) (*SQLStore, error) {
	switch driver {
	case DriverSQLite:
		return NewSQLiteStore(ctx, target)
	case DriverPostgres:
		return NewPostgresStore(ctx, target)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// NewSQLiteStore creates a SQLite store at the given path.
// The schema is created if it doesn't exist and parent directories are created if needed.
func NewSQLiteStore(ctx context.Context, path string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return initStore(ctx, db, DriverSQLite, sqliteSchema, "path", path)
}

// NewPostgresStore connects to PostgreSQL with the given DSN.
func NewPostgresStore(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open(DriverPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return initStore(ctx, db, DriverPostgres, postgresSchema, "driver", DriverPostgres)
}

func initStore(ctx context.Context, db *sql.DB, driver, schema string, logAttrs ...any) (*SQLStore, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &SQLStore{
		db:     db,
		driver: driver,
		logger: slog.Default().With("component", "store"),
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s.logger.Info("store initialized", logAttrs...)
	return s, nil
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS accounts (
		id                      TEXT PRIMARY KEY,
		email                   TEXT NOT NULL UNIQUE,
		password_hash           TEXT NOT NULL,
		role                    TEXT NOT NULL,
		display_name            TEXT NOT NULL,
		enabled                 INTEGER NOT NULL DEFAULT 1,
		account_non_expired     INTEGER NOT NULL DEFAULT 1,
		account_non_locked      INTEGER NOT NULL DEFAULT 1,
		credentials_non_expired INTEGER NOT NULL DEFAULT 1,
		created_at              TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS departments (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		code        TEXT NOT NULL UNIQUE,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS students (
		id             TEXT PRIMARY KEY,
		account_id     TEXT NOT NULL UNIQUE REFERENCES accounts(id),
		student_number TEXT NOT NULL UNIQUE,
		name           TEXT NOT NULL,
		email          TEXT NOT NULL,
		phone          TEXT NOT NULL DEFAULT '',
		department_id  INTEGER NOT NULL REFERENCES departments(id),
		created_at     TEXT NOT NULL
	);
`

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS accounts (
		id                      TEXT PRIMARY KEY,
		email                   TEXT NOT NULL UNIQUE,
		password_hash           TEXT NOT NULL,
		role                    TEXT NOT NULL,
		display_name            TEXT NOT NULL,
		enabled                 BOOLEAN NOT NULL DEFAULT TRUE,
		account_non_expired     BOOLEAN NOT NULL DEFAULT TRUE,
		account_non_locked      BOOLEAN NOT NULL DEFAULT TRUE,
		credentials_non_expired BOOLEAN NOT NULL DEFAULT TRUE,
		created_at              TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS departments (
		id          BIGSERIAL PRIMARY KEY,
		code        TEXT NOT NULL UNIQUE,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS students (
		id             TEXT PRIMARY KEY,
		account_id     TEXT NOT NULL UNIQUE REFERENCES accounts(id),
		student_number TEXT NOT NULL UNIQUE,
		name           TEXT NOT NULL,
		email          TEXT NOT NULL,
		phone          TEXT NOT NULL DEFAULT '',
		department_id  BIGINT NOT NULL REFERENCES departments(id),
		created_at     TEXT NOT NULL
	);
`

// Ping checks the database connection
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $1, $2, ... for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isUniqueConstraintError checks if an error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	// SQLite returns "UNIQUE constraint failed" in the error message
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
