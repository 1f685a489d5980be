package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/skillforge/engine/internal/config"
)

// DB wraps the database connection with dialect support.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Connect opens and configures the connection described by cfg.
func Connect(cfg *config.Config) (*DB, error) {
	var dialect Dialect
	var dialectConfig DialectConfig

	switch strings.ToLower(cfg.DatabaseType) {
	case "postgres", "postgresql":
		dialect = NewPostgresDialect()
		dialectConfig = DialectConfig{URL: cfg.DatabaseURL}
	case "mysql":
		dialect = NewMySQLDialect()
		dialectConfig = DialectConfig{URL: cfg.DatabaseURL}
	case "sqlite", "sqlite3", "":
		dialect = NewSQLiteDialect()
		dialectConfig = DialectConfig{Path: cfg.DatabasePath}
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.DatabaseType)
	}

	db, err := sql.Open(dialect.DriverName(), dialect.DSN(dialectConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := dialect.ConfigureConnection(db); err != nil {
		return nil, fmt.Errorf("failed to configure connection: %w", err)
	}

	return &DB{DB: db, Dialect: dialect}, nil
}

// Migrate creates the progress schema. Statements are idempotent so the
// server can run them unconditionally at startup.
func Migrate(db *DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS progress_state (
		name  VARCHAR(64) PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// Query executes a query with automatic placeholder rewriting.
func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.DB.Query(db.Dialect.RewriteQuery(query), args...)
}

// QueryRow executes a single-row query with automatic placeholder rewriting.
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.DB.QueryRow(db.Dialect.RewriteQuery(query), args...)
}

// Exec executes a statement with automatic placeholder rewriting.
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.DB.Exec(db.Dialect.RewriteQuery(query), args...)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}
