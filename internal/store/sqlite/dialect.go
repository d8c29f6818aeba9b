// Package sqlite provides the SQLite ledger dialect, backed by the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	_ "modernc.org/sqlite"
)

// SQLite connection parameters
const (
	busyTimeoutMS    = 5000
	foreignKeysParam = "_fk=1"
)

// Config holds SQLite-specific connection settings. An explicit DSN wins
// over Path; with neither set the dialect falls back to an in-memory
// database, which is what the tests use.
type Config struct {
	Path string `mapstructure:"path"`
	DSN  string `mapstructure:"dsn"`
}

// Dialect implements the ledger SQL dialect for SQLite
type Dialect struct{}

// NewDialect creates a new SQLite dialect
func NewDialect() *Dialect {
	return &Dialect{}
}

// DriverName returns the driver name for logging
func (d *Dialect) DriverName() string {
	return "sqlite"
}

// Load decodes backend config and returns the DSN to connect with.
func (d *Dialect) Load(config map[string]interface{}) (string, error) {
	var c Config
	if err := mapstructure.Decode(config, &c); err != nil {
		return "", fmt.Errorf("invalid sqlite config: %w", err)
	}
	if c.DSN != "" {
		return c.DSN, nil
	}
	if c.Path != "" {
		return fmt.Sprintf("file:%s?_busy_timeout=%d&%s", c.Path, busyTimeoutMS, foreignKeysParam), nil
	}
	return ":memory:", nil
}

// Placeholder returns SQLite-style placeholders (?)
func (d *Dialect) Placeholder(_ int) string {
	return "?"
}

// UpsertClause returns SQLite's conflict resolution clause
func (d *Dialect) UpsertClause() string {
	return "OR IGNORE"
}

// EnsureStatement returns the ledger table creation statement.
func (d *Dialect) EnsureStatement(table, column string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s TEXT PRIMARY KEY, model_class TEXT NOT NULL)",
		table, column)
}

// TableExistsQuery returns a query with one placeholder testing table existence.
func (d *Dialect) TableExistsQuery() string {
	return "SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?"
}

// ViewExistsQuery returns a query with one placeholder testing view existence.
func (d *Dialect) ViewExistsQuery() string {
	return "SELECT 1 FROM sqlite_master WHERE type = 'view' AND name = ?"
}

// Connect establishes a SQLite connection with pool settings suited to a
// single-writer database.
func (d *Dialect) Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(10 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}
