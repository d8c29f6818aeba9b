// Package postgresql provides the PostgreSQL ledger dialect, connecting
// through the pgx stdlib adapter.
package postgresql

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	defaultPort    = 5432
	defaultSSLMode = "disable"
)

// Config holds PostgreSQL connection settings. An explicit DSN wins;
// otherwise one is assembled from the component fields.
type Config struct {
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// Dialect implements the ledger SQL dialect for PostgreSQL
type Dialect struct{}

// NewDialect creates a new PostgreSQL dialect
func NewDialect() *Dialect {
	return &Dialect{}
}

// DriverName returns the driver name for logging
func (d *Dialect) DriverName() string {
	return "postgres"
}

// Load decodes backend config and returns the DSN to connect with.
func (d *Dialect) Load(config map[string]interface{}) (string, error) {
	var c Config
	if err := mapstructure.Decode(config, &c); err != nil {
		return "", fmt.Errorf("invalid postgres config: %w", err)
	}
	if c.DSN != "" {
		return c.DSN, nil
	}
	if c.Host == "" {
		return "", fmt.Errorf("postgres config requires a dsn or a host")
	}
	port := c.Port
	if port == 0 {
		port = defaultPort
	}
	ssl := c.SSLMode
	if ssl == "" {
		ssl = defaultSSLMode
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, port, c.DBName, ssl), nil
}

// Placeholder returns PostgreSQL-style placeholders ($1, $2, ...)
func (d *Dialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

// UpsertClause returns PostgreSQL's conflict resolution clause
func (d *Dialect) UpsertClause() string {
	return ""
}

// EnsureStatement returns the ledger table creation statement.
func (d *Dialect) EnsureStatement(table, column string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s TEXT PRIMARY KEY, model_class TEXT NOT NULL)",
		table, column)
}

// TableExistsQuery returns a query with one placeholder testing table existence.
func (d *Dialect) TableExistsQuery() string {
	return "SELECT 1 FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1"
}

// ViewExistsQuery returns a query with one placeholder testing view existence.
func (d *Dialect) ViewExistsQuery() string {
	return "SELECT 1 FROM information_schema.views WHERE table_schema = current_schema() AND table_name = $1"
}

// Connect establishes a PostgreSQL connection with pooling defaults.
func (d *Dialect) Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	return db, nil
}
