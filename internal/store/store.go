// Package store persists the migration ledger: one row per applied
// migration, keyed by migration name, tagged with the owning model class.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ged/inlineschema/internal/common"
	"github.com/ged/inlineschema/internal/store/postgresql"
	"github.com/ged/inlineschema/internal/store/sqlite"
)

// Dialect abstracts the SQL differences between ledger backends.
type Dialect interface {
	DriverName() string
	Load(config map[string]interface{}) (dsn string, err error)
	Connect(dsn string) (*sql.DB, error)
	Placeholder(index int) string
	UpsertClause() string
	EnsureStatement(table, column string) string
	TableExistsQuery() string
	ViewExistsQuery() string
}

// Record is one persisted ledger row.
type Record struct {
	Name       string
	ModelClass string
}

// Execer is the intersection of *sql.DB and *sql.Tx the ledger writes
// through, so inserts and deletes can ride the caller's transaction.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Ledger is an open migration ledger.
type Ledger struct {
	db      *sql.DB
	dialect Dialect
	table   string
	column  string
}

// Open connects the configured backend and ensures the ledger table exists.
func Open(cfg Config) (*Ledger, error) {
	cfg = cfg.withDefaults()

	var dialect Dialect
	switch cfg.Driver {
	case DriverSqlite:
		dialect = sqlite.NewDialect()
	case DriverPostgres:
		dialect = postgresql.NewDialect()
	default:
		return nil, fmt.Errorf("unsupported ledger driver: %s", cfg.Driver)
	}

	dsn, err := dialect.Load(cfg.DriverConfig)
	if err != nil {
		return nil, err
	}
	db, err := dialect.Connect(dsn)
	if err != nil {
		return nil, err
	}

	l := &Ledger{db: db, dialect: dialect, table: cfg.Table, column: cfg.Column}
	if err := l.Ensure(); err != nil {
		_ = db.Close()
		return nil, err
	}

	common.GetLogger().WithStore(dialect.DriverName()).Debug("ledger opened",
		"table", cfg.Table, "column", cfg.Column)
	return l, nil
}

// DB exposes the underlying connection for transactions and DDL.
func (l *Ledger) DB() *sql.DB { return l.db }

// Dialect exposes the active dialect for DDL existence queries.
func (l *Ledger) Dialect() Dialect { return l.dialect }

// Table returns the configured ledger table name.
func (l *Ledger) Table() string { return l.table }

// Close closes the underlying connection.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Ensure creates the ledger table if it is absent. Idempotent.
func (l *Ledger) Ensure() error {
	q := l.dialect.EnsureStatement(l.table, l.column)
	if _, err := l.db.Exec(q); err != nil {
		return fmt.Errorf("failed to ensure ledger table %s: %w", l.table, err)
	}
	return nil
}

// Insert records a migration as applied. When tx is non-nil the insert
// joins that transaction.
func (l *Ledger) Insert(ctx context.Context, tx Execer, name, modelClass string) error {
	var q string
	if upsert := l.dialect.UpsertClause(); upsert != "" {
		q = fmt.Sprintf("INSERT %s INTO %s(%s, model_class) VALUES(%s, %s)",
			upsert, l.table, l.column, l.dialect.Placeholder(1), l.dialect.Placeholder(2))
	} else {
		q = fmt.Sprintf("INSERT INTO %s(%s, model_class) VALUES(%s, %s) ON CONFLICT DO NOTHING",
			l.table, l.column, l.dialect.Placeholder(1), l.dialect.Placeholder(2))
	}
	if _, err := l.exec(ctx, tx, q, name, modelClass); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", name, err)
	}
	return nil
}

// Delete removes a ledger row, matching both name and owning model class.
// When tx is non-nil the delete joins that transaction.
func (l *Ledger) Delete(ctx context.Context, tx Execer, name, modelClass string) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE %s = %s AND model_class = %s",
		l.table, l.column, l.dialect.Placeholder(1), l.dialect.Placeholder(2))
	if _, err := l.exec(ctx, tx, q, name, modelClass); err != nil {
		return fmt.Errorf("failed to remove migration record %s: %w", name, err)
	}
	return nil
}

// Contains reports whether a row with the given migration name exists.
func (l *Ledger) Contains(ctx context.Context, name string) (bool, error) {
	q := fmt.Sprintf("SELECT 1 FROM %s WHERE %s = %s",
		l.table, l.column, l.dialect.Placeholder(1))
	var one int
	err := l.db.QueryRowContext(ctx, q, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check migration record %s: %w", name, err)
	}
	return true, nil
}

// ListFor returns the ledger rows whose model class is one of owners, as a
// map from migration name to owning model class.
func (l *Ledger) ListFor(ctx context.Context, owners []string) (map[string]string, error) {
	if len(owners) == 0 {
		return map[string]string{}, nil
	}
	placeholders := make([]string, len(owners))
	args := make([]interface{}, len(owners))
	for i, o := range owners {
		placeholders[i] = l.dialect.Placeholder(i + 1)
		args[i] = o
	}
	q := fmt.Sprintf("SELECT %s, model_class FROM %s WHERE model_class IN (%s)",
		l.column, l.table, strings.Join(placeholders, ", "))

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]string)
	for rows.Next() {
		var name, owner string
		if err := rows.Scan(&name, &owner); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		out[name] = owner
	}
	return out, rows.Err()
}

// All returns every ledger row ordered by migration name.
func (l *Ledger) All(ctx context.Context) ([]Record, error) {
	q := fmt.Sprintf("SELECT %s, model_class FROM %s ORDER BY %s ASC",
		l.column, l.table, l.column)

	rows, err := l.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Name, &rec.ModelClass); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (l *Ledger) exec(ctx context.Context, tx Execer, q string, args ...interface{}) (sql.Result, error) {
	if tx != nil {
		return tx.ExecContext(ctx, q, args...)
	}
	return l.db.ExecContext(ctx, q, args...)
}
