// Package ddl executes schema-changing statements: creating and dropping
// tables and views, and testing their existence. The engine core only
// depends on the Executor interface; SQL is the database/sql-backed
// default used by the facade and the tests.
package ddl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ged/inlineschema/internal/entity"
	"github.com/ged/inlineschema/internal/store"
)

// Executor is the DDL collaborator contract.
type Executor interface {
	TableExists(ctx context.Context, name string) (bool, error)
	CreateTable(ctx context.Context, name string, schema *entity.Schema) error
	DropTable(ctx context.Context, name string, cascade bool) error
	ViewExists(ctx context.Context, name string) (bool, error)
	CreateView(ctx context.Context, name, query string, opts map[string]string) error
	DropView(ctx context.Context, name string, cascade bool) error
}

// SQL executes DDL against a database/sql connection using the ledger's
// dialect for existence queries.
type SQL struct {
	db      *sql.DB
	dialect store.Dialect
}

// NewSQL creates a DDL executor over db.
func NewSQL(db *sql.DB, dialect store.Dialect) *SQL {
	return &SQL{db: db, dialect: dialect}
}

// TableExists reports whether a table with the given name exists.
func (s *SQL) TableExists(ctx context.Context, name string) (bool, error) {
	return s.exists(ctx, s.dialect.TableExistsQuery(), name)
}

// ViewExists reports whether a view with the given name exists.
func (s *SQL) ViewExists(ctx context.Context, name string) (bool, error) {
	return s.exists(ctx, s.dialect.ViewExistsQuery(), name)
}

func (s *SQL) exists(ctx context.Context, q, name string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, q, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check existence of %s: %w", name, err)
	}
	return true, nil
}

// CreateTable builds and executes a CREATE TABLE statement from the
// declared schema.
func (s *SQL) CreateTable(ctx context.Context, name string, schema *entity.Schema) error {
	if schema == nil || len(schema.Columns) == 0 {
		return fmt.Errorf("entity table %s has no declared schema", name)
	}
	defs := make([]string, 0, len(schema.Columns)+len(schema.Constraints))
	for _, c := range schema.Columns {
		defs = append(defs, columnDef(c))
	}
	defs = append(defs, schema.Constraints...)

	q := fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}
	return nil
}

// DropTable drops a table, optionally cascading to dependents.
func (s *SQL) DropTable(ctx context.Context, name string, cascade bool) error {
	q := "DROP TABLE " + name
	if cascade && s.dialect.DriverName() == "postgres" {
		q += " CASCADE"
	}
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", name, err)
	}
	return nil
}

// CreateView creates a view from its backing query. Recognized options:
// "materialized" (postgres only) and "or_replace".
func (s *SQL) CreateView(ctx context.Context, name, query string, opts map[string]string) error {
	stmt := "CREATE"
	if opts["or_replace"] == "true" {
		stmt += " OR REPLACE"
	}
	if opts["materialized"] == "true" && s.dialect.DriverName() == "postgres" {
		stmt += " MATERIALIZED"
	}
	stmt += fmt.Sprintf(" VIEW %s AS %s", name, query)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create view %s: %w", name, err)
	}
	return nil
}

// DropView drops a view, optionally cascading to dependents.
func (s *SQL) DropView(ctx context.Context, name string, cascade bool) error {
	q := "DROP VIEW " + name
	if cascade && s.dialect.DriverName() == "postgres" {
		q += " CASCADE"
	}
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("failed to drop view %s: %w", name, err)
	}
	return nil
}

func columnDef(c entity.Column) string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte(' ')
	b.WriteString(c.Type)
	if c.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
	}
	if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	if c.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(c.Default)
	}
	if c.References != "" {
		b.WriteString(" REFERENCES ")
		b.WriteString(c.References)
	}
	return b.String()
}
