package entity

import (
	"context"
	"database/sql"
	"regexp"
	"strings"

	"github.com/ged/inlineschema/internal/common"
)

// Direction is the way a migration is applied.
type Direction string

const (
	DirectionForward Direction = "forward"
	DirectionReverse Direction = "reverse"
)

// migrationNameRegex enforces the fixed YYYYMMDD_HHMM_description format.
var migrationNameRegex = regexp.MustCompile(`^\d{8}_\d{4}_[A-Za-z][A-Za-z0-9_]*$`)

// ApplyFunc is the opaque change procedure of a migration. It runs inside
// the transaction the reconciler opened for this step and must perform the
// forward or reverse change according to dir.
type ApplyFunc func(ctx context.Context, tx *sql.Tx, dir Direction) error

// Migration is a named, ordered unit of schema change owned by exactly one
// entity. The name doubles as the total-ordering key: its timestamp prefix
// makes lexicographic order chronological.
type Migration struct {
	Name        string
	Description string
	Owner       *Entity
	Apply       ApplyFunc
}

// AddMigration registers a migration under this entity. A malformed name is
// a definition error. Re-registering a name on the same entity is rejected
// here; duplicates across an entity hierarchy are detected at merge time.
func (e *Entity) AddMigration(name string, apply ApplyFunc) (*Migration, error) {
	if !migrationNameRegex.MatchString(name) {
		return nil, common.NewDefinitionError(
			"invalid migration name %q: expected YYYYMMDD_HHMM_description", name)
	}
	if _, exists := e.migs[name]; exists {
		return nil, common.NewDefinitionError(
			"migration %q is already registered on entity %q", name, e.name)
	}
	m := &Migration{
		Name:        name,
		Description: describeMigration(name),
		Owner:       e,
		Apply:       apply,
	}
	e.migs[name] = m
	return m, nil
}

// Migrations returns the migrations registered directly on this entity,
// keyed by name. Descendant migrations are not included; merging across a
// hierarchy is the reconciler's job.
func (e *Entity) Migrations() map[string]*Migration {
	return e.migs
}

// describeMigration turns "20110308_1335_simple_rename" into "simple rename".
func describeMigration(name string) string {
	desc := name[len("20060102_1504_"):]
	return strings.ReplaceAll(desc, "_", " ")
}
