// Package entity models schema-bearing declaration units and their
// registry. An Entity corresponds to one model class in the host ORM:
// it carries a (lazily resolved, inheritable) schema or a view backing,
// many-to-one associations to other entities, lifecycle hooks, and the
// migrations registered directly against it.
package entity

import (
	"strings"
	"unicode"

	"github.com/ged/inlineschema/internal/common"
)

// Association is a many-to-one relationship from one entity to another.
// Polymorphic associations have no single target and never contribute a
// creation-order dependency.
type Association struct {
	Name        string
	Target      *Entity
	Polymorphic bool
}

// Def describes an entity declaration. A Def with an empty Name declares
// an anonymous entity: it participates in dependency traversal but is
// excluded from installation ordering.
type Def struct {
	Name   string
	Table  string
	Parent *Entity
	Schema SchemaFunc
	View   *ViewDef
}

// Entity is a registered schema-bearing unit. Entities are created through
// Registry.Declare and are immutable in identity for the lifetime of a run;
// associations, migrations, and hooks may be attached after declaration.
type Entity struct {
	name      string
	tableName string
	parent    *Entity
	children  []*Entity
	schemaFn  SchemaFunc
	schema    *Schema
	view      *ViewDef
	assocs    []Association
	migs      map[string]*Migration
	hooks     map[Hook][]HookFunc
}

// Name returns the entity name, or "" for an anonymous entity.
func (e *Entity) Name() string { return e.name }

// Anonymous reports whether the entity was declared without a name.
func (e *Entity) Anonymous() bool { return e.name == "" }

// TableName returns the physical table (or view) name backing this entity.
func (e *Entity) TableName() string { return e.tableName }

// Parent returns the structural supertype, or nil for a root entity.
func (e *Entity) Parent() *Entity { return e.parent }

// Children returns the direct structural subtypes in declaration order.
func (e *Entity) Children() []*Entity { return e.children }

// IsView reports whether the entity is backed by a view instead of a table.
func (e *Entity) IsView() bool { return e.view != nil }

// View returns the view backing, or nil for table-backed entities.
func (e *Entity) View() *ViewDef { return e.view }

// Associations returns the many-to-one associations in declaration order.
func (e *Entity) Associations() []Association { return e.assocs }

// ManyToOne attaches a many-to-one association to target. Declaration
// order is preserved; it is part of the deterministic ordering contract.
func (e *Entity) ManyToOne(name string, target *Entity) {
	e.assocs = append(e.assocs, Association{Name: name, Target: target})
}

// PolymorphicManyToOne attaches a polymorphic many-to-one association.
// It carries no creation-order dependency.
func (e *Entity) PolymorphicManyToOne(name string) {
	e.assocs = append(e.assocs, Association{Name: name, Polymorphic: true})
}

// Schema resolves the entity's declared schema, inheriting the parent's
// schema when none was declared locally. The result is cached.
func (e *Entity) Schema() *Schema {
	if e.schema != nil {
		return e.schema
	}
	if e.schemaFn != nil {
		e.schema = e.schemaFn()
		return e.schema
	}
	if e.parent != nil {
		return e.parent.Schema()
	}
	return nil
}

// Closure returns the entity plus all of its structural descendants,
// in declaration order.
func (e *Entity) Closure() []*Entity {
	out := []*Entity{e}
	for _, c := range e.children {
		out = append(out, c.Closure()...)
	}
	return out
}

// Registry owns all declared entities, keyed by stable name. There is no
// ambient global state: hosts construct a Registry and declare into it.
type Registry struct {
	byName map[string]*Entity
	order  []*Entity
}

// NewRegistry creates an empty entity registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Entity)}
}

// Declare registers a new entity. Redeclaring a name is a definition error.
func (r *Registry) Declare(def Def) (*Entity, error) {
	if def.Name != "" {
		if _, exists := r.byName[def.Name]; exists {
			return nil, common.NewDefinitionError("entity %q is already declared", def.Name)
		}
	}
	table := def.Table
	if table == "" && def.Name != "" {
		table = tableNameFor(def.Name)
	}
	e := &Entity{
		name:      def.Name,
		tableName: table,
		parent:    def.Parent,
		schemaFn:  def.Schema,
		view:      def.View,
		migs:      make(map[string]*Migration),
		hooks:     make(map[Hook][]HookFunc),
	}
	if def.Parent != nil {
		def.Parent.children = append(def.Parent.children, e)
	}
	if def.Name != "" {
		r.byName[def.Name] = e
	}
	r.order = append(r.order, e)
	return e, nil
}

// Lookup returns the entity registered under name, if any.
func (r *Registry) Lookup(name string) (*Entity, bool) {
	e, ok := r.byName[name]
	return e, ok
}

// Entities returns all declared entities in declaration order, including
// anonymous ones.
func (r *Registry) Entities() []*Entity {
	out := make([]*Entity, len(r.order))
	copy(out, r.order)
	return out
}

// tableNameFor derives a snake_case table name from an entity name like
// "UserAccount" -> "user_account".
func tableNameFor(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
