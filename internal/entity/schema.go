package entity

// Column is one column of a declared table schema.
type Column struct {
	Name       string
	Type       string
	PrimaryKey bool
	NotNull    bool
	Default    string
	References string // referenced table name, empty when not a foreign key
}

// Schema is the column/constraint set produced by the host's schema
// builder. The engine treats it as data: it is handed to the DDL executor
// unmodified.
type Schema struct {
	Columns     []Column
	Constraints []string
}

// SchemaFunc lazily resolves a schema at first use. Entities declared
// before their dependencies can defer schema construction this way.
type SchemaFunc func() *Schema

// ViewDef marks an entity as view-backed: the backing query plus creation
// options passed through to the DDL executor.
type ViewDef struct {
	Query   string
	Options map[string]string
}
