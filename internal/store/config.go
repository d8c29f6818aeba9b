package store

// Supported ledger drivers.
const (
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
)

// Default ledger table and migration-name column.
const (
	DefaultTable  = "schema_migrations"
	DefaultColumn = "name"
)

// Config selects the ledger backend and table naming. DriverConfig carries
// backend-specific settings (sqlite: path or dsn; postgres: dsn or
// host/port/user/password/dbname/sslmode) and is decoded by the dialect.
type Config struct {
	Driver       string                 `mapstructure:"driver" yaml:"driver"`
	Table        string                 `mapstructure:"table" yaml:"table"`
	Column       string                 `mapstructure:"column" yaml:"column"`
	DriverConfig map[string]interface{} `mapstructure:"config" yaml:"config"`
}

func (c Config) withDefaults() Config {
	if c.Driver == "" {
		c.Driver = DriverSqlite
	}
	if c.Table == "" {
		c.Table = DefaultTable
	}
	if c.Column == "" {
		c.Column = DefaultColumn
	}
	return c
}
