package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigDocLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
logging:
  level: debug
  format: json
ledger:
  driver: postgres
  table: my_migrations
  column: migration_name
  config:
    host: db.example.com
    port: 5433
    user: app
    dbname: appdb
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var doc ConfigDoc
	if err := doc.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if doc.Logging.Level != "debug" || doc.Logging.Format != "json" {
		t.Fatalf("unexpected logging config: %+v", doc.Logging)
	}
	if doc.Ledger.Driver != "postgres" || doc.Ledger.Table != "my_migrations" || doc.Ledger.Column != "migration_name" {
		t.Fatalf("unexpected ledger config: %+v", doc.Ledger)
	}
	if doc.Ledger.DriverConfig["host"] != "db.example.com" {
		t.Fatalf("driver config not decoded: %+v", doc.Ledger.DriverConfig)
	}
}

func TestConfigDocLoadMissingFile(t *testing.T) {
	var doc ConfigDoc
	if err := doc.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected missing file to error")
	}
}
