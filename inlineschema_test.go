package inlineschema

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/ged/inlineschema/internal/ddl"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	cfg := StoreConfig{
		DriverConfig: map[string]interface{}{"path": filepath.Join(t.TempDir(), "ledger.db")},
	}
	l, err := OpenLedger(cfg)
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func idSchema() *Schema {
	return &Schema{Columns: []Column{{Name: "id", Type: "INTEGER", PrimaryKey: true}}}
}

// networkFixture declares a small hierarchy: nodes, hosts referencing
// nodes, and a view over hosts.
func networkFixture(t *testing.T) *Entity {
	t.Helper()
	r := NewRegistry()
	node, err := r.Declare(Def{Name: "Node", Schema: idSchema})
	if err != nil {
		t.Fatalf("Declare failed: %v", err)
	}
	host, err := r.Declare(Def{
		Name:   "Host",
		Parent: node,
		Schema: func() *Schema {
			return &Schema{Columns: []Column{
				{Name: "id", Type: "INTEGER", PrimaryKey: true},
				{Name: "node_id", Type: "INTEGER", References: "node"},
			}}
		},
	})
	if err != nil {
		t.Fatalf("Declare failed: %v", err)
	}
	host.ManyToOne("node", node)
	if _, err := r.Declare(Def{
		Name:   "UpHost",
		Parent: node,
		View:   &ViewDef{Query: "SELECT * FROM host"},
	}); err != nil {
		t.Fatalf("Declare failed: %v", err)
	}
	return node
}

func TestInstallTablesCreatesInDependencyOrder(t *testing.T) {
	node := networkFixture(t)
	l := openTestLedger(t)
	ctx := context.Background()

	if err := InstallTables(ctx, node, l); err != nil {
		t.Fatalf("InstallTables failed: %v", err)
	}

	exec := ddl.NewSQL(l.DB(), l.Dialect())
	for _, table := range []string{"node", "host"} {
		ok, err := exec.TableExists(ctx, table)
		if err != nil || !ok {
			t.Fatalf("table %s missing after install: %v", table, err)
		}
	}
	ok, err := exec.ViewExists(ctx, "up_host")
	if err != nil || !ok {
		t.Fatalf("view up_host missing after install: %v", err)
	}

	// Idempotent: everything already exists.
	if err := InstallTables(ctx, node, l); err != nil {
		t.Fatalf("second InstallTables failed: %v", err)
	}
}

func TestInstallTablesFastForwardsMigrations(t *testing.T) {
	node := networkFixture(t)
	applyRan := false
	if _, err := node.AddMigration("20110308_1335_simple",
		func(ctx context.Context, tx *sql.Tx, dir Direction) error {
			applyRan = true
			return nil
		}); err != nil {
		t.Fatalf("AddMigration failed: %v", err)
	}

	l := openTestLedger(t)
	ctx := context.Background()
	if err := InstallTables(ctx, node, l); err != nil {
		t.Fatalf("InstallTables failed: %v", err)
	}
	if applyRan {
		t.Fatalf("fast-forward must not execute migration bodies")
	}

	info, err := Status(ctx, node, l)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if len(info.Applied) != 1 || len(info.Pending) != 0 {
		t.Fatalf("install should fast-forward declared migrations: %+v", info)
	}

	// Migrate after install is a no-op.
	plan, err := Migrate(ctx, node, l, "")
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if len(plan.Migrations) != 0 || applyRan {
		t.Fatalf("expected no-op migrate after install")
	}
}

func TestInstallTablesHookAbort(t *testing.T) {
	node := networkFixture(t)
	node.On(BeforeCreateTable, func(ctx context.Context, e *Entity) HookResult {
		return Abort("frozen schema")
	})

	l := openTestLedger(t)
	err := InstallTables(context.Background(), node, l)
	if err == nil {
		t.Fatalf("expected hook abort to surface")
	}

	exec := ddl.NewSQL(l.DB(), l.Dialect())
	if ok, _ := exec.TableExists(context.Background(), "node"); ok {
		t.Fatalf("aborted install must not create the table")
	}
}

func TestUninstallTablesDropsEverything(t *testing.T) {
	node := networkFixture(t)
	l := openTestLedger(t)
	ctx := context.Background()

	if err := InstallTables(ctx, node, l); err != nil {
		t.Fatalf("InstallTables failed: %v", err)
	}
	if err := UninstallTables(ctx, node, l); err != nil {
		t.Fatalf("UninstallTables failed: %v", err)
	}

	exec := ddl.NewSQL(l.DB(), l.Dialect())
	for _, table := range []string{"node", "host"} {
		if ok, _ := exec.TableExists(ctx, table); ok {
			t.Fatalf("table %s should be dropped", table)
		}
	}
	if ok, _ := exec.ViewExists(ctx, "up_host"); ok {
		t.Fatalf("view should be dropped")
	}
}

func TestMigrateEndToEnd(t *testing.T) {
	r := NewRegistry()
	thing, err := r.Declare(Def{Name: "Thing", Schema: idSchema})
	if err != nil {
		t.Fatalf("Declare failed: %v", err)
	}
	l := openTestLedger(t)
	ctx := context.Background()
	if err := InstallTables(ctx, thing, l); err != nil {
		t.Fatalf("InstallTables failed: %v", err)
	}

	// A migration declared after install: adds a column forward, drops it
	// in reverse.
	if _, err := thing.AddMigration("20110711_1623_add_notes",
		func(ctx context.Context, tx *sql.Tx, dir Direction) error {
			var q string
			if dir == DirectionForward {
				q = "ALTER TABLE thing ADD COLUMN notes TEXT"
			} else {
				q = "ALTER TABLE thing DROP COLUMN notes"
			}
			_, err := tx.ExecContext(ctx, q)
			return err
		}); err != nil {
		t.Fatalf("AddMigration failed: %v", err)
	}

	plan, err := Migrate(ctx, thing, l, "")
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if len(plan.Migrations) != 1 || plan.Direction != DirectionForward {
		t.Fatalf("unexpected plan: %+v", plan)
	}

	var notes sql.NullString
	if err := l.DB().QueryRowContext(ctx, "SELECT notes FROM thing LIMIT 1").Scan(&notes); err != nil && err != sql.ErrNoRows {
		t.Fatalf("notes column should exist after migrate: %v", err)
	}

	if _, err := Migrate(ctx, thing, l, TargetZero); err != nil {
		t.Fatalf("reverse Migrate failed: %v", err)
	}
	if err := l.DB().QueryRowContext(ctx, "SELECT notes FROM thing LIMIT 1").Scan(&notes); err == nil {
		t.Fatalf("notes column should be gone after reverse")
	}

	info, err := Status(ctx, thing, l)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if len(info.Applied) != 0 || len(info.Pending) != 1 {
		t.Fatalf("round trip should leave the migration pending: %+v", info)
	}
}
