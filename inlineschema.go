// Package inlineschema tracks schema migrations and orders table creation
// for model-class hierarchies. Entities declare their schemas, views,
// associations, and named migrations; the engine computes a safe creation
// order over foreign-key and inheritance dependencies, installs missing
// tables and views, and reconciles the persisted migration ledger to a
// requested target in either direction.
package inlineschema

import (
	"context"

	"github.com/ged/inlineschema/internal/common"
	"github.com/ged/inlineschema/internal/ddl"
	"github.com/ged/inlineschema/internal/entity"
	"github.com/ged/inlineschema/internal/graph"
	"github.com/ged/inlineschema/internal/migration"
	"github.com/ged/inlineschema/internal/store"
	"github.com/ged/inlineschema/pkg/status"
)

// Re-export commonly used types for public API

// Entity is a registered schema-bearing unit.
type Entity = entity.Entity

// Registry owns declared entities.
type Registry = entity.Registry

// Def describes an entity declaration.
type Def = entity.Def

// Schema is a declared column/constraint set.
type Schema = entity.Schema

// Column is one declared table column.
type Column = entity.Column

// ViewDef marks an entity as view-backed.
type ViewDef = entity.ViewDef

// Migration is a named unit of schema change.
type Migration = entity.Migration

// Direction is the way a migration is applied.
type Direction = entity.Direction

const (
	DirectionForward = entity.DirectionForward
	DirectionReverse = entity.DirectionReverse
)

// Hook identifies a lifecycle callback point.
type Hook = entity.Hook

const (
	BeforeCreateTable  = entity.BeforeCreateTable
	AfterCreateTable   = entity.AfterCreateTable
	BeforeDropTable    = entity.BeforeDropTable
	AfterDropTable     = entity.AfterDropTable
	BeforeMigrationRun = entity.BeforeMigrationRun
	AfterMigrationRun  = entity.AfterMigrationRun
)

// HookResult is returned by lifecycle hooks.
type HookResult = entity.HookResult

// Proceed lets a hooked operation continue.
func Proceed() HookResult { return entity.Proceed() }

// Abort cancels a hooked operation with a reason.
func Abort(reason string) HookResult { return entity.Abort(reason) }

// Ledger is an open migration ledger.
type Ledger = store.Ledger

// StoreConfig selects the ledger backend and table naming.
type StoreConfig = store.Config

// Plan is a resolved execution set.
type Plan = migration.Plan

// StatusInfo is a reconciliation summary.
type StatusInfo = status.Info

// TargetZero is the migration target meaning "undo everything".
const TargetZero = migration.TargetZero

// Ledger driver names.
const (
	DriverSqlite   = store.DriverSqlite
	DriverPostgres = store.DriverPostgres
)

// NewRegistry creates an empty entity registry.
func NewRegistry() *Registry { return entity.NewRegistry() }

// OpenLedger connects the configured ledger backend and lazily creates the
// ledger table.
func OpenLedger(cfg StoreConfig) (*Ledger, error) { return store.Open(cfg) }

// SetLogLevel reconfigures the package logger.
func SetLogLevel(level string) {
	common.SetDefaultLogger(common.NewLogger(common.ParseLogLevel(level)))
}

// InstallableOrder returns every named entity in root's closure, ordered
// so that each entity follows its structural supertypes and the targets of
// its many-to-one associations.
func InstallableOrder(root *Entity) ([]*Entity, error) {
	r := &graph.Resolver{Root: root}
	return r.Order()
}

// InstallTables creates every missing table in root's closure in dependency
// order, fast-forwarding the ledger for each so that already-incorporated
// migrations are never replayed, then creates missing views. Table-creation
// hooks run around each table and may abort the install.
//
// Each creation is individually durable; there is no outer transaction. A
// crash between a table's creation and its fast-forward rows leaves that
// entity's migrations pending, which a subsequent Migrate will surface.
func InstallTables(ctx context.Context, root *Entity, ledger *Ledger) error {
	exec := ddl.NewSQL(ledger.DB(), ledger.Dialect())
	resolver := &graph.Resolver{Root: root}
	reconciler := &migration.Reconciler{Ledger: ledger}
	log := common.GetLogger().WithComponent("install")

	tables, err := resolver.UninstalledTables(ctx, exec)
	if err != nil {
		return err
	}
	for _, e := range tables {
		if reason, aborted := e.RunHooks(ctx, entity.BeforeCreateTable).Aborted(); aborted {
			return common.NewExecutionError(nil,
				"before_create_table hook aborted install of %q: %s", e.Name(), reason)
		}
		if err := exec.CreateTable(ctx, e.TableName(), e.Schema()); err != nil {
			return common.NewExecutionError(err, "failed to install table for %q", e.Name())
		}
		if _, err := reconciler.RegisterExisting(ctx, e); err != nil {
			return err
		}
		if reason, aborted := e.RunHooks(ctx, entity.AfterCreateTable).Aborted(); aborted {
			return common.NewExecutionError(nil,
				"after_create_table hook aborted install of %q: %s", e.Name(), reason)
		}
		log.Info("table installed", "entity", e.Name(), "table", e.TableName())
	}

	views, err := resolver.UninstalledViews(ctx, exec)
	if err != nil {
		return err
	}
	for _, e := range views {
		v := e.View()
		if err := exec.CreateView(ctx, e.TableName(), v.Query, v.Options); err != nil {
			return common.NewExecutionError(err, "failed to install view for %q", e.Name())
		}
		log.Info("view installed", "entity", e.Name(), "view", e.TableName())
	}
	return nil
}

// UninstallTables drops root's views and tables in reverse dependency
// order. Drop hooks run around each table and may abort the uninstall.
// Ledger rows are left in place; they become orphaned records.
func UninstallTables(ctx context.Context, root *Entity, ledger *Ledger) error {
	exec := ddl.NewSQL(ledger.DB(), ledger.Dialect())
	resolver := &graph.Resolver{Root: root}
	log := common.GetLogger().WithComponent("install")

	views, err := resolver.InstalledViews(ctx, exec)
	if err != nil {
		return err
	}
	for i := len(views) - 1; i >= 0; i-- {
		e := views[i]
		if err := exec.DropView(ctx, e.TableName(), true); err != nil {
			return common.NewExecutionError(err, "failed to drop view for %q", e.Name())
		}
		log.Info("view dropped", "entity", e.Name(), "view", e.TableName())
	}

	order, err := resolver.Order()
	if err != nil {
		return err
	}
	dropped := make(map[string]bool)
	for i := len(order) - 1; i >= 0; i-- {
		e := order[i]
		if e.IsView() || dropped[e.TableName()] {
			continue
		}
		exists, err := exec.TableExists(ctx, e.TableName())
		if err != nil {
			return err
		}
		if !exists {
			continue
		}
		if reason, aborted := e.RunHooks(ctx, entity.BeforeDropTable).Aborted(); aborted {
			return common.NewExecutionError(nil,
				"before_drop_table hook aborted uninstall of %q: %s", e.Name(), reason)
		}
		if err := exec.DropTable(ctx, e.TableName(), true); err != nil {
			return common.NewExecutionError(err, "failed to drop table for %q", e.Name())
		}
		dropped[e.TableName()] = true
		if reason, aborted := e.RunHooks(ctx, entity.AfterDropTable).Aborted(); aborted {
			return common.NewExecutionError(nil,
				"after_drop_table hook aborted uninstall of %q: %s", e.Name(), reason)
		}
		log.Info("table dropped", "entity", e.Name(), "table", e.TableName())
	}
	return nil
}

// Migrate reconciles root's migrations to target and returns the executed
// plan. An empty target means "forward to latest"; TargetZero undoes
// everything; otherwise target must name an applied or pending migration.
func Migrate(ctx context.Context, root *Entity, ledger *Ledger, target string) (*Plan, error) {
	r := &migration.Reconciler{Ledger: ledger}
	return r.Run(ctx, root, target)
}

// Status reports which of root's migrations are applied, pending, or
// orphaned without mutating anything.
func Status(ctx context.Context, root *Entity, ledger *Ledger) (*StatusInfo, error) {
	return status.Collect(ctx, root, ledger)
}
