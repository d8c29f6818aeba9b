package migration

import (
	"context"
	"sort"
	"time"

	"github.com/ged/inlineschema/internal/common"
	"github.com/ged/inlineschema/internal/entity"
	"github.com/ged/inlineschema/internal/store"
)

// Reconciler computes and executes the migrations needed to bring the
// ledger to a requested target. Execution is sequential; each step runs
// in its own transaction covering both the schema change and the matching
// ledger update, so a crash mid-run leaves the ledger consistent with
// exactly the steps that committed.
type Reconciler struct {
	Ledger *store.Ledger
}

// Partition splits the merged migrations of root into applied and pending
// against the ledger. Ledger rows with no matching declared migration are
// orphaned: logged, excluded from both lists, and never deleted here. They
// are returned for status reporting.
func (r *Reconciler) Partition(ctx context.Context, root *entity.Entity) (applied, pending []*entity.Migration, orphaned map[string]string, err error) {
	merged, err := AllMigrations(root)
	if err != nil {
		return nil, nil, nil, err
	}

	owners := make([]string, 0)
	for _, e := range root.Closure() {
		if !e.Anonymous() {
			owners = append(owners, e.Name())
		}
	}
	recorded, err := r.Ledger.ListFor(ctx, owners)
	if err != nil {
		return nil, nil, nil, err
	}

	for _, m := range merged {
		if _, ok := recorded[m.Name]; ok {
			applied = append(applied, m)
			delete(recorded, m.Name)
		} else {
			pending = append(pending, m)
		}
	}

	log := common.GetLogger().WithComponent("reconciler")
	for name, owner := range recorded {
		log.Warn("ignoring orphaned migration record", "migration", name, "model_class", owner)
	}
	return applied, pending, recorded, nil
}

// Run reconciles root's migrations to target and returns the executed
// plan. An empty target means "forward to latest"; TargetZero means "undo
// everything"; otherwise target must name an applied or pending migration.
//
// Execution is fail-fast: a failing step aborts the remainder, and steps
// already committed stay committed. Because every step's transaction is
// self-contained, re-invoking after a fix resumes from the first still
// pending migration.
func (r *Reconciler) Run(ctx context.Context, root *entity.Entity, target string) (*Plan, error) {
	applied, pending, _, err := r.Partition(ctx, root)
	if err != nil {
		return nil, err
	}
	plan, err := ResolvePlan(applied, pending, target)
	if err != nil {
		return nil, err
	}

	log := common.GetLogger().WithComponent("reconciler").WithEntity(root.Name())
	log.Info("running migrations",
		"direction", string(plan.Direction), "count", len(plan.Migrations), "target", target)

	for _, m := range plan.Migrations {
		if err := r.runOne(ctx, m, plan.Direction); err != nil {
			return plan, err
		}
	}
	return plan, nil
}

func (r *Reconciler) runOne(ctx context.Context, m *entity.Migration, dir entity.Direction) error {
	owner := m.Owner
	log := common.GetLogger().WithComponent("reconciler").WithMigration(m.Name)

	if reason, aborted := owner.RunHooks(ctx, entity.BeforeMigrationRun).Aborted(); aborted {
		return common.NewExecutionError(nil,
			"before_migration_run hook aborted migration %s: %s", m.Name, reason)
	}

	start := time.Now()
	tx, err := r.Ledger.DB().BeginTx(ctx, nil)
	if err != nil {
		return common.NewExecutionError(err, "failed to begin transaction for %s", m.Name)
	}

	if m.Apply != nil {
		if err := m.Apply(ctx, tx, dir); err != nil {
			_ = tx.Rollback()
			return common.NewExecutionError(err, "migration %s failed", m.Name)
		}
	}

	switch dir {
	case entity.DirectionForward:
		err = r.Ledger.Insert(ctx, tx, m.Name, owner.Name())
	case entity.DirectionReverse:
		err = r.Ledger.Delete(ctx, tx, m.Name, owner.Name())
	}
	if err != nil {
		_ = tx.Rollback()
		return common.NewExecutionError(err, "failed to update ledger for %s", m.Name)
	}

	if err := tx.Commit(); err != nil {
		return common.NewExecutionError(err, "failed to commit migration %s", m.Name)
	}

	if reason, aborted := owner.RunHooks(ctx, entity.AfterMigrationRun).Aborted(); aborted {
		return common.NewExecutionError(nil,
			"after_migration_run hook aborted after migration %s: %s", m.Name, reason)
	}

	log.Info("migration step committed",
		"direction", string(dir), "model_class", owner.Name(), "duration", time.Since(start))
	return nil
}

// RegisterExisting fast-forwards the ledger for a freshly created table:
// the declared base schema already incorporates every migration registered
// on the entity, so each one is recorded as applied without executing its
// body. Returns how many rows were inserted.
func (r *Reconciler) RegisterExisting(ctx context.Context, e *entity.Entity) (int, error) {
	names := make([]string, 0, len(e.Migrations()))
	for name := range e.Migrations() {
		names = append(names, name)
	}
	sort.Strings(names)

	log := common.GetLogger().WithComponent("reconciler").WithEntity(e.Name())
	inserted := 0
	for _, name := range names {
		present, err := r.Ledger.Contains(ctx, name)
		if err != nil {
			return inserted, err
		}
		if present {
			continue
		}
		if err := r.Ledger.Insert(ctx, nil, name, e.Name()); err != nil {
			return inserted, err
		}
		inserted++
	}
	if inserted > 0 {
		log.Info("fast-forwarded migration records", "count", inserted)
	}
	return inserted, nil
}
