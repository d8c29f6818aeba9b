package entity

import "context"

// Hook identifies a lifecycle callback point on an entity.
type Hook string

const (
	BeforeCreateTable  Hook = "before_create_table"
	AfterCreateTable   Hook = "after_create_table"
	BeforeDropTable    Hook = "before_drop_table"
	AfterDropTable     Hook = "after_drop_table"
	BeforeMigrationRun Hook = "before_migration_run"
	AfterMigrationRun  Hook = "after_migration_run"
)

// HookResult is returned by a hook to either let the surrounding operation
// proceed or abort it with a reason. The orchestrator checks the result
// immediately after invocation; an abort is surfaced as a fatal error.
type HookResult struct {
	abort  bool
	reason string
}

// Proceed lets the surrounding operation continue.
func Proceed() HookResult { return HookResult{} }

// Abort cancels the surrounding operation with the given reason.
func Abort(reason string) HookResult { return HookResult{abort: true, reason: reason} }

// Aborted reports whether the hook cancelled the operation, and why.
func (r HookResult) Aborted() (string, bool) { return r.reason, r.abort }

// HookFunc is a lifecycle callback attached to an entity.
type HookFunc func(ctx context.Context, e *Entity) HookResult

// On attaches a hook callback. Multiple callbacks run in attachment order.
func (e *Entity) On(h Hook, fn HookFunc) {
	e.hooks[h] = append(e.hooks[h], fn)
}

// RunHooks invokes every callback attached for h in order, stopping at the
// first abort.
func (e *Entity) RunHooks(ctx context.Context, h Hook) HookResult {
	for _, fn := range e.hooks[h] {
		if res := fn(ctx, e); res.abort {
			return res
		}
	}
	return Proceed()
}
