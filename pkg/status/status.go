// Package status summarizes ledger state for reporting: which declared
// migrations are applied or pending for an entity hierarchy, and which
// ledger rows no longer match any declared migration.
package status

import (
	"context"
	"sort"

	"github.com/ged/inlineschema/internal/entity"
	"github.com/ged/inlineschema/internal/migration"
	"github.com/ged/inlineschema/internal/store"
)

// Entry describes one migration in a status report.
type Entry struct {
	Name       string `yaml:"name"`
	ModelClass string `yaml:"model_class"`
}

// Info is a point-in-time reconciliation summary for one root entity.
type Info struct {
	Applied  []Entry `yaml:"applied"`
	Pending  []Entry `yaml:"pending"`
	Orphaned []Entry `yaml:"orphaned,omitempty"`
}

// Collect partitions root's migrations against the ledger and returns the
// summary. It never mutates the ledger.
func Collect(ctx context.Context, root *entity.Entity, ledger *store.Ledger) (*Info, error) {
	r := &migration.Reconciler{Ledger: ledger}
	applied, pending, orphaned, err := r.Partition(ctx, root)
	if err != nil {
		return nil, err
	}

	info := &Info{}
	for _, m := range applied {
		info.Applied = append(info.Applied, Entry{Name: m.Name, ModelClass: m.Owner.Name()})
	}
	for _, m := range pending {
		info.Pending = append(info.Pending, Entry{Name: m.Name, ModelClass: m.Owner.Name()})
	}
	for name, owner := range orphaned {
		info.Orphaned = append(info.Orphaned, Entry{Name: name, ModelClass: owner})
	}
	sort.Slice(info.Orphaned, func(i, j int) bool {
		return info.Orphaned[i].Name < info.Orphaned[j].Name
	})
	return info, nil
}
