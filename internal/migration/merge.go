// Package migration reconciles declared migrations against the persisted
// ledger: it merges the migrations of an entity hierarchy into one sorted
// sequence, partitions them into applied and pending, resolves a target
// into a direction plus an ordered execution set, and runs each step in
// its own transaction with the ledger kept consistent.
package migration

import (
	"sort"

	"github.com/ged/inlineschema/internal/common"
	"github.com/ged/inlineschema/internal/entity"
)

// AllMigrations merges the migrations of root and every structural
// descendant into one sequence sorted by migration name, then owner name.
// The timestamp prefix of the name makes the primary order chronological.
//
// Registering the same migration name on two entities within one hierarchy
// is a definition error, detected here. Name uniqueness is scoped to a
// hierarchy: unrelated roots may reuse names because their merges never
// see each other.
func AllMigrations(root *entity.Entity) ([]*entity.Migration, error) {
	byName := make(map[string]*entity.Migration)
	var merged []*entity.Migration

	for _, e := range root.Closure() {
		for name, m := range e.Migrations() {
			if prev, dup := byName[name]; dup {
				return nil, common.NewDefinitionError(
					"duplicate migration %q: registered on both %q and %q",
					name, prev.Owner.Name(), e.Name())
			}
			byName[name] = m
			merged = append(merged, m)
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Name != merged[j].Name {
			return merged[i].Name < merged[j].Name
		}
		return merged[i].Owner.Name() < merged[j].Owner.Name()
	})
	return merged, nil
}
