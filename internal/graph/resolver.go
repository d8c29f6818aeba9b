// Package graph computes a safe creation order for entities. Edges run
// from an entity to everything it must be created after: its structural
// supertype chain and the targets of its non-polymorphic many-to-one
// associations.
package graph

import (
	"context"
	"strings"

	"github.com/ged/inlineschema/internal/common"
	"github.com/ged/inlineschema/internal/entity"
)

// SchemaInspector answers existence questions about physical tables and
// views. The DDL executor satisfies it.
type SchemaInspector interface {
	TableExists(ctx context.Context, name string) (bool, error)
	ViewExists(ctx context.Context, name string) (bool, error)
}

// Resolver orders the closure of a root entity for installation.
type Resolver struct {
	Root *entity.Entity
}

// visit states for cycle detection
type visitState int

const (
	unvisited visitState = iota
	inProgress
	done
)

// Order returns every named entity in the root's closure, ordered so that
// each entity follows everything it depends on. Anonymous entities are
// traversed as graph nodes but excluded from the result. The output is
// exactly reproducible for an unchanged declaration set.
//
// A dependency cycle is an unsupported declaration; it fails with a
// ResolutionError naming the cycle path rather than looping.
func (r *Resolver) Order() ([]*entity.Entity, error) {
	state := make(map[*entity.Entity]visitState)
	var order []*entity.Entity
	var path []string

	var visit func(e *entity.Entity) error
	visit = func(e *entity.Entity) error {
		switch state[e] {
		case done:
			return nil
		case inProgress:
			cycle := append(path, displayName(e))
			return common.NewResolutionError(
				"dependency cycle detected: %s", strings.Join(cycle, " -> "))
		}
		state[e] = inProgress
		path = append(path, displayName(e))

		if e.Parent() != nil {
			if err := visit(e.Parent()); err != nil {
				return err
			}
		}
		for _, a := range e.Associations() {
			if a.Polymorphic || a.Target == nil {
				continue
			}
			if err := visit(a.Target); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		state[e] = done
		if !e.Anonymous() {
			order = append(order, e)
		}
		return nil
	}

	for _, e := range r.Root.Closure() {
		if err := visit(e); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// UninstalledTables returns the creation order filtered to table-backed
// entities whose physical table does not exist yet. Entities sharing a
// physical table are counted once.
func (r *Resolver) UninstalledTables(ctx context.Context, insp SchemaInspector) ([]*entity.Entity, error) {
	order, err := r.Order()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []*entity.Entity
	for _, e := range order {
		if e.IsView() || seen[e.TableName()] {
			continue
		}
		seen[e.TableName()] = true
		exists, err := insp.TableExists(ctx, e.TableName())
		if err != nil {
			return nil, err
		}
		if !exists {
			out = append(out, e)
		}
	}
	return out, nil
}

// UninstalledViews returns the creation order filtered to view-backed
// entities whose view does not exist yet.
func (r *Resolver) UninstalledViews(ctx context.Context, insp SchemaInspector) ([]*entity.Entity, error) {
	return r.views(ctx, insp, false)
}

// InstalledViews returns the creation order filtered to view-backed
// entities whose view already exists.
func (r *Resolver) InstalledViews(ctx context.Context, insp SchemaInspector) ([]*entity.Entity, error) {
	return r.views(ctx, insp, true)
}

func (r *Resolver) views(ctx context.Context, insp SchemaInspector, installed bool) ([]*entity.Entity, error) {
	order, err := r.Order()
	if err != nil {
		return nil, err
	}
	var out []*entity.Entity
	for _, e := range order {
		if !e.IsView() {
			continue
		}
		exists, err := insp.ViewExists(ctx, e.TableName())
		if err != nil {
			return nil, err
		}
		if exists == installed {
			out = append(out, e)
		}
	}
	return out, nil
}

func displayName(e *entity.Entity) string {
	if e.Anonymous() {
		return "(anonymous:" + e.TableName() + ")"
	}
	return e.Name()
}
