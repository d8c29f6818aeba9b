package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/ged/inlineschema/internal/common"
	"github.com/ged/inlineschema/internal/entity"
)

func declare(t *testing.T, r *entity.Registry, def entity.Def) *entity.Entity {
	t.Helper()
	e, err := r.Declare(def)
	if err != nil {
		t.Fatalf("Declare(%q) failed: %v", def.Name, err)
	}
	return e
}

func names(order []*entity.Entity) []string {
	out := make([]string, len(order))
	for i, e := range order {
		out[i] = e.Name()
	}
	return out
}

func assertOrder(t *testing.T, got []*entity.Entity, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("order length mismatch: got %v want %v", names(got), want)
	}
	for i := range want {
		if got[i].Name() != want[i] {
			t.Fatalf("order mismatch at %d: got %v want %v", i, names(got), want)
		}
	}
}

func TestOrderRespectsAssociations(t *testing.T) {
	r := entity.NewRegistry()
	root := declare(t, r, entity.Def{Name: "Node"})
	host := declare(t, r, entity.Def{Name: "Host", Parent: root})
	iface := declare(t, r, entity.Def{Name: "Interface", Parent: root})
	iface.ManyToOne("host", host)

	order, err := (&Resolver{Root: root}).Order()
	if err != nil {
		t.Fatalf("Order failed: %v", err)
	}
	assertOrder(t, order, []string{"Node", "Host", "Interface"})
}

func TestOrderRespectsSupertypeChains(t *testing.T) {
	r := entity.NewRegistry()
	root := declare(t, r, entity.Def{Name: "Asset"})
	mid := declare(t, r, entity.Def{Name: "Device", Parent: root})
	declare(t, r, entity.Def{Name: "Router", Parent: mid})

	order, err := (&Resolver{Root: root}).Order()
	if err != nil {
		t.Fatalf("Order failed: %v", err)
	}
	assertOrder(t, order, []string{"Asset", "Device", "Router"})
}

func TestOrderDeduplicatesSharedDependencies(t *testing.T) {
	r := entity.NewRegistry()
	root := declare(t, r, entity.Def{Name: "Root"})
	shared := declare(t, r, entity.Def{Name: "Shared", Parent: root})
	a := declare(t, r, entity.Def{Name: "A", Parent: root})
	b := declare(t, r, entity.Def{Name: "B", Parent: root})
	a.ManyToOne("shared", shared)
	b.ManyToOne("shared", shared)

	order, err := (&Resolver{Root: root}).Order()
	if err != nil {
		t.Fatalf("Order failed: %v", err)
	}
	assertOrder(t, order, []string{"Root", "Shared", "A", "B"})
}

func TestOrderIsDeterministic(t *testing.T) {
	r := entity.NewRegistry()
	root := declare(t, r, entity.Def{Name: "Root"})
	for _, n := range []string{"C", "A", "B"} {
		declare(t, r, entity.Def{Name: n, Parent: root})
	}

	first, err := (&Resolver{Root: root}).Order()
	if err != nil {
		t.Fatalf("Order failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := (&Resolver{Root: root}).Order()
		if err != nil {
			t.Fatalf("Order failed: %v", err)
		}
		assertOrder(t, again, names(first))
	}
	// Declaration order is preserved, not alphabetized.
	assertOrder(t, first, []string{"Root", "C", "A", "B"})
}

func TestAnonymousEntitiesMediateButAreExcluded(t *testing.T) {
	r := entity.NewRegistry()
	root := declare(t, r, entity.Def{Name: "Root"})
	target := declare(t, r, entity.Def{Name: "Target", Parent: root})
	anon := declare(t, r, entity.Def{Table: "anon_join", Parent: root})
	anon.ManyToOne("target", target)
	leaf := declare(t, r, entity.Def{Name: "Leaf", Parent: root})
	leaf.ManyToOne("via", anon)

	order, err := (&Resolver{Root: root}).Order()
	if err != nil {
		t.Fatalf("Order failed: %v", err)
	}
	// The anonymous entity carried Leaf -> Target but never appears itself.
	assertOrder(t, order, []string{"Root", "Target", "Leaf"})
}

func TestPolymorphicAssociationsCarryNoDependency(t *testing.T) {
	r := entity.NewRegistry()
	root := declare(t, r, entity.Def{Name: "Root"})
	tagged := declare(t, r, entity.Def{Name: "Tagged", Parent: root})
	tagged.PolymorphicManyToOne("subject")

	order, err := (&Resolver{Root: root}).Order()
	if err != nil {
		t.Fatalf("Order failed: %v", err)
	}
	assertOrder(t, order, []string{"Root", "Tagged"})
}

func TestCycleDetection(t *testing.T) {
	r := entity.NewRegistry()
	root := declare(t, r, entity.Def{Name: "Root"})
	a := declare(t, r, entity.Def{Name: "A", Parent: root})
	b := declare(t, r, entity.Def{Name: "B", Parent: root})
	a.ManyToOne("b", b)
	b.ManyToOne("a", a)

	_, err := (&Resolver{Root: root}).Order()
	if err == nil {
		t.Fatalf("expected cycle to be detected")
	}
	var resErr *common.ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected ResolutionError, got %T: %v", err, err)
	}
}

// fakeInspector answers existence queries from in-memory sets.
type fakeInspector struct {
	tables map[string]bool
	views  map[string]bool
}

func (f *fakeInspector) TableExists(_ context.Context, name string) (bool, error) {
	return f.tables[name], nil
}

func (f *fakeInspector) ViewExists(_ context.Context, name string) (bool, error) {
	return f.views[name], nil
}

func TestUninstalledTablesFiltersAndDeduplicates(t *testing.T) {
	r := entity.NewRegistry()
	root := declare(t, r, entity.Def{Name: "Root"})
	declare(t, r, entity.Def{Name: "Existing", Parent: root})
	declare(t, r, entity.Def{Name: "Missing", Parent: root})
	// Two entities over one physical table count once.
	declare(t, r, entity.Def{Name: "SharedA", Table: "shared", Parent: root})
	declare(t, r, entity.Def{Name: "SharedB", Table: "shared", Parent: root})
	declare(t, r, entity.Def{Name: "Summary", Parent: root, View: &entity.ViewDef{Query: "SELECT 1"}})

	insp := &fakeInspector{
		tables: map[string]bool{"root": true, "existing": true},
		views:  map[string]bool{},
	}
	got, err := (&Resolver{Root: root}).UninstalledTables(context.Background(), insp)
	if err != nil {
		t.Fatalf("UninstalledTables failed: %v", err)
	}
	assertOrder(t, got, []string{"Missing", "SharedA"})
}

func TestViewPartition(t *testing.T) {
	r := entity.NewRegistry()
	root := declare(t, r, entity.Def{Name: "Root"})
	declare(t, r, entity.Def{Name: "LiveView", Parent: root, View: &entity.ViewDef{Query: "SELECT 1"}})
	declare(t, r, entity.Def{Name: "NewView", Parent: root, View: &entity.ViewDef{Query: "SELECT 2"}})

	insp := &fakeInspector{
		tables: map[string]bool{"root": true},
		views:  map[string]bool{"live_view": true},
	}
	res := &Resolver{Root: root}

	installed, err := res.InstalledViews(context.Background(), insp)
	if err != nil {
		t.Fatalf("InstalledViews failed: %v", err)
	}
	assertOrder(t, installed, []string{"LiveView"})

	uninstalled, err := res.UninstalledViews(context.Background(), insp)
	if err != nil {
		t.Fatalf("UninstalledViews failed: %v", err)
	}
	assertOrder(t, uninstalled, []string{"NewView"})
}
