package plugin

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
)

func TestResolveOrderRespectsDependencies(t *testing.T) {
	rec := &recorder{}
	plugins := []Plugin{
		newFake("a", rec, Required("b")),
		newFake("b", rec),
		newFake("c", rec),
		newFake("d", rec, Required("a"), Optional("absent")),
	}
	idx, err := resolveOrder(plugins)
	if err != nil {
		t.Fatalf("resolveOrder: %v", err)
	}
	var got []string
	for _, i := range idx {
		got = append(got, plugins[i].Meta().Name)
	}
	if want := []string{"b", "a", "c", "d"}; !equalStrings(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestResolveOrderWithoutDependenciesKeepsRegistrationOrder(t *testing.T) {
	rec := &recorder{}
	plugins := []Plugin{newFake("z", rec), newFake("y", rec), newFake("x", rec)}
	idx, err := resolveOrder(plugins)
	if err != nil {
		t.Fatalf("resolveOrder: %v", err)
	}
	for i, j := range idx {
		if i != j {
			t.Fatalf("order = %v, want registration order", idx)
		}
	}
}

func TestResolveOrderRandomAcyclicGraphs(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		n := 1 + rng.Intn(12)
		rank := rng.Perm(n) // plugin i may only depend on plugins of lower rank
		rec := &recorder{}
		plugins := make([]Plugin, n)
		deps := make(map[string][]string)
		for i := 0; i < n; i++ {
			name := fmt.Sprintf("p%d", i)
			var ds []Dependency
			for j := 0; j < n; j++ {
				if rank[j] < rank[i] && rng.Intn(3) == 0 {
					dep := fmt.Sprintf("p%d", j)
					ds = append(ds, Required(dep))
					deps[name] = append(deps[name], dep)
				}
			}
			if rng.Intn(4) == 0 {
				ds = append(ds, Optional("missing"))
			}
			plugins[i] = newFake(name, rec, ds...)
		}

		idx, err := resolveOrder(plugins)
		if err != nil {
			t.Fatalf("round %d: resolveOrder: %v", round, err)
		}
		if len(idx) != n {
			t.Fatalf("round %d: got %d plugins, want %d", round, len(idx), n)
		}
		pos := make(map[string]int, n)
		for at, i := range idx {
			pos[plugins[i].Meta().Name] = at
		}
		for name, ds := range deps {
			for _, d := range ds {
				if pos[d] >= pos[name] {
					t.Fatalf("round %d: %s at %d not after dependency %s at %d", round, name, pos[name], d, pos[d])
				}
			}
		}
	}
}

func TestResolveOrderDetectsCycle(t *testing.T) {
	rec := &recorder{}
	plugins := []Plugin{
		newFake("a", rec, Required("b")),
		newFake("b", rec, Required("a")),
		newFake("c", rec),
		newFake("d", rec, Required("a")),
	}
	_, err := resolveOrder(plugins)
	var cycle *DependencyCycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("err = %v, want DependencyCycleError", err)
	}
	if !errors.Is(err, ErrDependencyCycle) {
		t.Error("errors.Is(err, ErrDependencyCycle) = false")
	}
	if want := []string{"a", "b", "d"}; !equalStrings(cycle.Participants, want) {
		t.Errorf("participants = %v, want %v", cycle.Participants, want)
	}
}

func TestResolveOrderSelfDependencyIsCycle(t *testing.T) {
	rec := &recorder{}
	_, err := resolveOrder([]Plugin{newFake("loop", rec, Required("loop"))})
	if !errors.Is(err, ErrDependencyCycle) {
		t.Fatalf("err = %v, want cycle", err)
	}
}

func TestResolveOrderMissingRequired(t *testing.T) {
	rec := &recorder{}
	_, err := resolveOrder([]Plugin{newFake("web", rec, Required("database"))})
	var missing *MissingDependencyError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want MissingDependencyError", err)
	}
	if missing.Plugin != "web" || missing.Dependency != "database" {
		t.Errorf("missing = %+v", missing)
	}
}

func TestResolveOrderDuplicateProviders(t *testing.T) {
	rec := &recorder{}
	user := newFake("user", rec, Required("worker"))
	w1 := newFake("worker", rec)
	w1.nonUnique = true
	w2 := newFake("worker", rec)
	w2.nonUnique = true
	plugins := []Plugin{user, w1, w2}

	idx, err := resolveOrder(plugins)
	if err != nil {
		t.Fatalf("resolveOrder: %v", err)
	}
	if want := []int{1, 2, 0}; fmt.Sprint(idx) != fmt.Sprint(want) {
		t.Fatalf("order = %v, want %v", idx, want)
	}
}
