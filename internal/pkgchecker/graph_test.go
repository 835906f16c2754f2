package pkgchecker

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func diamond(t *testing.T) *Graph {
	t.Helper()
	g, err := BuildGraph([]Package{
		{Name: "app", Deps: []string{"web", "cli"}},
		{Name: "web", Deps: []string{"core"}},
		{Name: "cli", Deps: []string{"core", "zlib"}},
		{Name: "core", Version: "1.0", Deps: []string{"zlib"}},
		{Name: "zlib"},
	})
	if err != nil {
		t.Fatalf("BuildGraph failed: %v", err)
	}
	return g
}

func TestClosure(t *testing.T) {
	g := diamond(t)

	tests := []struct {
		name string
		want []string
	}{
		{"app", []string{"cli", "web", "core", "zlib"}},
		{"cli", []string{"core", "zlib"}},
		{"web", []string{"core", "zlib"}},
		{"zlib", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Closure(tt.name)
			if err != nil {
				t.Fatalf("Closure failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Closure(%s) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	if _, err := g.Closure("absent"); err == nil {
		t.Error("expected an error for an unknown package")
	}
}

func TestClosureSortsWholeLevel(t *testing.T) {
	g, err := BuildGraph([]Package{
		{Name: "app", Deps: []string{"c", "b"}},
		{Name: "b", Deps: []string{"z"}},
		{Name: "c", Deps: []string{"y"}},
		{Name: "y"},
		{Name: "z"},
	})
	if err != nil {
		t.Fatalf("BuildGraph failed: %v", err)
	}
	got, err := g.Closure("app")
	if want := []string{"b", "c", "y", "z"}; err != nil || !reflect.DeepEqual(got, want) {
		t.Errorf("Closure(app) = %v, %v, want %v", got, err, want)
	}
}

func TestOrder(t *testing.T) {
	g := diamond(t)
	order, err := g.Order()
	if err != nil {
		t.Fatalf("Order failed: %v", err)
	}
	if len(order) != 5 {
		t.Fatalf("Order() = %v", order)
	}

	pos := make(map[string]int)
	for i, name := range order {
		pos[name] = i
	}
	for _, name := range g.Names() {
		pkg, _ := g.Package(name)
		for _, dep := range pkg.Deps {
			if pos[dep] > pos[name] {
				t.Errorf("%s ordered after its dependent %s: %v", dep, name, order)
			}
		}
	}

	if want := []string{"zlib", "core", "cli", "web", "app"}; !reflect.DeepEqual(order, want) {
		t.Errorf("Order() = %v, want %v", order, want)
	}

	again, _ := g.Order()
	if !reflect.DeepEqual(order, again) {
		t.Errorf("Order is not stable: %v vs %v", order, again)
	}
}

func TestOrderTiesByName(t *testing.T) {
	g, err := BuildGraph([]Package{
		{Name: "app", Deps: []string{"z", "b", "y", "c"}},
		{Name: "z"},
		{Name: "y"},
		{Name: "c"},
		{Name: "b"},
	})
	if err != nil {
		t.Fatalf("BuildGraph failed: %v", err)
	}
	got, err := g.Order()
	if want := []string{"b", "c", "y", "z", "app"}; err != nil || !reflect.DeepEqual(got, want) {
		t.Errorf("Order() = %v, %v, want %v", got, err, want)
	}
}

func TestOrderCycle(t *testing.T) {
	g, err := BuildGraph([]Package{
		{Name: "a", Deps: []string{"b"}},
		{Name: "b", Deps: []string{"a"}},
		{Name: "c"},
	})
	if err != nil {
		t.Fatalf("BuildGraph failed: %v", err)
	}
	if _, err := g.Order(); !errors.Is(err, ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}

	// closure still terminates on a cycle
	closure, err := g.Closure("a")
	if err != nil || !reflect.DeepEqual(closure, []string{"b"}) {
		t.Errorf("Closure(a) = %v, %v", closure, err)
	}
}

func TestBuildGraphErrors(t *testing.T) {
	tests := []struct {
		name     string
		packages []Package
	}{
		{"duplicate", []Package{{Name: "a"}, {Name: "a"}}},
		{"unknown dep", []Package{{Name: "a", Deps: []string{"b"}}}},
		{"self dep", []Package{{Name: "a", Deps: []string{"a"}}}},
		{"no name", []Package{{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BuildGraph(tt.packages); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestWriteDot(t *testing.T) {
	var buf bytes.Buffer
	if err := diamond(t).WriteDot(&buf, "deps"); err != nil {
		t.Fatalf("WriteDot failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"digraph deps", "app -> web", "cli -> zlib", "core 1.0"} {
		if !strings.Contains(out, want) {
			t.Errorf("DOT output lacks %q:\n%s", want, out)
		}
	}
}
