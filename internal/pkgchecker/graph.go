package pkgchecker

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// ErrCycle is returned by Order when the dependency graph is not a DAG.
var ErrCycle = errors.New("dependency cycle")

// Package is one node of a build graph.
type Package struct {
	Name     string   `yaml:"name"`
	Version  string   `yaml:"version,omitempty"`
	RPM      string   `yaml:"rpm,omitempty"`
	Root     string   `yaml:"root,omitempty"`
	Requires []string `yaml:"requires,omitempty"`
	Provides []string `yaml:"provides,omitempty"`
	Deps     []string `yaml:"deps,omitempty"`
}

type pkgNode struct {
	id  int64
	pkg Package
}

func (n *pkgNode) ID() int64 { return n.id }

func (n *pkgNode) DOTID() string { return n.pkg.Name }

func (n *pkgNode) Attributes() []encoding.Attribute {
	label := n.pkg.Name
	if n.pkg.Version != "" {
		label += " " + n.pkg.Version
	}
	return []encoding.Attribute{{Key: "label", Value: label}}
}

// Graph holds packages with an edge from every package to each of its
// explicit dependencies.
type Graph struct {
	g     *simple.DirectedGraph
	nodes map[string]*pkgNode
	names []string
}

func NewGraph() *Graph {
	return &Graph{
		g:     simple.NewDirectedGraph(),
		nodes: make(map[string]*pkgNode),
	}
}

// AddPackage adds pkg as a node. Names must be unique.
func (g *Graph) AddPackage(pkg Package) error {
	if pkg.Name == "" {
		return fmt.Errorf("package without a name")
	}
	if _, ok := g.nodes[pkg.Name]; ok {
		return fmt.Errorf("duplicate package %s", pkg.Name)
	}
	n := &pkgNode{id: g.g.NewNode().ID(), pkg: pkg}
	g.g.AddNode(n)
	g.nodes[pkg.Name] = n
	g.names = append(g.names, pkg.Name)
	return nil
}

// AddDependency records that from depends on to. Both must already exist.
func (g *Graph) AddDependency(from, to string) error {
	f, ok := g.nodes[from]
	if !ok {
		return fmt.Errorf("unknown package %s", from)
	}
	t, ok := g.nodes[to]
	if !ok {
		return fmt.Errorf("package %s depends on unknown package %s", from, to)
	}
	if f == t {
		return fmt.Errorf("package %s depends on itself", from)
	}
	g.g.SetEdge(g.g.NewEdge(f, t))
	return nil
}

// BuildGraph adds every package, then every declared dependency edge.
func BuildGraph(packages []Package) (*Graph, error) {
	g := NewGraph()
	for _, pkg := range packages {
		if err := g.AddPackage(pkg); err != nil {
			return nil, err
		}
	}
	for _, pkg := range packages {
		for _, dep := range pkg.Deps {
			if err := g.AddDependency(pkg.Name, dep); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// Package returns the named package.
func (g *Graph) Package(name string) (Package, bool) {
	n, ok := g.nodes[name]
	if !ok {
		return Package{}, false
	}
	return n.pkg, true
}

// Names lists packages in the order they were added.
func (g *Graph) Names() []string {
	return append([]string(nil), g.names...)
}

// Closure returns every package name reachable from name, excluding name
// itself. Direct dependencies come first, then their dependencies; each
// level is sorted by name as a whole.
func (g *Graph) Closure(name string) ([]string, error) {
	start, ok := g.nodes[name]
	if !ok {
		return nil, fmt.Errorf("unknown package %s", name)
	}

	visited := map[int64]bool{start.ID(): true}
	level := []graph.Node{start}
	closure := []string{}
	for len(level) > 0 {
		var next []graph.Node
		for _, current := range level {
			for _, n := range graph.NodesOf(g.g.From(current.ID())) {
				if visited[n.ID()] {
					continue
				}
				visited[n.ID()] = true
				next = append(next, n)
			}
		}
		sortByName(next)
		for _, n := range next {
			closure = append(closure, n.(*pkgNode).pkg.Name)
		}
		level = next
	}
	return closure, nil
}

// Order returns package names with every dependency before its dependents.
// Packages with no ordering constraint between them come out by name.
func (g *Graph) Order() ([]string, error) {
	// SortStabilized walks nodes in reverse comparator order and the result
	// is reversed again below, so sort descending here.
	sorted, err := topo.SortStabilized(g.g, sortByNameDesc)
	if err != nil {
		var cycles []string
		for _, cycle := range topo.DirectedCyclesIn(g.g) {
			names := make([]string, len(cycle))
			for i, n := range cycle {
				names[i] = n.(*pkgNode).pkg.Name
			}
			cycles = append(cycles, strings.Join(names, " -> "))
		}
		sort.Strings(cycles)
		return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(cycles, "; "))
	}

	order := make([]string, len(sorted))
	for i, n := range sorted {
		order[len(sorted)-1-i] = n.(*pkgNode).pkg.Name
	}
	return order, nil
}

// WriteDot writes the graph in Graphviz DOT format.
func (g *Graph) WriteDot(w io.Writer, name string) error {
	data, err := dot.Marshal(g.g, name, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling graph: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func sortByName(nodes []graph.Node) {
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].(*pkgNode).pkg.Name < nodes[j].(*pkgNode).pkg.Name
	})
}

func sortByNameDesc(nodes []graph.Node) {
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].(*pkgNode).pkg.Name > nodes[j].(*pkgNode).pkg.Name
	})
}
