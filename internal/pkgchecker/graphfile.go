package pkgchecker

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/open-edge-platform/rpm-depcheck/internal/config/validate"
	"github.com/open-edge-platform/rpm-depcheck/internal/ospackage/rpmutils"
)

// SystemSpec describes the platform baseline shared by every package of a
// graph: inline provides, provides list files and a seed description.
type SystemSpec struct {
	Provides []string `yaml:"provides,omitempty"`
	Files    []string `yaml:"files,omitempty"`
	Seed     string   `yaml:"seed,omitempty"`
}

// GraphFile is the on-disk form of a build graph.
type GraphFile struct {
	System   SystemSpec `yaml:"system,omitempty"`
	Packages []Package  `yaml:"packages"`

	// dir is where relative paths in the file are resolved from.
	dir string
}

// LoadGraphFile reads and validates a build graph file.
func LoadGraphFile(path string) (*GraphFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading graph file %s: %w", path, err)
	}
	gf, err := ParseGraphFile(data)
	if err != nil {
		return nil, fmt.Errorf("graph file %s: %w", path, err)
	}
	gf.dir = filepath.Dir(path)
	return gf, nil
}

// ParseGraphFile validates data against the graph schema and decodes it.
func ParseGraphFile(data []byte) (*GraphFile, error) {
	if err := validate.ValidateGraphYAML(data); err != nil {
		return nil, err
	}
	gf := &GraphFile{}
	if err := yaml.Unmarshal(data, gf); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return gf, nil
}

// Resolve makes path relative to the graph file's directory.
func (gf *GraphFile) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || gf.dir == "" {
		return path
	}
	return filepath.Join(gf.dir, path)
}

// SystemSources returns the inline system provides followed by one source
// per listed file. The seed is resolved separately by the caller.
func (gf *GraphFile) SystemSources() []rpmutils.ProvidesSource {
	sources := []rpmutils.ProvidesSource{}
	if len(gf.System.Provides) > 0 {
		sources = append(sources, rpmutils.ListSource{Name: "system", Entries: gf.System.Provides})
	}
	for _, f := range gf.System.Files {
		sources = append(sources, rpmutils.FileSource{Path: gf.Resolve(f)})
	}
	return sources
}

// Jobs builds one job per package in graph order. Each job's sources are its
// transitive dependencies in closure order, then system.
func Jobs(g *Graph, gf *GraphFile, system []rpmutils.ProvidesSource) ([]Job, error) {
	jobs := make([]Job, 0, len(g.names))
	for _, name := range g.Names() {
		pkg, _ := g.Package(name)
		closure, err := g.Closure(name)
		if err != nil {
			return nil, err
		}

		var sources []rpmutils.ProvidesSource
		for _, depName := range closure {
			dep, _ := g.Package(depName)
			if len(dep.Provides) > 0 {
				sources = append(sources, rpmutils.ListSource{Name: "dep:" + dep.Name, Entries: dep.Provides})
			}
			if dep.Root != "" {
				sources = append(sources, rpmutils.RootSource{Name: "root:" + dep.Name, Root: gf.Resolve(dep.Root)})
			}
		}
		sources = append(sources, system...)

		jobs = append(jobs, Job{
			Name:     pkg.Name,
			RPM:      gf.Resolve(pkg.RPM),
			Requires: pkg.Requires,
			Provides: pkg.Provides,
			Sources:  sources,
		})
	}
	return jobs, nil
}
