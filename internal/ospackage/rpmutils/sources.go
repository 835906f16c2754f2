package rpmutils

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/open-edge-platform/rpm-depcheck/internal/utils/compression"
)

// ErrSourceMissing is returned by a ProvidesSource whose backing file, root or
// package entry does not exist. BuildIndex skips such sources.
var ErrSourceMissing = errors.New("provides source does not exist")

// RootProvidesPath is where an installed dependency root keeps its provides list.
const RootProvidesPath = "etc/rpm/provides.json"

// ProvidesSource yields a list of raw provide strings.
type ProvidesSource interface {
	ID() string
	Load() ([]string, error)
}

// ListSource is an in-memory provides list.
type ListSource struct {
	Name    string
	Entries []string
}

func (s ListSource) ID() string { return s.Name }

func (s ListSource) Load() ([]string, error) {
	return s.Entries, nil
}

// FileSource reads a JSON document holding either a flat list of strings or
// an object mapping package names to lists. With Package set only that key is
// used; otherwise every key is read in sorted order.
type FileSource struct {
	Name    string
	Path    string
	Package string
}

func (s FileSource) ID() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Path
}

func (s FileSource) Load() ([]string, error) {
	data, err := compression.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrSourceMissing
	}
	if err != nil {
		return nil, err
	}

	list, found, err := DecodeDependencyList(data, s.Package)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	if !found {
		return nil, ErrSourceMissing
	}
	return list, nil
}

// RootSource reads the provides list published inside a dependency root.
type RootSource struct {
	Name string
	Root string
}

func (s RootSource) ID() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Root
}

func (s RootSource) Load() ([]string, error) {
	if s.Root == "" {
		return nil, ErrSourceMissing
	}
	return FileSource{Path: filepath.Join(s.Root, RootProvidesPath)}.Load()
}

// LoadDependencyList reads a requires or provides file. Unlike a
// ProvidesSource, a missing file is an error here.
func LoadDependencyList(path, pkg string) ([]string, error) {
	data, err := compression.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	list, found, err := DecodeDependencyList(data, pkg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if !found {
		return nil, fmt.Errorf("%s: package %q not listed", path, pkg)
	}
	return list, nil
}

// DecodeDependencyList accepts `["a", "b >= 1"]` or `{"pkg": ["a"]}`.
// found is false when pkg is set but the document has no such key.
func DecodeDependencyList(data []byte, pkg string) (list []string, found bool, err error) {
	var flat []string
	if err := json.Unmarshal(data, &flat); err == nil {
		return flat, true, nil
	}

	var keyed map[string][]string
	if err := json.Unmarshal(data, &keyed); err != nil {
		return nil, false, fmt.Errorf("expected a list of strings or an object of lists: %w", err)
	}

	if pkg != "" {
		list, found = keyed[pkg]
		return list, found, nil
	}

	keys := make([]string, 0, len(keyed))
	for k := range keyed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		list = append(list, keyed[k]...)
	}
	return list, true, nil
}
