package rpmutils

import (
	"errors"
	"fmt"
	"strings"
)

// ProvidedVersion is one indexed provide. Versioned is false for a bare
// capability, which only satisfies requirements without a version constraint.
type ProvidedVersion struct {
	Version   string
	Versioned bool
	Raw       string
	Source    string
}

// SourceStat records what a single source contributed to an index.
type SourceStat struct {
	ID      string `json:"id"`
	Entries int    `json:"entries"`
	Missing bool   `json:"missing,omitempty"`
}

// ProvidesIndex maps capability names to the versions provided for them, in
// source order. An index is built once by BuildIndex and never modified, so a
// fresh one must be built for every package that is checked.
type ProvidesIndex struct {
	caseSensitive bool
	entries       map[string][]ProvidedVersion
	stats         []SourceStat
}

// BuildIndex loads every source in priority order and indexes the provides.
// Sources that report ErrSourceMissing are skipped and flagged in Sources().
func BuildIndex(caseSensitive bool, sources ...ProvidesSource) (*ProvidesIndex, error) {
	idx := &ProvidesIndex{
		caseSensitive: caseSensitive,
		entries:       make(map[string][]ProvidedVersion),
	}

	for _, src := range sources {
		if src == nil {
			continue
		}
		provides, err := src.Load()
		if errors.Is(err, ErrSourceMissing) {
			idx.stats = append(idx.stats, SourceStat{ID: src.ID(), Missing: true})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading provides source %s: %w", src.ID(), err)
		}
		idx.add(src.ID(), provides)
	}

	return idx, nil
}

// IndexFromList is a shortcut for an index over a single in-memory list.
func IndexFromList(caseSensitive bool, provides []string) *ProvidesIndex {
	// a ListSource never fails to load
	idx, _ := BuildIndex(caseSensitive, ListSource{Name: "list", Entries: provides})
	return idx
}

func (idx *ProvidesIndex) add(sourceID string, provides []string) {
	count := 0
	for _, raw := range provides {
		dep := ParseDependency(raw)
		if dep.Name == "" {
			continue
		}
		key := idx.normalize(dep.Name)
		idx.entries[key] = append(idx.entries[key], ProvidedVersion{
			Version:   dep.Version,
			Versioned: dep.Version != "",
			Raw:       strings.TrimSpace(raw),
			Source:    sourceID,
		})
		count++
	}
	idx.stats = append(idx.stats, SourceStat{ID: sourceID, Entries: count})
}

func (idx *ProvidesIndex) normalize(name string) string {
	if idx.caseSensitive {
		return name
	}
	return strings.ToLower(name)
}

// Lookup returns the candidates for name in insertion order.
func (idx *ProvidesIndex) Lookup(name string) []ProvidedVersion {
	if idx == nil {
		return nil
	}
	return idx.entries[idx.normalize(name)]
}

// Sources lists the per-source statistics in load order.
func (idx *ProvidesIndex) Sources() []SourceStat {
	if idx == nil {
		return nil
	}
	out := make([]SourceStat, len(idx.stats))
	copy(out, idx.stats)
	return out
}
