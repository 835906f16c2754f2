package rpmutils

import (
	"strings"
)

// AnyVersion is recorded as the matched version when an unversioned
// requirement is met by an unversioned provide.
const AnyVersion = "any"

// DefaultExcludePrefixes are requirement names generated by rpm itself:
// rpmlib() features and automatic file dependencies.
var DefaultExcludePrefixes = []string{"rpmlib(", "/"}

// RequirementVerdict is the outcome for one requirement.
type RequirementVerdict struct {
	Requirement    string   `json:"requirement"`
	Name           string   `json:"name"`
	Operator       Operator `json:"operator,omitempty"`
	Version        string   `json:"version,omitempty"`
	Satisfied      bool     `json:"satisfied"`
	MatchedVersion string   `json:"matched_version,omitempty"`
	MatchedSource  string   `json:"matched_source,omitempty"`
}

// SatisfactionReport is the result of one Check call.
// Satisfied is true exactly when Missing is empty.
type SatisfactionReport struct {
	Satisfied bool                 `json:"satisfied"`
	Missing   []string             `json:"missing"`
	Details   []RequirementVerdict `json:"details"`
	Excluded  int                  `json:"excluded,omitempty"`
}

// Checker decides requirement satisfaction against a ProvidesIndex.
// The zero value uses DefaultExcludePrefixes.
type Checker struct {
	ExcludePrefixes []string
}

// Check evaluates requirements with the default exclusion rules.
func Check(requirements []string, idx *ProvidesIndex) SatisfactionReport {
	return Checker{}.Check(requirements, idx)
}

// Check evaluates every requirement in order. Excluded requirements are left
// out of the report entirely; the first matching candidate wins.
func (c Checker) Check(requirements []string, idx *ProvidesIndex) SatisfactionReport {
	report := SatisfactionReport{
		Missing: []string{},
		Details: []RequirementVerdict{},
	}

	for _, raw := range requirements {
		dep := ParseDependency(raw)
		if c.excluded(dep.Name) {
			report.Excluded++
			continue
		}

		verdict := RequirementVerdict{
			Requirement: raw,
			Name:        dep.Name,
			Operator:    dep.Operator,
			Version:     dep.Version,
		}
		if dep.Name != "" {
			if candidate, ok := firstMatch(dep, idx.Lookup(dep.Name)); ok {
				verdict.Satisfied = true
				verdict.MatchedVersion = candidate.Version
				if !candidate.Versioned {
					verdict.MatchedVersion = AnyVersion
				}
				verdict.MatchedSource = candidate.Source
			}
		}

		if !verdict.Satisfied {
			report.Missing = append(report.Missing, raw)
		}
		report.Details = append(report.Details, verdict)
	}

	report.Satisfied = len(report.Missing) == 0
	return report
}

func (c Checker) excluded(name string) bool {
	prefixes := c.ExcludePrefixes
	if prefixes == nil {
		prefixes = DefaultExcludePrefixes
	}
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func firstMatch(req Dependency, candidates []ProvidedVersion) (ProvidedVersion, bool) {
	for _, candidate := range candidates {
		if satisfies(req, candidate) {
			return candidate, true
		}
	}
	return ProvidedVersion{}, false
}

// satisfies applies the strict rule: an unversioned provide only meets an
// unversioned requirement.
func satisfies(req Dependency, candidate ProvidedVersion) bool {
	if req.Operator == OpNone && req.Version == "" {
		return true
	}
	if !candidate.Versioned {
		return false
	}
	return CompareRequirement(req.Operator, req.Version, candidate.Version)
}
