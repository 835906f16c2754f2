package rpmutils

import (
	"regexp"
	"strings"
)

// Operator is the comparison sense of a versioned dependency.
type Operator string

const (
	OpNone Operator = ""
	OpEQ   Operator = "="
	OpGE   Operator = ">="
	OpGT   Operator = ">"
	OpLE   Operator = "<="
	OpLT   Operator = "<"
)

// operatorAliases maps the spellings accepted by rpm tooling onto the canonical operators.
var operatorAliases = map[string]Operator{
	"=":  OpEQ,
	"==": OpEQ,
	">=": OpGE,
	"=>": OpGE,
	">":  OpGT,
	"<=": OpLE,
	"=<": OpLE,
	"<":  OpLT,
}

// Valid reports whether o is one of the five comparison operators.
func (o Operator) Valid() bool {
	switch o {
	case OpEQ, OpGE, OpGT, OpLE, OpLT:
		return true
	}
	return false
}

// The operator is only recognised when it is surrounded by whitespace and
// followed by a version, which is how rpm prints provides and requires:
//
//	perl(File::Temp) >= 0.23
//	libc.so.6(GLIBC_2.34)(64bit)
//	config(bash) = 5.1.8-9.el9
var depExprRegex = regexp.MustCompile(`^(.+?)\s+([<>=]+)\s+(\S+)$`)

// Dependency is a parsed provide or require entry.
// Operator and Version are either both set or both empty.
type Dependency struct {
	Name     string   `json:"name"`
	Operator Operator `json:"operator,omitempty"`
	Version  string   `json:"version,omitempty"`
}

// ParseDependency splits a raw dependency string into name, operator and version.
// Input that does not end in "<op> <version>" is returned whole as an
// unversioned name; the parser never fails.
func ParseDependency(raw string) Dependency {
	trimmed := strings.TrimSpace(raw)

	m := depExprRegex.FindStringSubmatch(trimmed)
	if m == nil {
		return Dependency{Name: trimmed}
	}

	op, ok := operatorAliases[m[2]]
	if !ok {
		// keep unknown runs such as "<>" so the comparison can refuse them later
		op = Operator(m[2])
	}

	return Dependency{
		Name:     m[1],
		Operator: op,
		Version:  m[3],
	}
}

// HasVersion reports whether the dependency carries a version constraint.
func (d Dependency) HasVersion() bool {
	return d.Operator != OpNone && d.Version != ""
}

// String renders the dependency in the "name op version" form rpm prints.
func (d Dependency) String() string {
	if !d.HasVersion() {
		return d.Name
	}
	return d.Name + " " + string(d.Operator) + " " + d.Version
}
