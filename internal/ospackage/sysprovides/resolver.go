package sysprovides

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/open-edge-platform/rpm-depcheck/internal/ospackage/rpmquery"
	"github.com/open-edge-platform/rpm-depcheck/internal/utils/general/slice"
	"github.com/open-edge-platform/rpm-depcheck/internal/utils/logger"
	"github.com/open-edge-platform/rpm-depcheck/internal/utils/shell"
)

// SeedQuerier resolves one platform seed against the installed package database.
type SeedQuerier interface {
	InstalledProvides(ctx context.Context, seed string) ([]string, error)
}

// Resolution is the platform baseline derived from a Seed.
type Resolution struct {
	Provides     []string `json:"provides"`
	Unresolved   []string `json:"unresolved"`
	CheckCommand string   `json:"check_command,omitempty"`
}

// Resolver turns seed descriptions into provides lists.
type Resolver struct {
	Querier SeedQuerier
}

// NewResolver returns a Resolver using q, or the host rpm database when q is nil.
func NewResolver(q SeedQuerier) *Resolver {
	if q == nil {
		q = &rpmquery.CommandQuerier{}
	}
	return &Resolver{Querier: q}
}

// Resolve queries every platform seed in order and appends the explicit
// provides. Seeds that are not installed are listed in Unresolved; any other
// query failure aborts. checkExpr overrides the seed's requirement_check.
func (r *Resolver) Resolve(ctx context.Context, seed *Seed, checkExpr string) (*Resolution, error) {
	log := logger.Logger()
	res := &Resolution{Provides: []string{}, Unresolved: []string{}}
	if seed == nil {
		return res, nil
	}

	var provides []string
	for _, item := range seed.PlatformSeed {
		found, err := r.Querier.InstalledProvides(ctx, item)
		if errors.Is(err, rpmquery.ErrPackageNotFound) {
			log.Warnf("platform seed %s is not installed", item)
			res.Unresolved = append(res.Unresolved, item)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolving platform seed %s: %w", item, err)
		}
		provides = append(provides, found...)
	}
	provides = append(provides, seed.Provides...)
	res.Provides = slice.Unique(provides)

	if checkExpr == "" {
		checkExpr = seed.RequirementCheck
	}
	res.CheckCommand = RequirementCheckCommand(seed.Extra, checkExpr)

	log.Infof("system baseline: %d provides from %d seeds (%d unresolved)",
		len(res.Provides), len(seed.PlatformSeed), len(res.Unresolved))
	return res, nil
}

// RequirementCheckCommand prefixes checkExpr with KEY='value' assignments for
// every entry of vars, in key order. It returns "" when checkExpr is empty.
func RequirementCheckCommand(vars map[string]interface{}, checkExpr string) string {
	checkExpr = strings.TrimSpace(checkExpr)
	if checkExpr == "" {
		return ""
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		parts = append(parts, EnvName(k)+"="+shell.Quote(envValue(vars[k])))
	}
	parts = append(parts, checkExpr)
	return strings.Join(parts, " ")
}

// EnvName converts a seed key to an upper snake case variable name:
// "buildArch" and "build-arch" both become BUILD_ARCH.
func EnvName(key string) string {
	var b strings.Builder
	var prev rune
	for i, r := range key {
		switch {
		case r == '-' || r == '.' || unicode.IsSpace(r):
			r = '_'
		case i > 0 && unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
		prev = r
	}
	return b.String()
}

func envValue(v interface{}) string {
	if v == nil {
		return ""
	}
	if items, ok := slice.ConvertToStringSlice(v); ok {
		return strings.Join(items, " ")
	}
	if list, ok := v.([]interface{}); ok {
		items := make([]string, len(list))
		for i, item := range list {
			items[i] = fmt.Sprint(item)
		}
		return strings.Join(items, " ")
	}
	return fmt.Sprint(v)
}
