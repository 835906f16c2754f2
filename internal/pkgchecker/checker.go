package pkgchecker

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/open-edge-platform/rpm-depcheck/internal/ospackage/rpmquery"
	"github.com/open-edge-platform/rpm-depcheck/internal/ospackage/rpmutils"
)

// Job is one package to check. When RPM is set its requires and provides are
// read from the package file and the declared lists are appended to them.
// Sources follow the package's own provides in priority order.
type Job struct {
	Name     string
	RPM      string
	Requires []string
	Provides []string
	Sources  []rpmutils.ProvidesSource
}

// Checker checks packages against freshly built provides indexes.
// Metrics is optional and only used by Run.
type Checker struct {
	Querier       rpmquery.Querier
	Rules         rpmutils.Checker
	CaseSensitive bool
	Metrics       *Metrics
}

// CheckPackage checks the .rpm at pkgRef against its own provides and sources.
func (c *Checker) CheckPackage(ctx context.Context, pkgRef string, sources ...rpmutils.ProvidesSource) (rpmutils.SatisfactionReport, error) {
	return c.CheckJob(ctx, Job{
		Name:    strings.TrimSuffix(filepath.Base(pkgRef), ".rpm"),
		RPM:     pkgRef,
		Sources: sources,
	})
}

// CheckJob builds an index scoped to job and runs the satisfaction check.
func (c *Checker) CheckJob(ctx context.Context, job Job) (rpmutils.SatisfactionReport, error) {
	requires := job.Requires
	provides := job.Provides

	if job.RPM != "" {
		if c.Querier == nil {
			return rpmutils.SatisfactionReport{}, fmt.Errorf("%s: no package querier configured", job.Name)
		}
		queriedRequires, err := c.Querier.Requires(ctx, job.RPM)
		if err != nil {
			return rpmutils.SatisfactionReport{}, fmt.Errorf("%s: reading requires: %w", job.Name, err)
		}
		queriedProvides, err := c.Querier.Provides(ctx, job.RPM)
		if err != nil {
			return rpmutils.SatisfactionReport{}, fmt.Errorf("%s: reading provides: %w", job.Name, err)
		}
		requires = append(queriedRequires, requires...)
		provides = append(queriedProvides, provides...)
	}

	sources := make([]rpmutils.ProvidesSource, 0, len(job.Sources)+1)
	sources = append(sources, rpmutils.ListSource{Name: "package:" + job.Name, Entries: provides})
	sources = append(sources, job.Sources...)

	idx, err := rpmutils.BuildIndex(c.CaseSensitive, sources...)
	if err != nil {
		return rpmutils.SatisfactionReport{}, fmt.Errorf("%s: %w", job.Name, err)
	}
	return c.Rules.Check(requires, idx), nil
}
