package pkgchecker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/open-edge-platform/rpm-depcheck/internal/ospackage"
	"github.com/open-edge-platform/rpm-depcheck/internal/ospackage/checktest"
	"github.com/open-edge-platform/rpm-depcheck/internal/ospackage/rpmquery"
	"github.com/open-edge-platform/rpm-depcheck/internal/ospackage/rpmutils"
)

// fakeQuerier serves provides and requires keyed by package path.
type fakeQuerier struct {
	requires map[string][]string
	provides map[string][]string
}

func (f *fakeQuerier) Requires(_ context.Context, pkgRef string) ([]string, error) {
	r, ok := f.requires[pkgRef]
	if !ok {
		return nil, fmt.Errorf("%w: %s", rpmquery.ErrPackageNotFound, pkgRef)
	}
	return r, nil
}

func (f *fakeQuerier) Provides(_ context.Context, pkgRef string) ([]string, error) {
	p, ok := f.provides[pkgRef]
	if !ok {
		return nil, fmt.Errorf("%w: %s", rpmquery.ErrPackageNotFound, pkgRef)
	}
	return p, nil
}

func (f *fakeQuerier) Info(_ context.Context, pkgRef string) (ospackage.PackageInfo, error) {
	return ospackage.PackageInfo{Path: pkgRef, Requires: f.requires[pkgRef], Provides: f.provides[pkgRef]}, nil
}

func TestCheckJobSharedCases(t *testing.T) {
	c := &Checker{}
	checktest.RunCheckTestsFunc(t, "dep-source", func(requires, provides []string) (rpmutils.SatisfactionReport, error) {
		return c.CheckJob(context.Background(), Job{
			Name:     "pkg",
			Requires: requires,
			Sources:  []rpmutils.ProvidesSource{rpmutils.ListSource{Name: "deps", Entries: provides}},
		})
	})

	q := &fakeQuerier{requires: map[string][]string{}, provides: map[string][]string{}}
	c = &Checker{Querier: q}
	checktest.RunCheckTestsFunc(t, "rpm-file", func(requires, provides []string) (rpmutils.SatisfactionReport, error) {
		q.requires["hello.rpm"] = requires
		q.provides["hello.rpm"] = provides
		return c.CheckPackage(context.Background(), "hello.rpm")
	})
}

func TestCheckPackagePriority(t *testing.T) {
	q := &fakeQuerier{
		requires: map[string][]string{"/rpms/app.rpm": {"libcore >= 1.0", "bash", "rpmlib(PayloadIsZstd) <= 5.4.18-1"}},
		provides: map[string][]string{"/rpms/app.rpm": {"app = 2.0-1"}},
	}
	c := &Checker{Querier: q}

	report, err := c.CheckPackage(context.Background(), "/rpms/app.rpm",
		rpmutils.ListSource{Name: "dep:core", Entries: []string{"libcore = 1.2-1"}},
		rpmutils.RootSource{Name: "root:missing", Root: filepath.Join(t.TempDir(), "absent")},
		rpmutils.ListSource{Name: "system", Entries: []string{"libcore = 1.0-1", "bash"}},
	)
	if err != nil {
		t.Fatalf("CheckPackage failed: %v", err)
	}
	if !report.Satisfied || report.Excluded != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if got := report.Details[0]; got.MatchedVersion != "1.2-1" || got.MatchedSource != "dep:core" {
		t.Errorf("dependency source should win over system, got %+v", got)
	}
}

func TestCheckPackageErrors(t *testing.T) {
	c := &Checker{Querier: &fakeQuerier{}}
	if _, err := c.CheckPackage(context.Background(), "absent.rpm"); !errors.Is(err, rpmquery.ErrPackageNotFound) {
		t.Errorf("expected ErrPackageNotFound, got %v", err)
	}

	if _, err := (&Checker{}).CheckPackage(context.Background(), "any.rpm"); err == nil {
		t.Error("expected an error without a querier")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := (&Checker{}).CheckJob(context.Background(), Job{
		Name:     "x",
		Requires: []string{"a"},
		Sources:  []rpmutils.ProvidesSource{rpmutils.FileSource{Path: bad}},
	})
	if err == nil || !strings.Contains(err.Error(), "x:") {
		t.Errorf("expected a load error naming the job, got %v", err)
	}
}

func TestCheckJobCaseSensitive(t *testing.T) {
	job := Job{
		Name:     "pkg",
		Requires: []string{"Foo"},
		Provides: []string{"foo"},
	}
	folded, _ := (&Checker{}).CheckJob(context.Background(), job)
	exact, _ := (&Checker{CaseSensitive: true}).CheckJob(context.Background(), job)
	if !folded.Satisfied || exact.Satisfied {
		t.Errorf("folded=%v exact=%v", folded.Satisfied, exact.Satisfied)
	}
}
