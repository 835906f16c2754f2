package rpmutils_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/open-edge-platform/rpm-depcheck/internal/ospackage/checktest"
	"github.com/open-edge-platform/rpm-depcheck/internal/ospackage/rpmutils"
)

func TestCheck(t *testing.T) {
	checktest.RunCheckTestsFunc(
		t,
		"rpmutils",
		func(requires, provides []string) (rpmutils.SatisfactionReport, error) {
			return rpmutils.Check(requires, rpmutils.IndexFromList(false, provides)), nil
		},
	)
}

func TestCheckFirstMatchWins(t *testing.T) {
	idx, err := rpmutils.BuildIndex(false,
		rpmutils.ListSource{Name: "local", Entries: []string{"foo = 1.5"}},
		rpmutils.ListSource{Name: "system", Entries: []string{"foo = 3.0"}},
	)
	if err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}

	report := rpmutils.Check([]string{"foo >= 1.0"}, idx)
	if !report.Satisfied {
		t.Fatalf("expected requirement to be satisfied")
	}
	v := report.Details[0]
	if v.MatchedVersion != "1.5" || v.MatchedSource != "local" {
		t.Errorf("matched %q from %q, want 1.5 from local", v.MatchedVersion, v.MatchedSource)
	}
}

func TestCheckUnversionedRequirementMatchesVersionedProvide(t *testing.T) {
	report := rpmutils.Check([]string{"zlib"}, rpmutils.IndexFromList(false, []string{"zlib = 1.2.13-5"}))
	if !report.Satisfied {
		t.Fatal("unversioned requirement should accept any version")
	}
	if got := report.Details[0].MatchedVersion; got != "1.2.13-5" {
		t.Errorf("MatchedVersion = %q, want 1.2.13-5", got)
	}
}

func TestCheckUnversionedProvideRule(t *testing.T) {
	idx := rpmutils.IndexFromList(false, []string{"libfoo"})

	if r := rpmutils.Check([]string{"libfoo"}, idx); !r.Satisfied {
		t.Error("unversioned provide must satisfy an unversioned requirement")
	}
	for _, req := range []string{"libfoo = 1", "libfoo >= 0", "libfoo < 99"} {
		if r := rpmutils.Check([]string{req}, idx); r.Satisfied {
			t.Errorf("unversioned provide must not satisfy %q", req)
		}
	}
}

func TestCheckExclusions(t *testing.T) {
	requires := []string{
		"rpmlib(PayloadFilesHavePrefix) <= 4.0-1",
		"rpmlib(CompressedFileNames) <= 3.0.4-1",
		"/bin/sh",
		"/usr/bin/env",
		"needed",
	}
	// matching provides exist for the excluded names and must not matter
	provides := []string{"/bin/sh", "rpmlib(CompressedFileNames) = 3.0.4-1"}

	report := rpmutils.Check(requires, rpmutils.IndexFromList(false, provides))
	if report.Satisfied {
		t.Error("expected overall failure because of 'needed'")
	}
	if len(report.Details) != 1 || report.Details[0].Name != "needed" {
		t.Errorf("excluded requirements leaked into details: %+v", report.Details)
	}
	if len(report.Missing) != 1 || report.Missing[0] != "needed" {
		t.Errorf("Missing = %v, want [needed]", report.Missing)
	}
	if report.Excluded != 4 {
		t.Errorf("Excluded = %d, want 4", report.Excluded)
	}
}

func TestCheckerCustomExclusions(t *testing.T) {
	checker := rpmutils.Checker{ExcludePrefixes: []string{"rpmlib("}}
	report := checker.Check([]string{"/bin/sh"}, rpmutils.IndexFromList(false, nil))
	if report.Satisfied {
		t.Error("/bin/sh should be checked when only rpmlib( is excluded")
	}

	checker = rpmutils.Checker{ExcludePrefixes: []string{}}
	report = checker.Check([]string{"rpmlib(X)"}, rpmutils.IndexFromList(false, []string{"rpmlib(X)"}))
	if !report.Satisfied || len(report.Details) != 1 {
		t.Errorf("empty exclusion list should check everything: %+v", report)
	}
}

func TestCheckEmptyInputs(t *testing.T) {
	report := rpmutils.Check(nil, nil)
	if !report.Satisfied {
		t.Error("no requirements should be satisfied")
	}
	if report.Missing == nil || report.Details == nil {
		t.Error("Missing and Details should be empty, not nil")
	}

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"missing":[]`) {
		t.Errorf("expected empty missing list in JSON, got %s", data)
	}

	report = rpmutils.Check([]string{"   "}, rpmutils.IndexFromList(false, []string{"x"}))
	if report.Satisfied {
		t.Error("an empty requirement name must not be satisfied")
	}
}

func TestCheckUnknownOperator(t *testing.T) {
	report := rpmutils.Check([]string{"foo <> 1.0"}, rpmutils.IndexFromList(false, []string{"foo = 1.0", "foo = 2.0"}))
	if report.Satisfied {
		t.Error("unknown operator must never be satisfied")
	}
	if len(report.Details) != 1 || report.Details[0].Satisfied || report.Details[0].Operator != "<>" {
		t.Errorf("unexpected verdicts %+v", report.Details)
	}
}

func TestCheckIndependentIndexes(t *testing.T) {
	a := rpmutils.IndexFromList(false, []string{"liba = 1"})
	b := rpmutils.IndexFromList(false, []string{"libb = 1"})

	if r := rpmutils.Check([]string{"libb"}, a); r.Satisfied {
		t.Error("index a must not see provides of index b")
	}
	if r := rpmutils.Check([]string{"liba"}, b); r.Satisfied {
		t.Error("index b must not see provides of index a")
	}
}

func TestRenderReportText(t *testing.T) {
	report := rpmutils.Check(
		[]string{"foo >= 1", "bar", "rpmlib(X)"},
		rpmutils.IndexFromList(false, []string{"foo = 2"}),
	)

	var buf bytes.Buffer
	rpmutils.RenderReportText(&buf, "hello", report, true)
	out := buf.String()

	for _, want := range []string{
		"Dependency check: hello",
		"✓ foo >= 1 (matched 2 from list)",
		"✗ bar",
		"1 of 2 requirements missing (1 excluded)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	buf.Reset()
	rpmutils.RenderReportText(&buf, "", report, false)
	if strings.Contains(buf.String(), "✓") {
		t.Errorf("satisfied lines should be hidden when not verbose:\n%s", buf.String())
	}
}

func TestRenderReportJSON(t *testing.T) {
	report := rpmutils.Check([]string{"bar"}, rpmutils.IndexFromList(false, []string{"bar"}))

	var buf bytes.Buffer
	if err := rpmutils.RenderReportJSON(&buf, report); err != nil {
		t.Fatalf("RenderReportJSON failed: %v", err)
	}

	var decoded rpmutils.SatisfactionReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if !decoded.Satisfied || decoded.Details[0].MatchedVersion != rpmutils.AnyVersion {
		t.Errorf("unexpected decoded report: %+v", decoded)
	}
}
