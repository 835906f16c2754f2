package checktest

import (
	"reflect"
	"testing"

	"github.com/open-edge-platform/rpm-depcheck/internal/ospackage/rpmutils"
)

// CheckFunc is the shape both the in-memory checker and the package checker
// can be driven through.
type CheckFunc func(requires, provides []string) (rpmutils.SatisfactionReport, error)

var TestCases = []struct {
	Name          string
	Requires      []string
	Provides      []string
	WantSatisfied bool
	WantMissing   []string
	// WantMatched maps raw requirement -> expected matched_version
	WantMatched map[string]string
	WantDetails int
}{
	{
		Name:          "VersionedNewerProvide",
		Requires:      []string{"foo >= 1.2.0-1"},
		Provides:      []string{"foo = 1.3.0-1"},
		WantSatisfied: true,
		WantMissing:   []string{},
		WantMatched:   map[string]string{"foo >= 1.2.0-1": "1.3.0-1"},
		WantDetails:   1,
	},
	{
		Name:          "EpochWins",
		Requires:      []string{"foo >= 2:1.0-1"},
		Provides:      []string{"foo = 1.0-1"},
		WantSatisfied: false,
		WantMissing:   []string{"foo >= 2:1.0-1"},
		WantDetails:   1,
	},
	{
		Name:          "Unversioned",
		Requires:      []string{"bar"},
		Provides:      []string{"bar"},
		WantSatisfied: true,
		WantMissing:   []string{},
		WantMatched:   map[string]string{"bar": rpmutils.AnyVersion},
		WantDetails:   1,
	},
	{
		Name:          "RpmlibExcluded",
		Requires:      []string{"rpmlib(CompressedFileNames) <= 3.0.4-1"},
		Provides:      []string{},
		WantSatisfied: true,
		WantMissing:   []string{},
		WantDetails:   0,
	},
	{
		Name:          "SecondCandidateMatches",
		Requires:      []string{"baz = 1.0-1"},
		Provides:      []string{"baz = 0.9-1", "baz = 1.0-1"},
		WantSatisfied: true,
		WantMissing:   []string{},
		WantMatched:   map[string]string{"baz = 1.0-1": "1.0-1"},
		WantDetails:   1,
	},
	{
		Name:          "UnversionedProvideVersionedRequire",
		Requires:      []string{"libfoo >= 1.0"},
		Provides:      []string{"libfoo"},
		WantSatisfied: false,
		WantMissing:   []string{"libfoo >= 1.0"},
		WantDetails:   1,
	},
	{
		Name:          "FileDependencyExcluded",
		Requires:      []string{"/bin/sh", "/usr/bin/python3"},
		Provides:      []string{},
		WantSatisfied: true,
		WantMissing:   []string{},
		WantDetails:   0,
	},
	{
		Name:          "CaseFolded",
		Requires:      []string{"Perl(Getopt::Long)"},
		Provides:      []string{"perl(getopt::long) = 2.52"},
		WantSatisfied: true,
		WantMissing:   []string{},
		WantMatched:   map[string]string{"Perl(Getopt::Long)": "2.52"},
		WantDetails:   1,
	},
	{
		Name:          "MissingKeepsRequirementOrder",
		Requires:      []string{"zeta", "alpha >= 2", "present", "mid < 1"},
		Provides:      []string{"present", "alpha = 1", "mid = 1"},
		WantSatisfied: false,
		WantMissing:   []string{"zeta", "alpha >= 2", "mid < 1"},
		WantDetails:   4,
	},
	{
		Name:          "TildePrerelease",
		Requires:      []string{"python3 >= 3.12.0"},
		Provides:      []string{"python3 = 3.12.0~rc1-1"},
		WantSatisfied: false,
		WantMissing:   []string{"python3 >= 3.12.0"},
		WantDetails:   1,
	},
}

// RunCheckTestsFunc drives a check function through the shared table.
func RunCheckTestsFunc(t *testing.T, prefix string, checkFunc CheckFunc) {
	t.Helper()
	for _, tc := range TestCases {
		t.Run(prefix+"/"+tc.Name, func(t *testing.T) {
			report, err := checkFunc(tc.Requires, tc.Provides)
			if err != nil {
				t.Fatalf("check failed: %v", err)
			}

			if report.Satisfied != tc.WantSatisfied {
				t.Errorf("Satisfied = %v, want %v", report.Satisfied, tc.WantSatisfied)
			}
			if report.Satisfied != (len(report.Missing) == 0) {
				t.Errorf("Satisfied = %v but Missing = %v", report.Satisfied, report.Missing)
			}
			if !reflect.DeepEqual(report.Missing, tc.WantMissing) {
				t.Errorf("Missing = %v, want %v", report.Missing, tc.WantMissing)
			}
			if len(report.Details) != tc.WantDetails {
				t.Errorf("len(Details) = %d, want %d", len(report.Details), tc.WantDetails)
			}

			for _, v := range report.Details {
				want, ok := tc.WantMatched[v.Requirement]
				if !ok {
					continue
				}
				if v.MatchedVersion != want {
					t.Errorf("%q matched %q, want %q", v.Requirement, v.MatchedVersion, want)
				}
			}
		})
	}
}
