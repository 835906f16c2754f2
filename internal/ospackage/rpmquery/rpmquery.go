package rpmquery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/open-edge-platform/rpm-depcheck/internal/config/validate"
	"github.com/open-edge-platform/rpm-depcheck/internal/ospackage"
	"github.com/open-edge-platform/rpm-depcheck/internal/utils/general/slice"
)

var (
	// ErrPackageNotFound means the package file or installed package does not exist.
	ErrPackageNotFound = errors.New("package not found")
	// ErrQueryTimeout means the query did not finish within its deadline.
	ErrQueryTimeout = errors.New("package query timed out")
	// ErrToolMissing means the rpm binary is not installed.
	ErrToolMissing = errors.New("rpm tool not available")
)

// Querier reads the declared provides and requires of a package.
// pkgRef is a path to an .rpm file.
type Querier interface {
	Provides(ctx context.Context, pkgRef string) ([]string, error)
	Requires(ctx context.Context, pkgRef string) ([]string, error)
	Info(ctx context.Context, pkgRef string) (ospackage.PackageInfo, error)
}

// SanitizeOutput splits rpm output into trimmed, non-empty lines.
func SanitizeOutput(rawResults string) []string {
	lines := strings.Split(strings.TrimSpace(rawResults), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return slice.Filter(lines, func(line string) bool { return line != "" })
}

// GetRpmArch converts a GOARCH value into the rpm architecture name.
func GetRpmArch(goArch string) (string, error) {
	switch goArch {
	case "amd64":
		return "x86_64", nil
	case "arm64":
		return "aarch64", nil
	default:
		return "", fmt.Errorf("unknown GOARCH detected (%s)", goArch)
	}
}

// HostRpmArch is GetRpmArch for the running binary.
func HostRpmArch() (string, error) {
	return GetRpmArch(runtime.GOARCH)
}

// PackageSpec identifies a package produced by the build orchestrator.
type PackageSpec struct {
	Package  string `yaml:"package" json:"package"`
	Version  string `yaml:"version" json:"version"`
	Revision string `yaml:"revision" json:"revision"`
	Hash     string `yaml:"hash" json:"hash"`
	Arch     string `yaml:"arch,omitempty" json:"arch,omitempty"`
}

// FileName renders <package>_<version>_<revision>_<hash>-1-1.<arch>.rpm.
func (p PackageSpec) FileName() string {
	return fmt.Sprintf("%s_%s_%s_%s-1-1.%s.rpm", p.Package, p.Version, p.Revision, p.Hash, p.Arch)
}

// Path places FileName under <workDir>/rpmbuild/RPMS/<arch>.
func (p PackageSpec) Path(workDir string) string {
	return filepath.Join(workDir, "rpmbuild", "RPMS", p.Arch, p.FileName())
}

// LoadPackageSpec reads a YAML package identification file.
func LoadPackageSpec(path string) (PackageSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PackageSpec{}, fmt.Errorf("reading package spec %s: %w", path, err)
	}
	spec, err := ParsePackageSpec(data)
	if err != nil {
		return PackageSpec{}, fmt.Errorf("package spec %s: %w", path, err)
	}
	return spec, nil
}

// ParsePackageSpec validates and decodes a package identification document.
func ParsePackageSpec(data []byte) (PackageSpec, error) {
	if err := validate.ValidatePackageSpecYAML(data); err != nil {
		return PackageSpec{}, err
	}
	var spec PackageSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return PackageSpec{}, fmt.Errorf("parsing YAML: %w", err)
	}
	return spec, nil
}
