package sysprovides

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/open-edge-platform/rpm-depcheck/internal/ospackage/rpmquery"
	"github.com/open-edge-platform/rpm-depcheck/internal/utils/logger"
	"github.com/open-edge-platform/rpm-depcheck/internal/utils/shell"
)

// ErrNoSystemProvides means no prebuilt system-provides package exists and
// none could be built from the bits path.
var ErrNoSystemProvides = errors.New("no system-provides package available")

const (
	SpecFileName = "system-provides.spec"
	RPMFileName  = "system-provides.rpm"

	DefaultBuildTimeout = 300 * time.Second
)

// Options locates and builds the system-provides package.
type Options struct {
	WorkDir      string
	ConfigDir    string
	BitsPath     []string
	Arch         string
	BuildTimeout time.Duration
}

func (o Options) rpmsDir() string {
	return filepath.Join(o.WorkDir, "rpmbuild", "RPMS", o.Arch)
}

// LocateSpec returns the first <configDir>/<entry>.bits/system-provides.spec
// that exists.
func LocateSpec(configDir string, bitsEntries []string) (string, bool) {
	for _, entry := range bitsEntries {
		path := filepath.Join(configDir, entry+".bits", SpecFileName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// FindBuiltRPM looks for system-provides.rpm, then any system-provides-*.rpm,
// under <workDir>/rpmbuild/RPMS/<arch>.
func FindBuiltRPM(workDir, arch string) (string, bool) {
	dir := Options{WorkDir: workDir, Arch: arch}.rpmsDir()
	exact := filepath.Join(dir, RPMFileName)
	if _, err := os.Stat(exact); err == nil {
		return exact, true
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "system-provides-*.rpm"))
	if len(matches) == 0 {
		return "", false
	}
	sort.Strings(matches)
	return matches[0], true
}

// BuildRPM copies specPath into the rpmbuild tree and runs rpmbuild -bb on it.
func BuildRPM(ctx context.Context, opts Options, specPath string) (string, error) {
	log := logger.Logger()

	topDir := filepath.Join(opts.WorkDir, "rpmbuild")
	specsDir := filepath.Join(topDir, "SPECS")
	if err := os.MkdirAll(specsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", specsDir, err)
	}
	dest := filepath.Join(specsDir, SpecFileName)
	if err := copyFile(specPath, dest); err != nil {
		return "", fmt.Errorf("failed to copy spec file: %w", err)
	}

	if !shell.IsCommandExist("rpmbuild") {
		return "", fmt.Errorf("rpmbuild command not found, is rpm-build installed?")
	}

	timeout := opts.BuildTimeout
	if timeout <= 0 {
		timeout = DefaultBuildTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmdStr := fmt.Sprintf("rpmbuild -bb --define %s --define %s %s",
		shell.Quote("_topdir "+topDir), shell.Quote("_buildarch "+opts.Arch), shell.Quote(dest))
	log.Infof("building system-provides package from %s", specPath)
	if _, err := shell.Default.ExecCmdWithStream(ctx, cmdStr, nil); err != nil {
		if errors.Is(err, shell.ErrCommandTimeout) {
			return "", fmt.Errorf("rpmbuild timed out after %s: %w", timeout, err)
		}
		return "", fmt.Errorf("rpmbuild failed: %w", err)
	}

	rpm, ok := FindBuiltRPM(opts.WorkDir, opts.Arch)
	if !ok {
		return "", fmt.Errorf("rpmbuild succeeded but no system-provides RPM found in %s", opts.rpmsDir())
	}
	return rpm, nil
}

// SystemProvides returns the provides of the system-provides package,
// reusing a prebuilt one or building it from the first spec on the bits path.
// A spec that fails to build is skipped in favour of the next bits entry.
func SystemProvides(ctx context.Context, opts Options, querier rpmquery.Querier) ([]string, string, error) {
	log := logger.Logger()

	if rpm, ok := FindBuiltRPM(opts.WorkDir, opts.Arch); ok {
		log.Infof("found existing system-provides RPM: %s", rpm)
		provides, err := querier.Provides(ctx, rpm)
		return provides, rpm, err
	}

	for i, entry := range opts.BitsPath {
		specPath, ok := LocateSpec(opts.ConfigDir, opts.BitsPath[i:i+1])
		if !ok {
			log.Debugf("no %s in %s.bits", SpecFileName, entry)
			continue
		}
		rpm, err := BuildRPM(ctx, opts, specPath)
		if err != nil {
			log.Warnf("building %s: %v", specPath, err)
			continue
		}
		provides, err := querier.Provides(ctx, rpm)
		return provides, rpm, err
	}
	return nil, "", ErrNoSystemProvides
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
