package rpmquery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/open-edge-platform/rpm-depcheck/internal/ospackage"
	"github.com/open-edge-platform/rpm-depcheck/internal/utils/logger"
	"github.com/open-edge-platform/rpm-depcheck/internal/utils/shell"
)

// DefaultQueryTimeout bounds a single rpm invocation.
const DefaultQueryTimeout = 30 * time.Second

const infoQueryFormat = `%{NAME}\n%{EPOCH}\n%{VERSION}\n%{RELEASE}\n%{ARCH}\n`

// CommandQuerier shells out to rpm through shell.Default.
type CommandQuerier struct {
	Timeout time.Duration
}

func (q *CommandQuerier) timeout() time.Duration {
	if q.Timeout > 0 {
		return q.Timeout
	}
	return DefaultQueryTimeout
}

func (q *CommandQuerier) run(ctx context.Context, subject, cmdStr string) (string, error) {
	if !shell.IsCommandExist("rpm") {
		return "", ErrToolMissing
	}

	ctx, cancel := context.WithTimeout(ctx, q.timeout())
	defer cancel()

	output, err := shell.Default.ExecCmd(ctx, cmdStr, nil)
	switch {
	case err == nil:
		return output, nil
	case errors.Is(err, shell.ErrCommandTimeout):
		return "", fmt.Errorf("%w after %s: %s", ErrQueryTimeout, q.timeout(), subject)
	case isNotFound(err):
		return "", fmt.Errorf("%w: %s", ErrPackageNotFound, subject)
	default:
		return "", fmt.Errorf("rpm query for %s failed: %w", subject, err)
	}
}

func isNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "is not installed") ||
		strings.Contains(msg, "no package provides") ||
		strings.Contains(msg, "No such file or directory")
}

func (q *CommandQuerier) queryFile(ctx context.Context, pkgRef, queryType string) ([]string, error) {
	if _, err := os.Stat(pkgRef); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, pkgRef)
	}

	output, err := q.run(ctx, pkgRef, fmt.Sprintf("rpm -qp %s %s", queryType, shell.Quote(pkgRef)))
	if err != nil {
		return nil, err
	}
	return SanitizeOutput(output), nil
}

func (q *CommandQuerier) Provides(ctx context.Context, pkgRef string) ([]string, error) {
	return q.queryFile(ctx, pkgRef, "--provides")
}

func (q *CommandQuerier) Requires(ctx context.Context, pkgRef string) ([]string, error) {
	return q.queryFile(ctx, pkgRef, "--requires")
}

func (q *CommandQuerier) Info(ctx context.Context, pkgRef string) (ospackage.PackageInfo, error) {
	lines, err := q.queryFile(ctx, pkgRef, "--queryformat "+shell.Quote(infoQueryFormat))
	if err != nil {
		return ospackage.PackageInfo{}, err
	}
	if len(lines) < 4 {
		return ospackage.PackageInfo{}, fmt.Errorf("unexpected rpm query output for %s: %q", pkgRef, lines)
	}

	info := ospackage.PackageInfo{
		Name:    lines[0],
		Epoch:   lines[1],
		Version: lines[2],
		Release: lines[3],
		Path:    pkgRef,
	}
	if len(lines) > 4 {
		info.Arch = lines[4]
	}
	if info.Epoch == "(none)" || info.Epoch == "0" {
		info.Epoch = ""
	}

	if info.Provides, err = q.Provides(ctx, pkgRef); err != nil {
		return ospackage.PackageInfo{}, err
	}
	if info.Requires, err = q.Requires(ctx, pkgRef); err != nil {
		return ospackage.PackageInfo{}, err
	}
	return info, nil
}

// InstalledProvides resolves a platform seed against the host rpm database.
// The seed is looked up through the installed package providing it, so file
// paths, capabilities such as libc.so.6()(64bit) and package names all work.
func (q *CommandQuerier) InstalledProvides(ctx context.Context, seed string) ([]string, error) {
	cmdStr := fmt.Sprintf("rpm -q --whatprovides %s --provides", shell.Quote(seed))

	output, err := q.run(ctx, seed, cmdStr)
	if err != nil {
		return nil, err
	}
	provides := SanitizeOutput(output)
	logger.Logger().Debugf("seed %s resolved to %d provides", seed, len(provides))
	return provides, nil
}
