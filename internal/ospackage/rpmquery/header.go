package rpmquery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	gorpm "github.com/sassoftware/go-rpmutils"

	"github.com/open-edge-platform/rpm-depcheck/internal/ospackage"
	"github.com/open-edge-platform/rpm-depcheck/internal/ospackage/rpmutils"
	"github.com/open-edge-platform/rpm-depcheck/internal/utils/logger"
)

// rpm header tags
const (
	tagProvideName    = 1047
	tagRequireFlags   = 1048
	tagRequireName    = 1049
	tagRequireVersion = 1050
	tagProvideFlags   = 1112
	tagProvideVersion = 1113
)

// rpm sense flags
const (
	senseLess    = 0x02
	senseGreater = 0x04
	senseEqual   = 0x08
	senseMask    = senseLess | senseGreater | senseEqual
)

// HeaderQuerier reads dependency tags straight from the package header.
// With KeyRing set the package signature is verified first.
type HeaderQuerier struct {
	KeyRing openpgp.EntityList
}

// LoadKeyRing reads an ASCII armored public key ring.
func LoadKeyRing(path string) (openpgp.EntityList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring %s: %w", path, err)
	}
	defer f.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read keyring %s: %w", path, err)
	}
	return keyring, nil
}

func (q *HeaderQuerier) readHeader(ctx context.Context, pkgRef string) (*gorpm.RpmHeader, error) {
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrQueryTimeout, pkgRef)
		}
		return nil, err
	}

	f, err := os.Open(pkgRef)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, pkgRef)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", pkgRef, err)
	}
	defer f.Close()

	return q.readHeaderFrom(f, pkgRef)
}

func (q *HeaderQuerier) readHeaderFrom(r io.Reader, pkgRef string) (*gorpm.RpmHeader, error) {
	if len(q.KeyRing) > 0 {
		hdr, sigs, err := gorpm.Verify(r, q.KeyRing)
		if err != nil {
			return nil, fmt.Errorf("signature verification of %s failed: %w", pkgRef, err)
		}
		logger.Logger().Debugf("%s: verified %d signature(s)", pkgRef, len(sigs))
		return hdr, nil
	}

	hdr, err := gorpm.ReadHeader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read rpm header of %s: %w", pkgRef, err)
	}
	return hdr, nil
}

func (q *HeaderQuerier) Provides(ctx context.Context, pkgRef string) ([]string, error) {
	hdr, err := q.readHeader(ctx, pkgRef)
	if err != nil {
		return nil, err
	}
	return dependencyList(hdr, tagProvideName, tagProvideFlags, tagProvideVersion)
}

func (q *HeaderQuerier) Requires(ctx context.Context, pkgRef string) ([]string, error) {
	hdr, err := q.readHeader(ctx, pkgRef)
	if err != nil {
		return nil, err
	}
	return dependencyList(hdr, tagRequireName, tagRequireFlags, tagRequireVersion)
}

func (q *HeaderQuerier) Info(ctx context.Context, pkgRef string) (ospackage.PackageInfo, error) {
	hdr, err := q.readHeader(ctx, pkgRef)
	if err != nil {
		return ospackage.PackageInfo{}, err
	}
	return packageInfo(hdr, pkgRef)
}

func packageInfo(hdr *gorpm.RpmHeader, pkgRef string) (ospackage.PackageInfo, error) {
	nevra, err := hdr.GetNEVRA()
	if err != nil {
		return ospackage.PackageInfo{}, fmt.Errorf("failed to read NEVRA of %s: %w", pkgRef, err)
	}
	provides, err := dependencyList(hdr, tagProvideName, tagProvideFlags, tagProvideVersion)
	if err != nil {
		return ospackage.PackageInfo{}, err
	}
	requires, err := dependencyList(hdr, tagRequireName, tagRequireFlags, tagRequireVersion)
	if err != nil {
		return ospackage.PackageInfo{}, err
	}

	epoch := nevra.Epoch
	if epoch == "0" {
		epoch = ""
	}
	return ospackage.PackageInfo{
		Name:     nevra.Name,
		Epoch:    epoch,
		Version:  nevra.Version,
		Release:  nevra.Release,
		Arch:     nevra.Arch,
		Path:     pkgRef,
		Provides: provides,
		Requires: requires,
	}, nil
}

// dependencyList rebuilds "name op evr" strings from the parallel name, flags
// and version arrays of a header. A package without the tag has no entries.
func dependencyList(hdr *gorpm.RpmHeader, nameTag, flagsTag, versionTag int) ([]string, error) {
	names, err := hdr.GetStrings(nameTag)
	if err != nil {
		return []string{}, nil
	}
	versions, err := hdr.GetStrings(versionTag)
	if err != nil {
		versions = nil
	}
	flags, err := hdr.GetInts(flagsTag)
	if err != nil {
		flags = nil
	}

	if versions != nil && len(versions) != len(names) {
		return nil, fmt.Errorf("header tag %d has %d versions for %d names", versionTag, len(versions), len(names))
	}

	deps := make([]string, 0, len(names))
	for i, name := range names {
		dep := rpmutils.Dependency{Name: name}
		if i < len(versions) && versions[i] != "" && i < len(flags) {
			if op := senseOperator(flags[i]); op != rpmutils.OpNone {
				dep.Operator = op
				dep.Version = versions[i]
			}
		}
		deps = append(deps, dep.String())
	}
	return deps, nil
}

func senseOperator(flags int) rpmutils.Operator {
	switch flags & senseMask {
	case senseEqual:
		return rpmutils.OpEQ
	case senseGreater | senseEqual:
		return rpmutils.OpGE
	case senseGreater:
		return rpmutils.OpGT
	case senseLess | senseEqual:
		return rpmutils.OpLE
	case senseLess:
		return rpmutils.OpLT
	default:
		return rpmutils.OpNone
	}
}
