package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/open-edge-platform/rpm-depcheck/internal/config"
	"github.com/open-edge-platform/rpm-depcheck/internal/ospackage/rpmquery"
	"github.com/open-edge-platform/rpm-depcheck/internal/ospackage/rpmutils"
	"github.com/open-edge-platform/rpm-depcheck/internal/ospackage/sysprovides"
	"github.com/open-edge-platform/rpm-depcheck/internal/pkgchecker"
	"github.com/open-edge-platform/rpm-depcheck/internal/utils/logger"
	"github.com/open-edge-platform/rpm-depcheck/internal/utils/system"
)

// newQuerier builds the package querier for a backend. Tests replace it.
var newQuerier = func(backend string, cfg *config.GlobalConfig) (rpmquery.Querier, error) {
	helpers := config.NewConfigHelpers(cfg)
	if backend == "" {
		backend = cfg.DepCheck.Backend
	}
	switch backend {
	case "", config.BackendHeader:
		q := &rpmquery.HeaderQuerier{}
		if cfg.DepCheck.Keyring != "" {
			keyring, err := rpmquery.LoadKeyRing(cfg.DepCheck.Keyring)
			if err != nil {
				return nil, err
			}
			q.KeyRing = keyring
		}
		return q, nil
	case config.BackendRPM:
		return &rpmquery.CommandQuerier{Timeout: helpers.QueryTimeout()}, nil
	default:
		return nil, fmt.Errorf("invalid --backend %q (expected %s or %s)", backend, config.BackendHeader, config.BackendRPM)
	}
}

// newSeedQuerier resolves platform seeds on the host. Tests replace it.
var newSeedQuerier = func(cfg *config.GlobalConfig) sysprovides.SeedQuerier {
	return &rpmquery.CommandQuerier{Timeout: config.NewConfigHelpers(cfg).QueryTimeout()}
}

// checkOptions are the flags shared by the check commands.
type checkOptions struct {
	depRoots      []string
	systemFiles   []string
	seedFile      string
	systemPackage bool
	caseSensitive bool
	format        string
	report        string
}

func (o *checkOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringArrayVar(&o.depRoots, "dep-root", nil,
		"Dependency installation root publishing etc/rpm/provides.json (repeatable)")
	fs.StringArrayVar(&o.systemFiles, "system", nil,
		"File listing system provides, optionally compressed (repeatable)")
	fs.StringVar(&o.seedFile, "seed", "",
		"Seed description resolved against the host rpm database")
	fs.BoolVar(&o.systemPackage, "system-package", false,
		"Add the provides of the system-provides RPM, building it from BITS_PATH if needed")
	fs.BoolVar(&o.caseSensitive, "case-sensitive", false,
		"Match capability names exactly (default from depcheck.case_sensitive)")
	fs.StringVar(&o.format, "format", "text", "Output format: text or json")
	fs.StringVar(&o.report, "report", "",
		"Append missing requirements to <report_dir>/missing-<REPORT>.txt")
}

// resolveCaseSensitive lets an explicit flag override the configuration.
func (o *checkOptions) resolveCaseSensitive(cmd *cobra.Command, cfg *config.GlobalConfig) bool {
	if f := cmd.Flags().Lookup("case-sensitive"); f != nil && f.Changed {
		return o.caseSensitive
	}
	return config.NewConfigHelpers(cfg).CaseSensitive()
}

func (o *checkOptions) checker(cmd *cobra.Command, cfg *config.GlobalConfig) *pkgchecker.Checker {
	return &pkgchecker.Checker{
		Rules:         rpmutils.Checker{ExcludePrefixes: config.NewConfigHelpers(cfg).ExcludePrefixes()},
		CaseSensitive: o.resolveCaseSensitive(cmd, cfg),
	}
}

func (o *checkOptions) validateFormat() error {
	switch strings.ToLower(o.format) {
	case "text", "json":
		o.format = strings.ToLower(o.format)
		return nil
	default:
		return fmt.Errorf("invalid --format %q (expected text or json)", o.format)
	}
}

// dependencySources returns one RootSource per --dep-root.
func (o *checkOptions) dependencySources() []rpmutils.ProvidesSource {
	sources := make([]rpmutils.ProvidesSource, 0, len(o.depRoots))
	for _, root := range o.depRoots {
		sources = append(sources, rpmutils.RootSource{Root: root})
	}
	return sources
}

// systemSources returns the system baseline: --system files, the resolved
// seed, then the system-provides package.
func (o *checkOptions) systemSources(ctx context.Context, cfg *config.GlobalConfig) ([]rpmutils.ProvidesSource, error) {
	sources := make([]rpmutils.ProvidesSource, 0, len(o.systemFiles)+2)
	for _, f := range o.systemFiles {
		sources = append(sources, rpmutils.FileSource{Path: f})
	}

	if o.seedFile != "" {
		src, err := seedSource(ctx, cfg, o.seedFile)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	if o.systemPackage {
		src, err := systemPackageSource(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if src != nil {
			sources = append(sources, src)
		}
	}
	return sources, nil
}

func seedSource(ctx context.Context, cfg *config.GlobalConfig, path string) (rpmutils.ProvidesSource, error) {
	seed, err := sysprovides.LoadSeed(path)
	if err != nil {
		return nil, err
	}
	system.CheckRpmHost()
	res, err := sysprovides.NewResolver(newSeedQuerier(cfg)).Resolve(ctx, seed, "")
	if err != nil {
		return nil, err
	}
	return rpmutils.ListSource{Name: "seed:" + path, Entries: res.Provides}, nil
}

// systemPackageSource returns nil when no system-provides package is
// available; that is not an error.
func systemPackageSource(ctx context.Context, cfg *config.GlobalConfig) (rpmutils.ProvidesSource, error) {
	provides, rpm, err := systemProvides(ctx, cfg)
	if errors.Is(err, sysprovides.ErrNoSystemProvides) {
		logger.Logger().Warnf("no system-provides package found, continuing without it")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rpmutils.ListSource{Name: "system:" + rpm, Entries: provides}, nil
}

// hostArch returns the rpm architecture of the host, falling back to the
// architecture the tool was built for.
func hostArch() (string, error) {
	arch, err := system.GetHostArch()
	if err == nil {
		return arch, nil
	}
	logger.Logger().Debugf("%v, falling back to the build architecture", err)
	return rpmquery.HostRpmArch()
}

// packageSpecPath resolves a package spec file to the rpm built for it in the
// work directory. A spec without arch uses the host architecture.
func packageSpecPath(cfg *config.GlobalConfig, specFile string) (string, error) {
	spec, err := rpmquery.LoadPackageSpec(specFile)
	if err != nil {
		return "", err
	}
	if spec.Arch == "" {
		if spec.Arch, err = hostArch(); err != nil {
			return "", err
		}
	}
	workDir, err := config.NewConfigHelpers(cfg).WorkDir()
	if err != nil {
		return "", err
	}
	return spec.Path(workDir), nil
}

func systemProvides(ctx context.Context, cfg *config.GlobalConfig) ([]string, string, error) {
	helpers := config.NewConfigHelpers(cfg)
	arch, err := hostArch()
	if err != nil {
		return nil, "", err
	}
	workDir, err := helpers.CreateWorkDir()
	if err != nil {
		return nil, "", err
	}
	configDir, err := helpers.ConfigDir()
	if err != nil {
		return nil, "", err
	}
	querier, err := newQuerier("", cfg)
	if err != nil {
		return nil, "", err
	}

	opts := sysprovides.Options{
		WorkDir:      workDir,
		ConfigDir:    configDir,
		BitsPath:     helpers.BitsPathEntries(),
		Arch:         arch,
		BuildTimeout: helpers.BuildTimeout(),
	}
	return sysprovides.SystemProvides(ctx, opts, querier)
}

// writeMissing appends the missing requirements of report to a report file.
func writeMissing(title, runID string, missing []string) error {
	report := logger.NewMissingReport(title, runID)
	report.Add(missing...)
	path, err := report.WriteToFile()
	if err != nil {
		return fmt.Errorf("writing missing report: %w", err)
	}
	logger.Logger().Infof("missing requirements written to %s", path)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	return enc.Close()
}

// writeOutputFile writes to path, or to w when path is empty or "-".
func writeOutputFile(w io.Writer, path string, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(w)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
