package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/open-edge-platform/rpm-depcheck/internal/config"
	"github.com/open-edge-platform/rpm-depcheck/internal/ospackage/rpmutils"
	"github.com/open-edge-platform/rpm-depcheck/internal/utils/logger"
)

func createCheckCommand() *cobra.Command {
	opts := &checkOptions{}
	var pkgName string

	cmd := &cobra.Command{
		Use:   "check [flags] REQUIRES_FILE PROVIDES_FILE...",
		Short: "Checks a requires list against provides lists",
		Long: `Check reads the requirements from REQUIRES_FILE and checks them against the
provides in every PROVIDES_FILE, followed by the dependency roots and the
system baseline. Files hold a JSON list of strings or an object mapping
package names to lists, optionally compressed with gzip, zstd or xz.

Requirements on rpmlib() and on file paths are not checked.
The exit status is 1 when any requirement is missing.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeCheck(cmd, opts, pkgName, args[0], args[1:])
		},
	}

	opts.addFlags(cmd.Flags())
	cmd.Flags().StringVar(&pkgName, "package", "",
		"Package key to read from keyed requires/provides files")
	return cmd
}

func executeCheck(cmd *cobra.Command, opts *checkOptions, pkgName, requiresFile string, providesFiles []string) error {
	log := logger.Logger()
	cfg := config.Global()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := opts.validateFormat(); err != nil {
		return err
	}

	requires, err := rpmutils.LoadDependencyList(requiresFile, pkgName)
	if err != nil {
		return err
	}

	var sources []rpmutils.ProvidesSource
	for _, f := range providesFiles {
		sources = append(sources, rpmutils.FileSource{Path: f, Package: pkgName})
	}
	sources = append(sources, opts.dependencySources()...)
	system, err := opts.systemSources(ctx, cfg)
	if err != nil {
		return err
	}
	sources = append(sources, system...)

	idx, err := rpmutils.BuildIndex(opts.resolveCaseSensitive(cmd, cfg), sources...)
	if err != nil {
		return err
	}
	for _, s := range idx.Sources() {
		if s.Missing {
			log.Debugf("provides source %s does not exist, skipped", s.ID)
		}
	}

	title := pkgName
	if title == "" {
		title = filepath.Base(requiresFile)
	}
	report := opts.checker(cmd, cfg).Rules.Check(requires, idx)
	return finishReport(cmd, opts, title, report)
}

func createCheckPackageCommand() *cobra.Command {
	opts := &checkOptions{}
	var backend, specFile string

	cmd := &cobra.Command{
		Use:   "check-package [flags] [RPM_FILE]",
		Short: "Checks the requirements of a built RPM",
		Long: `Check-package reads the requires and provides of RPM_FILE and checks the
requirements against the package's own provides, the dependency roots and
the system baseline. With --package-spec the RPM is looked up in
<work_dir>/rpmbuild/RPMS/<arch>/ instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rpmFile := ""
			if len(args) == 1 {
				rpmFile = args[0]
			}
			return executeCheckPackage(cmd, opts, backend, specFile, rpmFile)
		},
	}

	opts.addFlags(cmd.Flags())
	cmd.Flags().StringVar(&backend, "backend", "",
		"Package query backend: header or rpm (default from depcheck.backend)")
	cmd.Flags().StringVar(&specFile, "package-spec", "",
		"YAML file naming package, version, revision, hash and optionally arch of a built RPM")
	return cmd
}

func executeCheckPackage(cmd *cobra.Command, opts *checkOptions, backend, specFile, rpmFile string) error {
	cfg := config.Global()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := opts.validateFormat(); err != nil {
		return err
	}
	switch {
	case specFile != "" && rpmFile != "":
		return fmt.Errorf("RPM_FILE and --package-spec are mutually exclusive")
	case specFile != "":
		path, err := packageSpecPath(cfg, specFile)
		if err != nil {
			return err
		}
		logger.Logger().Debugf("package spec %s resolves to %s", specFile, path)
		rpmFile = path
	case rpmFile == "":
		return fmt.Errorf("either RPM_FILE or --package-spec is required")
	}

	querier, err := newQuerier(backend, cfg)
	if err != nil {
		return err
	}
	system, err := opts.systemSources(ctx, cfg)
	if err != nil {
		return err
	}
	sources := append(opts.dependencySources(), system...)

	checker := opts.checker(cmd, cfg)
	checker.Querier = querier
	report, err := checker.CheckPackage(ctx, rpmFile, sources...)
	if err != nil {
		return err
	}
	return finishReport(cmd, opts, filepath.Base(rpmFile), report)
}

// finishReport renders report, writes the missing report if asked and maps
// an unsatisfied report to errUnsatisfied.
func finishReport(cmd *cobra.Command, opts *checkOptions, title string, report rpmutils.SatisfactionReport) error {
	out := cmd.OutOrStdout()
	switch opts.format {
	case "json":
		if err := rpmutils.RenderReportJSON(out, report); err != nil {
			return err
		}
	default:
		rpmutils.RenderReportText(out, title, report, verbose)
	}

	if report.Satisfied {
		return nil
	}
	if opts.report != "" {
		if err := writeMissing(opts.report, uuid.NewString(), report.Missing); err != nil {
			return err
		}
	}
	return fmt.Errorf("%s: %w", title, errUnsatisfied)
}
