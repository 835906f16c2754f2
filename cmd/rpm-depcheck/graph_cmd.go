package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/open-edge-platform/rpm-depcheck/internal/config"
	"github.com/open-edge-platform/rpm-depcheck/internal/ospackage/rpmutils"
	"github.com/open-edge-platform/rpm-depcheck/internal/pkgchecker"
	"github.com/open-edge-platform/rpm-depcheck/internal/utils/logger"
)

type graphFlags struct {
	workers  int
	dotFile  string
	backend  string
	metrics  string
	progress bool
}

func createCheckGraphCommand() *cobra.Command {
	opts := &checkOptions{}
	flags := &graphFlags{}

	cmd := &cobra.Command{
		Use:   "check-graph [flags] GRAPH_FILE",
		Short: "Checks every package of a build graph",
		Long: `Check-graph loads a YAML build graph and checks each package against its
own provides, the provides of its transitive dependencies and the system
baseline. Packages are checked in parallel, each with its own index.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeCheckGraph(cmd, opts, flags, args[0])
		},
	}

	opts.addFlags(cmd.Flags())
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "Number of parallel checks (default from config)")
	cmd.Flags().StringVar(&flags.dotFile, "dot", "", "Write the dependency graph in DOT format to this file")
	cmd.Flags().StringVar(&flags.backend, "backend", "",
		"Query backend for packages with an rpm file: header or rpm")
	cmd.Flags().StringVar(&flags.metrics, "metrics", "",
		"Write run metrics in Prometheus text format to this file")
	cmd.Flags().BoolVar(&flags.progress, "progress", true, "Show a progress bar on stderr")
	return cmd
}

func executeCheckGraph(cmd *cobra.Command, opts *checkOptions, flags *graphFlags, graphFile string) error {
	log := logger.Logger()
	cfg := config.Global()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := opts.validateFormat(); err != nil {
		return err
	}

	gf, err := pkgchecker.LoadGraphFile(graphFile)
	if err != nil {
		return err
	}
	g, err := pkgchecker.BuildGraph(gf.Packages)
	if err != nil {
		return err
	}
	if order, err := g.Order(); err != nil {
		if !errors.Is(err, pkgchecker.ErrCycle) {
			return err
		}
		log.Warnf("%v", err)
	} else {
		log.Debugf("build order: %s", strings.Join(order, ", "))
	}

	if flags.dotFile != "" {
		if err := writeOutputFile(cmd.OutOrStdout(), flags.dotFile, func(w io.Writer) error {
			return g.WriteDot(w, "deps")
		}); err != nil {
			return err
		}
	}

	system := gf.SystemSources()
	if gf.System.Seed != "" {
		src, err := seedSource(ctx, cfg, gf.Resolve(gf.System.Seed))
		if err != nil {
			return err
		}
		system = append(system, src)
	}
	flagged, err := opts.systemSources(ctx, cfg)
	if err != nil {
		return err
	}
	system = append(system, flagged...)

	jobs, err := pkgchecker.Jobs(g, gf, append(opts.dependencySources(), system...))
	if err != nil {
		return err
	}

	checker := opts.checker(cmd, cfg)
	for _, job := range jobs {
		if job.RPM != "" {
			if checker.Querier, err = newQuerier(flags.backend, cfg); err != nil {
				return err
			}
			break
		}
	}

	workers := flags.workers
	if workers <= 0 {
		workers = config.NewConfigHelpers(cfg).Workers()
	}
	if flags.metrics != "" {
		checker.Metrics = pkgchecker.NewMetrics()
	}
	var progressOut io.Writer
	if flags.progress {
		progressOut = cmd.ErrOrStderr()
	}
	batch := checker.Run(ctx, jobs, workers, progressOut)
	if progressOut != nil {
		fmt.Fprintln(progressOut)
	}

	if checker.Metrics != nil {
		if err := checker.Metrics.WriteTextfile(flags.metrics); err != nil {
			return err
		}
		log.Debugf("metrics written to %s", flags.metrics)
	}

	if err := renderBatch(cmd.OutOrStdout(), opts.format, batch); err != nil {
		return err
	}

	if batch.Satisfied() {
		return nil
	}
	if opts.report != "" {
		path, err := batch.WriteMissingReport(opts.report)
		if err != nil {
			return fmt.Errorf("writing missing report: %w", err)
		}
		log.Infof("missing requirements written to %s", path)
	}
	return fmt.Errorf("%d of %d packages: %w", len(batch.Failed()), len(batch.Results), errUnsatisfied)
}

func renderBatch(w io.Writer, format string, batch pkgchecker.Batch) error {
	if format == "json" {
		return writeJSON(w, batch)
	}

	for _, r := range batch.Results {
		if r.Err != nil {
			fmt.Fprintf(w, "Dependency check: %s\n  error: %v\n", r.Name, r.Err)
			continue
		}
		rpmutils.RenderReportText(w, r.Name, r.Report, verbose)
	}
	fmt.Fprintf(w, "\n%d of %d packages satisfied (run %s)\n",
		len(batch.Results)-len(batch.Failed()), len(batch.Results), batch.RunID)
	return nil
}
