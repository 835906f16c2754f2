package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/open-edge-platform/rpm-depcheck/internal/config"
	"github.com/open-edge-platform/rpm-depcheck/internal/ospackage/sysprovides"
	"github.com/open-edge-platform/rpm-depcheck/internal/utils/system"
)

func createSystemProvidesCommand() *cobra.Command {
	var (
		checkExpr string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "system-provides [flags] [SEED_FILE]",
		Short: "Resolves the platform baseline provides",
		Long: `System-provides resolves a seed description against the host rpm database
and prints the resulting provides, the seeds that are not installed and the
requirement check command as JSON.

Without SEED_FILE the provides of the system-provides RPM are printed. It is
taken from the rpmbuild tree of the work directory, or built from the first
<config_dir>/<entry>.bits/system-provides.spec on BITS_PATH.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seedFile := ""
			if len(args) == 1 {
				seedFile = args[0]
			}
			return executeSystemProvides(cmd, seedFile, checkExpr, output)
		},
	}

	cmd.Flags().StringVar(&checkExpr, "check", "",
		"Requirement check expression (default: requirement_check from the seed)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the result to this file instead of stdout")
	return cmd
}

func executeSystemProvides(cmd *cobra.Command, seedFile, checkExpr, output string) error {
	cfg := config.Global()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var result *sysprovides.Resolution
	if seedFile != "" {
		seed, err := sysprovides.LoadSeed(seedFile)
		if err != nil {
			return err
		}
		system.CheckRpmHost()
		result, err = sysprovides.NewResolver(newSeedQuerier(cfg)).Resolve(ctx, seed, checkExpr)
		if err != nil {
			return err
		}
	} else {
		provides, _, err := systemProvides(ctx, cfg)
		if err != nil {
			return err
		}
		result = &sysprovides.Resolution{Provides: provides, Unresolved: []string{}}
	}

	return writeOutputFile(cmd.OutOrStdout(), output, func(w io.Writer) error {
		return writeJSON(w, result)
	})
}
