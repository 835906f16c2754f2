package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/open-edge-platform/rpm-depcheck/internal/config"
)

func createQueryCommand() *cobra.Command {
	var (
		showProvides bool
		showRequires bool
		backend      string
		format       string
	)

	cmd := &cobra.Command{
		Use:   "query [flags] RPM_FILE",
		Short: "Prints the provides and requires of an RPM file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeQuery(cmd, args[0], backend, format, showProvides, showRequires)
		},
	}

	cmd.Flags().BoolVar(&showProvides, "provides", false, "Print only the provides")
	cmd.Flags().BoolVar(&showRequires, "requires", false, "Print only the requires")
	cmd.Flags().StringVar(&backend, "backend", "", "Query backend: header or rpm")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json or yaml")
	cmd.MarkFlagsMutuallyExclusive("provides", "requires")
	return cmd
}

func executeQuery(cmd *cobra.Command, rpmFile, backend, format string, showProvides, showRequires bool) error {
	cfg := config.Global()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	querier, err := newQuerier(backend, cfg)
	if err != nil {
		return err
	}

	var list []string
	switch {
	case showProvides:
		list, err = querier.Provides(ctx, rpmFile)
	case showRequires:
		list, err = querier.Requires(ctx, rpmFile)
	default:
		info, err := querier.Info(ctx, rpmFile)
		if err != nil {
			return err
		}
		switch strings.ToLower(format) {
		case "json":
			return writeJSON(out, info)
		case "yaml":
			return writeYAML(out, info)
		case "text":
			fmt.Fprintln(out, info.NEVRA())
			fmt.Fprintln(out, "Provides:")
			for _, p := range info.Provides {
				fmt.Fprintf(out, "  %s\n", p)
			}
			fmt.Fprintln(out, "Requires:")
			for _, r := range info.Requires {
				fmt.Fprintf(out, "  %s\n", r)
			}
			return nil
		default:
			return fmt.Errorf("invalid --format %q (expected text, json or yaml)", format)
		}
	}
	if err != nil {
		return err
	}

	switch strings.ToLower(format) {
	case "json":
		return writeJSON(out, list)
	case "yaml":
		return writeYAML(out, list)
	case "text":
		for _, item := range list {
			fmt.Fprintln(out, item)
		}
		return nil
	default:
		return fmt.Errorf("invalid --format %q (expected text, json or yaml)", format)
	}
}
