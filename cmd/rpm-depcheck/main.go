package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/open-edge-platform/rpm-depcheck/internal/config"
	"github.com/open-edge-platform/rpm-depcheck/internal/utils/logger"
)

// Set at build time with -ldflags.
var (
	Version   = "dev"
	CommitSHA = "unknown"
)

// Global flags
var (
	configFile string
	logLevel   string
	verbose    bool
)

// errUnsatisfied marks a run that completed but found missing requirements.
// It maps to exit code 1 without an extra error line.
var errUnsatisfied = errors.New("unsatisfied requirements")

func main() {
	rootCmd := createRootCommand()
	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		if !errors.Is(err, errUnsatisfied) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rpm-depcheck",
		Short: "Checks RPM requirements against package, dependency and system provides",
		Long: `rpm-depcheck verifies that every requirement of a package is satisfied by
its own provides, the provides of its dependency packages and the provides of
the platform it is built on. Versions are compared with RPM EVR ordering.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Path to configuration file (default: search rpm-depcheck.yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn or error (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging and list satisfied requirements")

	rootCmd.AddCommand(createCheckCommand())
	rootCmd.AddCommand(createCheckPackageCommand())
	rootCmd.AddCommand(createCheckGraphCommand())
	rootCmd.AddCommand(createQueryCommand())
	rootCmd.AddCommand(createSystemProvidesCommand())
	rootCmd.AddCommand(createVersionCommand())

	attachLoggingHooks(rootCmd)
	return rootCmd
}

// attachLoggingHooks makes every subcommand load configuration and set up
// logging before it runs.
func attachLoggingHooks(rootCmd *cobra.Command) {
	for _, cmd := range rootCmd.Commands() {
		cmd.PersistentPreRunE = initRuntime
	}
}

func initRuntime(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadGlobalConfig(configFile)
	if err != nil {
		return err
	}

	level := resolveRequestedLogLevel(cmd)
	if level != "" {
		cfg.Logging.Level = level
	}
	helpers := config.NewConfigHelpers(cfg)
	if err := logger.Init(helpers.LogLevel()); err != nil {
		return err
	}

	logger.ReportPath = helpers.ReportDir()
	config.SetGlobal(cfg)
	return nil
}

// resolveRequestedLogLevel returns the level asked for on the command line,
// or "" to keep the configured one.
func resolveRequestedLogLevel(cmd *cobra.Command) string {
	if logLevel != "" {
		return logLevel
	}
	if cmd == nil {
		return ""
	}
	if f := cmd.Flags().Lookup("verbose"); f != nil && f.Changed && f.Value.String() == "true" {
		return "debug"
	}
	return ""
}

func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rpm-depcheck %s (commit %s)\n", Version, CommitSHA)
		},
	}
}
