// Package cmd provides the CLI commands for DocuDepth.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/docudepthai/docudepth/internal/logging"
	"github.com/docudepthai/docudepth/pkg/version"
)

// Debug logging flag
var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the docudepth CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docudepth",
		Short: "Keep a remotely computed context map in sync with your workspace",
		Long: `DocuDepth tracks edits in your workspace and ships them to the
DocuDepth analysis service, which maintains a context map of your
codebase. The refreshed map is cached locally after every sync.

Run 'docudepth init' once to analyze the workspace, then
'docudepth watch' to keep the map current while you work.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("docudepth version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.docudepth/logs/")
	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRunE = teardownLogging

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setupLogging configures the process-wide logger before any command runs.
func setupLogging(_ *cobra.Command, _ []string) error {
	cleanup, err := logging.SetupDefault(debugMode)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup

	if debugMode {
		slog.Info("debug logging enabled",
			slog.String("log_file", logging.DefaultLogPath()),
			slog.String("version", version.Version))
	}
	return nil
}

// teardownLogging flushes and closes the log writer.
func teardownLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
