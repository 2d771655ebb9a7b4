// Package cli provides the command-line interface for kosterscan.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kosterlab/kosterscan/internal/cli/commands"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	rootCmd := NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2 // Configuration or fatal runtime error
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "kosterscan",
		Short: "Scan directory trees for electrochemical instrument data files",
		Long: `Kosterscan batch-processes heterogeneous text exports from electrochemical
instruments (CV, GCD, EIS). It walks a directory tree, classifies every file,
extracts and validates the recognized ones, and writes an auditable artifact
set for each run:

  KosterData/logs/run_<id>.log              human-readable log
  KosterData/logs/run_<id>.jsonl            structured event stream
  KosterData/reports/run_<id>_report.txt    summary report
  KosterData/reports/skipped_paths-<id>.txt skipped/failed files with reasons

Source files are never modified or moved.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewScanCommand())
	rootCmd.AddCommand(commands.NewClassifyCommand())
	rootCmd.AddCommand(commands.NewFormatsCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
