package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kosterlab/kosterscan/pkg/config"
	"github.com/kosterlab/kosterscan/pkg/pipeline"
	"github.com/kosterlab/kosterscan/pkg/run"
	"github.com/kosterlab/kosterscan/pkg/walker"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// ScanOptions holds command-line options for the scan command.
type ScanOptions struct {
	ProgramDir string
	ScanOnly   bool
	Selftest   bool
	Workers    int
	ConfigPath string
	Output     string
	Quiet      bool
}

// NewScanCommand creates the scan command.
func NewScanCommand() *cobra.Command {
	opts := &ScanOptions{}

	cmd := &cobra.Command{
		Use:   "scan <root>",
		Short: "Scan a directory tree and extract instrument data",
		Long: `Walk a directory tree, classify every file, and extract data from
recognized instrument exports (CV, GCD, EIS).

Each run writes a log pair, a summary report, and a skip list under
<program-dir>/KosterData/. Source files are never modified.

Exit codes:
  0 - Scan completed (including runs with skipped or failed files)
  2 - Configuration or fatal runtime error

Example:
  kosterscan scan /data/experiments
  kosterscan scan --scan-only /data/experiments
  kosterscan scan --workers 4 --output json /data/experiments
  kosterscan scan --selftest`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ProgramDir, "program-dir", "", "Directory for KosterData output (default: executable directory)")
	cmd.Flags().BoolVar(&opts.ScanOnly, "scan-only", false, "Classify files without extracting data")
	cmd.Flags().BoolVar(&opts.Selftest, "selftest", false, "Run against embedded fixtures instead of a root directory")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 0, "Number of extraction workers (default: from config)")
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to YAML config file")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Suppress the console summary")

	return cmd
}

func runScan(cmd *cobra.Command, args []string, opts *ScanOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var rootPath string
	switch {
	case opts.Selftest:
		if len(args) > 0 {
			return fmt.Errorf("--selftest does not take a root argument")
		}
	case len(args) == 1:
		rootPath = args[0]
	default:
		return fmt.Errorf("a root directory is required (or use --selftest)")
	}

	programDir := opts.ProgramDir
	if programDir == "" {
		programDir = run.DefaultProgramDir()
	}

	var cfg *config.Config
	if opts.ConfigPath != "" {
		loaded, err := config.Load(ctx, opts.ConfigPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	pipelineOpts := pipeline.Options{
		ScanOnly: opts.ScanOnly,
		Selftest: opts.Selftest,
		Workers:  opts.Workers,
		Config:   cfg,
	}
	showProgress := !opts.Quiet && opts.Output == "text"
	if showProgress {
		pipelineOpts.Progress = newConsoleProgress(cmd.ErrOrStderr())
	}

	summary, err := pipeline.Run(ctx, rootPath, programDir, pipelineOpts)
	if showProgress {
		fmt.Fprintln(cmd.ErrOrStderr())
	}
	if err != nil {
		return err
	}

	if !opts.Quiet {
		switch opts.Output {
		case "json":
			if err := outputScanJSON(cmd, summary); err != nil {
				return fmt.Errorf("formatting output: %w", err)
			}
		case "text":
			outputScanText(cmd, summary)
		default:
			return fmt.Errorf("unknown output format %q (use text or json)", opts.Output)
		}
	}

	return nil
}

func outputScanText(cmd *cobra.Command, rs *pipeline.RunSummary) {
	out := cmd.OutOrStdout()
	s := rs.Summary

	fmt.Fprintln(out, "=== Koster Data Scan ===")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Run:       %s\n", s.RunID)
	fmt.Fprintf(out, "Root:      %s\n", s.Root)
	if s.ScanOnly {
		fmt.Fprintln(out, "Mode:      scan-only")
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Files visited: %d\n", s.Total)
	fmt.Fprintf(out, "  Processed:   %d\n", s.Processed)
	fmt.Fprintf(out, "  Skipped:     %d\n", s.Skipped)
	fmt.Fprintf(out, "  Failed:      %d\n", s.Failed)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Report:    %s\n", rs.ReportPath)
	fmt.Fprintf(out, "Skip list: %s\n", rs.SkipListPath)
	fmt.Fprintf(out, "Log:       %s\n", rs.TextLogPath)
	if rs.LoggerDegraded {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "WARNING: run logger degraded, some events went to stderr only")
	}
}

func outputScanJSON(cmd *cobra.Command, rs *pipeline.RunSummary) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(rs)
}

// consoleProgress prints a coarse progress line to stderr as the walk advances.
type consoleProgress struct {
	w io.Writer
}

func newConsoleProgress(w io.Writer) *consoleProgress {
	return &consoleProgress{w: w}
}

func (p *consoleProgress) Update(_ string, prog walker.Progress) {
	fmt.Fprintf(p.w, "\r%d visited, %d processed, %d skipped, %d failed",
		prog.Visited, prog.Processed, prog.Skipped, prog.Failed)
}
