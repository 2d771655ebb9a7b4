package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kosterlab/kosterscan/pkg/classifier"
	"github.com/kosterlab/kosterscan/pkg/config"
)

// ClassifyOptions holds command-line options for the classify command.
type ClassifyOptions struct {
	Output     string
	ConfigPath string
}

// NewClassifyCommand creates the classify command.
func NewClassifyCommand() *cobra.Command {
	opts := &ClassifyOptions{}

	cmd := &cobra.Command{
		Use:   "classify <file>...",
		Short: "Classify files without extracting data",
		Long: `Run the format classifier against individual files and report where
each would be routed: a recognized format, skipped as unsupported, or
skipped as unreadable.

Classification tries the file name pattern first, then sniffs the first
line of .txt/.csv files for format keywords.

Example:
  kosterscan classify CV-10.txt
  kosterscan classify --output json exports/*.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to YAML config file")

	return cmd
}

type classifyResult struct {
	Path   string `json:"path"`
	Route  string `json:"route"`
	Format string `json:"format,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func runClassify(cmd *cobra.Command, args []string, opts *ClassifyOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := config.DefaultConfig()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(ctx, opts.ConfigPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	registry := classifier.NewRegistry(cfg.ExtraFormats)
	c := classifier.New(registry,
		classifier.WithSniffBytes(cfg.SniffBytes),
		classifier.WithSniffMaxFileSize(cfg.SniffMaxFileSize),
	)

	results := make([]classifyResult, 0, len(args))
	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			results = append(results, classifyResult{
				Path:   path,
				Route:  string(classifier.RouteSkipUnreadable),
				Detail: err.Error(),
			})
			continue
		}
		route := c.Classify(path, info)
		results = append(results, classifyResult{
			Path:   path,
			Route:  string(route.Kind),
			Format: route.FormatTag,
			Detail: route.Detail,
		})
	}

	switch opts.Output {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case "text":
		out := cmd.OutOrStdout()
		for _, r := range results {
			switch {
			case r.Format != "":
				fmt.Fprintf(out, "%s\t%s\t%s\n", r.Path, r.Route, r.Format)
			case r.Detail != "":
				fmt.Fprintf(out, "%s\t%s\t%s\n", r.Path, r.Route, r.Detail)
			default:
				fmt.Fprintf(out, "%s\t%s\n", r.Path, r.Route)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q (use text or json)", opts.Output)
	}
}
