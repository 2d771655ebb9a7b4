package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kosterlab/kosterscan/pkg/classifier"
	"github.com/kosterlab/kosterscan/pkg/config"
)

// FormatsOptions holds command-line options for the formats command.
type FormatsOptions struct {
	Output     string
	ConfigPath string
}

// NewFormatsCommand creates the formats command.
func NewFormatsCommand() *cobra.Command {
	opts := &FormatsOptions{}

	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List registered instrument export formats",
		Long: `List the formats the classifier recognizes: the built-in set (CV, GCD,
EIS) plus any extras registered through the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFormats(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to YAML config file")

	return cmd
}

func runFormats(cmd *cobra.Command, opts *FormatsOptions) error {
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

	switch opts.Output {
	case "json":
		type formatInfo struct {
			Tag               string   `json:"tag"`
			NamePattern       string   `json:"name_pattern"`
			HeaderKeywords    []string `json:"header_keywords"`
			MinNumericColumns int      `json:"min_numeric_columns"`
			RequireHeader     bool     `json:"require_header"`
			Examples          []string `json:"examples,omitempty"`
		}
		infos := make([]formatInfo, 0, len(registry.Formats()))
		for _, f := range registry.Formats() {
			infos = append(infos, formatInfo{
				Tag:               f.Tag,
				NamePattern:       namePatternString(f),
				HeaderKeywords:    f.HeaderKeywords,
				MinNumericColumns: f.MinNumericColumns,
				RequireHeader:     f.RequireHeader,
				Examples:          f.Examples,
			})
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	case "text":
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "=== Registered Formats ===")
		fmt.Fprintln(out)
		for _, f := range registry.Formats() {
			fmt.Fprintf(out, "%s\n", f.Tag)
			if p := namePatternString(f); p != "" {
				fmt.Fprintf(out, "  Name pattern:    %s\n", p)
			}
			fmt.Fprintf(out, "  Header keywords: %s\n", strings.Join(f.HeaderKeywords, ", "))
			fmt.Fprintf(out, "  Min columns:     %d\n", f.MinNumericColumns)
			if f.RequireHeader {
				fmt.Fprintln(out, "  Header required")
			}
			if len(f.Examples) > 0 {
				fmt.Fprintf(out, "  Examples:        %s\n", strings.Join(f.Examples, ", "))
			}
			fmt.Fprintln(out)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q (use text or json)", opts.Output)
	}
}

// namePatternString tolerates keyword-only formats, which have no pattern.
func namePatternString(f *classifier.Format) string {
	if f.NamePattern == nil {
		return ""
	}
	return f.NamePattern.String()
}
