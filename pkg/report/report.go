// Package report synthesizes the end-of-run artifacts: the summary report and
// the skip list. It is the only writer of files under KosterData/reports.
package report

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/kosterlab/kosterscan/pkg/run"
	"github.com/kosterlab/kosterscan/pkg/walker"
)

// Meta carries run facts the results alone don't contain.
type Meta struct {
	ScanOnly bool
	Duration time.Duration
}

// Summary aggregates one run's results. It is embedded in RunSummary and
// rendered by both the text report and the JSON output mode.
type Summary struct {
	RunID      string         `json:"run_id"`
	Root       string         `json:"root"`
	ScanOnly   bool           `json:"scan_only"`
	Total      int            `json:"total"`
	Processed  int            `json:"processed"`
	Skipped    int            `json:"skipped"`
	Failed     int            `json:"failed"`
	ByFormat   map[string]int `json:"by_format,omitempty"`
	DurationMS int64          `json:"duration_ms"`
}

// Build computes the summary and writes the report and skip-list artifacts.
// It is valid to call with an empty result set; the artifacts then state that
// zero files were visited.
func Build(rc *run.Context, results []walker.Result, meta Meta) (*Summary, error) {
	summary := summarize(rc, results, meta)

	if err := writeReport(rc, results, summary, meta); err != nil {
		return nil, fmt.Errorf("writing report: %w", err)
	}
	if err := writeSkipList(rc, results); err != nil {
		return nil, fmt.Errorf("writing skip list: %w", err)
	}
	return summary, nil
}

func summarize(rc *run.Context, results []walker.Result, meta Meta) *Summary {
	s := &Summary{
		RunID:      rc.RunID,
		Root:       rc.RootPath,
		ScanOnly:   meta.ScanOnly,
		Total:      len(results),
		ByFormat:   map[string]int{},
		DurationMS: meta.Duration.Milliseconds(),
	}
	for _, r := range results {
		switch r.Status {
		case walker.StatusProcessed:
			s.Processed++
			if r.Format != "" {
				s.ByFormat[r.Format]++
			}
		case walker.StatusSkipped:
			s.Skipped++
		case walker.StatusFailed:
			s.Failed++
		}
	}
	return s
}

func writeReport(rc *run.Context, results []walker.Result, s *Summary, meta Meta) error {
	var b strings.Builder

	fmt.Fprintf(&b, "=== Koster Data Scan Report ===\n\n")
	fmt.Fprintf(&b, "Run ID:    %s\n", s.RunID)
	fmt.Fprintf(&b, "Root:      %s\n", s.Root)
	fmt.Fprintf(&b, "Started:   %s\n", rc.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Duration:  %s\n", meta.Duration.Round(time.Millisecond))
	if s.ScanOnly {
		fmt.Fprintf(&b, "Mode:      scan-only (no extraction performed)\n")
	}
	fmt.Fprintln(&b)

	fmt.Fprintf(&b, "Files visited:   %d\n", s.Total)
	fmt.Fprintf(&b, "  Processed:     %d\n", s.Processed)
	fmt.Fprintf(&b, "  Skipped:       %d\n", s.Skipped)
	fmt.Fprintf(&b, "  Failed:        %d\n", s.Failed)
	fmt.Fprintln(&b)

	if len(s.ByFormat) > 0 {
		fmt.Fprintln(&b, "Extracted by measurement type:")
		for _, tag := range sortedKeys(s.ByFormat) {
			fmt.Fprintf(&b, "  %-6s %d\n", tag, s.ByFormat[tag])
		}
		fmt.Fprintln(&b)
	}

	var failed []walker.Result
	for _, r := range results {
		if r.Status == walker.StatusFailed {
			failed = append(failed, r)
		}
	}
	if len(failed) > 0 {
		fmt.Fprintf(&b, "Failed files (%d):\n", len(failed))
		for _, r := range failed {
			fmt.Fprintf(&b, "  %s\n    %s: %s\n", r.Path, r.Reason, r.Detail)
		}
		fmt.Fprintln(&b)
	}

	fmt.Fprintf(&b, "Skip list: %s\n", rc.SkipListPath())

	return os.WriteFile(rc.ReportPath(), []byte(b.String()), 0o644)
}

// writeSkipList writes one "path<TAB>reason" line per skipped or failed file,
// sorted by path so identical trees produce identical skip lists.
func writeSkipList(rc *run.Context, results []walker.Result) error {
	type entry struct {
		path   string
		reason string
	}
	var entries []entry
	for _, r := range results {
		if r.Status != walker.StatusSkipped && r.Status != walker.StatusFailed {
			continue
		}
		reason := string(r.Reason)
		if r.Detail != "" {
			reason += ": " + r.Detail
		}
		entries = append(entries, entry{path: r.Path, reason: reason})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].path < entries[j].path })

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s\t%s\n", e.path, e.reason)
	}
	return os.WriteFile(rc.SkipListPath(), []byte(b.String()), 0o644)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
