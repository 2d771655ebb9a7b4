// Package pipeline wires the scan-extract-report components into the single
// entry point front-ends call. A run either fails before any file is touched
// (bad root, unusable output directory) or completes and produces its full
// artifact set, no matter how many individual files fail.
package pipeline

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/kosterlab/kosterscan/pkg/classifier"
	"github.com/kosterlab/kosterscan/pkg/config"
	"github.com/kosterlab/kosterscan/pkg/extractor"
	"github.com/kosterlab/kosterscan/pkg/report"
	"github.com/kosterlab/kosterscan/pkg/run"
	"github.com/kosterlab/kosterscan/pkg/runlog"
	"github.com/kosterlab/kosterscan/pkg/walker"
)

//go:embed fixtures
var fixturesFS embed.FS

// Options controls one pipeline run.
type Options struct {
	// ScanOnly classifies every file but extracts none.
	ScanOnly bool

	// Selftest scans a bundled fixture tree instead of the root path,
	// smoke-testing the pipeline independent of user data.
	Selftest bool

	// Workers overrides the configured extraction worker count when > 0.
	Workers int

	// Config supplies scan configuration; nil means defaults.
	Config *config.Config

	// Progress, when non-nil, receives per-file updates.
	Progress walker.ProgressSink
}

// RunSummary is what a front-end needs to present a finished run: the
// aggregate counts and where every artifact was written.
type RunSummary struct {
	Summary *report.Summary `json:"summary"`

	RunID        string `json:"run_id"`
	TextLogPath  string `json:"text_log_path"`
	JSONLogPath  string `json:"json_log_path"`
	ReportPath   string `json:"report_path"`
	SkipListPath string `json:"skip_list_path"`

	// LoggerDegraded reports that the run logger fell back to stderr.
	LoggerDegraded bool `json:"logger_degraded,omitempty"`
}

// Run executes one scan. rootPath is ignored in selftest mode. On context
// cancellation the summary for the work completed so far is returned together
// with the context error.
func Run(ctx context.Context, rootPath, programDir string, opts Options) (*RunSummary, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	if opts.Selftest {
		dir, cleanup, err := materializeFixtures()
		if err != nil {
			return nil, fmt.Errorf("preparing selftest fixtures: %w", err)
		}
		defer cleanup()
		rootPath = dir
	}

	rc, err := run.New(rootPath, programDir)
	if err != nil {
		return nil, err
	}

	logger, err := runlog.New(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", run.ErrOutputDirUnavailable, err)
	}
	defer logger.Close()

	logger.Info("scan started", runlog.Fields{
		"root":      rc.RootPath,
		"scan_only": opts.ScanOnly,
		"selftest":  opts.Selftest,
	})

	registry := classifier.NewRegistry(cfg.ExtraFormats)
	c := classifier.New(registry,
		classifier.WithSniffBytes(cfg.SniffBytes),
		classifier.WithSniffMaxFileSize(cfg.SniffMaxFileSize),
	)
	e := extractor.New(registry,
		extractor.WithEncodings(cfg.Encodings),
		extractor.WithMaxFileSize(cfg.MaxDataFileSize),
	)

	workers := cfg.Workers
	if opts.Workers > 0 {
		workers = opts.Workers
	}

	results, scanErr := walker.New(c, e).Scan(ctx, rc.RootPath, logger, walker.Options{
		ScanOnly: opts.ScanOnly,
		Workers:  workers,
		Progress: opts.Progress,
	})
	if scanErr != nil {
		logger.Warn("scan interrupted", runlog.Fields{"cause": scanErr.Error(), "visited": len(results)})
	}

	summary, err := report.Build(rc, results, report.Meta{
		ScanOnly: opts.ScanOnly,
		Duration: time.Since(rc.StartedAt),
	})
	if err != nil {
		logger.Error("report build failed", runlog.Fields{"cause": err.Error()})
		return nil, err
	}

	logger.Info("scan finished", runlog.Fields{
		"total":     summary.Total,
		"processed": summary.Processed,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
	})

	return &RunSummary{
		Summary:        summary,
		RunID:          rc.RunID,
		TextLogPath:    rc.TextLogPath(),
		JSONLogPath:    rc.JSONLogPath(),
		ReportPath:     rc.ReportPath(),
		SkipListPath:   rc.SkipListPath(),
		LoggerDegraded: logger.Degraded(),
	}, scanErr
}

// materializeFixtures writes the embedded selftest tree to a temp directory.
func materializeFixtures() (string, func(), error) {
	dir, err := os.MkdirTemp("", "kosterscan-selftest-")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	err = fs.WalkDir(fixturesFS, "fixtures", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel("fixtures", path)
		if err != nil {
			return err
		}
		target := filepath.Join(dir, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := fixturesFS.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
	if err != nil {
		cleanup()
		return "", nil, err
	}
	return dir, cleanup, nil
}
