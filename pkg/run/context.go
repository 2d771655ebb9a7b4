// Package run provides run identity and the on-disk artifact layout for a
// single scan execution.
package run

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Fatal preconditions: if either of these fails, the run never starts.
var (
	ErrInvalidRoot          = errors.New("scan root does not exist or is not a directory")
	ErrOutputDirUnavailable = errors.New("output directory could not be created")
)

// DataDirName is the fixed output directory created next to the program.
const DataDirName = "KosterData"

// Context identifies one execution and owns all paths derived from it.
// It is immutable after New returns.
type Context struct {
	RunID      string
	RootPath   string
	ProgramDir string
	OutputDir  string
	LogsDir    string
	ReportsDir string
	StartedAt  time.Time
}

// New validates the scan root, generates a run ID, and ensures the
// KosterData layout exists under programDir.
func New(rootPath, programDir string) (*Context, error) {
	root, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRoot, root)
	}

	prog, err := filepath.Abs(programDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutputDirUnavailable, err)
	}

	now := time.Now()
	ctx := &Context{
		RunID:      NewRunID(now),
		RootPath:   root,
		ProgramDir: prog,
		OutputDir:  filepath.Join(prog, DataDirName),
		StartedAt:  now,
	}
	ctx.LogsDir = filepath.Join(ctx.OutputDir, "logs")
	ctx.ReportsDir = filepath.Join(ctx.OutputDir, "reports")

	for _, dir := range []string{ctx.LogsDir, ctx.ReportsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOutputDirUnavailable, err)
		}
	}
	if err := checkWritable(ctx.OutputDir); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutputDirUnavailable, err)
	}

	return ctx, nil
}

// NewRunID returns a sortable run identifier: local timestamp plus a random
// suffix so two runs within the same second never collide.
func NewRunID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return now.Format("20060102-150405") + "-" + suffix
}

// TextLogPath is the human-readable log artifact for this run.
func (c *Context) TextLogPath() string {
	return filepath.Join(c.LogsDir, fmt.Sprintf("run_%s.log", c.RunID))
}

// JSONLogPath is the line-delimited structured log artifact for this run.
func (c *Context) JSONLogPath() string {
	return filepath.Join(c.LogsDir, fmt.Sprintf("run_%s.jsonl", c.RunID))
}

// ReportPath is the summary report artifact for this run.
func (c *Context) ReportPath() string {
	return filepath.Join(c.ReportsDir, fmt.Sprintf("run_%s_report.txt", c.RunID))
}

// SkipListPath lists every skipped or failed path with its reason.
func (c *Context) SkipListPath() string {
	return filepath.Join(c.ReportsDir, fmt.Sprintf("skipped_paths-%s.txt", c.RunID))
}

// DefaultProgramDir returns the directory containing the running executable,
// falling back to the working directory when it cannot be resolved.
func DefaultProgramDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// checkWritable verifies the output directory accepts new files before any
// per-run artifact is attempted.
func checkWritable(dir string) error {
	probe := filepath.Join(dir, ".write_probe")
	f, err := os.Create(probe) // #nosec G304 -- path derived from program dir
	if err != nil {
		return err
	}
	_ = f.Close()
	return os.Remove(probe)
}
