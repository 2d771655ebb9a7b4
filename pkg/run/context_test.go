package run

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNew_CreatesLayout(t *testing.T) {
	root := t.TempDir()
	prog := t.TempDir()

	ctx, err := New(root, prog)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if ctx.RunID == "" {
		t.Error("RunID is empty")
	}
	wantLogs := filepath.Join(prog, DataDirName, "logs")
	if ctx.LogsDir != wantLogs {
		t.Errorf("LogsDir = %q, want %q", ctx.LogsDir, wantLogs)
	}

	for _, p := range []string{ctx.TextLogPath(), ctx.JSONLogPath(), ctx.ReportPath(), ctx.SkipListPath()} {
		if !strings.Contains(p, ctx.RunID) {
			t.Errorf("artifact path %q does not embed run ID %q", p, ctx.RunID)
		}
		if !strings.Contains(p, DataDirName) {
			t.Errorf("artifact path %q is outside %s", p, DataDirName)
		}
	}
}

func TestNew_InvalidRoot(t *testing.T) {
	prog := t.TempDir()

	_, err := New(filepath.Join(prog, "does-not-exist"), prog)
	if !errors.Is(err, ErrInvalidRoot) {
		t.Fatalf("error = %v, want ErrInvalidRoot", err)
	}
}

func TestNew_RootIsFile(t *testing.T) {
	prog := t.TempDir()
	file := filepath.Join(prog, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := New(file, prog)
	if !errors.Is(err, ErrInvalidRoot) {
		t.Fatalf("error = %v, want ErrInvalidRoot", err)
	}
}

func TestNewRunID_UniqueWithinSecond(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)

	a := NewRunID(now)
	b := NewRunID(now)

	if a == b {
		t.Errorf("two run IDs in the same second collided: %q", a)
	}
	if !strings.HasPrefix(a, "20240301-120000-") {
		t.Errorf("run ID %q missing timestamp prefix", a)
	}
}
