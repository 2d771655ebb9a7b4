package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewScanCommand(t *testing.T) {
	cmd := NewScanCommand()

	if cmd.Use != "scan <root>" {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}

	// Check flags exist
	flags := []string{"program-dir", "scan-only", "selftest", "workers", "config", "output", "quiet"}
	for _, flag := range flags {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("Missing flag: %s", flag)
		}
	}
}

func TestNewClassifyCommand(t *testing.T) {
	cmd := NewClassifyCommand()

	if cmd.Use != "classify <file>..." {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}
}

func TestNewFormatsCommand(t *testing.T) {
	cmd := NewFormatsCommand()

	if cmd.Use != "formats" {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}
}

func TestNewVersionCommand(t *testing.T) {
	cmd := NewVersionCommand()

	if cmd.Use != "version" {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}
}

func TestRunScan_Success(t *testing.T) {
	tmpDir := t.TempDir()
	root := filepath.Join(tmpDir, "data")
	programDir := filepath.Join(tmpDir, "prog")
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatalf("Failed to create root: %v", err)
	}
	if err := os.MkdirAll(programDir, 0755); err != nil {
		t.Fatalf("Failed to create program dir: %v", err)
	}

	gcd := "Time/s,Voltage/V,Current/A,Cycle\n0,3.0,0.5,1\n1,3.1,0.5,1\n"
	if err := os.WriteFile(filepath.Join(root, "GCD-1.txt"), []byte(gcd), 0644); err != nil {
		t.Fatalf("Failed to write data file: %v", err)
	}

	cmd := NewScanCommand()
	cmd.SetArgs([]string{"--program-dir", programDir, "--quiet", root})

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	// Report artifacts land under <program-dir>/KosterData
	reports, err := os.ReadDir(filepath.Join(programDir, "KosterData", "reports"))
	if err != nil {
		t.Fatalf("Reading reports dir: %v", err)
	}
	if len(reports) != 2 {
		t.Errorf("Reports dir has %d entries, want report + skip list", len(reports))
	}
}

func TestRunScan_JSONOutput(t *testing.T) {
	tmpDir := t.TempDir()
	root := filepath.Join(tmpDir, "data")
	programDir := filepath.Join(tmpDir, "prog")
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatalf("Failed to create root: %v", err)
	}

	cmd := NewScanCommand()
	cmd.SetArgs([]string{"--program-dir", programDir, "--output", "json", root})

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(new(bytes.Buffer))

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("Output is not valid JSON: %v\n%s", err, buf.String())
	}
	for _, key := range []string{"summary", "report_path", "skip_list_path"} {
		if _, ok := payload[key]; !ok {
			t.Errorf("JSON output missing %q", key)
		}
	}
}

func TestRunScan_MissingRoot(t *testing.T) {
	cmd := NewScanCommand()
	cmd.SetArgs([]string{})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))

	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Error("Expected error when no root and no --selftest")
	}
}

func TestRunScan_InvalidRoot(t *testing.T) {
	tmpDir := t.TempDir()

	cmd := NewScanCommand()
	cmd.SetArgs([]string{"--program-dir", tmpDir, "--quiet", filepath.Join(tmpDir, "missing")})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))

	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Error("Expected error for nonexistent root")
	}
}

func TestRunClassify(t *testing.T) {
	tmpDir := t.TempDir()
	cvPath := filepath.Join(tmpDir, "CV-10.txt")
	if err := os.WriteFile(cvPath, []byte("0.1,0.2,0.3\n"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	binPath := filepath.Join(tmpDir, "thumb.bin")
	if err := os.WriteFile(binPath, []byte{0x00, 0x01}, 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	cmd := NewClassifyCommand()
	cmd.SetArgs([]string{cvPath, binPath, filepath.Join(tmpDir, "missing.txt")})

	var buf bytes.Buffer
	cmd.SetOut(&buf)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "CV") {
		t.Errorf("Output missing CV route:\n%s", out)
	}
	if !strings.Contains(out, "skip_unsupported") {
		t.Errorf("Output missing unsupported route:\n%s", out)
	}
	if !strings.Contains(out, "skip_unreadable") {
		t.Errorf("Output missing unreadable route:\n%s", out)
	}
}

func TestRunFormats(t *testing.T) {
	cmd := NewFormatsCommand()
	cmd.SetArgs([]string{})

	var buf bytes.Buffer
	cmd.SetOut(&buf)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Formats failed: %v", err)
	}

	out := buf.String()
	for _, tag := range []string{"CV", "GCD", "EIS"} {
		if !strings.Contains(out, tag) {
			t.Errorf("Output missing format %s:\n%s", tag, out)
		}
	}
}

func TestRunFormats_KeywordOnlyExtraFormat(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "kosterscan.yaml")
	content := "extra_formats:\n  - tag: LSV\n    header_keywords: [\"lsv\"]\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	for _, output := range []string{"text", "json"} {
		cmd := NewFormatsCommand()
		cmd.SetArgs([]string{"--config", configPath, "--output", output})

		var buf bytes.Buffer
		cmd.SetOut(&buf)

		if err := cmd.ExecuteContext(context.Background()); err != nil {
			t.Fatalf("Formats (%s) failed: %v", output, err)
		}
		if !strings.Contains(buf.String(), "LSV") {
			t.Errorf("%s output missing keyword-only format:\n%s", output, buf.String())
		}
	}
}

func TestRunFormats_JSON(t *testing.T) {
	cmd := NewFormatsCommand()
	cmd.SetArgs([]string{"--output", "json"})

	var buf bytes.Buffer
	cmd.SetOut(&buf)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Formats failed: %v", err)
	}

	var infos []map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &infos); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if len(infos) != 3 {
		t.Errorf("Got %d formats, want 3 built-ins", len(infos))
	}
}
