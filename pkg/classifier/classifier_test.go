package classifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kosterlab/kosterscan/pkg/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestClassify_ByName(t *testing.T) {
	dir := t.TempDir()
	c := New(NewRegistry(nil))

	tests := []struct {
		name string
		tag  string
	}{
		{"CV-1.txt", "CV"},
		{"cv-0.5.txt", "CV"},
		{"GCD-2.txt", "GCD"},
		{"gcd-.5.txt", "GCD"},
		{"EIS-0.2.txt", "EIS"},
		{"EIS-10.TXT", "EIS"},
	}

	for _, tt := range tests {
		path := writeFile(t, dir, tt.name, "1\t2\t3\n")
		route := c.Classify(path, nil)
		if route.Kind != RouteExtract {
			t.Errorf("%s: kind = %s, want extract", tt.name, route.Kind)
			continue
		}
		if route.FormatTag != tt.tag {
			t.Errorf("%s: tag = %s, want %s", tt.name, route.FormatTag, tt.tag)
		}
	}
}

func TestClassify_UnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	c := New(NewRegistry(nil))

	path := writeFile(t, dir, "b.bin", "\x00\x01\x02")
	route := c.Classify(path, nil)

	if route.Kind != RouteSkipUnsupported {
		t.Fatalf("kind = %s, want skip_unsupported", route.Kind)
	}
}

func TestClassify_HeaderSniff(t *testing.T) {
	dir := t.TempDir()
	c := New(NewRegistry(nil))

	path := writeFile(t, dir, "impedance_export.txt", "Freq(Hz),Z'(Ohm),Z''(Ohm)\n1,10,4\n")
	route := c.Classify(path, nil)

	if route.Kind != RouteExtract || route.FormatTag != "EIS" {
		t.Fatalf("route = %+v, want extract EIS", route)
	}
}

func TestClassify_HeaderSniffWithBOM(t *testing.T) {
	dir := t.TempDir()
	c := New(NewRegistry(nil))

	path := writeFile(t, dir, "export.txt", "\xef\xbb\xbfFreq(Hz),Z'(Ohm),Z''(Ohm)\n1,10,4\n")
	route := c.Classify(path, nil)

	if route.Kind != RouteExtract || route.FormatTag != "EIS" {
		t.Fatalf("route = %+v, want extract EIS", route)
	}
}

func TestClassify_SniffFindsNothing(t *testing.T) {
	dir := t.TempDir()
	c := New(NewRegistry(nil))

	path := writeFile(t, dir, "notes.txt", "just some lab notes\n")
	route := c.Classify(path, nil)

	if route.Kind != RouteSkipUnsupported {
		t.Fatalf("kind = %s, want skip_unsupported", route.Kind)
	}
}

func TestClassify_TooLargeToSniff(t *testing.T) {
	dir := t.TempDir()
	c := New(NewRegistry(nil), WithSniffMaxFileSize(4))

	path := writeFile(t, dir, "big.txt", "Freq,Zre,Zim\n1,2,3\n")
	route := c.Classify(path, nil)
	if route.Kind != RouteSkipUnsupported {
		t.Fatalf("kind = %s, want skip_unsupported", route.Kind)
	}
}

func TestClassify_MissingFile(t *testing.T) {
	c := New(NewRegistry(nil))

	route := c.Classify(filepath.Join(t.TempDir(), "gone.txt"), nil)

	if route.Kind != RouteSkipUnreadable {
		t.Fatalf("kind = %s, want skip_unreadable", route.Kind)
	}
	if route.Cause == nil {
		t.Error("unreadable route should carry the underlying error")
	}
}

func TestClassify_ExtraFormat(t *testing.T) {
	dir := t.TempDir()
	extra := []config.FormatConfig{{
		Tag:         "LSV",
		NamePattern: `(?i)^LSV-.*\.txt$`,
	}}
	cfg := &config.Config{Encodings: []string{"utf-8"}, SniffBytes: 1024, SniffMaxFileSize: 1 << 20, MaxDataFileSize: 1 << 20, Workers: 1, ExtraFormats: extra}
	if err := config.Validate(cfg); err != nil {
		t.Fatal(err)
	}
	c := New(NewRegistry(cfg.ExtraFormats))

	path := writeFile(t, dir, "LSV-5.txt", "1,2\n")
	route := c.Classify(path, nil)

	if route.Kind != RouteExtract || route.FormatTag != "LSV" {
		t.Fatalf("route = %+v, want extract LSV", route)
	}
}
