package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kosterscan.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Workers != DefaultWorkers {
		t.Errorf("Workers = %d, want %d", cfg.Workers, DefaultWorkers)
	}
	if cfg.SniffBytes != DefaultSniffBytes {
		t.Errorf("SniffBytes = %d, want %d", cfg.SniffBytes, DefaultSniffBytes)
	}
	if cfg.MaxDataFileSize != DefaultMaxDataFileSize {
		t.Errorf("MaxDataFileSize = %d, want %d", cfg.MaxDataFileSize, DefaultMaxDataFileSize)
	}
	if len(cfg.Encodings) != 3 || cfg.Encodings[0] != "utf-8" {
		t.Errorf("Encodings = %v, want default utf-8/gbk/latin-1", cfg.Encodings)
	}
}

func TestLoad_ExtraFormat(t *testing.T) {
	path := writeConfig(t, `
workers: 4
extra_formats:
  - tag: LSV
    name_pattern: '^(?i)LSV-.*\.txt$'
    header_keywords: [potential, current]
`)

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if len(cfg.ExtraFormats) != 1 {
		t.Fatalf("ExtraFormats count = %d, want 1", len(cfg.ExtraFormats))
	}
	f := cfg.ExtraFormats[0]
	if f.CompiledNamePattern() == nil {
		t.Error("name pattern was not compiled")
	}
	if !f.CompiledNamePattern().MatchString("lsv-0.5.txt") {
		t.Error("compiled pattern should match lsv-0.5.txt")
	}
	if f.MinNumericColumns != 2 {
		t.Errorf("MinNumericColumns default = %d, want 2", f.MinNumericColumns)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no encodings", func(c *Config) { c.Encodings = nil }},
		{"unknown encoding", func(c *Config) { c.Encodings = []string{"shift-jis"} }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"negative sniff bytes", func(c *Config) { c.SniffBytes = -1 }},
		{"zero max data file size", func(c *Config) { c.MaxDataFileSize = 0 }},
		{"format without tag", func(c *Config) {
			c.ExtraFormats = []FormatConfig{{NamePattern: ".*"}}
		}},
		{"format with bad pattern", func(c *Config) {
			c.ExtraFormats = []FormatConfig{{Tag: "X", NamePattern: "["}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvWorkers, "8")
	t.Setenv(EnvEncodings, "gbk, utf-8")

	path := writeConfig(t, "workers: 2")
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want env override 8", cfg.Workers)
	}
	if len(cfg.Encodings) != 2 || cfg.Encodings[0] != "gbk" {
		t.Errorf("Encodings = %v, want [gbk utf-8]", cfg.Encodings)
	}
}
