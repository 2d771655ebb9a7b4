package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a configuration file.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks a configuration for errors and compiles name patterns.
func Validate(cfg *Config) error {
	if len(cfg.Encodings) == 0 {
		return errors.New("encodings: at least one encoding is required")
	}
	for _, enc := range cfg.Encodings {
		switch strings.ToLower(enc) {
		case "utf-8", "utf8", "gbk", "latin-1", "latin1", "iso-8859-1":
		default:
			return fmt.Errorf("encodings: unsupported encoding %q (use utf-8, gbk, or latin-1)", enc)
		}
	}

	if cfg.SniffBytes <= 0 {
		return errors.New("sniff_bytes: must be positive")
	}
	if cfg.SniffMaxFileSize <= 0 {
		return errors.New("sniff_max_file_size: must be positive")
	}
	if cfg.MaxDataFileSize <= 0 {
		return errors.New("max_data_file_size: must be positive")
	}
	if cfg.Workers <= 0 {
		return errors.New("workers: must be positive")
	}

	for i := range cfg.ExtraFormats {
		if err := validateFormat(&cfg.ExtraFormats[i]); err != nil {
			return fmt.Errorf("extra_formats[%d] (%s): %w", i, cfg.ExtraFormats[i].Tag, err)
		}
	}

	return nil
}

func validateFormat(f *FormatConfig) error {
	if f.Tag == "" {
		return errors.New("tag is required")
	}
	if f.NamePattern == "" && len(f.HeaderKeywords) == 0 {
		return errors.New("name_pattern or header_keywords is required")
	}
	if f.NamePattern != "" {
		re, err := regexp.Compile(f.NamePattern)
		if err != nil {
			return fmt.Errorf("invalid name_pattern: %w", err)
		}
		f.compiledNamePattern = re
	}
	if f.MinNumericColumns == 0 {
		f.MinNumericColumns = 2
	}
	if f.MinNumericColumns < 0 {
		return errors.New("min_numeric_columns: must be positive")
	}
	return nil
}
