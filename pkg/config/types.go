// Package config provides scan configuration loading and validation.
package config

import "regexp"

// Config is the root configuration structure loaded from YAML. Every field is
// optional; DefaultConfig supplies working values for all of them.
type Config struct {
	// Encodings is the priority-ordered list of text encodings tried when
	// decoding a data file. Supported names: utf-8, gbk, latin-1.
	Encodings []string `yaml:"encodings"`

	// SniffBytes caps how many bytes of a file may be read to disambiguate
	// its format from content.
	SniffBytes int `yaml:"sniff_bytes"`

	// SniffMaxFileSize is the file size above which content sniffing is
	// skipped entirely; such files need a decisive name to be extracted.
	SniffMaxFileSize int64 `yaml:"sniff_max_file_size"`

	// MaxDataFileSize is the file size above which extraction fails rather
	// than read the file into memory.
	MaxDataFileSize int64 `yaml:"max_data_file_size"`

	// Workers is the extraction worker count. 1 means fully sequential.
	Workers int `yaml:"workers"`

	// ExtraFormats extends the built-in format registry.
	ExtraFormats []FormatConfig `yaml:"extra_formats,omitempty"`
}

// FormatConfig defines a user-supplied instrument export format.
type FormatConfig struct {
	// Tag names the format in results and reports (e.g. "LSV").
	Tag string `yaml:"tag"`

	// NamePattern is a regex matched against the base file name.
	NamePattern string `yaml:"name_pattern"`

	// HeaderKeywords route a sniffed header line to this format when the
	// name pattern alone is not decisive. Matched case-insensitively.
	HeaderKeywords []string `yaml:"header_keywords,omitempty"`

	// MinNumericColumns is the minimum numeric column count a data row of
	// this format must have. Defaults to 2.
	MinNumericColumns int `yaml:"min_numeric_columns,omitempty"`

	// RequireHeader rejects files of this format whose first row is numeric.
	RequireHeader bool `yaml:"require_header,omitempty"`

	compiledNamePattern *regexp.Regexp
}

// CompiledNamePattern returns the regex compiled during validation.
func (f *FormatConfig) CompiledNamePattern() *regexp.Regexp {
	return f.compiledNamePattern
}
