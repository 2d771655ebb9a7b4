package classifier

import (
	"regexp"
	"strings"

	"github.com/kosterlab/kosterscan/pkg/config"
)

// Format describes one recognized instrument export format.
type Format struct {
	Tag               string         // Result/report label (CV, GCD, EIS, ...)
	NamePattern       *regexp.Regexp // Matched against the base file name
	HeaderKeywords    []string       // Lowercase substrings that identify a sniffed header
	MinNumericColumns int            // Minimum numeric columns per data row
	RequireHeader     bool           // First row must be a header, not data
	Examples          []string       // Example file names
}

const numberPattern = `[+-]?(?:\d+(?:\.\d*)?|\.\d+)`

// DefaultFormats returns the built-in instrument export formats. File names
// follow the <TYPE>-<number>.txt convention, where the number is the scan
// rate (CV, mV/s), current density (GCD, A/g) or bias (EIS, V).
func DefaultFormats() []*Format {
	return []*Format{
		{
			Tag:               "EIS",
			NamePattern:       regexp.MustCompile(`(?i)^EIS-` + numberPattern + `\.txt$`),
			HeaderKeywords:    []string{"freq", "z'", "zre", "impedance"},
			MinNumericColumns: 3,
			RequireHeader:     true,
			Examples:          []string{"EIS-1.txt", "EIS-0.2.txt"},
		},
		{
			Tag:               "GCD",
			NamePattern:       regexp.MustCompile(`(?i)^GCD-` + numberPattern + `\.txt$`),
			HeaderKeywords:    []string{"cycle", "capacity", "q_chg", "q_dis"},
			MinNumericColumns: 2,
			Examples:          []string{"GCD-0.5.txt", "GCD-2.txt"},
		},
		{
			Tag:               "CV",
			NamePattern:       regexp.MustCompile(`(?i)^CV-` + numberPattern + `\.txt$`),
			HeaderKeywords:    []string{"potential", "scan rate"},
			MinNumericColumns: 3,
			Examples:          []string{"CV-1.txt", "CV-10.txt"},
		},
	}
}

// Registry holds the format set used for classification and extraction.
type Registry struct {
	formats []*Format
}

// NewRegistry builds a registry from the built-in formats plus any
// user-configured extras. Extras are checked after the built-ins.
func NewRegistry(extras []config.FormatConfig) *Registry {
	formats := DefaultFormats()
	for i := range extras {
		e := &extras[i]
		keywords := make([]string, 0, len(e.HeaderKeywords))
		for _, kw := range e.HeaderKeywords {
			keywords = append(keywords, strings.ToLower(kw))
		}
		formats = append(formats, &Format{
			Tag:               e.Tag,
			NamePattern:       e.CompiledNamePattern(),
			HeaderKeywords:    keywords,
			MinNumericColumns: e.MinNumericColumns,
			RequireHeader:     e.RequireHeader,
		})
	}
	return &Registry{formats: formats}
}

// Formats returns all registered formats in matching order.
func (r *Registry) Formats() []*Format {
	return r.formats
}

// ByTag returns the format registered under tag, or nil.
func (r *Registry) ByTag(tag string) *Format {
	for _, f := range r.formats {
		if strings.EqualFold(f.Tag, tag) {
			return f
		}
	}
	return nil
}
