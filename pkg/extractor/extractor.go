// Package extractor parses classified instrument export files into structured
// records. Extraction is all-or-nothing: a file either yields a complete
// record or fails with a MalformedDataError, never a partial record.
package extractor

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kosterlab/kosterscan/pkg/classifier"
)

// MalformedDataError reports why a file failed structural validation.
type MalformedDataError struct {
	Path   string
	Detail string
}

func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("malformed data in %s: %s", e.Path, e.Detail)
}

// Record is the structured content extracted from one file.
type Record struct {
	// MeasurementType is the format tag the file was classified as.
	MeasurementType string `json:"measurement_type"`

	// Columns lists the canonical column names in file order.
	Columns []string `json:"columns"`

	// Series holds the parsed numeric values per column.
	Series map[string][]float64 `json:"series"`

	// Metadata holds scalar facts about the file (encoding, delimiter,
	// units, header presence).
	Metadata map[string]string `json:"metadata"`

	// Rows is the number of data rows.
	Rows int `json:"rows"`

	// MaxCycle is the estimated cycle count for CV/GCD files, 0 otherwise.
	MaxCycle int `json:"max_cycle,omitempty"`
}

// Extractor parses files routed to it by the classifier.
type Extractor struct {
	registry    *classifier.Registry
	encodings   []string
	maxFileSize int64
}

// Option configures the Extractor.
type Option func(*Extractor)

// WithEncodings sets the priority-ordered decode attempts.
func WithEncodings(encodings []string) Option {
	return func(e *Extractor) {
		if len(encodings) > 0 {
			e.encodings = encodings
		}
	}
}

// WithMaxFileSize caps the bytes read from a single data file. Larger files
// fail extraction instead of being loaded into memory.
func WithMaxFileSize(n int64) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxFileSize = n
		}
	}
}

// New creates an Extractor over the given format registry.
func New(registry *classifier.Registry, opts ...Option) *Extractor {
	e := &Extractor{
		registry:    registry,
		encodings:   []string{"utf-8", "gbk", "latin-1"},
		maxFileSize: 256 * 1024 * 1024,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract parses path as the given format. Read errors and every structural
// violation fail with *MalformedDataError; no partial record is returned.
func (e *Extractor) Extract(path, formatTag string) (*Record, error) {
	format := e.registry.ByTag(formatTag)
	if format == nil {
		return nil, &MalformedDataError{Path: path, Detail: "unknown format tag " + formatTag}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &MalformedDataError{Path: path, Detail: "unreadable: " + err.Error()}
	}
	if info.Size() > e.maxFileSize {
		return nil, &MalformedDataError{Path: path, Detail: fmt.Sprintf("file too large: %d bytes exceeds the %d byte limit", info.Size(), e.maxFileSize)}
	}

	raw, err := os.ReadFile(path) // #nosec G304 -- scanning user-chosen trees is the point
	if err != nil {
		return nil, &MalformedDataError{Path: path, Detail: "unreadable: " + err.Error()}
	}

	text, encodingName, ok := decodeText(raw, e.encodings)
	if !ok {
		return nil, &MalformedDataError{Path: path, Detail: "undecodable"}
	}

	doc, err := parseDocument(path, text, format)
	if err != nil {
		return nil, err
	}

	record := doc.toRecord(format.Tag)
	record.Metadata["encoding"] = encodingName
	return record, nil
}

// document is the intermediate parse of one file.
type document struct {
	path         string
	columns      []string
	units        map[string]string
	hasHeader    bool
	delimiter    string
	rows         [][]float64
	markers      []cycleMarker
	lastDataLine int // line index of the final data row
}

type cycleMarker struct {
	line int
	k    int
}

func parseDocument(path string, text string, format *classifier.Format) (*document, error) {
	doc := &document{path: path, units: map[string]string{}}

	lines := strings.Split(text, "\n")
	width := -1

	for i, raw := range lines {
		line := strings.TrimSuffix(raw, "\r")
		if i == 0 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		if k, ok := isStandaloneCycleMarker(line); ok {
			if k > 0 {
				doc.markers = append(doc.markers, cycleMarker{line: i, k: k})
			}
			continue
		}

		stripped, k := stripCycleMarkerTail(line)
		if k > 0 {
			doc.markers = append(doc.markers, cycleMarker{line: i, k: k})
		}
		if strings.TrimSpace(stripped) == "" {
			continue
		}

		tokens := splitTokens(stripped)
		if len(tokens) == 0 {
			continue
		}

		// First content line: header or headerless data.
		if doc.columns == nil && len(doc.rows) == 0 {
			doc.delimiter = detectDelimiter(stripped)
			if !allNumeric(tokens) {
				doc.columns, doc.units = mapHeaderColumns(tokens)
				doc.hasHeader = true
				width = len(tokens)
				continue
			}
			if format.RequireHeader {
				return nil, &MalformedDataError{Path: path, Detail: "missing required header"}
			}
			if len(tokens) < format.MinNumericColumns {
				return nil, &MalformedDataError{Path: path, Detail: fmt.Sprintf("line %d: %d columns, format needs at least %d", i+1, len(tokens), format.MinNumericColumns)}
			}
			doc.columns = positionalColumns(len(tokens))
			width = len(tokens)
			// fall through to parse this line as data
		}

		if len(tokens) != width {
			return nil, &MalformedDataError{Path: path, Detail: fmt.Sprintf("line %d: %d columns, expected %d", i+1, len(tokens), width)}
		}

		row := make([]float64, len(tokens))
		for j, tok := range tokens {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil || !isNumberToken(tok) {
				return nil, &MalformedDataError{Path: path, Detail: fmt.Sprintf("line %d: non-numeric value %q in column %d", i+1, tok, j+1)}
			}
			row[j] = v
		}
		doc.rows = append(doc.rows, row)
		doc.lastDataLine = i
	}

	if len(doc.rows) == 0 {
		return nil, &MalformedDataError{Path: path, Detail: "no data rows"}
	}
	if err := doc.validateRequiredColumns(format); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *document) validateRequiredColumns(format *classifier.Format) error {
	if format.Tag != "EIS" {
		return nil
	}
	// EIS exports are meaningless without a labelled frequency axis and at
	// least one impedance component.
	if !d.hasHeader {
		return &MalformedDataError{Path: d.path, Detail: "missing required header"}
	}
	hasFreq, hasZ := false, false
	for _, c := range d.columns {
		switch c {
		case ColFreq:
			hasFreq = true
		case ColZre, ColZim:
			hasZ = true
		}
	}
	if !hasFreq || !hasZ {
		return &MalformedDataError{Path: d.path, Detail: "header missing frequency or impedance columns"}
	}
	return nil
}

func (d *document) toRecord(tag string) *Record {
	series := make(map[string][]float64, len(d.columns))
	for idx, name := range d.columns {
		vals := make([]float64, len(d.rows))
		for r, row := range d.rows {
			vals[r] = row[idx]
		}
		series[name] = vals
	}

	meta := map[string]string{
		"delimiter":  d.delimiter,
		"has_header": strconv.FormatBool(d.hasHeader),
	}
	for col, unit := range d.units {
		meta["unit_"+col] = unit
	}

	rec := &Record{
		MeasurementType: tag,
		Columns:         append([]string(nil), d.columns...),
		Series:          series,
		Metadata:        meta,
		Rows:            len(d.rows),
	}

	switch tag {
	case "GCD":
		rec.MaxCycle = d.maxCycleFromColumn(series)
		if rec.MaxCycle == 0 {
			rec.MaxCycle = d.maxCycleFromMarkers()
		}
	case "CV":
		rec.MaxCycle = d.maxCycleFromMarkers()
	}
	return rec
}

// maxCycleFromColumn reads the cycle column when the file has one.
func (d *document) maxCycleFromColumn(series map[string][]float64) int {
	vals, ok := series[ColCycle]
	if !ok {
		return 0
	}
	max := 0
	for _, v := range vals {
		if int(v) > max {
			max = int(v)
		}
	}
	return max
}

// maxCycleFromMarkers estimates the cycle count from "N CYCLE" markers: the
// highest marker value, plus one when data rows follow that marker (an
// in-progress cycle). A marker-less file counts as a single cycle.
func (d *document) maxCycleFromMarkers() int {
	if len(d.markers) == 0 {
		return 1
	}
	best := d.markers[0]
	for _, m := range d.markers[1:] {
		if m.k > best.k {
			best = m
		}
	}
	if d.lastDataLine > best.line {
		return best.k + 1
	}
	return best.k
}

func allNumeric(tokens []string) bool {
	for _, t := range tokens {
		if !isNumberToken(t) {
			return false
		}
	}
	return true
}

func positionalColumns(n int) []string {
	cols := make([]string, n)
	for i := range cols {
		cols[i] = positionalName(i)
	}
	return cols
}
