// Package classifier decides whether and how a candidate file should be
// parsed. Classification never fails: unreadable or unrecognized files are
// routed to a skip, not an error.
package classifier

import (
	"bufio"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// RouteKind is the classification outcome for one file.
type RouteKind string

const (
	// RouteExtract routes the file to the extractor for the tagged format.
	RouteExtract RouteKind = "extract"

	// RouteSkipUnsupported marks a file no registered format claims.
	RouteSkipUnsupported RouteKind = "skip_unsupported"

	// RouteSkipUnreadable marks a file that could not be stat'ed or opened.
	RouteSkipUnreadable RouteKind = "skip_unreadable"
)

// Route is the classification decision for one file.
type Route struct {
	Kind      RouteKind
	FormatTag string // set when Kind == RouteExtract
	Detail    string // human-readable cause for skips
	Cause     error  // underlying error for RouteSkipUnreadable
}

// Sniffable extensions: text exports that may carry a recognizable header
// even when the file name does not follow the naming convention.
var sniffableExts = map[string]bool{
	".txt": true,
	".csv": true,
}

// Classifier routes candidate files by name pattern first and, for ambiguous
// text files, by a bounded content sniff of the first line.
type Classifier struct {
	registry         *Registry
	sniffBytes       int
	sniffMaxFileSize int64
}

// Option configures the Classifier.
type Option func(*Classifier)

// WithSniffBytes caps how many bytes may be read during a content sniff.
func WithSniffBytes(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.sniffBytes = n
		}
	}
}

// WithSniffMaxFileSize disables sniffing for files larger than n bytes.
func WithSniffMaxFileSize(n int64) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.sniffMaxFileSize = n
		}
	}
}

// New creates a Classifier over the given registry.
func New(registry *Registry, opts ...Option) *Classifier {
	c := &Classifier{
		registry:         registry,
		sniffBytes:       64 * 1024,
		sniffMaxFileSize: 32 * 1024 * 1024,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the format registry the classifier routes against.
func (c *Classifier) Registry() *Registry {
	return c.registry
}

// Classify decides the route for path. info may be nil, in which case the
// file is stat'ed; stat or open failures become RouteSkipUnreadable.
func (c *Classifier) Classify(path string, info fs.FileInfo) Route {
	if info == nil {
		var err error
		info, err = os.Stat(path)
		if err != nil {
			return Route{Kind: RouteSkipUnreadable, Detail: "stat failed", Cause: err}
		}
	}

	name := filepath.Base(path)
	for _, f := range c.registry.Formats() {
		if f.NamePattern != nil && f.NamePattern.MatchString(name) {
			return Route{Kind: RouteExtract, FormatTag: f.Tag}
		}
	}

	ext := strings.ToLower(filepath.Ext(name))
	if !sniffableExts[ext] {
		return Route{Kind: RouteSkipUnsupported, Detail: "unsupported extension " + ext}
	}

	if info.Size() > c.sniffMaxFileSize {
		return Route{Kind: RouteSkipUnsupported, Detail: "file too large to sniff"}
	}

	header, err := c.sniffHeader(path)
	if err != nil {
		return Route{Kind: RouteSkipUnreadable, Detail: "open failed", Cause: err}
	}

	if tag := c.matchHeader(header); tag != "" {
		return Route{Kind: RouteExtract, FormatTag: tag}
	}
	return Route{Kind: RouteSkipUnsupported, Detail: "no matching format"}
}

// sniffHeader reads the first line of the file, never more than sniffBytes.
func (c *Classifier) sniffHeader(path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 -- scanning user-chosen trees is the point
	if err != nil {
		return "", err
	}
	defer f.Close()

	r := bufio.NewReader(io.LimitReader(f, int64(c.sniffBytes)))
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimPrefix(strings.TrimSpace(line), "\ufeff"), nil
}

func (c *Classifier) matchHeader(header string) string {
	if header == "" {
		return ""
	}
	lower := strings.ToLower(header)
	for _, f := range c.registry.Formats() {
		for _, kw := range f.HeaderKeywords {
			if strings.Contains(lower, kw) {
				return f.Tag
			}
		}
	}
	return ""
}
